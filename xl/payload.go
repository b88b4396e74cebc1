// Package xl models the quota-lookup payload for XL prepaid numbers and the
// small pieces of domain logic attached to it: MSISDN canonicalization,
// expiry-date classification, and package naming.
package xl

import "strings"

// Payload is the top-level quota-lookup response body. Every field is
// optional on the wire; accessors below guard against absent branches so
// callers never have to nil-check nested structs.
type Payload struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    *Data  `json:"data,omitempty"`
}

// Data carries subscriber and package details.
type Data struct {
	SubsInfo    *SubsInfo    `json:"subs_info,omitempty"`
	PackageInfo *PackageInfo `json:"package_info,omitempty"`
}

// SubsInfo describes the subscriber line itself.
type SubsInfo struct {
	MSISDN     string `json:"msisdn,omitempty"`
	Operator   string `json:"operator,omitempty"`
	NetType    string `json:"net_type,omitempty"`
	Tenure     string `json:"tenure,omitempty"`
	ExpDate    string `json:"exp_date,omitempty"`
	IDVerified string `json:"id_verified,omitempty"`
}

// PackageInfo lists active packages or carries an upstream rejection text.
type PackageInfo struct {
	ErrorMessage string    `json:"error_message,omitempty"`
	Packages     []Package `json:"packages,omitempty"`
}

// Package is one active data package with its expiry and quota lines.
type Package struct {
	Name   string  `json:"name,omitempty"`
	Expiry string  `json:"expiry,omitempty"`
	Quotas []Quota `json:"quotas,omitempty"`
}

// Quota is a single allowance line within a package.
type Quota struct {
	Name      string `json:"name,omitempty"`
	Remaining string `json:"remaining,omitempty"`
	Total     string `json:"total,omitempty"`
	Percent   *int   `json:"percent,omitempty"`
}

// PackageError returns the nested package_info error message, if any.
func (p *Payload) PackageError() string {
	if p == nil || p.Data == nil || p.Data.PackageInfo == nil {
		return ""
	}
	return strings.TrimSpace(p.Data.PackageInfo.ErrorMessage)
}

// Packages returns the package list, or nil when any branch is absent.
func (p *Payload) Packages() []Package {
	if p == nil || p.Data == nil || p.Data.PackageInfo == nil {
		return nil
	}
	return p.Data.PackageInfo.Packages
}

// Subs returns subscriber info with a zero value fallback.
func (p *Payload) Subs() SubsInfo {
	if p == nil || p.Data == nil || p.Data.SubsInfo == nil {
		return SubsInfo{}
	}
	return *p.Data.SubsInfo
}

// FirstQuota returns the leading quota line of a package, if present.
func (pkg Package) FirstQuota() (Quota, bool) {
	if len(pkg.Quotas) == 0 {
		return Quota{}, false
	}
	return pkg.Quotas[0], true
}
