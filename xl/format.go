package xl

import (
	"regexp"
	"strings"
	"unicode"
)

var wsRe = regexp.MustCompile(`\s+`)

// AbbreviatePackage shortens a package name for compact list rows and
// calendar titles. Known long-form names get fixed abbreviations; otherwise
// the capital letters are used when they form a plausible acronym, falling
// back to the first word truncated to eight characters.
func AbbreviatePackage(name string) string {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "xtra combo") && strings.Contains(lower, "vip") && strings.Contains(lower, "youtube") {
		return "XCVIP YT"
	}
	var caps strings.Builder
	for _, r := range name {
		if unicode.IsUpper(r) {
			caps.WriteRune(r)
		}
	}
	if n := caps.Len(); n >= 2 && n <= 8 {
		return caps.String()
	}
	parts := wsRe.Split(strings.TrimSpace(name), -1)
	if len(parts) > 0 && parts[0] != "" {
		first := parts[0]
		if len(first) > 8 {
			first = first[:8]
		}
		return strings.ToUpper(first)
	}
	return "PAKET"
}

// PrimaryPackageInfo extracts the abbreviation, expiry text, and full name
// of the leading package, mirroring what list views show as the headline.
// An upstream rejection takes precedence over package data.
func PrimaryPackageInfo(p *Payload) (abbr, expiry, fullName string) {
	if msg := p.PackageError(); msg != "" {
		return "ERROR: " + msg, "-", ""
	}
	pkgs := p.Packages()
	if len(pkgs) == 0 {
		return "-", "-", ""
	}
	first := pkgs[0]
	name := first.Name
	if name == "" {
		name = "-"
	}
	expiry = first.Expiry
	if expiry == "" {
		expiry = "-"
	}
	return AbbreviatePackage(name), expiry, name
}
