package xl

import (
	"testing"
	"time"
)

func TestNormalizeMSISDN(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"0819123456789", "62819123456789", true},
		{"+62819123456789", "62819123456789", true},
		{"62819123456789", "62819123456789", true},
		{"0819-1234-5678", "6281912345678", true},
		{" 0819 1234 5678 ", "6281912345678", true},
		{"abc", "", false},
		{"", "", false},
		{"628", "", false},
		{"1234567890", "", false},
		{"+1819123456789", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeMSISDN(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("NormalizeMSISDN(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseExpiry(t *testing.T) {
	if _, ok := ParseExpiry("-", time.UTC); ok {
		t.Error("placeholder expiry should not parse")
	}
	if _, ok := ParseExpiry("2025-03-05", time.UTC); ok {
		t.Error("ISO layout should not parse")
	}
	got, ok := ParseExpiry("05-03-2025", time.UTC)
	if !ok {
		t.Fatal("expected 05-03-2025 to parse")
	}
	if got.Year() != 2025 || got.Month() != time.March || got.Day() != 5 {
		t.Errorf("parsed wrong date: %v", got)
	}
}

func TestIndicatorByDate(t *testing.T) {
	now := time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)
	cases := []struct {
		expiry string
		days   int
		known  bool
	}{
		{"04-03-2025", 0, true},
		{"05-03-2025", 1, true},
		{"08-03-2025", 4, true},
		{"20-03-2025", 16, true},
		{"01-03-2025", -3, true},
		{"-", 0, false},
		{"banana", 0, false},
	}
	for _, tc := range cases {
		ind := IndicatorByDate(tc.expiry, now)
		if ind.Known != tc.known {
			t.Errorf("IndicatorByDate(%q).Known = %v, want %v", tc.expiry, ind.Known, tc.known)
			continue
		}
		if tc.known && ind.DaysLeft != tc.days {
			t.Errorf("IndicatorByDate(%q).DaysLeft = %d, want %d", tc.expiry, ind.DaysLeft, tc.days)
		}
	}
}

func TestAbbreviatePackage(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Xtra Combo VIP Plus YouTube", "XCVIP YT"},
		{"XTRA Combo Flex", "XTRACF"},
		{"internet malam", "INTERNET"},
		{"", "PAKET"},
	}
	for _, tc := range cases {
		if got := AbbreviatePackage(tc.in); got != tc.want {
			t.Errorf("AbbreviatePackage(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPrimaryPackageInfo(t *testing.T) {
	p := &Payload{Data: &Data{PackageInfo: &PackageInfo{
		Packages: []Package{{Name: "Xtra Combo Flex", Expiry: "05-03-2025"}},
	}}}
	abbr, expiry, full := PrimaryPackageInfo(p)
	if abbr == "" || expiry != "05-03-2025" || full != "Xtra Combo Flex" {
		t.Errorf("unexpected primary info: %q %q %q", abbr, expiry, full)
	}

	rejected := &Payload{Data: &Data{PackageInfo: &PackageInfo{ErrorMessage: "nomor diblokir"}}}
	abbr, expiry, full = PrimaryPackageInfo(rejected)
	if abbr != "ERROR: nomor diblokir" || expiry != "-" || full != "" {
		t.Errorf("unexpected rejection info: %q %q %q", abbr, expiry, full)
	}

	abbr, expiry, _ = PrimaryPackageInfo(&Payload{})
	if abbr != "-" || expiry != "-" {
		t.Errorf("unexpected empty info: %q %q", abbr, expiry)
	}
}

func TestPayloadAccessorsNilSafe(t *testing.T) {
	var p *Payload
	if p.PackageError() != "" || p.Packages() != nil {
		t.Error("nil payload accessors must return zero values")
	}
	if (p.Subs() != SubsInfo{}) {
		t.Error("nil payload Subs must be zero")
	}
}
