package xl

import "regexp"

var (
	nonDialRe = regexp.MustCompile(`[^\d+]`)
	canonicRe = regexp.MustCompile(`^62\d{7,14}$`)
)

// NormalizeMSISDN canonicalizes user input into the `62` + digits form used
// as the unique record key. Accepted spellings: `0819…`, `+62819…`,
// `62819…`, with separators stripped. Returns ok=false when the result does
// not form a valid Indonesian mobile number.
func NormalizeMSISDN(raw string) (string, bool) {
	s := nonDialRe.ReplaceAllString(raw, "")
	if len(s) > 0 && s[0] == '+' {
		s = s[1:]
	}
	if len(s) > 0 && s[0] == '0' {
		s = "62" + s[1:]
	}
	if !canonicRe.MatchString(s) {
		return "", false
	}
	return s, true
}
