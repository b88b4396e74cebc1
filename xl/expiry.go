package xl

import (
	"fmt"
	"time"
)

// ExpiryLayout is the wire format of package expiry dates.
const ExpiryLayout = "02-01-2006"

// Indicator summarizes how close a package expiry is, for list rendering
// and reminder classification.
type Indicator struct {
	Icon     string
	Text     string
	DaysLeft int
	Known    bool
}

// ParseExpiry parses a DD-MM-YYYY expiry string in the given location.
// Placeholder values ("", "-") and malformed dates report ok=false.
func ParseExpiry(text string, loc *time.Location) (time.Time, bool) {
	if text == "" || text == "-" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(ExpiryLayout, text, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DaysUntil returns whole calendar days from today (in loc) to the expiry.
func DaysUntil(expiry, now time.Time) int {
	y1, m1, d1 := now.Date()
	y2, m2, d2 := expiry.Date()
	today := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	target := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(target.Sub(today).Hours() / 24)
}

// IndicatorByDate classifies an expiry text relative to now.
func IndicatorByDate(expiryText string, now time.Time) Indicator {
	expiry, ok := ParseExpiry(expiryText, now.Location())
	if !ok {
		return Indicator{Icon: "⚪", Text: "Tanggal tidak diketahui"}
	}
	delta := DaysUntil(expiry, now)
	switch {
	case delta < 0:
		return Indicator{Icon: "🔴", Text: fmt.Sprintf("Sudah lewat %d hari", -delta), DaysLeft: delta, Known: true}
	case delta == 0:
		return Indicator{Icon: "🟠", Text: "HARI INI", DaysLeft: 0, Known: true}
	case delta == 1:
		return Indicator{Icon: "🟡", Text: "Besok", DaysLeft: 1, Known: true}
	case delta <= 7:
		return Indicator{Icon: "🟢", Text: fmt.Sprintf("%d hari lagi", delta), DaysLeft: delta, Known: true}
	default:
		return Indicator{Icon: "🔵", Text: fmt.Sprintf("%d hari lagi", delta), DaysLeft: delta, Known: true}
	}
}
