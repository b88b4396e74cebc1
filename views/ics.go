package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/ridhan354/xlreminder/storage"
	"github.com/ridhan354/xlreminder/xl"
)

// ICSWindowDays is how far ahead the calendar export looks.
const ICSWindowDays = 30

func icsEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, ",", `\,`, ";", `\;`, "\n", `\n`)
	return r.Replace(s)
}

// BuildICS renders a VCALENDAR with one all-day event per number whose
// primary package expires within the window. UIDs derive from the MSISDN,
// date, and package abbreviation so re-imports update rather than
// duplicate events.
func BuildICS(records []storage.NumberRecord, now time.Time) []byte {
	limit := now.AddDate(0, 0, ICSWindowDays)
	var events []string
	for _, rec := range records {
		payload := rec.Payload()
		if payload == nil {
			continue
		}
		abbr, expiry, fullName := xl.PrimaryPackageInfo(payload)
		if strings.HasPrefix(abbr, "ERROR:") || expiry == "" || expiry == "-" {
			continue
		}
		eventDate, ok := xl.ParseExpiry(expiry, now.Location())
		if !ok || eventDate.After(limit) {
			continue
		}
		label := rec.Label
		if label == "" {
			label = storage.DefaultLabel
		}
		title := strings.TrimSpace(label + " " + abbr)
		uid := fmt.Sprintf("%s-%s-%s-xlreminder",
			rec.MSISDN, eventDate.Format("20060102"), strings.ReplaceAll(abbr, " ", ""))
		if fullName == "" {
			fullName = abbr
		}
		desc := fmt.Sprintf("Nomor: %s\\nPaket: %s\\nDibuat oleh XL Reminder Bot",
			rec.MSISDN, icsEscape(fullName))
		events = append(events, strings.Join([]string{
			"BEGIN:VEVENT",
			"UID:" + uid,
			"DTSTAMP:" + now.Format("20060102T150405"),
			"SUMMARY:" + icsEscape(title),
			"TRANSP:OPAQUE",
			"CLASS:PUBLIC",
			"STATUS:CONFIRMED",
			"DTSTART;VALUE=DATE:" + eventDate.Format("20060102"),
			"DTEND;VALUE=DATE:" + eventDate.AddDate(0, 0, 1).Format("20060102"),
			"DESCRIPTION:" + desc,
			"END:VEVENT",
		}, "\r\n"))
	}

	parts := []string{
		"BEGIN:VCALENDAR",
		"PRODID:-//XL-Reminder//ID",
		"VERSION:2.0",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}
	parts = append(parts, events...)
	parts = append(parts, "END:VCALENDAR", "")
	return []byte(strings.Join(parts, "\r\n"))
}
