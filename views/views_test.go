package views

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ridhan354/xlreminder/storage"
	"github.com/ridhan354/xlreminder/xl"
)

func intp(v int) *int { return &v }

func TestProgressBar(t *testing.T) {
	if got := ProgressBar(nil, 20); got != "—" {
		t.Errorf("nil percent = %q", got)
	}
	got := ProgressBar(intp(50), 20)
	if !strings.Contains(got, "50%") {
		t.Errorf("missing percentage: %q", got)
	}
	if strings.Count(got, "█") != 10 || strings.Count(got, "─") != 10 {
		t.Errorf("bad bar fill: %q", got)
	}
	if got := ProgressBar(intp(150), 10); !strings.Contains(got, "100%") {
		t.Errorf("percent not clamped: %q", got)
	}
}

func TestDetailMessage(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	p := &xl.Payload{Success: true, Data: &xl.Data{
		SubsInfo: &xl.SubsInfo{MSISDN: "628123", Operator: "XL", NetType: "4G"},
		PackageInfo: &xl.PackageInfo{Packages: []xl.Package{
			{Name: "Xtra Combo Flex", Expiry: "05-03-2025", Quotas: []xl.Quota{
				{Name: "Internet", Remaining: "2 GB", Total: "10 GB", Percent: intp(20)},
			}},
		}},
	}}

	msg := DetailMessage(p, now)
	for _, want := range []string{"Informasi Kuota — XL", "<code>628123</code>", "Xtra Combo Flex", "05-03-2025", "2 GB", "2025-03-04 10:00:00"} {
		if !strings.Contains(msg, want) {
			t.Errorf("detail message missing %q:\n%s", want, msg)
		}
	}
}

func TestDetailMessageRejection(t *testing.T) {
	now := time.Now()
	p := &xl.Payload{Data: &xl.Data{PackageInfo: &xl.PackageInfo{ErrorMessage: "nomor <diblokir>"}}}
	msg := DetailMessage(p, now)
	if !strings.Contains(msg, "Pengecekan Ditolak") {
		t.Error("rejection header missing")
	}
	if !strings.Contains(msg, "nomor &lt;diblokir&gt;") {
		t.Error("error message must be HTML-escaped")
	}
}

func TestRenderOverviewEntryBlocked(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	got := RenderOverviewEntry(OverviewEntry{
		Label:        "Ibu",
		MSISDN:       "628123",
		Error:        "Batas maksimal pengecekan",
		BlockedUntil: now.Unix() + 600,
	}, now)
	if !strings.Contains(got, "~10 menit") {
		t.Errorf("blocked entry must show the wait:\n%s", got)
	}
	if strings.Contains(got, "Masa aktif paket") {
		t.Error("blocked entry must not show package lines")
	}
}

func TestRenderOverviewEntryNoData(t *testing.T) {
	got := RenderOverviewEntry(OverviewEntry{MSISDN: "628123"}, time.Now())
	if !strings.Contains(got, "Belum ada data") {
		t.Errorf("entry without cache must prompt a check:\n%s", got)
	}
	if !strings.Contains(got, "<b>628123</b>") {
		t.Error("empty label must fall back to the msisdn")
	}
}

func TestReminderMessage(t *testing.T) {
	now := time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC)
	pkgs := []xl.Package{{Name: "Xtra Combo Flex", Expiry: "05-03-2025", Quotas: []xl.Quota{
		{Name: "Internet", Remaining: "2 GB", Total: "10 GB"},
	}}}

	h1 := ReminderMessage("628123", "Ibu", "H-1", "05-03-2025", pkgs, now)
	if !strings.Contains(h1, "Pengingat H-1") {
		t.Error("h-1 bucket must use the H-1 header")
	}
	if !strings.Contains(h1, "Besok") {
		t.Error("h-1 reminder must carry the Besok indicator")
	}
	if !strings.Contains(h1, "Sisa utama: <b>2 GB</b> / 10 GB") {
		t.Errorf("reminder missing the primary quota line:\n%s", h1)
	}

	h0 := ReminderMessage("628123", "Ibu", "H0", "04-03-2025", pkgs, now)
	if !strings.Contains(h0, "Pengingat Paket") {
		t.Error("h0 bucket must use the expiry-day header")
	}
}

func record(msisdn, label string, payload *xl.Payload) storage.NumberRecord {
	raw, _ := json.Marshal(payload)
	return storage.NumberRecord{MSISDN: msisdn, Label: label, LastPayload: raw}
}

func TestBuildICS(t *testing.T) {
	now := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	inWindow := record("628111", "Ibu", &xl.Payload{Data: &xl.Data{PackageInfo: &xl.PackageInfo{
		Packages: []xl.Package{{Name: "Xtra Combo Flex", Expiry: "10-03-2025"}},
	}}})
	beyond := record("628222", "Ayah", &xl.Payload{Data: &xl.Data{PackageInfo: &xl.PackageInfo{
		Packages: []xl.Package{{Name: "Xtra Combo Flex", Expiry: "10-06-2025"}},
	}}})
	rejected := record("628333", "Adik", &xl.Payload{Data: &xl.Data{PackageInfo: &xl.PackageInfo{
		ErrorMessage: "diblokir",
	}}})
	empty := storage.NumberRecord{MSISDN: "628444"}

	ics := string(BuildICS([]storage.NumberRecord{inWindow, beyond, rejected, empty}, now))

	if !strings.HasPrefix(ics, "BEGIN:VCALENDAR\r\n") {
		t.Error("missing calendar envelope")
	}
	if got := strings.Count(ics, "BEGIN:VEVENT"); got != 1 {
		t.Fatalf("expected 1 event, got %d:\n%s", got, ics)
	}
	if !strings.Contains(ics, "DTSTART;VALUE=DATE:20250310") {
		t.Error("event date missing")
	}
	if !strings.Contains(ics, "UID:628111-20250310-") {
		t.Error("UID must derive from msisdn and date")
	}
	if strings.Contains(ics, "628222") || strings.Contains(ics, "628333") {
		t.Error("out-of-window and rejected numbers must be skipped")
	}

	// Same inputs, same bytes: the UID must be stable across exports.
	again := string(BuildICS([]storage.NumberRecord{inWindow}, now))
	if !strings.Contains(ics, extractUID(t, again)) {
		t.Error("UID must be stable across exports")
	}
}

func extractUID(t *testing.T, ics string) string {
	t.Helper()
	for _, line := range strings.Split(ics, "\r\n") {
		if strings.HasPrefix(line, "UID:") {
			return line
		}
	}
	t.Fatal("no UID line found")
	return ""
}
