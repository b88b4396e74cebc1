package app

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ridhan354/xlreminder/storage"
)

func recordWithExpiry(t *testing.T, expiry string) storage.NumberRecord {
	t.Helper()
	payload := map[string]any{
		"success": true,
		"data": map[string]any{
			"package_info": map[string]any{
				"packages": []map[string]any{{"name": "Xtra Combo", "expiry": expiry}},
			},
		},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return storage.NumberRecord{MSISDN: "628190000001", LastPayload: raw}
}

func TestOverviewSortKey(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	rec := recordWithExpiry(t, "02-09-2026")
	if got := overviewSortKey(rec, storage.SortAsc, now); got != 3 {
		t.Fatalf("days-left key = %d, want 3", got)
	}

	empty := storage.NumberRecord{MSISDN: "628190000002"}
	if got := overviewSortKey(empty, storage.SortAsc, now); got != unknownDaysLeft {
		t.Fatalf("no-payload asc key = %d, want %d", got, unknownDaysLeft)
	}
	if got := overviewSortKey(empty, storage.SortDesc, now); got != -unknownDaysLeft {
		t.Fatalf("no-payload desc key = %d, want %d", got, -unknownDaysLeft)
	}

	unknown := recordWithExpiry(t, "-")
	if got := overviewSortKey(unknown, storage.SortAsc, now); got != unknownDaysLeft {
		t.Fatalf("unknown-date key = %d, want %d", got, unknownDaysLeft)
	}
}

func TestTrimLabel(t *testing.T) {
	if got := trimLabel("  IWAN  "); got != "IWAN" {
		t.Fatalf("trimLabel = %q", got)
	}
	long := "abcdefghijklmnopqrstuvwxyz0123456789"
	if got := trimLabel(long); len([]rune(got)) != maxLabelLen {
		t.Fatalf("long label kept %d runes, want %d", len([]rune(got)), maxLabelLen)
	}
}

func TestParseWeekday(t *testing.T) {
	cases := map[string]time.Weekday{
		"sun":     time.Sunday,
		"Sunday":  time.Sunday,
		"MON":     time.Monday,
		"friday ": time.Friday,
	}
	for in, want := range cases {
		got, err := parseWeekday(in)
		if err != nil {
			t.Fatalf("parseWeekday(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("parseWeekday(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := parseWeekday("someday"); err == nil {
		t.Fatal("expected error for invalid weekday")
	}
}

func TestIsAdmin(t *testing.T) {
	cfg := &Config{AdminIDs: []int64{10, 20}}
	if !cfg.IsAdmin(20) {
		t.Fatal("listed admin rejected")
	}
	if cfg.IsAdmin(30) {
		t.Fatal("unlisted user accepted")
	}

	cfg = &Config{}
	cfg.Core.Telegram.AdminID = 42
	if !cfg.IsAdmin(42) {
		t.Fatal("core admin fallback rejected")
	}
	if cfg.IsAdmin(0) {
		t.Fatal("zero user must never be admin")
	}
}

func TestNormalizeDefaults(t *testing.T) {
	var cfg Config
	if err := normalize(&cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Refresh.IntervalSeconds != 21600 {
		t.Fatalf("refresh interval = %d, want 21600", cfg.Refresh.IntervalSeconds)
	}
	if cfg.Refresh.ScanIntervalMinutes != 30 {
		t.Fatalf("scan interval = %d, want 30", cfg.Refresh.ScanIntervalMinutes)
	}
	if cfg.Reminder.DefaultHour == nil || *cfg.Reminder.DefaultHour != 9 {
		t.Fatalf("reminder hour = %v, want 9", cfg.Reminder.DefaultHour)
	}
	if cfg.Backup.Weekday != "sun" {
		t.Fatalf("backup weekday = %q, want sun", cfg.Backup.Weekday)
	}
	if cfg.Timezone != "Asia/Jakarta" {
		t.Fatalf("timezone = %q", cfg.Timezone)
	}

	bad := Config{Quota: QuotaConfig{URLTemplate: "https://example.com/no-placeholder"}}
	if err := normalize(&bad); err == nil {
		t.Fatal("expected error for template without {number}")
	}
}

func TestNormalizeKeepsMidnightReminderHour(t *testing.T) {
	hour := 0
	cfg := Config{Reminder: ReminderConfig{DefaultHour: &hour}}
	if err := normalize(&cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if *cfg.Reminder.DefaultHour != 0 {
		t.Fatalf("reminder hour = %d, want midnight kept", *cfg.Reminder.DefaultHour)
	}

	out := 24
	bad := Config{Reminder: ReminderConfig{DefaultHour: &out}}
	if err := normalize(&bad); err == nil {
		t.Fatal("expected error for hour outside 0..23")
	}
}
