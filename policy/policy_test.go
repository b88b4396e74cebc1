package policy

import (
	"testing"
	"time"
)

const interval = int64(6 * 60 * 60)

func TestRefreshDue(t *testing.T) {
	now := int64(1_000_000)
	cases := []struct {
		name      string
		lastFetch int64
		nextRetry int64
		want      bool
	}{
		{"fresh cache", now - interval + 100, 0, false},
		{"exactly at interval", now - interval, 0, true},
		{"past interval", now - interval - 100, 0, true},
		{"never fetched", 0, 0, true},
		{"stale but blocked", now - interval - 100, now + 10, false},
		{"block just expired", now - interval - 100, now, true},
		{"blocked and fresh", now - 100, now + 10, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RefreshDue(now, tc.lastFetch, tc.nextRetry, interval); got != tc.want {
				t.Errorf("RefreshDue(last=%d next=%d) = %v, want %v", tc.lastFetch, tc.nextRetry, got, tc.want)
			}
		})
	}
}

func TestRefreshDueBoundary(t *testing.T) {
	// With a 6h interval, a cache aged 21600s is due and 21500s is not.
	now := int64(2_000_000)
	if !RefreshDue(now, now-21600, 0, interval) {
		t.Error("age 21600 with 21600 interval must be due")
	}
	if RefreshDue(now, now-21500, 0, interval) {
		t.Error("age 21500 with 21600 interval must not be due")
	}
}

func TestHourMatches(t *testing.T) {
	prefs := ReminderPrefs{ReminderHour: 8}
	at := func(h int) time.Time { return time.Date(2025, 3, 4, h, 30, 0, 0, time.UTC) }
	if !HourMatches(at(8), prefs) {
		t.Error("08:30 must match hour 8")
	}
	if HourMatches(at(9), prefs) {
		t.Error("09:30 must not match hour 8")
	}
}

func TestClassify(t *testing.T) {
	now := time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC)
	all := ReminderPrefs{RemindH1: true, RemindH0: true, ReminderHour: 8}

	cases := []struct {
		name   string
		expiry string
		prefs  ReminderPrefs
		bucket string
		ok     bool
	}{
		{"tomorrow", "05-03-2025", all, BucketH1, true},
		{"today", "04-03-2025", all, BucketH0, true},
		{"two days out", "06-03-2025", all, "", false},
		{"already expired", "03-03-2025", all, "", false},
		{"unknown expiry", "-", all, "", false},
		{"h1 disabled", "05-03-2025", ReminderPrefs{RemindH0: true}, "", false},
		{"h0 disabled", "04-03-2025", ReminderPrefs{RemindH1: true}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bucket, ok := Classify(tc.expiry, now, tc.prefs)
			if bucket != tc.bucket || ok != tc.ok {
				t.Errorf("Classify(%q) = (%q, %v), want (%q, %v)", tc.expiry, bucket, ok, tc.bucket, tc.ok)
			}
		})
	}
}

func TestAlreadyNotified(t *testing.T) {
	if !AlreadyNotified(BucketH1, "05-03-2025", BucketH1, "05-03-2025") {
		t.Error("same bucket and expiry must dedup")
	}
	if AlreadyNotified(BucketH1, "05-03-2025", BucketH0, "05-03-2025") {
		t.Error("different bucket must not dedup")
	}
	// A topped-up package moves its expiry, which re-arms the reminder.
	if AlreadyNotified(BucketH1, "05-03-2025", BucketH1, "12-03-2025") {
		t.Error("changed expiry must not dedup")
	}
	if AlreadyNotified("", "", BucketH0, "04-03-2025") {
		t.Error("empty marker must not dedup")
	}
}
