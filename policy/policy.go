// Package policy holds the pure decision rules of the refresh and reminder
// pipelines. Everything here works on unix seconds and plain values so the
// rules stay trivially testable; the scheduler supplies clocks and IO.
package policy

import (
	"time"

	"github.com/ridhan354/xlreminder/xl"
)

// Reminder buckets, named after how many days remain before expiry.
const (
	BucketH1 = "H-1"
	BucketH0 = "H0"
)

// RefreshDue reports whether a record should be fetched now. Both gates
// must pass: the cache must be older than the refresh interval and the
// record must be outside its retry cooldown.
func RefreshDue(now, lastFetch, nextRetry, intervalSec int64) bool {
	return now-lastFetch >= intervalSec && now >= nextRetry
}

// ReminderPrefs is the slice of user preferences the reminder rules need.
type ReminderPrefs struct {
	RemindH1     bool
	RemindH0     bool
	ReminderHour int
}

// HourMatches reports whether a reminder may go out at all for this user
// at the given local time.
func HourMatches(now time.Time, prefs ReminderPrefs) bool {
	return now.Hour() == prefs.ReminderHour
}

// Classify maps an expiry date to a reminder bucket, honoring the user's
// per-bucket toggles. ok is false when the expiry is outside both windows
// or the matching bucket is disabled.
func Classify(expiryText string, now time.Time, prefs ReminderPrefs) (bucket string, ok bool) {
	ind := xl.IndicatorByDate(expiryText, now)
	if !ind.Known {
		return "", false
	}
	switch ind.DaysLeft {
	case 1:
		if prefs.RemindH1 {
			return BucketH1, true
		}
	case 0:
		if prefs.RemindH0 {
			return BucketH0, true
		}
	}
	return "", false
}

// AlreadyNotified reports whether the stored dedup marker covers this
// bucket and expiry. The marker pairs the notification type with the
// expiry date it was sent for, so an extended package notifies again.
func AlreadyNotified(lastType, lastExpiry, bucket, expiry string) bool {
	return lastType == bucket && lastExpiry == expiry
}
