// Package storage persists tracked numbers and per-user preferences in
// Postgres via sqlx. All timestamps on number records are unix seconds so
// refresh arithmetic stays integer-only.
package storage

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/ridhan354/xlreminder/xl"
)

// ErrDuplicateMSISDN is returned when a number is already tracked.
var ErrDuplicateMSISDN = errors.New("msisdn already tracked")

// ErrNotFound is returned when a record does not exist or is not owned by
// the requesting user.
var ErrNotFound = errors.New("record not found")

// Sort orders for the number list, by days left until the primary expiry.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Notification types recorded on a number after a reminder send.
const (
	NotifH1 = "H-1"
	NotifH0 = "H0"
)

// DefaultLabel is assigned when the user skips labeling a number.
const DefaultLabel = "Customer"

// User is a Telegram account known to the bot.
type User struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	CreatedAt time.Time `db:"created_at"`
}

// NumberRecord is one tracked MSISDN with its cached lookup state.
type NumberRecord struct {
	ID                 int64     `db:"id"`
	OwnerID            int64     `db:"owner_id"`
	MSISDN             string    `db:"msisdn"`
	Label              string    `db:"label"`
	LastFetchTS        int64     `db:"last_fetch_ts"`
	LastPayload        []byte    `db:"last_payload"`
	LastError          string    `db:"last_error"`
	NextRetryTS        int64     `db:"next_retry_ts"`
	LastNotifiedType   string    `db:"last_notified_type"`
	LastNotifiedExpiry string    `db:"last_notified_expiry"`
	LastNotifiedAt     int64     `db:"last_notified_at"`
	CreatedAt          time.Time `db:"created_at"`
}

// Payload decodes the cached lookup body, or nil when none is stored.
func (r *NumberRecord) Payload() *xl.Payload {
	if len(r.LastPayload) == 0 {
		return nil
	}
	var p xl.Payload
	if err := json.Unmarshal(r.LastPayload, &p); err != nil {
		return nil
	}
	return &p
}

// Blocked reports whether the record is inside its retry cooldown.
func (r *NumberRecord) Blocked(now int64) bool {
	return r.NextRetryTS > now
}

// Prefs holds per-user list and reminder preferences.
type Prefs struct {
	UserID       int64  `db:"user_id"`
	SortOrder    string `db:"sort_order"`
	SearchQuery  string `db:"search_query"`
	RemindH1     bool   `db:"remind_h1"`
	RemindH0     bool   `db:"remind_h0"`
	ReminderHour int    `db:"reminder_hour"`
}

// FetchOutcome is what a completed lookup writes back onto a record.
type FetchOutcome struct {
	Now          int64
	Success      bool
	Payload      []byte
	ErrorMessage string
	BlockSeconds int64
}

// RetryDeadline returns the next_retry_ts value this outcome stores. Zero
// means no suppression; only a rate-limited failure sets a deadline.
func (o FetchOutcome) RetryDeadline() int64 {
	if o.Success || o.BlockSeconds <= 0 {
		return 0
	}
	return o.Now + o.BlockSeconds
}
