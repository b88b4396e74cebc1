package sched

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ridhan354/xlreminder/core/logger"
)

// DocSink delivers a file attachment to a chat.
type DocSink interface {
	SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error
}

// BackupRecord is one exported number in the portable backup format.
type BackupRecord struct {
	OwnerID            int64           `json:"owner_id"`
	MSISDN             string          `json:"msisdn"`
	Label              string          `json:"label"`
	LastFetchTS        int64           `json:"last_fetch_ts,omitempty"`
	LastPayload        json.RawMessage `json:"last_payload,omitempty"`
	LastError          string          `json:"last_error,omitempty"`
	NextRetryTS        int64           `json:"next_retry_ts,omitempty"`
	LastNotifiedType   string          `json:"last_notified_type,omitempty"`
	LastNotifiedExpiry string          `json:"last_notified_expiry,omitempty"`
	LastNotifiedAt     int64           `json:"last_notified_at,omitempty"`
}

// Backups exports tracked numbers as gzipped JSON and delivers the archive
// to the admin chats, or to every known user when no admins are configured.
// UserStore lists backup delivery targets. *storage.Users satisfies it.
type UserStore interface {
	ListIDs(ctx context.Context) ([]int64, error)
}

type Backups struct {
	numbers  NumberStore
	users    UserStore
	sink     DocSink
	adminIDs []int64
	loc      *time.Location

	weekday time.Weekday
	hour    int
	lastDay string

	now func() time.Time
}

// NewBackups builds the weekly backup job.
func NewBackups(numbers NumberStore, users UserStore, sink DocSink, adminIDs []int64, loc *time.Location, weekday time.Weekday, hour int) *Backups {
	if loc == nil {
		loc = time.Local
	}
	return &Backups{
		numbers:  numbers,
		users:    users,
		sink:     sink,
		adminIDs: adminIDs,
		loc:      loc,
		weekday:  weekday,
		hour:     hour,
		now:      time.Now,
	}
}

// WithClock replaces the clock, for tests.
func (b *Backups) WithClock(now func() time.Time) *Backups {
	b.now = now
	return b
}

// RunIfDue sends the weekly backup when the configured weekday and hour
// match, at most once per day.
func (b *Backups) RunIfDue(ctx context.Context) {
	now := b.now().In(b.loc)
	if now.Weekday() != b.weekday || now.Hour() != b.hour {
		return
	}
	day := now.Format("2006-01-02")
	if day == b.lastDay {
		return
	}
	b.lastDay = day
	b.Send(ctx, "🗄 Backup mingguan data XL Reminder (otomatis).")
}

// Export serializes every tracked number into a gzipped JSON archive.
func (b *Backups) Export(ctx context.Context) ([]byte, error) {
	recs, err := b.numbers.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	out := make([]BackupRecord, 0, len(recs))
	for _, rec := range recs {
		br := BackupRecord{
			OwnerID:            rec.OwnerID,
			MSISDN:             rec.MSISDN,
			Label:              rec.Label,
			LastFetchTS:        rec.LastFetchTS,
			LastError:          rec.LastError,
			NextRetryTS:        rec.NextRetryTS,
			LastNotifiedType:   rec.LastNotifiedType,
			LastNotifiedExpiry: rec.LastNotifiedExpiry,
			LastNotifiedAt:     rec.LastNotifiedAt,
		}
		if json.Valid(rec.LastPayload) {
			br.LastPayload = json.RawMessage(rec.LastPayload)
		}
		out = append(out, br)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(out); err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("close gzip: %w", err)
	}
	return buf.Bytes(), nil
}

// Send exports the data and delivers it with the given caption. Returns
// how many chats received the archive.
func (b *Backups) Send(ctx context.Context, caption string) int {
	data, err := b.Export(ctx)
	if err != nil {
		logger.SVCBackup.Error("backup export failed",
			slog.String("event", "backup.export"),
			slog.String("err", err.Error()),
		)
		return 0
	}

	targets := b.adminIDs
	if len(targets) == 0 {
		ids, err := b.users.ListIDs(ctx)
		if err != nil {
			logger.SVCBackup.Error("backup target lookup failed",
				slog.String("event", "backup.send"),
				slog.String("err", err.Error()),
			)
			return 0
		}
		targets = ids
	}

	filename := fmt.Sprintf("backup-%s.json.gz", b.now().In(b.loc).Format("20060102-150405"))
	delivered := 0
	for _, chatID := range targets {
		if err := b.sink.SendDocument(ctx, chatID, filename, data, caption); err != nil {
			logger.SVCBackup.Warn("backup delivery failed",
				slog.String("event", "backup.send"),
				slog.Int64("chat_id", chatID),
				slog.String("err", err.Error()),
			)
			continue
		}
		delivered++
	}
	logger.SVCBackup.Info("backup sent",
		slog.String("event", "backup.send"),
		slog.Int("targets", len(targets)),
		slog.Int("delivered", delivered),
		slog.Int("bytes", len(data)),
	)
	return delivered
}

// ParseBackup decodes a backup archive, transparently handling gzip.
func ParseBackup(data []byte) ([]BackupRecord, error) {
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open gzip: %w", err)
		}
		defer gz.Close()
		raw, err := io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("read gzip: %w", err)
		}
		data = raw
	}
	var recs []BackupRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	return recs, nil
}
