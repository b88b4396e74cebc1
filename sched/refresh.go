package sched

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ridhan354/xlreminder/core/logger"
	"github.com/ridhan354/xlreminder/policy"
	"github.com/ridhan354/xlreminder/quota"
	"github.com/ridhan354/xlreminder/storage"
)

// Source is the quota lookup the refresher calls per number.
type Source interface {
	Fetch(ctx context.Context, msisdn string) quota.Result
}

// NumberStore is the slice of the numbers repository the jobs need.
// *storage.Numbers satisfies it; tests supply fakes.
type NumberStore interface {
	ListAll(ctx context.Context) ([]storage.NumberRecord, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]storage.NumberRecord, error)
	ApplyFetch(ctx context.Context, msisdn string, out storage.FetchOutcome) error
	SetLastNotified(ctx context.Context, id int64, notifType, expiry string) error
}

// DefaultPace is the delay between consecutive forced lookups, keeping the
// upstream from seeing a burst.
const DefaultPace = 1500 * time.Millisecond

// Refresher keeps cached payloads fresh. The zero clock and sleep default
// to the real ones; tests inject both.
type Refresher struct {
	numbers  NumberStore
	source   Source
	interval time.Duration
	pace     time.Duration
	now      func() time.Time
	sleep    func(time.Duration)
}

// NewRefresher builds a refresher with the given cache-staleness interval.
func NewRefresher(numbers NumberStore, source Source, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Refresher{
		numbers:  numbers,
		source:   source,
		interval: interval,
		pace:     DefaultPace,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// WithClock replaces the clock and sleep functions, for tests.
func (r *Refresher) WithClock(now func() time.Time, sleep func(time.Duration)) *Refresher {
	r.now = now
	r.sleep = sleep
	return r
}

// ScanAll refreshes every record in the table whose cache is stale and
// whose cooldown has passed. A failing record never aborts the scan.
func (r *Refresher) ScanAll(ctx context.Context) int {
	recs, err := r.numbers.ListAll(ctx)
	if err != nil {
		logger.Sched.Error("refresh scan failed",
			slog.String("event", "refresh.scan"),
			slog.String("err", err.Error()),
		)
		return 0
	}
	return r.refreshDue(ctx, recs)
}

// ScanOwner refreshes the stale records of one user and returns how many
// lookups it performed.
func (r *Refresher) ScanOwner(ctx context.Context, ownerID int64) int {
	recs, err := r.numbers.ListByOwner(ctx, ownerID)
	if err != nil {
		logger.Sched.Error("refresh scan failed",
			slog.String("event", "refresh.scan"),
			slog.Int64("owner_id", ownerID),
			slog.String("err", err.Error()),
		)
		return 0
	}
	return r.refreshDue(ctx, recs)
}

// ForceOwner refreshes every record of one user regardless of cache age,
// pacing consecutive lookups.
func (r *Refresher) ForceOwner(ctx context.Context, ownerID int64) int {
	recs, err := r.numbers.ListByOwner(ctx, ownerID)
	if err != nil {
		logger.Sched.Error("force refresh failed",
			slog.String("event", "refresh.force"),
			slog.Int64("owner_id", ownerID),
			slog.String("err", err.Error()),
		)
		return 0
	}
	count := 0
	for i, rec := range recs {
		if i > 0 {
			r.sleep(r.pace)
		}
		r.RefreshOne(ctx, rec.MSISDN)
		count++
	}
	return count
}

func (r *Refresher) refreshDue(ctx context.Context, recs []storage.NumberRecord) int {
	now := r.now().Unix()
	count := 0
	for _, rec := range recs {
		if !policy.RefreshDue(now, rec.LastFetchTS, rec.NextRetryTS, int64(r.interval/time.Second)) {
			continue
		}
		if count > 0 {
			r.sleep(r.pace)
		}
		r.RefreshOne(ctx, rec.MSISDN)
		count++
	}
	if count > 0 {
		logger.Sched.Info("refresh pass done",
			slog.String("event", "refresh.scan"),
			slog.Int("refreshed", count),
		)
	}
	return count
}

// RefreshOne fetches a single number and writes the outcome back. Returns
// the lookup result so interactive callers can report it.
func (r *Refresher) RefreshOne(ctx context.Context, msisdn string) quota.Result {
	res := r.source.Fetch(ctx, msisdn)
	out := storage.FetchOutcome{
		Now:          r.now().Unix(),
		Success:      res.Success,
		ErrorMessage: res.Message,
		BlockSeconds: res.BlockSeconds,
	}
	if res.Payload != nil {
		if raw, err := json.Marshal(res.Payload); err == nil {
			out.Payload = raw
		}
	}
	if err := r.numbers.ApplyFetch(ctx, msisdn, out); err != nil {
		logger.Sched.Error("cache update failed",
			slog.String("event", "refresh.apply"),
			slog.String("msisdn", msisdn),
			slog.String("err", err.Error()),
		)
	}
	return res
}
