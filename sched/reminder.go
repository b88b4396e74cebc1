package sched

import (
	"context"
	"log/slog"
	"time"

	"github.com/ridhan354/xlreminder/core/logger"
	"github.com/ridhan354/xlreminder/policy"
	"github.com/ridhan354/xlreminder/storage"
	"github.com/ridhan354/xlreminder/views"
	"github.com/ridhan354/xlreminder/xl"
)

// Sink delivers rendered notifications to a chat. The send must complete
// before it returns so dedup markers are only written for delivered
// reminders.
type Sink interface {
	Notify(ctx context.Context, chatID int64, html string) error
}

// Reminders walks all tracked numbers once per tick and sends expiry
// notifications to users whose local send hour matches.
// PrefStore resolves per-user preferences. *storage.PrefsRepo satisfies it.
type PrefStore interface {
	Get(ctx context.Context, userID int64) (*storage.Prefs, error)
}

type Reminders struct {
	numbers NumberStore
	prefs   PrefStore
	sink    Sink
	loc     *time.Location
	now     func() time.Time
}

// NewReminders builds the reminder job in the given timezone.
func NewReminders(numbers NumberStore, prefs PrefStore, sink Sink, loc *time.Location) *Reminders {
	if loc == nil {
		loc = time.Local
	}
	return &Reminders{numbers: numbers, prefs: prefs, sink: sink, loc: loc, now: time.Now}
}

// WithClock replaces the clock, for tests.
func (j *Reminders) WithClock(now func() time.Time) *Reminders {
	j.now = now
	return j
}

// RunOnce performs one reminder pass. Failures on one record never abort
// the pass; a send failure leaves the dedup marker untouched so the next
// matching hour retries.
func (j *Reminders) RunOnce(ctx context.Context) {
	now := j.now().In(j.loc)
	recs, err := j.numbers.ListAll(ctx)
	if err != nil {
		logger.Sched.Error("reminder scan failed",
			slog.String("event", "reminder.scan"),
			slog.String("err", err.Error()),
		)
		return
	}

	sent := 0
	for _, rec := range recs {
		prefs, err := j.prefs.Get(ctx, rec.OwnerID)
		if err != nil {
			logger.Sched.Warn("prefs lookup failed",
				slog.String("event", "reminder.scan"),
				slog.Int64("owner_id", rec.OwnerID),
				slog.String("err", err.Error()),
			)
			continue
		}
		rp := policy.ReminderPrefs{
			RemindH1:     prefs.RemindH1,
			RemindH0:     prefs.RemindH0,
			ReminderHour: prefs.ReminderHour,
		}
		if !policy.HourMatches(now, rp) {
			continue
		}
		payload := rec.Payload()
		if payload == nil {
			continue
		}
		packages := payload.Packages()
		if len(packages) == 0 {
			continue
		}

		var dueH1, dueH0 []xl.Package
		for _, pkg := range packages {
			bucket, ok := policy.Classify(pkg.Expiry, now, rp)
			if !ok {
				continue
			}
			switch bucket {
			case policy.BucketH1:
				dueH1 = append(dueH1, pkg)
			case policy.BucketH0:
				dueH0 = append(dueH0, pkg)
			}
		}

		// Both buckets compare against the marker as it stood before
		// this pass; the stored marker ends up on the last bucket sent.
		if j.send(ctx, rec, policy.BucketH1, dueH1, now) {
			sent++
		}
		if j.send(ctx, rec, policy.BucketH0, dueH0, now) {
			sent++
		}
	}
	if sent > 0 {
		logger.Sched.Info("reminder pass done",
			slog.String("event", "reminder.scan"),
			slog.Int("sent", sent),
		)
	}
}

func (j *Reminders) send(ctx context.Context, rec storage.NumberRecord, bucket string, due []xl.Package, now time.Time) bool {
	if len(due) == 0 {
		return false
	}
	expiry := due[0].Expiry
	if expiry == "" {
		expiry = "-"
	}
	if policy.AlreadyNotified(rec.LastNotifiedType, rec.LastNotifiedExpiry, bucket, expiry) {
		return false
	}
	label := rec.Label
	if label == "" {
		label = storage.DefaultLabel
	}
	text := views.ReminderMessage(rec.MSISDN, label, bucket, expiry, due, now)
	if err := j.sink.Notify(ctx, rec.OwnerID, text); err != nil {
		logger.Sched.Warn("reminder send failed",
			slog.String("event", "reminder.send"),
			slog.Int64("owner_id", rec.OwnerID),
			slog.String("msisdn", rec.MSISDN),
			slog.String("notif_type", bucket),
			slog.String("err", err.Error()),
		)
		return false
	}
	if err := j.numbers.SetLastNotified(ctx, rec.ID, bucket, expiry); err != nil {
		logger.Sched.Warn("dedup marker update failed",
			slog.String("event", "reminder.send"),
			slog.String("msisdn", rec.MSISDN),
			slog.String("err", err.Error()),
		)
	}
	logger.Sched.Info("reminder sent",
		slog.String("event", "reminder.send"),
		slog.Int64("owner_id", rec.OwnerID),
		slog.String("msisdn", rec.MSISDN),
		slog.String("notif_type", bucket),
		slog.String("expiry", expiry),
	)
	return true
}
