package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// DefaultReminderHour is the local hour reminders go out when a user has
// not chosen one.
const DefaultReminderHour = 9

// PrefsRepo is the repository for per-user preferences.
type PrefsRepo struct {
	db          *sqlx.DB
	defaultHour int
}

// NewPrefs builds the preferences repository. defaultHour seeds the send
// hour on first use; values outside 0..23 fall back to DefaultReminderHour.
func NewPrefs(db *sqlx.DB, defaultHour int) *PrefsRepo {
	if defaultHour < 0 || defaultHour > 23 {
		defaultHour = DefaultReminderHour
	}
	return &PrefsRepo{db: db, defaultHour: defaultHour}
}

// Get returns the user's preferences, creating the default row on first use.
func (p *PrefsRepo) Get(ctx context.Context, userID int64) (*Prefs, error) {
	var prefs Prefs
	err := p.db.GetContext(ctx, &prefs, `
		SELECT user_id, sort_order, search_query, remind_h1, remind_h0, reminder_hour
		FROM user_prefs WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		prefs = Prefs{
			UserID:       userID,
			SortOrder:    SortAsc,
			RemindH1:     true,
			RemindH0:     true,
			ReminderHour: p.defaultHour,
		}
		_, err = p.db.ExecContext(ctx, `
			INSERT INTO user_prefs (user_id, sort_order, search_query, remind_h1, remind_h0, reminder_hour)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id) DO NOTHING`,
			prefs.UserID, prefs.SortOrder, prefs.SearchQuery,
			prefs.RemindH1, prefs.RemindH0, prefs.ReminderHour)
		if err != nil {
			return nil, err
		}
		return &prefs, nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

// SetSortOrder stores the list sort order.
func (p *PrefsRepo) SetSortOrder(ctx context.Context, userID int64, order string) error {
	if order != SortDesc {
		order = SortAsc
	}
	return p.set(ctx, userID, "sort_order", order)
}

// SetSearchQuery stores the list filter. An empty string clears it.
func (p *PrefsRepo) SetSearchQuery(ctx context.Context, userID int64, query string) error {
	return p.set(ctx, userID, "search_query", query)
}

// SetRemindH1 toggles the day-before reminder.
func (p *PrefsRepo) SetRemindH1(ctx context.Context, userID int64, on bool) error {
	return p.set(ctx, userID, "remind_h1", on)
}

// SetRemindH0 toggles the expiry-day reminder.
func (p *PrefsRepo) SetRemindH0(ctx context.Context, userID int64, on bool) error {
	return p.set(ctx, userID, "remind_h0", on)
}

// SetReminderHour stores the local send hour, clamped to 0..23.
func (p *PrefsRepo) SetReminderHour(ctx context.Context, userID int64, hour int) error {
	if hour < 0 {
		hour = 0
	}
	if hour > 23 {
		hour = 23
	}
	return p.set(ctx, userID, "reminder_hour", hour)
}

func (p *PrefsRepo) set(ctx context.Context, userID int64, column string, value any) error {
	if _, err := p.Get(ctx, userID); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE user_prefs SET `+column+` = $1 WHERE user_id = $2`,
		value, userID)
	return err
}
