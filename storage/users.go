package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Users tracks the Telegram accounts that have talked to the bot.
type Users struct {
	db *sqlx.DB
}

// NewUsers builds the user repository.
func NewUsers(db *sqlx.DB) *Users {
	return &Users{db: db}
}

// Ensure upserts a user row keyed by Telegram ID, refreshing the username.
func (u *Users) Ensure(ctx context.Context, id int64, username string) error {
	_, err := u.db.ExecContext(ctx, `
		INSERT INTO users (id, username) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username`,
		id, username)
	return err
}

// ListIDs returns every known Telegram user ID.
func (u *Users) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := u.db.SelectContext(ctx, &ids, `SELECT id FROM users ORDER BY id`)
	return ids, err
}
