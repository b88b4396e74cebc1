package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ridhan354/xlreminder/core/logger"
)

// Numbers is the repository for tracked number records.
type Numbers struct {
	db *sqlx.DB
}

// NewNumbers builds the number repository.
func NewNumbers(db *sqlx.DB) *Numbers {
	return &Numbers{db: db}
}

const numberColumns = `id, owner_id, msisdn, label, last_fetch_ts,
	last_payload, last_error, next_retry_ts,
	last_notified_type, last_notified_expiry, last_notified_at, created_at`

// Create inserts a new tracked number. The MSISDN must already be
// normalized; a second registration of the same number, by any user,
// returns ErrDuplicateMSISDN.
func (n *Numbers) Create(ctx context.Context, ownerID int64, msisdn, label string) (*NumberRecord, error) {
	if label == "" {
		label = DefaultLabel
	}
	var rec NumberRecord
	err := n.db.QueryRowxContext(ctx, `
		INSERT INTO numbers (owner_id, msisdn, label)
		VALUES ($1, $2, $3)
		RETURNING `+numberColumns,
		ownerID, msisdn, label,
	).StructScan(&rec)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, ErrDuplicateMSISDN
		}
		return nil, err
	}
	logger.SVCNumbers.Info("number added",
		slog.String("event", "numbers.create"),
		slog.Int64("owner_id", ownerID),
		slog.String("msisdn", msisdn),
	)
	return &rec, nil
}

// ListByOwner returns the owner's records in insertion order.
func (n *Numbers) ListByOwner(ctx context.Context, ownerID int64) ([]NumberRecord, error) {
	var recs []NumberRecord
	err := n.db.SelectContext(ctx, &recs, `
		SELECT `+numberColumns+` FROM numbers
		WHERE owner_id = $1 ORDER BY id`, ownerID)
	return recs, err
}

// Get returns one record by number, scoped to its owner.
func (n *Numbers) Get(ctx context.Context, ownerID int64, msisdn string) (*NumberRecord, error) {
	var rec NumberRecord
	err := n.db.GetContext(ctx, &rec, `
		SELECT `+numberColumns+` FROM numbers
		WHERE msisdn = $1 AND owner_id = $2`, msisdn, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByMSISDN returns a record by its number regardless of owner. Used by
// the background refresh which operates on the full table.
func (n *Numbers) GetByMSISDN(ctx context.Context, msisdn string) (*NumberRecord, error) {
	var rec NumberRecord
	err := n.db.GetContext(ctx, &rec, `
		SELECT `+numberColumns+` FROM numbers WHERE msisdn = $1`, msisdn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListAll returns every tracked record in insertion order.
func (n *Numbers) ListAll(ctx context.Context) ([]NumberRecord, error) {
	var recs []NumberRecord
	err := n.db.SelectContext(ctx, &recs, `
		SELECT `+numberColumns+` FROM numbers ORDER BY id`)
	return recs, err
}

// UpdateLabel renames a record, scoped to its owner.
func (n *Numbers) UpdateLabel(ctx context.Context, ownerID int64, msisdn, label string) error {
	if label == "" {
		label = DefaultLabel
	}
	res, err := n.db.ExecContext(ctx, `
		UPDATE numbers SET label = $1 WHERE msisdn = $2 AND owner_id = $3`,
		label, msisdn, ownerID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes a record, scoped to its owner.
func (n *Numbers) Delete(ctx context.Context, ownerID int64, msisdn string) error {
	res, err := n.db.ExecContext(ctx, `
		DELETE FROM numbers WHERE msisdn = $1 AND owner_id = $2`, msisdn, ownerID)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	logger.SVCNumbers.Info("number removed",
		slog.String("event", "numbers.delete"),
		slog.Int64("owner_id", ownerID),
	)
	return nil
}

// ApplyFetch writes a completed lookup back onto a record. A success
// clears the cached error and cooldown; a failure records the message and
// schedules the next attempt. In both cases last_fetch_ts advances and a
// non-empty payload replaces the cached one.
func (n *Numbers) ApplyFetch(ctx context.Context, msisdn string, out FetchOutcome) error {
	lastError := ""
	if !out.Success {
		lastError = out.ErrorMessage
	}
	res, err := n.db.ExecContext(ctx, `
		UPDATE numbers SET
			last_fetch_ts = $1,
			last_payload = CASE WHEN length($2) > 0 THEN $2 ELSE last_payload END,
			last_error = $3,
			next_retry_ts = $4
		WHERE msisdn = $5`,
		out.Now, string(out.Payload), lastError, out.RetryDeadline(), msisdn)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetLastNotified records the reminder dedup marker after a successful send.
func (n *Numbers) SetLastNotified(ctx context.Context, id int64, notifType, expiry string) error {
	res, err := n.db.ExecContext(ctx, `
		UPDATE numbers SET last_notified_type = $1, last_notified_expiry = $2,
			last_notified_at = extract(epoch FROM now())::bigint
		WHERE id = $3`, notifType, expiry, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Import bulk-inserts records, skipping MSISDNs that are already tracked.
// Returns how many rows were actually inserted.
func (n *Numbers) Import(ctx context.Context, recs []NumberRecord) (int, error) {
	tx, err := n.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// A backup may be restored into a fresh database where none of the
	// owners have talked to the bot yet. Seed their user rows first so
	// the owner_id reference holds.
	for _, owner := range distinctOwners(recs) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (id) VALUES ($1)
			ON CONFLICT (id) DO NOTHING`, owner); err != nil {
			return 0, err
		}
	}

	inserted := 0
	for _, rec := range recs {
		label := rec.Label
		if label == "" {
			label = DefaultLabel
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO numbers (owner_id, msisdn, label, last_fetch_ts,
				last_payload, last_error, next_retry_ts,
				last_notified_type, last_notified_expiry, last_notified_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (msisdn) DO NOTHING`,
			rec.OwnerID, rec.MSISDN, label, rec.LastFetchTS,
			string(rec.LastPayload), rec.LastError, rec.NextRetryTS,
			rec.LastNotifiedType, rec.LastNotifiedExpiry, rec.LastNotifiedAt)
		if err != nil {
			return 0, err
		}
		if rows, _ := res.RowsAffected(); rows > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	logger.SVCBackup.Info("records imported",
		slog.String("event", "numbers.import"),
		slog.Int("count", inserted),
		slog.Int("skipped", len(recs)-inserted),
	)
	return inserted, nil
}

// distinctOwners returns each owner appearing in recs once, in first-seen
// order.
func distinctOwners(recs []NumberRecord) []int64 {
	seen := make(map[int64]struct{}, len(recs))
	var owners []int64
	for _, rec := range recs {
		if _, ok := seen[rec.OwnerID]; ok {
			continue
		}
		seen[rec.OwnerID] = struct{}{}
		owners = append(owners, rec.OwnerID)
	}
	return owners
}

func requireRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
