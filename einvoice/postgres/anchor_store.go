package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-faster/errors"
)

// AnchorStore remembers, per TIN, the instant the last successful sync
// covered. Used as the since of the next run.
type AnchorStore struct {
	db *DB
}

func NewAnchorStore(db *DB) *AnchorStore {
	return &AnchorStore{db: db}
}

func (s *AnchorStore) LoadAnchor(ctx context.Context, tin string) (time.Time, bool, error) {
	var anchor time.Time
	err := s.db.queryRow(ctx,
		`SELECT anchor FROM einvoice_sync_state WHERE tin = $1`, tin,
	).Scan(&anchor)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, "select anchor")
	}
	return anchor, true, nil
}

func (s *AnchorStore) SaveAnchor(ctx context.Context, tin string, anchor time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO einvoice_sync_state (tin, anchor, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (tin) DO UPDATE SET anchor = EXCLUDED.anchor, updated_at = now()`,
		tin, anchor.UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "upsert anchor")
	}
	return nil
}
