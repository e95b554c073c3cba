package postgres

import (
	"context"
	"database/sql"

	"github.com/alapierre/go-einvoice-client/einvoice/tokencache"
	"github.com/go-faster/errors"
)

// TokenStore tokencache.Store shared by every process using the same database.
type TokenStore struct {
	db *DB
}

var _ tokencache.Store = (*TokenStore)(nil)

func NewTokenStore(db *DB) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) Get(ctx context.Context, tin string) (tokencache.Entry, bool, error) {
	var e tokencache.Entry
	err := s.db.queryRow(ctx,
		`SELECT token, expires_at FROM einvoice_tokens WHERE tin = $1`, tin,
	).Scan(&e.Token, &e.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return tokencache.Entry{}, false, nil
	}
	if err != nil {
		return tokencache.Entry{}, false, errors.Wrap(err, "select token")
	}
	return e, true, nil
}

func (s *TokenStore) Put(ctx context.Context, tin string, e tokencache.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO einvoice_tokens (tin, token, expires_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (tin) DO UPDATE
		SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at, updated_at = now()`,
		tin, e.Token, e.ExpiresAt.UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "upsert token")
	}
	return nil
}
