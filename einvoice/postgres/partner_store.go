package postgres

import (
	"context"
	"database/sql"

	"github.com/alapierre/go-einvoice-client/einvoice"
	"github.com/alapierre/go-einvoice-client/einvoice/partner"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

type PartnerStore struct {
	db *DB
}

var _ partner.Store = (*PartnerStore)(nil)

func NewPartnerStore(db *DB) *PartnerStore {
	return &PartnerStore{db: db}
}

const partnerColumns = `id, tin, name, address, type, account_id, warehouse_id`

func scanPartner(row rowScanner) (*einvoice.Partner, error) {
	var (
		p         einvoice.Partner
		account   uuid.NullUUID
		warehouse uuid.NullUUID
	)
	if err := row.Scan(&p.ID, &p.Tin, &p.Name, &p.Address, &p.Type, &account, &warehouse); err != nil {
		return nil, err
	}
	if account.Valid {
		p.AccountID = &account.UUID
	}
	if warehouse.Valid {
		p.WarehouseID = &warehouse.UUID
	}
	return &p, nil
}

func (s *PartnerStore) FindByTin(ctx context.Context, tin string) (*einvoice.Partner, error) {
	p, err := scanPartner(s.db.queryRow(ctx,
		`SELECT `+partnerColumns+` FROM partners WHERE tin = $1`, tin))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, partner.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "select partner %s", tin)
	}
	return p, nil
}

func (s *PartnerStore) CreateAccount(ctx context.Context, a *einvoice.Account) error {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, type, bank, number, currency)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, a.Name, a.Type, a.Bank, a.Number, a.Currency,
	)
	if err != nil {
		return errors.Wrap(err, "insert account")
	}
	a.ID = id
	return nil
}

func (s *PartnerStore) CreateWarehouse(ctx context.Context, w *einvoice.Warehouse) error {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO warehouses (id, name, address, type)
		VALUES ($1, $2, $3, $4)`,
		id, w.Name, w.Address, w.Type,
	)
	if err != nil {
		return errors.Wrap(err, "insert warehouse")
	}
	w.ID = id
	return nil
}

// InsertOrGet relies on the unique tin constraint; when the insert is skipped
// the row written by the other caller is read back.
func (s *PartnerStore) InsertOrGet(ctx context.Context, p *einvoice.Partner) (*einvoice.Partner, bool, error) {
	stored, err := scanPartner(s.db.queryRow(ctx, `
		INSERT INTO partners (id, tin, name, address, type, account_id, warehouse_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tin) DO NOTHING
		RETURNING `+partnerColumns,
		uuid.New(), p.Tin, p.Name, p.Address, p.Type, nullUUID(p.AccountID), nullUUID(p.WarehouseID),
	))
	switch {
	case err == nil:
		return stored, true, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, false, errors.Wrapf(err, "insert partner %s", p.Tin)
	}

	existing, err := s.FindByTin(ctx, p.Tin)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *PartnerStore) List(ctx context.Context) ([]einvoice.Partner, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+partnerColumns+` FROM partners ORDER BY tin`)
	if err != nil {
		return nil, errors.Wrap(err, "list partners")
	}
	defer rows.Close()

	var out []einvoice.Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan partner")
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
