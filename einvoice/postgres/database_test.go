package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alapierre/go-einvoice-client/einvoice"
	"github.com/alapierre/go-einvoice-client/einvoice/partner"
	"github.com/alapierre/go-einvoice-client/einvoice/tokencache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"placeholders kept", "SELECT token FROM einvoice_tokens WHERE tin = $1", "SELECT token FROM einvoice_tokens WHERE tin = $1"},
		{"string literal", "SELECT * FROM partners WHERE tin = '01234567'", "SELECT * FROM partners WHERE tin = '?'"},
		{"escaped quote", "SELECT 'it''s' , 1", "SELECT '?' , ?"},
		{"numbers", "SELECT * FROM partners LIMIT 10 OFFSET 20.5", "SELECT * FROM partners LIMIT ? OFFSET ?"},
		{"identifier digits", "SELECT col1 FROM t2", "SELECT col1 FROM t2"},
		{"whitespace collapsed", "\n\t\tINSERT INTO accounts\n\t\tVALUES ($1)", "INSERT INTO accounts VALUES ($1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeQuery(tt.in))
		})
	}
}

func TestSqlVerb(t *testing.T) {
	assert.Equal(t, "SELECT", sqlVerb("  select 1"))
	assert.Equal(t, "INSERT", sqlVerb("\n\tinsert into x"))
	assert.Equal(t, "", sqlVerb(""))
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("EINVOICE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("EINVOICE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx), "migrate must be repeatable")
	return db
}

func testTin() string {
	return "T" + uuid.NewString()[:8]
}

func TestTokenStore(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewTokenStore(db)
	tin := testTin()

	_, ok, err := store.Get(ctx, tin)
	require.NoError(t, err)
	assert.False(t, ok)

	exp := time.Now().Add(20 * time.Minute).Truncate(time.Microsecond)
	require.NoError(t, store.Put(ctx, tin, tokencache.Entry{Token: "first", ExpiresAt: exp}))
	require.NoError(t, store.Put(ctx, tin, tokencache.Entry{Token: "second", ExpiresAt: exp.Add(time.Minute)}))

	e, ok, err := store.Get(ctx, tin)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", e.Token)
	assert.True(t, e.ExpiresAt.Equal(exp.Add(time.Minute)))
}

func TestAnchorStore(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewAnchorStore(db)
	tin := testTin()

	_, ok, err := store.LoadAnchor(ctx, tin)
	require.NoError(t, err)
	assert.False(t, ok)

	anchor := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveAnchor(ctx, tin, anchor))
	got, ok, err := store.LoadAnchor(ctx, tin)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(anchor))
}

func TestPartnerStore_ReconcileConcurrently(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewPartnerStore(db)
	r := partner.NewReconciler(store)

	d := einvoice.InvoicePartnerData{
		SupplierTin:     testTin(),
		SupplierName:    "Ararat Trade LLC",
		SupplierAddress: "Yerevan",
		SupplierBank:    "Ameriabank",
		SupplierAccNo:   "1570012345670100",
		Currency:        "AMD",
		InvoiceType:     einvoice.Goods,
	}

	const workers = 5
	ids := make([]uuid.UUID, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, ok := r.EnsurePartner(ctx, d, "00000000")
			if ok {
				ids[i] = res.PartnerID
			}
		}(i)
	}
	wg.Wait()

	stored, err := store.FindByTin(ctx, d.SupplierTin)
	require.NoError(t, err)
	for _, id := range ids {
		assert.Equal(t, stored.ID, id)
	}
	assert.NotNil(t, stored.AccountID)
	assert.NotNil(t, stored.WarehouseID)

	_, err = store.FindByTin(ctx, testTin())
	assert.ErrorIs(t, err, partner.ErrNotFound)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, all)
}
