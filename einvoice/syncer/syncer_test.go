package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alapierre/go-einvoice-client/einvoice"
	"github.com/alapierre/go-einvoice-client/einvoice/invoice"
	"github.com/alapierre/go-einvoice-client/einvoice/partner"
	"github.com/go-faster/errors"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var creds = einvoice.Credentials{Tin: "02345678", Username: "user", Password: "secret"}

type fakeAuth struct {
	mu        sync.Mutex
	calls     int
	forced    int
	err       error
	forcedErr error
}

func (f *fakeAuth) Authenticate(ctx context.Context, _ einvoice.Credentials) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if einvoice.IsForceAuth(ctx) {
		f.forced++
		if f.forcedErr != nil {
			return "", f.forcedErr
		}
		return "fresh", nil
	}
	return "cached", nil
}

// fakeSource answers with canned data; expired lists tokens that get ErrAuthExpired.
type fakeSource struct {
	records   []einvoice.InvoiceRecord
	items     map[string]*invoice.ItemsResult
	itemErrs  map[string]error
	expired   map[string]bool
	anchor    time.Time
	listSince time.Time

	listCalls  int
	itemTokens []string
}

func (f *fakeSource) ListInvoices(_ context.Context, token, _ string, since time.Time) (*invoice.ListResult, error) {
	f.listCalls++
	f.listSince = since
	if f.expired[token] {
		return nil, einvoice.ErrAuthExpired
	}
	return &invoice.ListResult{Records: f.records, Count: len(f.records), NewAnchor: f.anchor}, nil
}

func (f *fakeSource) GetInvoiceItems(_ context.Context, token, id string, _ einvoice.InvoiceType) (*invoice.ItemsResult, error) {
	f.itemTokens = append(f.itemTokens, token)
	if f.expired[token] {
		return nil, einvoice.ErrAuthExpired
	}
	if err := f.itemErrs[id]; err != nil {
		return nil, err
	}
	if res, ok := f.items[id]; ok {
		return res, nil
	}
	return &invoice.ItemsResult{Items: []einvoice.InvoiceItem{}}, nil
}

func records() []einvoice.InvoiceRecord {
	return []einvoice.InvoiceRecord{
		{ID: "inv-1", Type: einvoice.Goods, SupplierTin: "01234567", SupplierName: "Ararat Trade", BuyerTin: creds.Tin},
		{ID: "inv-2", Type: einvoice.Services, SupplierTin: "07654321", SupplierName: "Sevan Services", BuyerTin: creds.Tin},
		{ID: "inv-3", Type: einvoice.Goods, SupplierTin: creds.Tin, BuyerTin: "01234567"},
	}
}

func newService(auth Authenticator, src InvoiceSource, store partner.Store, opts ...Option) *Service {
	return New(auth, src, partner.NewReconciler(store), opts...)
}

func TestRun_HappyPath(t *testing.T) {
	anchor := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{
		records: records(),
		anchor:  anchor,
		items: map[string]*invoice.ItemsResult{
			"inv-1": {
				Items: []einvoice.InvoiceItem{{InvoiceID: "inv-1"}, {InvoiceID: "inv-1"}},
				Detail: &einvoice.InvoiceDetail{
					SupplierBank:  "Ameriabank",
					SupplierAccNo: "1570012345670100",
				},
			},
		},
	}
	store := partner.NewMemoryStore()
	anchors := NewMemoryAnchors()
	since := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	report, err := newService(&fakeAuth{}, src, store, WithAnchorStore(anchors)).Run(context.Background(), creds, since)
	require.NoError(t, err)

	assert.Equal(t, since, src.listSince)
	assert.Equal(t, 3, report.Invoices)
	assert.Equal(t, 2, report.Items)
	assert.Equal(t, 2, report.PartnersCreated)
	assert.Equal(t, 1, report.PartnersSkipped, "own TIN")
	assert.Empty(t, report.Failures)

	p, a, w := store.Counts()
	assert.Equal(t, 2, p)
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, w, "services supplier gets no warehouse")

	saved, ok, _ := anchors.LoadAnchor(context.Background(), creds.Tin)
	require.True(t, ok)
	assert.Equal(t, anchor, saved)
	assert.True(t, report.AnchorSaved)
}

func TestRun_SecondRunUsesAnchorAndReusesPartners(t *testing.T) {
	anchor := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{records: records(), anchor: anchor}
	store := partner.NewMemoryStore()
	svc := newService(&fakeAuth{}, src, store)

	_, err := svc.Run(context.Background(), creds, time.Time{})
	require.NoError(t, err)

	report, err := svc.Run(context.Background(), creds, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, anchor, src.listSince)
	assert.Equal(t, 0, report.PartnersCreated)
	assert.Equal(t, 2, report.PartnersExisting)
}

func TestRun_FirstRunUsesLookback(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	src := &fakeSource{}

	_, err := newService(&fakeAuth{}, src, partner.NewMemoryStore(), WithClock(clock), WithLookback(48*time.Hour)).
		Run(context.Background(), creds, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC), src.listSince)
}

func TestRun_ReauthenticatesOnceOnExpiredList(t *testing.T) {
	auth := &fakeAuth{}
	src := &fakeSource{records: records(), expired: map[string]bool{"cached": true}}

	report, err := newService(auth, src, partner.NewMemoryStore()).Run(context.Background(), creds, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, src.listCalls)
	assert.Equal(t, 1, auth.forced)
	assert.Equal(t, 1, report.Reauthentications)
	for _, tok := range src.itemTokens {
		assert.Equal(t, "fresh", tok)
	}
}

func TestRun_SecondExpiryPropagates(t *testing.T) {
	auth := &fakeAuth{}
	src := &fakeSource{records: records(), expired: map[string]bool{"cached": true, "fresh": true}}
	anchors := NewMemoryAnchors()

	_, err := newService(auth, src, partner.NewMemoryStore(), WithAnchorStore(anchors)).
		Run(context.Background(), creds, time.Now())
	require.ErrorIs(t, err, einvoice.ErrAuthExpired)

	assert.Equal(t, 2, src.listCalls, "no retry loop")
	assert.Equal(t, 1, auth.forced)
	_, ok, _ := anchors.LoadAnchor(context.Background(), creds.Tin)
	assert.False(t, ok, "anchor must not move after a failed run")
}

func TestRun_ReauthFailure(t *testing.T) {
	auth := &fakeAuth{forcedErr: &einvoice.AuthError{Code: "1001", Message: "bad password"}}
	src := &fakeSource{records: records(), expired: map[string]bool{"cached": true}}

	_, err := newService(auth, src, partner.NewMemoryStore()).Run(context.Background(), creds, time.Now())
	require.ErrorIs(t, err, einvoice.ErrAuthRejected)
	assert.Equal(t, 1, src.listCalls)
}

func TestRun_InitialAuthFailure(t *testing.T) {
	auth := &fakeAuth{err: errors.Wrap(einvoice.ErrUpstreamTransport, "dial")}
	src := &fakeSource{}

	_, err := newService(auth, src, partner.NewMemoryStore()).Run(context.Background(), creds, time.Now())
	require.ErrorIs(t, err, einvoice.ErrUpstreamTransport)
	assert.Zero(t, src.listCalls)
}

func TestRun_ItemFailureIsRecorded(t *testing.T) {
	src := &fakeSource{
		records:  records(),
		itemErrs: map[string]error{"inv-1": errors.Wrap(einvoice.ErrUpstreamStatus, "502")},
	}
	store := partner.NewMemoryStore()
	anchors := NewMemoryAnchors()
	previous := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, anchors.SaveAnchor(context.Background(), creds.Tin, previous))
	src.anchor = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(&fakeAuth{}, src, store, WithAnchorStore(anchors))

	report, err := svc.Run(context.Background(), creds, time.Time{})
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, "inv-1", report.Failures[0].InvoiceID)
	assert.Equal(t, 2, report.PartnersCreated, "partner still reconciled from the record")
	assert.False(t, report.AnchorSaved)

	saved, _, _ := anchors.LoadAnchor(context.Background(), creds.Tin)
	assert.Equal(t, previous, saved, "failed invoice must be in the next window")

	// once the items come through the window closes
	delete(src.itemErrs, "inv-1")
	report, err = svc.Run(context.Background(), creds, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, previous, src.listSince)
	assert.True(t, report.AnchorSaved)
	saved, _, _ = anchors.LoadAnchor(context.Background(), creds.Tin)
	assert.Equal(t, src.anchor, saved)
}

func TestRun_MissingCredentials(t *testing.T) {
	_, err := newService(&fakeAuth{}, &fakeSource{}, partner.NewMemoryStore()).
		Run(context.Background(), einvoice.Credentials{Tin: "1"}, time.Now())
	assert.ErrorIs(t, err, einvoice.ErrMissingCredentials)
}
