// Package syncer runs one synchronization pass for a taxpayer: log in, list
// invoices changed since the last anchor, fetch their items and make sure
// every supplier exists as a local partner.
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/alapierre/go-einvoice-client/einvoice"
	"github.com/alapierre/go-einvoice-client/einvoice/invoice"
	"github.com/alapierre/go-einvoice-client/einvoice/partner"
	"github.com/go-faster/errors"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "einvoice.syncer")

// DefaultLookback window used on the very first sync of a TIN.
const DefaultLookback = 30 * 24 * time.Hour

type Authenticator interface {
	Authenticate(ctx context.Context, creds einvoice.Credentials) (string, error)
}

// InvoiceSource implemented by *invoice.Client.
type InvoiceSource interface {
	ListInvoices(ctx context.Context, token, tin string, since time.Time) (*invoice.ListResult, error)
	GetInvoiceItems(ctx context.Context, token, invoiceID string, t einvoice.InvoiceType) (*invoice.ItemsResult, error)
}

type PartnerReconciler interface {
	EnsurePartner(ctx context.Context, d einvoice.InvoicePartnerData, ourTin string) (*partner.Result, bool)
}

type AnchorStore interface {
	LoadAnchor(ctx context.Context, tin string) (time.Time, bool, error)
	SaveAnchor(ctx context.Context, tin string, anchor time.Time) error
}

type Service struct {
	auth     Authenticator
	source   InvoiceSource
	partners PartnerReconciler
	anchors  AnchorStore
	clock    clockwork.Clock
	lookback time.Duration
}

type Option func(*Service)

func WithAnchorStore(s AnchorStore) Option {
	return func(svc *Service) { svc.anchors = s }
}

func WithLookback(d time.Duration) Option {
	return func(svc *Service) {
		if d > 0 {
			svc.lookback = d
		}
	}
}

func WithClock(c clockwork.Clock) Option {
	return func(svc *Service) { svc.clock = c }
}

func New(auth Authenticator, source InvoiceSource, partners PartnerReconciler, opts ...Option) *Service {
	s := &Service{
		auth:     auth,
		source:   source,
		partners: partners,
		anchors:  NewMemoryAnchors(),
		clock:    clockwork.NewRealClock(),
		lookback: DefaultLookback,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type Failure struct {
	InvoiceID string `json:"invoiceId"`
	Error     string `json:"error"`
}

type Report struct {
	Tin       string    `json:"tin"`
	Since     time.Time `json:"since"`
	NewAnchor time.Time `json:"newAnchor"`
	// AnchorSaved false when failed invoices keep the window open for the next run
	AnchorSaved bool `json:"anchorSaved"`
	// Count as reported by the service, self-issued invoices appear twice
	Count    int `json:"count"`
	Invoices int `json:"invoices"`
	Items    int `json:"items"`

	PartnersCreated  int `json:"partnersCreated"`
	PartnersExisting int `json:"partnersExisting"`
	PartnersSkipped  int `json:"partnersSkipped"`

	Reauthentications int       `json:"reauthentications"`
	Failures          []Failure `json:"failures,omitempty"`
}

// session current token of a run, replaced on re-authentication
type session struct {
	svc     *Service
	creds   einvoice.Credentials
	token   string
	reauths int
}

// withReauth runs step and, when the token turned out to be expired, logs in
// again bypassing the cache and runs step one more time. A second expiry is
// returned to the caller.
func withReauth[T any](ctx context.Context, s *session, step func(token string) (T, error)) (T, error) {
	res, err := step(s.token)
	if !einvoice.NeedsReauth(err) {
		return res, err
	}

	logger.WithField("tin", s.creds.Tin).Info("token expired, logging in again")
	token, aerr := s.svc.auth.Authenticate(einvoice.ContextWithForceAuth(ctx), s.creds)
	if aerr != nil {
		var zero T
		return zero, errors.Wrap(aerr, "re-authenticate")
	}
	s.token = token
	s.reauths++
	return step(token)
}

// Run synchronizes creds.Tin. A zero since continues from the stored anchor,
// or from now minus the lookback when there is none. The anchor only moves
// after a run in which every invoice was fetched.
func (s *Service) Run(ctx context.Context, creds einvoice.Credentials, since time.Time) (*Report, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	ctx = einvoice.Context(ctx, creds.Tin)
	log := logger.WithField("tin", creds.Tin)

	since, err := s.resolveSince(ctx, creds.Tin, since)
	if err != nil {
		return nil, err
	}

	token, err := s.auth.Authenticate(ctx, creds)
	if err != nil {
		return nil, errors.Wrap(err, "authenticate")
	}
	sess := &session{svc: s, creds: creds, token: token}

	list, err := withReauth(ctx, sess, func(token string) (*invoice.ListResult, error) {
		return s.source.ListInvoices(ctx, token, creds.Tin, since)
	})
	if err != nil {
		return nil, err
	}

	report := &Report{
		Tin:       creds.Tin,
		Since:     since,
		NewAnchor: list.NewAnchor,
		Count:     list.Count,
		Invoices:  len(list.Records),
	}
	log.WithFields(logrus.Fields{"since": since, "records": len(list.Records)}).Info("invoices listed")

	for _, rec := range list.Records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.syncInvoice(ctx, sess, rec, report); err != nil {
			return nil, err
		}
	}
	report.Reauthentications = sess.reauths

	if len(report.Failures) > 0 {
		log.WithField("failures", len(report.Failures)).Warn("anchor not moved, failed invoices will be fetched again")
	} else {
		if err := s.anchors.SaveAnchor(ctx, creds.Tin, list.NewAnchor); err != nil {
			return report, errors.Wrap(err, "save anchor")
		}
		report.AnchorSaved = true
	}

	log.WithFields(logrus.Fields{
		"invoices":          report.Invoices,
		"items":             report.Items,
		"partners_created":  report.PartnersCreated,
		"failures":          len(report.Failures),
		"reauthentications": report.Reauthentications,
	}).Info("sync finished")
	return report, nil
}

// syncInvoice returns an error only for failures that end the run.
func (s *Service) syncInvoice(ctx context.Context, sess *session, rec einvoice.InvoiceRecord, report *Report) error {
	log := logger.WithField("invoice_id", rec.ID)

	items, err := withReauth(ctx, sess, func(token string) (*invoice.ItemsResult, error) {
		return s.source.GetInvoiceItems(ctx, token, rec.ID, rec.Type)
	})
	var detail *einvoice.InvoiceDetail
	switch {
	case einvoice.NeedsReauth(err):
		return errors.Wrapf(err, "items of invoice %s", rec.ID)
	case err != nil:
		log.WithError(err).Warn("could not fetch invoice items")
		report.Failures = append(report.Failures, Failure{InvoiceID: rec.ID, Error: err.Error()})
	default:
		report.Items += len(items.Items)
		detail = items.Detail
	}

	res, ok := s.partners.EnsurePartner(ctx, einvoice.NewPartnerData(rec, detail), sess.creds.Tin)
	switch {
	case !ok:
		report.PartnersSkipped++
	case res.Created:
		report.PartnersCreated++
	default:
		report.PartnersExisting++
	}
	return nil
}

func (s *Service) resolveSince(ctx context.Context, tin string, since time.Time) (time.Time, error) {
	if !since.IsZero() {
		return since, nil
	}
	anchor, ok, err := s.anchors.LoadAnchor(ctx, tin)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "load anchor")
	}
	if ok {
		return anchor, nil
	}
	return s.clock.Now().Add(-s.lookback), nil
}

// MemoryAnchors AnchorStore for runs without a database.
type MemoryAnchors struct {
	mu      sync.Mutex
	anchors map[string]time.Time
}

func NewMemoryAnchors() *MemoryAnchors {
	return &MemoryAnchors{anchors: make(map[string]time.Time)}
}

func (m *MemoryAnchors) LoadAnchor(_ context.Context, tin string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.anchors[tin]
	return a, ok, nil
}

func (m *MemoryAnchors) SaveAnchor(_ context.Context, tin string, anchor time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anchors[tin] = anchor
	return nil
}
