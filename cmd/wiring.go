package cmd

import (
	"context"

	"github.com/alapierre/go-einvoice-client/einvoice/api"
	"github.com/alapierre/go-einvoice-client/einvoice/auth"
	"github.com/alapierre/go-einvoice-client/einvoice/config"
	"github.com/alapierre/go-einvoice-client/einvoice/invoice"
	"github.com/alapierre/go-einvoice-client/einvoice/partner"
	"github.com/alapierre/go-einvoice-client/einvoice/postgres"
	"github.com/alapierre/go-einvoice-client/einvoice/syncer"
	"github.com/alapierre/go-einvoice-client/einvoice/tokencache"
)

type services struct {
	auth       *auth.Client
	invoices   *invoice.Client
	partners   partner.Store
	reconciler *partner.Reconciler
	syncer     *syncer.Service
	db         *postgres.DB
}

func (s *services) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

// newServices wires clients and stores; PostgreSQL backs them when
// DATABASE_URL is set, otherwise everything lives for one process only.
func newServices(ctx context.Context, c *config.Config) (*services, error) {
	var (
		tokens  tokencache.Store = tokencache.NewMemory()
		store   partner.Store    = partner.NewMemoryStore()
		anchors syncer.AnchorStore
		db      *postgres.DB
	)

	if c.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(ctx, c.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		tokens = postgres.NewTokenStore(db)
		store = postgres.NewPartnerStore(db)
		anchors = postgres.NewAnchorStore(db)
	} else {
		logger.Debug("DATABASE_URL not set, using in-memory stores")
		anchors = syncer.NewMemoryAnchors()
	}

	client := api.New(c.Env, c.APIOptions()...)
	authClient := auth.NewClient(client, tokens)
	invoices := invoice.NewClient(client)
	reconciler := partner.NewReconciler(store)

	return &services{
		auth:       authClient,
		invoices:   invoices,
		partners:   store,
		reconciler: reconciler,
		syncer: syncer.New(authClient, invoices, reconciler,
			syncer.WithAnchorStore(anchors),
			syncer.WithLookback(c.SyncLookback),
		),
		db: db,
	}, nil
}
