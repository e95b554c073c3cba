// Package partner makes sure every supplier seen on an invoice exists as a
// local business partner, with a bank account and warehouse when the invoice
// carries enough information for them.
package partner

import (
	"context"
	"strings"

	"github.com/alapierre/go-einvoice-client/einvoice"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "einvoice.partner")

type Reconciler struct {
	store Store
}

func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store}
}

type Result struct {
	PartnerID   uuid.UUID  `json:"partnerId"`
	WarehouseID *uuid.UUID `json:"warehouseId"`
	// Created false when the partner already existed
	Created bool `json:"created"`
}

// EnsurePartner returns the partner for d.SupplierTin, creating it when
// missing. ok is false for our own TIN and when the partner could not be
// stored. Existing partners are returned as they are.
func (r *Reconciler) EnsurePartner(ctx context.Context, d einvoice.InvoicePartnerData, ourTin string) (*Result, bool) {
	tin := strings.TrimSpace(d.SupplierTin)
	if tin == "" || tin == strings.TrimSpace(ourTin) {
		return nil, false
	}

	log := logger.WithField("tin", tin)

	existing, err := r.store.FindByTin(ctx, tin)
	switch {
	case err == nil:
		return &Result{PartnerID: existing.ID, WarehouseID: existing.WarehouseID}, true
	case !errors.Is(err, ErrNotFound):
		log.WithError(err).Error("partner lookup failed")
		return nil, false
	}

	p := &einvoice.Partner{
		Tin:     tin,
		Name:    nameOr(d.SupplierName, tin),
		Address: d.SupplierAddress,
		Type:    einvoice.PartnerTypeSupplier,
	}

	if d.SupplierBank != "" && d.SupplierAccNo != "" {
		acc := &einvoice.Account{
			Name:     nameOr(d.SupplierName, d.SupplierBank),
			Type:     einvoice.AccountTypeBank,
			Bank:     d.SupplierBank,
			Number:   d.SupplierAccNo,
			Currency: nameOr(d.Currency, einvoice.DefaultCurrency),
		}
		if err := r.store.CreateAccount(ctx, acc); err != nil {
			log.WithError(err).Warn("could not create partner account, continuing without it")
		} else {
			p.AccountID = &acc.ID
		}
	}

	if !d.InvoiceType.IsServices() {
		wh := &einvoice.Warehouse{
			Name:    p.Name,
			Address: d.SupplierAddress,
			Type:    einvoice.WarehouseTypeSupplier,
		}
		if err := r.store.CreateWarehouse(ctx, wh); err != nil {
			log.WithError(err).Warn("could not create partner warehouse, continuing without it")
		} else {
			p.WarehouseID = &wh.ID
		}
	}

	stored, created, err := r.store.InsertOrGet(ctx, p)
	if err != nil {
		log.WithError(err).Error("could not create partner")
		return nil, false
	}
	if !created {
		// concurrent sync got there first; what we created above stays unreferenced
		log.Warn("partner created concurrently, using existing record")
		return &Result{PartnerID: stored.ID, WarehouseID: stored.WarehouseID}, true
	}

	log.WithField("partner_id", stored.ID).Info("partner created")
	return &Result{PartnerID: stored.ID, WarehouseID: stored.WarehouseID, Created: true}, true
}

func nameOr(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
