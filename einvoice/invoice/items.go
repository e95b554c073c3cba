package invoice

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/alapierre/go-einvoice-client/einvoice"
	"github.com/alapierre/go-einvoice-client/einvoice/api"
	"github.com/go-faster/errors"
)

type ItemsResult struct {
	Items []einvoice.InvoiceItem `json:"items"`
	// Detail nil when the detail endpoint failed or is unavailable
	Detail *einvoice.InvoiceDetail `json:"detail,omitempty"`
}

type itemsRequest struct {
	InvoiceID string `json:"invoiceId"`
}

type detailRequest struct {
	ID string `json:"id"`
}

// GetInvoiceItems line items of one invoice plus, when available, its detail.
// Unknown types, 404 and 500 all mean "no items": the service answers that
// way for documents without lines.
func (c *Client) GetInvoiceItems(ctx context.Context, token, invoiceID string, t einvoice.InvoiceType) (*ItemsResult, error) {
	if token == "" {
		return nil, einvoice.ErrMissingCredentials
	}

	log := logger.WithField("invoice_id", invoiceID).WithField("type", string(t))

	ep, ok := t.Endpoints()
	if !ok {
		log.Debug("no item endpoint for invoice type")
		return emptyItems(), nil
	}

	var raw []json.RawMessage
	err := c.api.PostJSON(ctx, ep.ItemsPath, token, itemsRequest{InvoiceID: invoiceID}, &raw)
	if err != nil {
		if errors.Is(err, einvoice.ErrAuthExpired) {
			return nil, err
		}
		switch api.StatusCode(err) {
		case http.StatusNotFound, http.StatusInternalServerError:
			log.WithError(err).Debug("treating error status as invoice without items")
			return emptyItems(), nil
		}
		return nil, errors.Wrap(err, "invoice items")
	}

	res := &ItemsResult{Items: make([]einvoice.InvoiceItem, 0, len(raw))}
	for _, r := range raw {
		res.Items = append(res.Items, einvoice.InvoiceItem{InvoiceID: invoiceID, Payload: r})
	}

	// stays nil for a null payload
	var detail *einvoice.InvoiceDetail
	if err := c.api.PostJSON(ctx, ep.DetailPath, token, detailRequest{ID: invoiceID}, &detail); err != nil {
		log.WithError(err).Debug("invoice detail unavailable")
		return res, nil
	}
	res.Detail = detail
	return res, nil
}

func emptyItems() *ItemsResult {
	return &ItemsResult{Items: []einvoice.InvoiceItem{}}
}
