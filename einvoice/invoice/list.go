package invoice

import (
	"context"
	"time"

	"github.com/alapierre/go-einvoice-client/einvoice"
	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
)

type ListResult struct {
	Records []einvoice.InvoiceRecord `json:"records"`
	// Count buyer side count plus supplier side count as reported by the service
	Count int `json:"count"`
	// NewAnchor upper bound of the queried window, pass as since on the next call
	NewAnchor time.Time `json:"newAnchor"`
}

type countRequest struct {
	Condition Condition `json:"condition"`
}

type listRequest struct {
	Condition  Condition `json:"condition"`
	PageLimit  int       `json:"pageLimit"`
	PageOffset int       `json:"pageOffset"`
	SortCol    string    `json:"sortCol"`
	SortAsc    bool      `json:"sortAsc"`
}

// ListInvoices all ISSUED or APPROVED invoices issued in [since, now) where
// tin is the buyer, then where it is the supplier. Any failure, including an
// expired token on a later page, discards everything fetched so far.
func (c *Client) ListInvoices(ctx context.Context, token, tin string, since time.Time) (*ListResult, error) {
	if token == "" || tin == "" {
		return nil, einvoice.ErrMissingCredentials
	}

	now := c.clock.Now()
	res := &ListResult{
		Records:   []einvoice.InvoiceRecord{},
		NewAnchor: now,
	}

	for _, side := range []Party{Buyer, Supplier} {
		cond := windowCondition(side, tin, since, now)

		records, count, err := c.listSide(ctx, token, cond)
		if err != nil {
			return nil, errors.Wrapf(err, "list invoices (%s)", side)
		}

		logger.WithFields(logrus.Fields{
			"tin":     tin,
			"side":    string(side),
			"count":   count,
			"fetched": len(records),
		}).Debug("invoice listing phase done")

		res.Records = append(res.Records, records...)
		res.Count += count
	}

	if n := selfIssued(res.Records, tin); n > 0 {
		logger.WithField("tin", tin).Debugf("%d self-issued invoices counted on both sides", n)
	}
	return res, nil
}

func (c *Client) listSide(ctx context.Context, token string, cond Condition) ([]einvoice.InvoiceRecord, int, error) {
	var count int
	if err := c.api.PostJSON(ctx, CountPath, token, countRequest{Condition: cond}, &count); err != nil {
		return nil, 0, errors.Wrap(err, "count")
	}

	var records []einvoice.InvoiceRecord
	for offset := 0; offset < count; offset += c.pageSize {
		var page []einvoice.InvoiceRecord
		req := listRequest{
			Condition:  cond,
			PageLimit:  c.pageSize,
			PageOffset: offset,
			SortCol:    "issuedAt",
			SortAsc:    false,
		}
		if err := c.api.PostJSON(ctx, ListPath, token, req, &page); err != nil {
			return nil, 0, errors.Wrapf(err, "page at offset %d", offset)
		}
		if len(page) == 0 {
			logger.Warnf("empty page at offset %d of %d, stopping", offset, count)
			break
		}
		records = append(records, page...)
	}
	return records, count, nil
}

func selfIssued(records []einvoice.InvoiceRecord, tin string) int {
	n := 0
	for _, r := range records {
		if r.BuyerTin == tin && r.SupplierTin == tin {
			n++
		}
	}
	// each one shows up once per side
	return n / 2
}
