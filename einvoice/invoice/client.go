// Package invoice reads invoices and their line items from the tax service.
package invoice

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "einvoice.invoice")

// Querier authenticated JSON transport, implemented by *api.Client.
type Querier interface {
	PostJSON(ctx context.Context, endpoint, token string, payload, result any) error
}

const (
	CountPath = "/invoices/count"
	ListPath  = "/invoices/list"

	DefaultPageSize = 100
)

type Client struct {
	api      Querier
	clock    clockwork.Clock
	pageSize int
}

type Option func(*Client)

func WithClock(c clockwork.Clock) Option {
	return func(cl *Client) { cl.clock = c }
}

func WithPageSize(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.pageSize = n
		}
	}
}

func NewClient(q Querier, opts ...Option) *Client {
	c := &Client{
		api:      q,
		clock:    clockwork.NewRealClock(),
		pageSize: DefaultPageSize,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}
