package auth

import (
	"context"
	_ "embed"
	"time"

	"github.com/alapierre/go-einvoice-client/einvoice"
	"github.com/alapierre/go-einvoice-client/einvoice/mutex"
	"github.com/alapierre/go-einvoice-client/einvoice/tokencache"
	"github.com/alapierre/go-einvoice-client/einvoice/util"
	"github.com/go-faster/errors"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "einvoice.auth")

//go:embed login_request.xml
var loginRequestTemplate string

const (
	// TokenTTL the service does not report token lifetime, 20 minutes is a safe lower bound
	TokenTTL = 20 * time.Minute
	// RefreshSkew cached tokens closer to expiry than this are not handed out
	RefreshSkew = 60 * time.Second
)

// Client exchanges taxpayer credentials for a bearer token, going to the
// network only when the cache has no usable token.
type Client struct {
	transport Transport
	cache     tokencache.Store
	clock     clockwork.Clock

	// logins for the same TIN run one at a time
	locks mutex.KeyedMutex[string]
}

type Option func(*Client)

func WithClock(c clockwork.Clock) Option {
	return func(cl *Client) { cl.clock = c }
}

func NewClient(transport Transport, cache tokencache.Store, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		cache:     cache,
		clock:     clockwork.NewRealClock(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Authenticate returns a bearer token for creds.Tin. A context created with
// einvoice.ContextWithForceAuth bypasses the cache.
func (c *Client) Authenticate(ctx context.Context, creds einvoice.Credentials) (string, error) {
	if err := creds.Validate(); err != nil {
		return "", err
	}

	log := logger.WithField("tin", creds.Tin)
	force := einvoice.IsForceAuth(ctx)

	// fast path without the lock
	if !force {
		if token, ok := c.cached(ctx, creds.Tin); ok {
			log.Debug("using cached token")
			return token, nil
		}
	}

	c.locks.Lock(creds.Tin)
	defer c.locks.Unlock(creds.Tin)

	// check again, a concurrent login may have filled the cache
	if !force {
		if token, ok := c.cached(ctx, creds.Tin); ok {
			log.Debug("token refreshed by concurrent login")
			return token, nil
		}
	}

	log.Debug("performing login")
	token, err := c.login(ctx, creds)
	if err != nil {
		return "", err
	}

	entry := tokencache.Entry{Token: token, ExpiresAt: c.clock.Now().Add(TokenTTL)}
	if err := c.cache.Put(ctx, creds.Tin, entry); err != nil {
		log.WithError(err).Warn("could not store token in cache")
	}
	log.WithField("expires_at", entry.ExpiresAt).Info("logged in to tax service")
	return token, nil
}

func (c *Client) cached(ctx context.Context, tin string) (string, bool) {
	e, ok, err := c.cache.Get(ctx, tin)
	if err != nil {
		logger.WithField("tin", tin).WithError(err).Warn("token cache read failed")
		return "", false
	}
	if !ok || !e.ValidFor(c.clock.Now(), RefreshSkew) {
		return "", false
	}
	return e.Token, true
}

func (c *Client) login(ctx context.Context, creds einvoice.Credentials) (string, error) {
	request, err := util.MergeTemplate(&loginRequestTemplate, creds)
	if err != nil {
		return "", errors.Wrap(err, "build login request")
	}

	body, err := c.transport.PostXML(ctx, request)
	if err != nil {
		// SOAP faults come with an error status but still describe the rejection
		if len(body) > 0 {
			if res, perr := parseLoginResponse(body); perr == nil && res.status != nil && res.status.code != successCode {
				return res.result()
			}
		}
		return "", errors.Wrap(err, "login")
	}

	res, err := parseLoginResponse(body)
	if err != nil {
		return "", err
	}

	token, err := res.result()
	if err != nil {
		return "", err
	}
	logger.WithField("tin", creds.Tin).Debugf("token read from %s", res.token.source)
	return token, nil
}
