package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/alapierre/go-einvoice-client/einvoice"
	"github.com/alapierre/go-einvoice-client/einvoice/util"
	"github.com/go-faster/errors"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "einvoice.api")

// AuthCookie name of the cookie carrying the bearer token on REST calls.
const AuthCookie = "token"

const DefaultTimeout = 30 * time.Second

type Client struct {
	rest     *resty.Client
	baseURL  string
	loginURL string
}

type options struct {
	httpClient *http.Client
	baseURL    string
	loginURL   string
	timeout    time.Duration
	timeoutSet bool
}

type Option func(*options)

// WithHTTPClient the client keeps its own Timeout unless WithTimeout is given as well.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithBaseURL overrides the REST root of the environment.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithLoginURL overrides the legacy login endpoint of the environment.
func WithLoginURL(u string) Option {
	return func(o *options) { o.loginURL = u }
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
		o.timeoutSet = true
	}
}

func New(env einvoice.Environment, opts ...Option) *Client {
	o := options{
		baseURL:  env.BaseURL(),
		loginURL: env.LoginURL(),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var rest *resty.Client
	if o.httpClient != nil {
		rest = resty.NewWithClient(o.httpClient)
		if o.timeoutSet {
			rest.SetTimeout(o.timeout)
		}
	} else {
		rest = resty.New().SetTimeout(o.timeout)
	}

	return &Client{
		rest:     rest,
		baseURL:  strings.TrimRight(o.baseURL, "/"),
		loginURL: o.loginURL,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// PostXML sends a SOAP envelope to the legacy login endpoint. The body is
// returned together with a *RequestError for non 2xx statuses, SOAP faults
// still carry a readable Status element.
func (c *Client) PostXML(ctx context.Context, body []byte) ([]byte, error) {
	resp, err := c.request(ctx).
		SetBody(body).
		SetHeader("Content-Type", "text/xml; charset=utf-8").
		SetHeader("SOAPAction", "").
		Post(c.loginURL)

	printTraceInfo(c.loginURL, err, resp)
	if err != nil {
		return nil, &RequestError{Endpoint: c.loginURL, Err: einvoice.ErrUpstreamTransport, Message: err.Error()}
	}

	if resp.IsError() {
		return resp.Body(), &RequestError{
			StatusCode: resp.StatusCode(),
			Endpoint:   c.loginURL,
			Err:        einvoice.ErrUpstreamStatus,
			Body:       resp.String(),
		}
	}
	return resp.Body(), nil
}

// PostJSON posts {"payload": payload} to endpoint (relative to the base URL)
// authenticated with token and binds the response payload into result.
// result may be nil when the payload is not needed.
func (c *Client) PostJSON(ctx context.Context, endpoint, token string, payload, result any) error {
	url := c.baseURL + endpoint

	resp, err := c.request(ctx).
		SetCookie(&http.Cookie{Name: AuthCookie, Value: token}).
		SetHeader("Accept", "application/json").
		SetBody(payloadRequest{Payload: payload}).
		Post(url)

	printTraceInfo(url, err, resp)
	if err != nil {
		return &RequestError{Endpoint: endpoint, Err: einvoice.ErrUpstreamTransport, Message: err.Error()}
	}

	if err := checkStatus(endpoint, resp); err != nil {
		log := logger.WithFields(logrus.Fields{"endpoint": endpoint, "status": resp.StatusCode()})
		if tin, ok := einvoice.TinFromContext(ctx); ok {
			log = log.WithField("tin", tin)
		}
		log.Debug("tax service call failed")
		return err
	}

	env, err := decodeEnvelope(resp.Body())
	if err != nil {
		return &RequestError{
			StatusCode: resp.StatusCode(),
			Endpoint:   endpoint,
			Err:        einvoice.ErrUpstreamTransport,
			Body:       resp.String(),
			Message:    err.Error(),
		}
	}

	if !env.ok {
		return &RequestError{
			StatusCode: resp.StatusCode(),
			Endpoint:   endpoint,
			Err:        einvoice.ErrUpstreamStatus,
			Body:       resp.String(),
			Message:    env.message,
		}
	}

	if result == nil || len(env.payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.payload, result); err != nil {
		return &RequestError{
			StatusCode: resp.StatusCode(),
			Endpoint:   endpoint,
			Err:        einvoice.ErrUpstreamTransport,
			Body:       resp.String(),
			Message:    errors.Wrap(err, "bind payload").Error(),
		}
	}
	return nil
}

func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.rest.R().SetContext(ctx)
	if util.HttpTraceEnabled() {
		r.EnableTrace()
	}
	return r
}

func checkStatus(endpoint string, resp *resty.Response) error {
	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &RequestError{StatusCode: code, Endpoint: endpoint, Err: einvoice.ErrAuthExpired, Body: resp.String()}
	case code < 200 || code > 299:
		return &RequestError{StatusCode: code, Endpoint: endpoint, Err: einvoice.ErrUpstreamStatus, Body: resp.String()}
	}
	return nil
}

// StatusCode of a failed call, 0 when err does not come from a response.
func StatusCode(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

func printTraceInfo(url string, err error, resp *resty.Response) {

	if !util.HttpTraceEnabled() || resp == nil || resp.Request == nil {
		return
	}

	ti := resp.Request.TraceInfo()
	logger.WithFields(logrus.Fields{
		"url":           url,
		"error":         err,
		"status":        resp.StatusCode(),
		"time":          resp.Time(),
		"dns_lookup":    ti.DNSLookup,
		"conn_time":     ti.ConnTime,
		"tls_handshake": ti.TLSHandshake,
		"server_time":   ti.ServerTime,
		"total_time":    ti.TotalTime,
		"conn_reused":   ti.IsConnReused,
	}).Debug("HTTP trace")
}
