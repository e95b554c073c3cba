// Package config reads runtime settings from the environment. A .env file,
// when present, is loaded by main before Load is called.
package config

import (
	"os"
	"time"

	"github.com/alapierre/go-einvoice-client/einvoice"
	"github.com/alapierre/go-einvoice-client/einvoice/api"
	"github.com/alapierre/go-einvoice-client/einvoice/syncer"
	"github.com/alapierre/go-einvoice-client/einvoice/util"
	"github.com/go-faster/errors"
)

const DefaultListenAddr = ":8080"

type Config struct {
	Env         einvoice.Environment
	BaseURL     string
	LoginURL    string
	Credentials einvoice.Credentials

	HTTPTimeout  time.Duration
	SyncLookback time.Duration

	// DatabaseURL empty means in-memory stores
	DatabaseURL string
	ListenAddr  string

	// OTLPEndpoint empty disables tracing
	OTLPEndpoint string

	Debug     bool
	HTTPTrace bool
}

func Load() (*Config, error) {
	c := &Config{
		BaseURL:  os.Getenv("EINVOICE_BASE_URL"),
		LoginURL: os.Getenv("EINVOICE_LOGIN_URL"),
		Credentials: einvoice.Credentials{
			Tin:      os.Getenv("EINVOICE_TIN"),
			Username: os.Getenv("EINVOICE_USERNAME"),
			Password: os.Getenv("EINVOICE_PASSWORD"),
		},
		HTTPTimeout:  util.GetEnvDuration("EINVOICE_HTTP_TIMEOUT", api.DefaultTimeout),
		SyncLookback: util.GetEnvDuration("EINVOICE_SYNC_LOOKBACK", syncer.DefaultLookback),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		ListenAddr:   util.GetEnv("LISTEN_ADDR", DefaultListenAddr),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Debug:        util.DebugEnabled(),
		HTTPTrace:    util.HttpTraceEnabled(),
	}

	if err := c.Env.UnmarshalText([]byte(os.Getenv("EINVOICE_ENV"))); err != nil {
		return nil, err
	}
	if c.HTTPTimeout <= 0 {
		return nil, errors.Errorf("EINVOICE_HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	if c.SyncLookback <= 0 {
		return nil, errors.Errorf("EINVOICE_SYNC_LOOKBACK must be positive, got %s", c.SyncLookback)
	}
	return c, nil
}

// RequireCredentials for commands acting on behalf of the configured taxpayer.
func (c *Config) RequireCredentials() error {
	if err := c.Credentials.Validate(); err != nil {
		return errors.Wrap(err, "set EINVOICE_TIN, EINVOICE_USERNAME and EINVOICE_PASSWORD")
	}
	return nil
}

func (c *Config) APIOptions() []api.Option {
	opts := []api.Option{api.WithTimeout(c.HTTPTimeout)}
	if c.BaseURL != "" {
		opts = append(opts, api.WithBaseURL(c.BaseURL))
	}
	if c.LoginURL != "" {
		opts = append(opts, api.WithLoginURL(c.LoginURL))
	}
	return opts
}
