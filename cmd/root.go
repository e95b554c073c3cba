package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alapierre/go-einvoice-client/einvoice/config"
	"github.com/alapierre/go-einvoice-client/einvoice/telemetry"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var logger = logrus.WithField("component", "cmd")

// cfg filled in by the root PersistentPreRunE
var cfg *config.Config

// shutdownTelemetry flushes spans, replaced once tracing is initialized
var shutdownTelemetry = func(context.Context) error { return nil }

var rootCmd = &cobra.Command{
	Use:   "einvoice",
	Short: "Synchronize e-invoices, items and suppliers from the tax service",
	Long: `einvoice logs in to the tax service e-invoicing system, downloads invoices
issued to or by the configured taxpayer and keeps local partner records in sync.

Configuration is read from the environment (a .env file is loaded first):
  EINVOICE_ENV            prod | test (default test)
  EINVOICE_TIN            taxpayer identification number
  EINVOICE_USERNAME       e-invoicing user
  EINVOICE_PASSWORD       e-invoicing password
  DATABASE_URL            PostgreSQL DSN, in-memory stores when empty
  OTEL_EXPORTER_OTLP_ENDPOINT  OTLP/gRPC collector, tracing off when empty`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c
		if cfg.Debug {
			logrus.SetLevel(logrus.DebugLevel)
		}

		shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
			ServiceName:  "einvoice",
			Environment:  cfg.Env.Name(),
			OTLPEndpoint: cfg.OTLPEndpoint,
		})
		if err != nil {
			return err
		}
		shutdownTelemetry = shutdown
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if serr := shutdownTelemetry(ctx); serr != nil {
		logger.WithError(serr).Warn("could not flush traces")
	}
	cancel()

	if err != nil {
		logger.WithError(err).Debug("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
