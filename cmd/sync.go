package cmd

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download invoices and items, create missing supplier partners",
	Long: `Runs one synchronization pass for the configured taxpayer.

Without --since the pass continues from where the previous one ended, or
covers EINVOICE_SYNC_LOOKBACK on the first run.`,
	Example: `  einvoice sync
  einvoice sync --since 2025-01-01`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().String("since", "", "Start of the window (YYYY-MM-DD or RFC 3339)")
}

func runSync(cmd *cobra.Command, args []string) error {
	if err := cfg.RequireCredentials(); err != nil {
		return err
	}
	raw, _ := cmd.Flags().GetString("since")
	since, err := parseSince(raw)
	if err != nil {
		return err
	}

	svc, err := newServices(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := svc.syncer.Run(cmd.Context(), cfg.Credentials, since)
	if err != nil {
		return err
	}
	return printJSON(cmd, report)
}

func parseSince(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid --since %q, use YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}
