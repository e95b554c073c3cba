package cmd

import (
	"github.com/alapierre/go-einvoice-client/einvoice/postgres"
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is not set")
		}
		db, err := postgres.Open(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(cmd.Context()); err != nil {
			return err
		}
		logger.Info("database schema up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
