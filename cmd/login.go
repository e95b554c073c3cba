package cmd

import (
	"fmt"

	"github.com/alapierre/go-einvoice-client/einvoice"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with the configured credentials and print the token",
	RunE:  runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().Bool("force", false, "Ignore a cached token")
}

func runLogin(cmd *cobra.Command, args []string) error {
	if err := cfg.RequireCredentials(); err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")

	ctx := einvoice.Context(cmd.Context(), cfg.Credentials.Tin)
	if force {
		ctx = einvoice.ContextWithForceAuth(ctx)
	}

	svc, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	token, err := svc.auth.Authenticate(ctx, cfg.Credentials)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
