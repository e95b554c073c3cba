package cmd

import (
	"github.com/alapierre/go-einvoice-client/einvoice"
	"github.com/spf13/cobra"
)

var itemsCmd = &cobra.Command{
	Use:     "items <invoice-id>",
	Short:   "Print line items and detail of one invoice",
	Example: `  einvoice items 6f1c2a --type SERVICES`,
	Args:    cobra.ExactArgs(1),
	RunE:    runItems,
}

func init() {
	rootCmd.AddCommand(itemsCmd)
	itemsCmd.Flags().String("type", string(einvoice.Goods), "Invoice type (GOODS, SERVICES, EXCISE, ...)")
}

func runItems(cmd *cobra.Command, args []string) error {
	if err := cfg.RequireCredentials(); err != nil {
		return err
	}
	raw, _ := cmd.Flags().GetString("type")
	t, err := einvoice.ParseInvoiceType(raw)
	if err != nil {
		return err
	}

	ctx := einvoice.Context(cmd.Context(), cfg.Credentials.Tin)
	svc, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	token, err := svc.auth.Authenticate(ctx, cfg.Credentials)
	if err != nil {
		return err
	}
	res, err := svc.invoices.GetInvoiceItems(ctx, token, args[0], t)
	if err != nil {
		return err
	}
	return printJSON(cmd, res)
}
