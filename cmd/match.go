package cmd

import (
	"fmt"

	"github.com/alapierre/go-einvoice-client/einvoice/similarity"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match <name>",
	Short: "Find the stored partner whose name is closest to <name>",
	Args:  cobra.ExactArgs(1),
	RunE:  runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchCmd.Flags().Float64("threshold", similarity.DefaultThreshold, "Minimum similarity in percent")
}

func runMatch(cmd *cobra.Command, args []string) error {
	threshold, _ := cmd.Flags().GetFloat64("threshold")

	svc, err := newServices(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	partners, err := svc.partners.List(cmd.Context())
	if err != nil {
		return err
	}
	candidates := make([]similarity.Candidate, 0, len(partners))
	for _, p := range partners {
		candidates = append(candidates, similarity.Candidate{ID: p.ID.String(), Name: p.Name})
	}

	m, ok := similarity.BestMatch(args[0], candidates, threshold)
	if !ok {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "no partner above %.2f%%\n", threshold)
		return err
	}
	return printJSON(cmd, m)
}
