package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simaogato/timedeposit-backend/internal/app"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Fetch and print current exchange rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		provider, err := app.NewRateProvider(cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		snap, err := provider.FetchRates(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if snap.Time != "" {
			fmt.Fprintf(out, "as of %s\n", snap.Time)
		}
		for _, code := range snap.Currencies() {
			fmt.Fprintf(out, "%s\t%s\n", code, snap.Rates[code])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ratesCmd)
}
