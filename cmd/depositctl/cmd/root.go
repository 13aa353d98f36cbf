package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simaogato/timedeposit-backend/internal/app"
	"github.com/simaogato/timedeposit-backend/internal/config"
)

var (
	cfgFile      string
	homeCurrency string
	skipRates    bool
)

var rootCmd = &cobra.Command{
	Use:   "depositctl",
	Short: "Manage foreign-currency time deposits and their return on investment",
	Long: `depositctl works directly against the configured deposit store and rate source.

It provides tools for:
  - Listing accounts with revenue, P/L and ROI against current exchange rates
  - Opening accounts and recording closed interest periods
  - Checking which interest periods have matured
  - Importing accounts from a YAML seed file
  - Following a running server's change events`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON); environment variables override it")
	rootCmd.PersistentFlags().StringVar(&homeCurrency, "home", "TWD", "home currency used to display cost and revenue")
	rootCmd.PersistentFlags().BoolVar(&skipRates, "offline", false, "do not fetch exchange rates")
}

// withApp loads the ledger from the store, fetches rates unless --offline, and runs fn
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.Ledger.LoadAll(ctx); err != nil {
		return err
	}

	if !skipRates {
		if _, err := a.Rates.Refresh(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v; revenue is unavailable\n", err)
		}
	}

	return fn(ctx, a)
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}
