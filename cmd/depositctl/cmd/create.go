package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/simaogato/timedeposit-backend/internal/app"
	"github.com/simaogato/timedeposit-backend/internal/usecase/ledger"
)

// dateLayout is used for origination and period dates on the command line
const dateLayout = "2006-01-02"

var (
	createCurrency string
	createCost     string
	createRate     string
	createDate     string
)

var createCmd = &cobra.Command{
	Use:   "create <account-id>",
	Short: "Open a deposit account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cost, err := decimal.NewFromString(createCost)
		if err != nil {
			return fmt.Errorf("invalid --cost: %w", err)
		}
		rate, err := decimal.NewFromString(createRate)
		if err != nil {
			return fmt.Errorf("invalid --rate: %w", err)
		}
		date, err := time.Parse(dateLayout, createDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			account, err := a.Ledger.Create(ctx, args[0], ledger.CreateDepositInput{
				Currency:     createCurrency,
				Cost:         cost,
				ExchangeRate: rate,
				Year:         date.Year(),
				Month:        date.Month(),
				Day:          date.Day(),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s: %s at %s, available %s\n",
				account.ID,
				formatMoney(account.Cost, homeCurrency),
				account.ExchangeRate,
				formatMoney(account.Derived.AvailableBalance, account.Currency))
			return nil
		})
	},
}

func init() {
	createCmd.Flags().StringVar(&createCurrency, "currency", "", "3-letter currency code of the deposit")
	createCmd.Flags().StringVar(&createCost, "cost", "", "home-currency principal at origination")
	createCmd.Flags().StringVar(&createRate, "rate", "", "exchange rate at origination (home units per foreign unit)")
	createCmd.Flags().StringVar(&createDate, "date", time.Now().Format(dateLayout), "origination date, YYYY-MM-DD")
	_ = createCmd.MarkFlagRequired("currency")
	_ = createCmd.MarkFlagRequired("cost")
	_ = createCmd.MarkFlagRequired("rate")
	rootCmd.AddCommand(createCmd)
}
