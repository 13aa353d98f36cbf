package cmd

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/simaogato/timedeposit-backend/internal/app"
	"github.com/simaogato/timedeposit-backend/internal/domain"
	"github.com/simaogato/timedeposit-backend/internal/usecase/period"
)

var (
	appendYear      int
	appendPrincipal string
	appendInterest  string
	appendRate      string
)

var appendCmd = &cobra.Command{
	Use:   "append <account-id>",
	Short: "Record the gross interest of an interest period",
	Long: `Record the gross interest of an interest period.

Without --year or --principal the values are taken from the account's matured period:
the start year is the period end year and the principal rolls forward from the last record.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interest, err := decimal.NewFromString(appendInterest)
		if err != nil {
			return fmt.Errorf("invalid --interest: %w", err)
		}
		rate, err := decimal.NewFromString(appendRate)
		if err != nil {
			return fmt.Errorf("invalid --rate: %w", err)
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			account, err := a.Ledger.Account(args[0])
			if err != nil {
				return err
			}

			record, err := draftRecord(account, period.Resolve(account, a.Ledger.Now()))
			if err != nil {
				return err
			}
			record.ReceivedGrossAmount = interest
			record.InterestRate = rate

			updated, err := a.Ledger.AppendHistory(ctx, account.ID, record)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "recorded %d for %s: available %s\n",
				record.InterestStartYear,
				updated.ID,
				formatMoney(updated.Derived.AvailableBalance, updated.Currency))
			return nil
		})
	},
}

func init() {
	appendCmd.Flags().IntVar(&appendYear, "year", 0, "interest start year (default: from the matured period)")
	appendCmd.Flags().StringVar(&appendPrincipal, "principal", "", "principal carried into the period (default: rolled forward)")
	appendCmd.Flags().StringVar(&appendInterest, "interest", "", "gross interest received for the period")
	appendCmd.Flags().StringVar(&appendRate, "rate", "0", "interest rate in percent")
	_ = appendCmd.MarkFlagRequired("interest")
	rootCmd.AddCommand(appendCmd)
}

// draftRecord fills start year and principal from flags, falling back to the matured period draft
func draftRecord(account domain.DepositAccount, status period.Status) (domain.HistoryRecord, error) {
	var record domain.HistoryRecord

	switch {
	case appendYear != 0:
		record.InterestStartYear = appendYear
	case status.Matured():
		record.InterestStartYear = status.Next.InterestStartYear
	default:
		return record, fmt.Errorf("period of %s is open until %s; pass --year to record anyway",
			account.ID, status.PeriodEnd.Format(dateLayout))
	}

	switch {
	case appendPrincipal != "":
		principal, err := decimal.NewFromString(appendPrincipal)
		if err != nil {
			return record, fmt.Errorf("invalid --principal: %w", err)
		}
		record.TimeDepositAmount = principal
	case status.Next != nil && status.Next.TimeDepositAmount != nil:
		record.TimeDepositAmount = *status.Next.TimeDepositAmount
	default:
		return record, fmt.Errorf("first period of %s needs --principal", account.ID)
	}

	return record, nil
}
