package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/simaogato/timedeposit-backend/internal/app"
	"github.com/simaogato/timedeposit-backend/internal/domain"
	"github.com/simaogato/timedeposit-backend/internal/usecase/period"
	"github.com/simaogato/timedeposit-backend/internal/usecase/sorter"
)

var (
	listSort  string
	listOrder string
	listFrom  string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List deposit accounts with derived revenue, P/L and ROI",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			accounts := a.Ledger.Accounts()

			if listSort != "" {
				key, err := sorter.ParseKey(listSort)
				if err != nil {
					return err
				}
				order, err := sorter.ParseOrder(listOrder)
				if err != nil {
					return err
				}
				accounts, err = a.Ledger.Sort(key, sorter.Options{Order: order, From: listFrom})
				if err != nil {
					return err
				}
			}

			printAccounts(cmd.OutOrStdout(), accounts, a.Ledger.Now())
			return nil
		})
	},
}

func init() {
	listCmd.Flags().StringVar(&listSort, "sort", "", "sort key: account, pl, currency or month")
	listCmd.Flags().StringVar(&listOrder, "order", "asc", "sort order: asc or desc")
	listCmd.Flags().StringVar(&listFrom, "from", "", `with --sort month, "current" starts at this month`)
	rootCmd.AddCommand(listCmd)
}

func printAccounts(out io.Writer, accounts []domain.DepositAccount, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tCUR\tORIGIN\tPERIOD END\tSTATE\tBALANCE\tCOST\tREVENUE\tP/L\tROI")

	for _, account := range accounts {
		status := period.Resolve(account, now)
		d := account.Derived

		revenue, pl, roiPct := "n/a", "n/a", "n/a"
		if d.RevenueAvailable {
			revenue = formatMoney(d.Revenue, homeCurrency)
			pl = signed(d.PL, formatMoney(d.PL, homeCurrency))
			roiPct = signed(d.ROIPercent, formatPercent(d.ROIPercent))
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			account.ID,
			account.Currency,
			account.OriginationDate().Format(dateLayout),
			status.PeriodEnd.Format(dateLayout),
			status.State,
			formatMoney(d.AvailableBalance, account.Currency),
			formatMoney(account.Cost, homeCurrency),
			revenue,
			pl,
			roiPct,
		)
	}
	w.Flush()
}
