package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/simaogato/timedeposit-backend/internal/app"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show cost, revenue and ROI per currency and for the whole portfolio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			summary, err := a.Dashboard.GetPortfolioSummary(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CUR\tACCOUNTS\tCOST\tREVENUE\tP/L\tROI")

			for _, code := range summary.Currencies() {
				group := summary.PerCurrency[code]
				revenue, pl, roiPct := "n/a", "n/a", "n/a"
				if summary.RevenueAvailable {
					revenue = formatMoney(group.Revenue, homeCurrency)
					pl = signed(group.PL(), formatMoney(group.PL(), homeCurrency))
					if pct, ok := group.ROIPercent(); ok {
						roiPct = signed(pct, formatPercent(pct))
					}
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
					code, group.Accounts, formatMoney(group.Cost, homeCurrency), revenue, pl, roiPct)
			}

			revenue, pl, roiPct := "n/a", "n/a", "n/a"
			if summary.RevenueAvailable {
				revenue = formatMoney(summary.TotalRevenue, homeCurrency)
				pl = signed(summary.TotalPL(), formatMoney(summary.TotalPL(), homeCurrency))
				if pct, ok := summary.TotalROIPercent(); ok {
					roiPct = signed(pct, formatPercent(pct))
				}
			}
			fmt.Fprintf(w, "TOTAL\t\t%s\t%s\t%s\t%s\n", formatMoney(summary.TotalCost, homeCurrency), revenue, pl, roiPct)
			w.Flush()

			if summary.RateTime != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\nrates as of %s\n", summary.RateTime)
			}
			if summary.Matured > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d account(s) have a matured period, see `depositctl status`\n", summary.Matured)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}
