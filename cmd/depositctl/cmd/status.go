package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simaogato/timedeposit-backend/internal/app"
)

var statusCmd = &cobra.Command{
	Use:   "status [account-id]",
	Short: "Show the interest period of an account, or every matured account",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				matured, err := a.Dashboard.ListMatured(ctx)
				if err != nil {
					return err
				}
				if len(matured) == 0 {
					fmt.Fprintln(out, "no matured periods")
					return nil
				}
				for _, m := range matured {
					fmt.Fprintf(out, "%s\tmatured %s\tnext start %d\n",
						m.Account.ID, m.Period.PeriodEnd.Format(dateLayout), m.Period.Next.InterestStartYear)
				}
				return nil
			}

			result, err := a.Dashboard.GetPeriodStatus(ctx, args[0])
			if err != nil {
				return err
			}

			p := result.Period
			fmt.Fprintf(out, "account:  %s (%s)\n", result.Account.ID, result.Account.Currency)
			fmt.Fprintf(out, "period:   %s .. %s\n", p.PeriodStart.Format(dateLayout), p.PeriodEnd.Format(dateLayout))
			fmt.Fprintf(out, "state:    %s\n", p.State)
			if p.Next != nil {
				fmt.Fprintf(out, "next:     start year %d", p.Next.InterestStartYear)
				if p.Next.TimeDepositAmount != nil {
					fmt.Fprintf(out, ", principal %s", formatMoney(*p.Next.TimeDepositAmount, result.Account.Currency))
				}
				fmt.Fprintln(out)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
