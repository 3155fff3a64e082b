package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mkwanja/internal/budget"
	"mkwanja/internal/core"
	"mkwanja/internal/services"
)

func newSummaryCmd(a *app) *cobra.Command {
	var (
		month  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the month's budget figures and category breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.ledger(cmd.Context(), false)
			if err != nil {
				return err
			}

			var d services.Dashboard
			if month == "" {
				d, err = svc.CurrentDashboard(cmd.Context())
			} else {
				var ym core.YearMonth
				if ym, err = core.ParseYearMonth(month); err != nil {
					return err
				}
				d, err = svc.Dashboard(cmd.Context(), ym)
			}
			if err != nil {
				return err
			}
			ym, err := core.ParseYearMonth(d.Month)
			if err != nil {
				return err
			}
			rep, err := svc.Report(cmd.Context(), ym)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(a.out, struct {
					services.Dashboard
					Categories []budget.CategoryShare `json:"categories"`
				}{d, rep.Categories})
			}
			printSummary(a.out, a.cfg.Currency, d, rep)
			return nil
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "month as YYYY-MM (default current month)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printSummary(w io.Writer, currency string, d services.Dashboard, rep services.Report) {
	fmt.Fprintf(w, "Month:          %s\n", d.Month)
	if !d.HasSettings {
		fmt.Fprintln(w, "Settings have not been saved yet; income and savings count as 0.")
	}
	fmt.Fprintf(w, "Income:         %s %s\n", d.MonthlyIncome, currency)
	fmt.Fprintf(w, "Savings target: %s %s\n", d.SavingsTarget, currency)
	fmt.Fprintf(w, "Spent:          %s %s (%d expenses)\n", d.TotalSpent, currency, d.ExpenseCount)
	fmt.Fprintf(w, "Safe to spend:  %s %s\n", d.SafeToSpend, currency)
	if d.Balance.Cents < 0 {
		fmt.Fprintf(w, "Overspent by:   %s %s\n", core.Money{Cents: -d.Balance.Cents}, currency)
	}
	fmt.Fprintf(w, "Budget used:    %.1f%%\n", d.BudgetUsedPercent)
	fmt.Fprintf(w, "Top category:   %s (%s)\n", d.TopCategory.Name, d.TopCategory.Amount)

	if len(rep.Categories) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CATEGORY\tAMOUNT\tSHARE")
		for _, c := range rep.Categories {
			fmt.Fprintf(tw, "%s\t%s\t%.1f%%\n", c.Name, c.Amount, c.Percent)
		}
		tw.Flush()
	}

	if len(d.Recent) > 0 {
		fmt.Fprintln(w, "\nRecent:")
		printExpenses(w, d.Recent)
	}
}
