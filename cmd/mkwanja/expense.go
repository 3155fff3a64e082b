package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mkwanja/internal/core"
	"mkwanja/internal/services"
)

func newExpenseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expense",
		Aliases: []string{"expenses"},
		Short:   "Add, list, update and delete expenses",
	}
	cmd.AddCommand(
		newExpenseAddCmd(a),
		newExpenseListCmd(a),
		newExpenseUpdateCmd(a),
		newExpenseDeleteCmd(a),
	)
	return cmd
}

func expenseFlags(cmd *cobra.Command, in *services.ExpenseInput) {
	cmd.Flags().StringVarP(&in.Category, "category", "c", "", "category name")
	cmd.Flags().StringVarP(&in.Amount, "amount", "a", "", "amount, e.g. 12.50 or 12,50")
	cmd.Flags().StringVarP(&in.Note, "note", "n", "", "optional note")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("amount")
}

func newExpenseAddCmd(a *app) *cobra.Command {
	var in services.ExpenseInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense dated now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.ledger(cmd.Context(), true)
			if err != nil {
				return err
			}
			e, err := svc.AddExpense(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added expense %d: %s %s\n", e.ID, e.Category, e.Amount)
			return nil
		},
	}
	expenseFlags(cmd, &in)
	return cmd
}

func newExpenseListCmd(a *app) *cobra.Command {
	var (
		month  string
		all    bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.ledger(cmd.Context(), false)
			if err != nil {
				return err
			}

			var filter *core.YearMonth
			if !all {
				ym, err := monthOrCurrent(month)
				if err != nil {
					return err
				}
				filter = &ym
			}

			expenses, err := svc.ListExpenses(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				if expenses == nil {
					expenses = []core.Expense{}
				}
				return printJSON(a.out, expenses)
			}
			printExpenses(a.out, expenses)
			return nil
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "month as YYYY-MM (default current month)")
	cmd.Flags().BoolVar(&all, "all", false, "list every month")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.MarkFlagsMutuallyExclusive("month", "all")
	return cmd
}

func newExpenseUpdateCmd(a *app) *cobra.Command {
	var in services.ExpenseInput
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Replace the category, amount and note of an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, err := a.ledger(cmd.Context(), true)
			if err != nil {
				return err
			}
			if err := svc.UpdateExpense(cmd.Context(), id, in); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated expense %d\n", id)
			return nil
		},
	}
	expenseFlags(cmd, &in)
	return cmd
}

func newExpenseDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete an expense",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, err := a.ledger(cmd.Context(), true)
			if err != nil {
				return err
			}
			if err := svc.DeleteExpense(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted expense %d\n", id)
			return nil
		},
	}
}

func printExpenses(w io.Writer, expenses []core.Expense) {
	if len(expenses) == 0 {
		fmt.Fprintln(w, "No expenses.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tAMOUNT\tNOTE")
	for _, e := range expenses {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			e.ID, e.Date.In(time.Local).Format("2006-01-02 15:04"), e.Category, e.Amount, e.Note)
	}
	tw.Flush()
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Field: "id", Reason: fmt.Sprintf("%q is not a positive integer", s)}
	}
	return id, nil
}

func monthOrCurrent(s string) (core.YearMonth, error) {
	if s == "" {
		return core.CurrentMonth(time.Now()), nil
	}
	return core.ParseYearMonth(s)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
