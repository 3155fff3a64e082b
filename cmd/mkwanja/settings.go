package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the monthly income and savings target",
	}

	var asJSON bool
	get := &cobra.Command{
		Use:   "get",
		Short: "Show the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.ledger(cmd.Context(), false)
			if err != nil {
				return err
			}
			s, err := svc.GetSettings(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(a.out, s)
			}
			if s == nil {
				fmt.Fprintln(a.out, "Settings have not been saved yet.")
				return nil
			}
			fmt.Fprintf(a.out, "Monthly income: %s %s\n", s.MonthlyIncome, a.cfg.Currency)
			fmt.Fprintf(a.out, "Savings target: %s %s\n", s.SavingsTarget, a.cfg.Currency)
			return nil
		},
	}
	get.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	var income, savings string
	set := &cobra.Command{
		Use:   "set",
		Short: "Replace the monthly income and savings target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.ledger(cmd.Context(), true)
			if err != nil {
				return err
			}
			s, err := svc.SaveSettings(cmd.Context(), income, savings)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Saved: income %s, savings %s\n", s.MonthlyIncome, s.SavingsTarget)
			return nil
		},
	}
	set.Flags().StringVar(&income, "income", "", "monthly income")
	set.Flags().StringVar(&savings, "savings", "0", "monthly savings target")
	_ = set.MarkFlagRequired("income")

	cmd.AddCommand(get, set)
	return cmd
}
