package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mkwanja/internal/export"
	"mkwanja/internal/export/csvexport"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a month of the ledger",
	}

	var month, dir string
	csvCmd := &cobra.Command{
		Use:   "csv",
		Short: "Write a month's expenses as CSV to stdout or to DIR/mkwanja-YYYY-MM.csv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ym, err := monthOrCurrent(month)
			if err != nil {
				return err
			}
			svc, err := a.ledger(cmd.Context(), false)
			if err != nil {
				return err
			}

			if dir == "" {
				expenses, err := svc.ListExpenses(cmd.Context(), &ym)
				if err != nil {
					return err
				}
				return csvexport.Write(a.out, expenses)
			}

			data, err := export.Collect(cmd.Context(), svc.Store(), ym, a.cfg.Currency, a.cfg.RecentLimit)
			if err != nil {
				return err
			}
			exp := csvexport.NewExporter(dir)
			if err := exp.ExportMonth(cmd.Context(), data); err != nil {
				return err
			}
			fmt.Fprintf(a.errOut, "Wrote %s\n", exp.Path(ym))
			return nil
		},
	}
	csvCmd.Flags().StringVarP(&month, "month", "m", "", "month as YYYY-MM (default current month)")
	csvCmd.Flags().StringVarP(&dir, "dir", "d", "", "write into this directory instead of stdout")

	cmd.AddCommand(csvCmd)
	return cmd
}
