package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mkwanja/internal/core"
)

func newCategoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categories"},
		Short:   "Manage expense categories",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add NAME",
			Short: "Add a category; adding an existing name is a no-op",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := a.ledger(cmd.Context(), true)
				if err != nil {
					return err
				}
				c, err := svc.AddCategory(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Category %d: %s\n", c.ID, c.Name)
				return nil
			},
		},
		newCategoryListCmd(a),
		&cobra.Command{
			Use:     "delete ID",
			Aliases: []string{"rm"},
			Short:   "Delete a category. Expenses keep their category text.",
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
				if err := svc.DeleteCategory(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Deleted category %d\n", id)
				return nil
			},
		},
	)
	return cmd
}

func newCategoryListCmd(a *app) *cobra.Command {
	var (
		all    bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.ledger(cmd.Context(), false)
			if err != nil {
				return err
			}
			list := svc.DisplayCategories
			if all {
				list = svc.ListCategories
			}
			cats, err := list(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				if cats == nil {
					cats = []core.Category{}
				}
				return printJSON(a.out, cats)
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, c := range cats {
				fmt.Fprintf(tw, "%d\t%s\n", c.ID, c.Name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include case variants of the same name")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
