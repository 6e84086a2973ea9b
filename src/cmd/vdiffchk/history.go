package main

import (
	"fmt"

	"github.com/gh-nvat/vdiffchk/src/pkg/format"
	"github.com/gh-nvat/vdiffchk/src/pkg/history"
	"github.com/spf13/cobra"
)

func newHistoryCmd(g *globals) *cobra.Command {
	var (
		limit  int
		output string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the project's build history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := format.ParseMode(output)
			if err != nil {
				return err
			}
			store, err := history.OpenForProject(g.projectDir())
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no builds recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), format.History(history.Project(records), mode))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of latest builds to show, 0 for all")
	cmd.Flags().StringVarP(&output, "output", "o", "ascii", "Output format: ascii or markdown")
	return cmd
}
