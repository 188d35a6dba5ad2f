package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zachurban/housing-policy-monitor/internal/runlog"
)

func newRunsCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent pipeline run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := runlog.Open(a.cfg.RunLogPath())
			if err != nil {
				return err
			}
			defer runs.Close()

			entries, err := runs.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.StartedAt.Local().Format(time.DateTime),
					entry.FinishedAt.Sub(entry.StartedAt).Round(time.Second).String(),
					entry.Jurisdictions,
					fmt.Sprintf("%d", entry.Discovered),
					fmt.Sprintf("%d", entry.Processed),
					fmt.Sprintf("%d", entry.Failed),
					fmt.Sprintf("%d", entry.Skipped),
				})
			}
			renderTable(cmd.OutOrStdout(),
				[]string{"Started", "Duration", "Jurisdictions", "New", "Analyzed", "Failed", "Skipped"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to show")
	return cmd
}
