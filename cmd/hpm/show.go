package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zachurban/housing-policy-monitor/internal/store"
)

func newShowCommand(a *app) *cobra.Command {
	var withSummary bool
	cmd := &cobra.Command{
		Use:   "show <meeting-id>",
		Short: "Show one meeting's record and analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(a.cfg.DatabasePath(), a.logger)
			if err != nil {
				return err
			}
			defer st.Close()

			m, ok := st.Get(args[0])
			if !ok {
				return fmt.Errorf("meeting %q not found", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:            %s\n", m.ID)
			fmt.Fprintf(out, "Jurisdiction:  %s\n", m.Jurisdiction)
			fmt.Fprintf(out, "Title:         %s\n", m.Title)
			fmt.Fprintf(out, "Date:          %s\n", orDash(m.Date))
			fmt.Fprintf(out, "Source:        %s\n", m.Source)
			fmt.Fprintf(out, "State:         %s\n", m.State())
			fmt.Fprintf(out, "Video:         %s\n", orDash(m.VideoURL))
			if m.AgendaURL != "" {
				fmt.Fprintf(out, "Agenda:        %s\n", m.AgendaURL)
			}
			if m.DurationMinutes > 0 {
				fmt.Fprintf(out, "Duration:      %.0f min\n", m.DurationMinutes)
			}
			fmt.Fprintf(out, "Relevance:     %.2f\n", m.HousingRelevanceScore)
			if m.Processed {
				fmt.Fprintf(out, "Mentions:      %d\n", m.HousingMentions)
				fmt.Fprintf(out, "Analysis:      %s\n", m.AnalysisPath)
				fmt.Fprintf(out, "Summary:       %s\n", m.SummaryPath)
			}
			if m.LastError != "" {
				fmt.Fprintf(out, "Last error:    %s\n", m.LastError)
			}
			if len(m.AgendaItems) > 0 {
				fmt.Fprintf(out, "Agenda items:  %d\n", len(m.AgendaItems))
				for _, item := range m.AgendaItems {
					fmt.Fprintf(out, "  - %s", truncateCell(item.Title, 70))
					if item.Action != "" {
						fmt.Fprintf(out, " [%s]", item.Action)
					}
					fmt.Fprintln(out)
				}
			}

			if withSummary && m.SummaryPath != "" {
				data, err := os.ReadFile(m.SummaryPath)
				if err != nil {
					return fmt.Errorf("read summary: %w", err)
				}
				fmt.Fprintf(out, "\n%s", data)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withSummary, "summary", false, "print the markdown briefing after the record")
	return cmd
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
