package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/zachurban/housing-policy-monitor/internal/meeting"
	"github.com/zachurban/housing-policy-monitor/internal/store"
)

func newStatusCommand(a *app) *cobra.Command {
	var (
		jurisdiction string
		state        string
		source       string
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List tracked meetings and their pipeline state",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(a.cfg.DatabasePath(), a.logger)
			if err != nil {
				return err
			}
			defer st.Close()

			meetings := st.List(store.Filter{
				Jurisdiction: jurisdiction,
				Source:       meeting.Source(source),
				State:        meeting.State(state),
			})
			if len(meetings) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No meetings tracked yet. Try: hpm discover")
				return nil
			}

			title := cases.Title(language.Und)
			rows := make([][]string, 0, len(meetings))
			for _, m := range meetings {
				rows = append(rows, []string{
					m.ID,
					m.Jurisdiction,
					truncateCell(m.Title, 48),
					m.Date,
					title.String(string(m.State())),
					fmt.Sprintf("%.2f", m.HousingRelevanceScore),
				})
			}
			renderTable(cmd.OutOrStdout(),
				[]string{"ID", "Jurisdiction", "Title", "Date", "State", "Relevance"}, rows)
			fmt.Fprintf(cmd.OutOrStdout(), "%d meetings\n", len(meetings))
			return nil
		},
	}
	cmd.Flags().StringVar(&jurisdiction, "jurisdiction", "", "filter by jurisdiction")
	cmd.Flags().StringVar(&state, "state", "", "filter by state (discovered, downloaded, transcribed, analyzed)")
	cmd.Flags().StringVar(&source, "source", "", "filter by source (youtube, granicus, legistar)")
	return cmd
}
