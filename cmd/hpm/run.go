package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zachurban/housing-policy-monitor/internal/analyze"
	"github.com/zachurban/housing-policy-monitor/internal/download"
	"github.com/zachurban/housing-policy-monitor/internal/logging"
	"github.com/zachurban/housing-policy-monitor/internal/pipeline"
	"github.com/zachurban/housing-policy-monitor/internal/runlog"
	"github.com/zachurban/housing-policy-monitor/internal/sources"
	"github.com/zachurban/housing-policy-monitor/internal/sources/granicus"
	"github.com/zachurban/housing-policy-monitor/internal/sources/legistar"
	"github.com/zachurban/housing-policy-monitor/internal/sources/youtube"
	"github.com/zachurban/housing-policy-monitor/internal/stage"
	"github.com/zachurban/housing-policy-monitor/internal/store"
	"github.com/zachurban/housing-policy-monitor/internal/transcribe"
)

func newRunCommand(a *app) *cobra.Command {
	var (
		jurisdictions []string
		limit         int
		skipDiscovery bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Discover and process meetings end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPipeline(cmd, pipeline.Options{
				Jurisdictions: jurisdictions,
				Limit:         limit,
				SkipDiscovery: skipDiscovery,
			})
		},
	}
	cmd.Flags().StringSliceVar(&jurisdictions, "jurisdiction", nil, "limit the run to named jurisdictions (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "max meetings to process this run (0 uses the configured cap)")
	cmd.Flags().BoolVar(&skipDiscovery, "skip-discovery", false, "process the existing backlog without fetching sources")
	return cmd
}

func newDiscoverCommand(a *app) *cobra.Command {
	var jurisdictions []string
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Fetch and store meetings without processing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPipeline(cmd, pipeline.Options{
				Jurisdictions: jurisdictions,
				DiscoverOnly:  true,
			})
		},
	}
	cmd.Flags().StringSliceVar(&jurisdictions, "jurisdiction", nil, "limit discovery to named jurisdictions (repeatable)")
	return cmd
}

func (a *app) runPipeline(cmd *cobra.Command, opts pipeline.Options) error {
	if err := a.cfg.EnsureDirectories(); err != nil {
		return err
	}

	st, err := store.Open(a.cfg.DatabasePath(), a.logger)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := runlog.Open(a.cfg.RunLogPath())
	if err != nil {
		a.logger.Warn("run history unavailable", logging.Error(err))
		runs = nil
	} else {
		defer runs.Close()
	}

	adapters := []sources.Adapter{
		youtube.New(a.cfg, a.logger),
		granicus.New(a.cfg, a.logger),
		legistar.New(a.cfg, a.logger),
	}
	stages := []stage.Handler{
		download.New(a.cfg, a.logger),
		transcribe.New(a.cfg, a.logger),
		analyze.New(a.cfg, a.logger),
	}

	mgr := pipeline.NewManager(a.cfg, a.logger, st, adapters, stages, runs)
	summary, err := mgr.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s finished in %s\n", summary.RunID, summary.Duration.Round(summaryRounding))
	fmt.Fprintf(out, "  discovered: %d new, %d updated, %d skipped items\n", summary.Discovered, summary.Updated, summary.SkippedItems)
	if !opts.DiscoverOnly {
		fmt.Fprintf(out, "  processed:  %d analyzed, %d failed\n", summary.Processed, summary.Failed)
	}
	if len(summary.SkippedStages) > 0 {
		fmt.Fprintf(out, "  stages skipped this run: %s\n", strings.Join(summary.SkippedStages, ", "))
	}
	names := make([]string, 0, len(summary.ByJurisdiction))
	for name := range summary.ByJurisdiction {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		counts := summary.ByJurisdiction[name]
		fmt.Fprintf(out, "  %s: %d discovered, %d processed, %d high relevance\n",
			name, counts.Discovered, counts.Processed, counts.HighRelevance)
	}
	return nil
}
