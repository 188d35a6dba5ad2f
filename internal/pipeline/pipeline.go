// Package pipeline orchestrates discovery and staged processing of meeting
// records: discover, download, transcribe, analyze, with the collection
// saved after every record so interruptions lose at most one stage of work.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zachurban/housing-policy-monitor/internal/config"
	"github.com/zachurban/housing-policy-monitor/internal/logging"
	"github.com/zachurban/housing-policy-monitor/internal/runlog"
	"github.com/zachurban/housing-policy-monitor/internal/services"
	"github.com/zachurban/housing-policy-monitor/internal/sources"
	"github.com/zachurban/housing-policy-monitor/internal/stage"
	"github.com/zachurban/housing-policy-monitor/internal/store"
)

// Options controls one pipeline run.
type Options struct {
	// Jurisdictions restricts the run; empty means all configured.
	Jurisdictions []string
	// Limit caps records processed this run; zero uses the configured cap.
	Limit int
	// SkipDiscovery processes the existing backlog without fetching sources.
	SkipDiscovery bool
	// DiscoverOnly fetches and stores meetings without processing them.
	DiscoverOnly bool
}

// highRelevanceThreshold marks records worth surfacing in run reports.
const highRelevanceThreshold = 0.5

// Summary reports what one run accomplished.
type Summary struct {
	RunID          string
	Discovered     int
	Updated        int
	Processed      int
	Failed         int
	SkippedItems   int
	SkippedStages  []string
	ByJurisdiction map[string]*JurisdictionCounts
	Duration       time.Duration
}

// JurisdictionCounts breaks run totals down by jurisdiction.
type JurisdictionCounts struct {
	Discovered    int
	Processed     int
	HighRelevance int
}

func (s *Summary) forJurisdiction(name string) *JurisdictionCounts {
	if s.ByJurisdiction == nil {
		s.ByJurisdiction = make(map[string]*JurisdictionCounts)
	}
	counts, ok := s.ByJurisdiction[name]
	if !ok {
		counts = &JurisdictionCounts{}
		s.ByJurisdiction[name] = counts
	}
	return counts
}

// Manager wires the store, discovery adapters, and processing stages into a
// sequential single-process pipeline.
type Manager struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	adapters []sources.Adapter
	stages   []stage.Handler
	runs     *runlog.Log
	sleep    func(time.Duration)
	now      func() time.Time
}

// Option customizes manager construction.
type Option func(*Manager)

// WithSleeper overrides the inter-record pause, primarily for tests.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(m *Manager) {
		if sleep != nil {
			m.sleep = sleep
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a pipeline manager. The run log may be nil, in which
// case run history is not recorded.
func NewManager(cfg *config.Config, logger *slog.Logger, st *store.Store, adapters []sources.Adapter, stages []stage.Handler, runs *runlog.Log, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		adapters: adapters,
		stages:   stages,
		runs:     runs,
		sleep:    time.Sleep,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run executes one full pipeline pass.
func (m *Manager) Run(ctx context.Context, opts Options) (*Summary, error) {
	started := m.now()
	summary := &Summary{RunID: uuid.NewString()}
	ctx = services.WithRequestID(ctx, summary.RunID)

	jurisdictions, err := m.resolveJurisdictions(opts.Jurisdictions)
	if err != nil {
		return nil, err
	}

	logger := m.logger.With(
		logging.String(logging.FieldComponent, "pipeline"),
		logging.String(logging.FieldCorrelationID, summary.RunID))
	logger.Info("run starting",
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("jurisdictions", strings.Join(jurisdictions, ",")),
		logging.Bool("skip_discovery", opts.SkipDiscovery),
		logging.Bool("discover_only", opts.DiscoverOnly))

	if !opts.SkipDiscovery {
		if err := m.discover(ctx, jurisdictions, summary, logger); err != nil {
			return summary, err
		}
	}

	if !opts.DiscoverOnly {
		if err := m.process(ctx, opts, summary, logger); err != nil {
			summary.Duration = m.now().Sub(started)
			m.recordRun(ctx, started, jurisdictions, summary, logger)
			return summary, err
		}
	}

	summary.Duration = m.now().Sub(started)
	m.recordRun(ctx, started, jurisdictions, summary, logger)
	logger.Info("run complete",
		logging.String(logging.FieldEventType, "run_completed"),
		logging.Int("discovered", summary.Discovered),
		logging.Int("updated", summary.Updated),
		logging.Int("processed", summary.Processed),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped_items", summary.SkippedItems),
		logging.Duration("duration", summary.Duration))
	for _, name := range jurisdictions {
		counts, ok := summary.ByJurisdiction[name]
		if !ok {
			continue
		}
		logger.Info("jurisdiction summary",
			logging.String(logging.FieldJurisdiction, name),
			logging.Int("discovered", counts.Discovered),
			logging.Int("processed", counts.Processed),
			logging.Int("high_relevance", counts.HighRelevance))
	}
	return summary, nil
}

func (m *Manager) resolveJurisdictions(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return m.cfg.JurisdictionNames(), nil
	}
	for _, name := range requested {
		if _, ok := m.cfg.Jurisdictions[name]; !ok {
			return nil, services.Wrap(services.ErrConfiguration, "pipeline", "resolve jurisdictions", fmt.Sprintf("unknown jurisdiction %q", name), nil)
		}
	}
	return requested, nil
}

// discover runs every enabled adapter for every jurisdiction. An adapter
// failure is logged and skipped so one broken source never blocks the rest.
func (m *Manager) discover(ctx context.Context, jurisdictions []string, summary *Summary, logger *slog.Logger) error {
	for _, name := range jurisdictions {
		j := m.cfg.Jurisdictions[name]
		jctx := services.WithJurisdiction(ctx, name)
		for _, adapter := range m.adapters {
			if !adapter.Enabled(j) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := adapter.Discover(jctx, name, j)
			if err != nil {
				logger.Error("source discovery failed",
					logging.String(logging.FieldSource, string(adapter.Source())),
					logging.String(logging.FieldJurisdiction, name),
					logging.Error(err))
				continue
			}
			summary.SkippedItems += result.Skipped
			for _, discovered := range result.Meetings {
				created, err := m.store.Upsert(discovered)
				if err != nil {
					summary.SkippedItems++
					logger.Warn("discarding invalid discovery record", logging.Error(err))
					continue
				}
				if created {
					summary.Discovered++
					summary.forJurisdiction(name).Discovered++
				} else {
					summary.Updated++
				}
			}
			if err := m.store.Save(); err != nil {
				return services.Wrap(services.ErrTransient, "pipeline", "save collection", "after discovery", err)
			}
			logger.Info("source discovery complete",
				logging.String(logging.FieldSource, string(adapter.Source())),
				logging.String(logging.FieldJurisdiction, name),
				logging.Int("meetings", len(result.Meetings)),
				logging.Int("skipped", result.Skipped))
		}
	}
	return nil
}

// availableStages checks each stage once per run. A stage that cannot run,
// usually for missing credentials, is skipped for every record with a single
// warning instead of failing each record in turn.
func (m *Manager) availableStages(summary *Summary, logger *slog.Logger) []stage.Handler {
	usable := make([]stage.Handler, 0, len(m.stages))
	for _, handler := range m.stages {
		if err := handler.Available(); err != nil {
			summary.SkippedStages = append(summary.SkippedStages, handler.Name())
			logger.Warn("stage unavailable for this run",
				logging.String(logging.FieldStage, handler.Name()),
				logging.Error(err))
			continue
		}
		usable = append(usable, handler)
	}
	return usable
}

func (m *Manager) process(ctx context.Context, opts Options, summary *Summary, logger *slog.Logger) error {
	stages := m.availableStages(summary, logger)
	limit := opts.Limit
	if limit <= 0 {
		limit = m.cfg.Processing.MaxMeetingsPerRun
	}

	pending := m.store.Unprocessed(limit)
	for i, record := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 && m.cfg.Processing.RateLimitSeconds > 0 {
			m.sleep(time.Duration(m.cfg.Processing.RateLimitSeconds) * time.Second)
		}

		rctx := services.WithMeetingID(ctx, record.ID)
		rctx = services.WithJurisdiction(rctx, record.Jurisdiction)
		wasProcessed := record.Processed

		failed := false
		for _, handler := range stages {
			if !handler.Eligible(record) {
				continue
			}
			sctx := services.WithStage(rctx, handler.Name())
			if err := handler.Execute(sctx, record); err != nil {
				record.LastError = err.Error()
				failed = true
				logging.WithContext(sctx, logger).Error("stage failed, leaving record for retry", logging.Error(err))
				break
			}
			record.LastError = ""
		}

		if err := m.store.Update(record); err != nil {
			logger.Error("persisting record failed", logging.String(logging.FieldMeetingID, record.ID), logging.Error(err))
		}
		if err := m.store.Save(); err != nil {
			return services.Wrap(services.ErrTransient, "pipeline", "save collection", "after record", err)
		}

		if failed {
			summary.Failed++
		} else if record.Processed && !wasProcessed {
			summary.Processed++
			counts := summary.forJurisdiction(record.Jurisdiction)
			counts.Processed++
			if record.HousingRelevanceScore >= highRelevanceThreshold {
				counts.HighRelevance++
			}
		}
	}
	return nil
}

func (m *Manager) recordRun(ctx context.Context, started time.Time, jurisdictions []string, summary *Summary, logger *slog.Logger) {
	if m.runs == nil {
		return
	}
	entry := runlog.Entry{
		ID:            summary.RunID,
		StartedAt:     started,
		FinishedAt:    m.now(),
		Jurisdictions: strings.Join(jurisdictions, ","),
		Discovered:    summary.Discovered,
		Processed:     summary.Processed,
		Failed:        summary.Failed,
		Skipped:       summary.SkippedItems,
		Notes:         strings.Join(summary.SkippedStages, ","),
	}
	if err := m.runs.Record(ctx, entry); err != nil {
		logger.Warn("recording run history failed", logging.Error(err))
	}
}
