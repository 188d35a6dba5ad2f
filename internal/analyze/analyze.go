// Package analyze extracts housing-policy intelligence from meeting
// transcripts or agendas using the Anthropic messages API, writing a
// structured analysis file and a markdown briefing per meeting.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/zachurban/housing-policy-monitor/internal/config"
	"github.com/zachurban/housing-policy-monitor/internal/logging"
	"github.com/zachurban/housing-policy-monitor/internal/meeting"
	"github.com/zachurban/housing-policy-monitor/internal/services"
)

const promptTemplate = `You are a housing policy analyst reviewing a local government meeting in %s.

Meeting: %s
Date: %s

Analyze the following %s and return ONLY a JSON object with these fields:
- "key_topics": list of the main topics discussed
- "housing_proposals": list of housing policy proposals, ordinances, or rule changes
- "development_projects": list of specific development projects mentioned, with addresses where given
- "funding_amounts": list of dollar amounts tied to housing or development
- "overall_sentiment": one phrase describing the body's posture toward housing development
- "action_items": list of decisions made or follow-ups scheduled
- "notable_quotes": list of up to 3 short verbatim quotes relevant to housing
- "housing_relevance_score": number from 0.0 to 1.0 rating how relevant this meeting is to housing policy

%s:
%s`

// Handler runs LLM analysis over transcribed or agenda-only meetings.
type Handler struct {
	cfg    *config.Config
	logger *slog.Logger
	client *Client
}

// Option customizes handler construction.
type Option func(*Handler)

// WithClient overrides the API client, primarily for tests.
func WithClient(client *Client) Option {
	return func(h *Handler) {
		if client != nil {
			h.client = client
		}
	}
}

// New constructs the analysis stage.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &Handler{
		cfg:    cfg,
		logger: logger,
		client: NewClient(cfg),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements stage.Handler.
func (h *Handler) Name() string {
	return "analyze"
}

// Available implements stage.Handler.
func (h *Handler) Available() error {
	if h.cfg.AnthropicAPIKey() == "" {
		return services.Wrap(services.ErrConfiguration, h.Name(), "check credentials", "anthropic api key not configured (set anthropic.api_key or ANTHROPIC_API_KEY)", nil)
	}
	return nil
}

// Eligible implements stage.Handler. Meetings with a transcript are analyzed
// from it; meetings that will never have one are analyzed from their agenda.
func (h *Handler) Eligible(m *meeting.Meeting) bool {
	if m.Processed {
		return false
	}
	return m.TranscriptPath != "" || m.AgendaOnly()
}

// Execute implements stage.Handler.
func (h *Handler) Execute(ctx context.Context, m *meeting.Meeting) error {
	content, kind, err := h.sourceText(m)
	if err != nil {
		return err
	}

	logging.WithContext(ctx, h.logger).Info("analyzing meeting",
		logging.String(logging.FieldComponent, h.Name()),
		logging.String(logging.FieldMeetingID, m.ID),
		logging.String("input", kind))

	prompt := fmt.Sprintf(promptTemplate, m.Jurisdiction, m.Title, orUnknown(m.Date), kind, strings.ToUpper(kind[:1])+kind[1:], content)
	reply, err := h.client.Complete(ctx, prompt)
	if err != nil {
		return err
	}
	analysis, err := DecodeAnalysis(reply)
	if err != nil {
		return err
	}

	analysisPath := filepath.Join(h.cfg.AnalysisDir(), m.ID+".json")
	summaryPath := filepath.Join(h.cfg.AnalysisDir(), m.ID+".md")

	encoded, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrValidation, h.Name(), "encode analysis", "", err)
	}
	if err := os.WriteFile(analysisPath, encoded, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, h.Name(), "write analysis", analysisPath, err)
	}
	if err := os.WriteFile(summaryPath, []byte(analysis.Summary(m)), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, h.Name(), "write summary", summaryPath, err)
	}

	m.AnalysisPath = analysisPath
	m.SummaryPath = summaryPath
	m.HousingMentions = CountMentions(content, h.cfg.Keywords.Housing)
	m.HousingRelevanceScore = analysis.HousingRelevanceScore
	m.Processed = true
	m.LastError = ""
	return nil
}

// sourceText picks the analysis input: a transcript when one exists,
// otherwise the agenda for meetings without video.
func (h *Handler) sourceText(m *meeting.Meeting) (string, string, error) {
	if m.TranscriptPath != "" {
		data, err := os.ReadFile(m.TranscriptPath)
		if err != nil {
			return "", "", services.Wrap(services.ErrValidation, h.Name(), "read transcript", m.TranscriptPath, err)
		}
		text := string(data)
		if max := h.cfg.Anthropic.MaxTranscriptChars; len(text) > max {
			text = text[:max]
		}
		return text, "transcript", nil
	}
	if !m.AgendaOnly() {
		return "", "", services.Wrap(services.ErrValidation, h.Name(), "select input", "meeting has video but no transcript", nil)
	}
	return formatAgenda(m), "agenda", nil
}

func formatAgenda(m *meeting.Meeting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meeting: %s\n", m.Title)
	if m.Date != "" {
		fmt.Fprintf(&b, "Date: %s\n", m.Date)
	}
	b.WriteString("\nAgenda items:\n")
	if len(m.AgendaItems) == 0 {
		b.WriteString("(no agenda items published)\n")
		return b.String()
	}
	for i, item := range m.AgendaItems {
		fmt.Fprintf(&b, "%d. %s", i+1, item.Title)
		if item.MatterFile != "" {
			fmt.Fprintf(&b, " [%s]", item.MatterFile)
		}
		if item.MatterType != "" {
			fmt.Fprintf(&b, " (%s)", item.MatterType)
		}
		b.WriteString("\n")
		if item.Action != "" {
			fmt.Fprintf(&b, "   Action: %s\n", item.Action)
		}
		for _, vote := range item.Votes {
			fmt.Fprintf(&b, "   Vote: %s - %s\n", vote.Person, vote.Value)
		}
	}
	return b.String()
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return "unknown"
	}
	return value
}
