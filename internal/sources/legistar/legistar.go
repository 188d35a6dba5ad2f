// Package legistar discovers meetings from the Legistar Web API, including
// agenda items and recorded votes, so jurisdictions without video coverage
// still produce analyzable records.
package legistar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zachurban/housing-policy-monitor/internal/config"
	"github.com/zachurban/housing-policy-monitor/internal/logging"
	"github.com/zachurban/housing-policy-monitor/internal/meeting"
	"github.com/zachurban/housing-policy-monitor/internal/normalize"
	"github.com/zachurban/housing-policy-monitor/internal/services"
	"github.com/zachurban/housing-policy-monitor/internal/sources"
)

// relevanceDivisor converts a housing keyword match count into a 0..1 score.
const relevanceDivisor = 5.0

type apiEvent struct {
	EventID   int    `json:"EventId"`
	BodyName  string `json:"EventBodyName"`
	Date      string `json:"EventDate"`
	Time      string `json:"EventTime"`
	InSiteURL string `json:"EventInSiteURL"`
	VideoPath string `json:"EventVideoPath"`
}

type apiEventItem struct {
	ID             int    `json:"EventItemId"`
	Title          string `json:"EventItemTitle"`
	MatterFile     string `json:"EventItemMatterFile"`
	MatterType     string `json:"EventItemMatterType"`
	ActionText     string `json:"EventItemActionText"`
	PassedFlagName string `json:"EventItemPassedFlagName"`
}

type apiVote struct {
	Person string `json:"VotePersonName"`
	Value  string `json:"VoteValueName"`
}

// Adapter queries one Legistar client per jurisdiction.
type Adapter struct {
	cfg    *config.Config
	logger *slog.Logger
	client *http.Client
	sleep  func(time.Duration)
	now    func() time.Time
}

// Option customizes adapter construction.
type Option func(*Adapter)

// WithHTTPClient overrides the HTTP client, primarily for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Adapter) {
		if client != nil {
			a.client = client
		}
	}
}

// WithSleeper overrides the inter-request pause, primarily for tests.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(a *Adapter) {
		if sleep != nil {
			a.sleep = sleep
		}
	}
}

// WithClock overrides the time source used for the lookback window.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// New constructs the Legistar discovery adapter.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &Adapter{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: 30 * time.Second},
		sleep:  time.Sleep,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Source implements sources.Adapter.
func (a *Adapter) Source() meeting.Source {
	return meeting.SourceLegistar
}

// Enabled implements sources.Adapter.
func (a *Adapter) Enabled(j config.Jurisdiction) bool {
	return strings.TrimSpace(j.LegistarClient) != ""
}

// Discover implements sources.Adapter. Event items and votes are fetched per
// event; a failure there degrades that one record to event metadata only.
func (a *Adapter) Discover(ctx context.Context, jurisdiction string, j config.Jurisdiction) (sources.Result, error) {
	var result sources.Result
	if !a.Enabled(j) {
		return result, nil
	}

	client := strings.TrimSpace(j.LegistarClient)
	logger := logging.WithContext(ctx, a.logger).With(
		logging.String(logging.FieldComponent, "legistar"),
		logging.String(logging.FieldJurisdiction, jurisdiction))

	events, err := a.fetchEvents(ctx, client, j)
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "discover", "legistar", fmt.Sprintf("list events for %s", client), err)
	}

	maxResults := a.cfg.MaxResults(j)
	for _, event := range events {
		if event.EventID <= 0 {
			result.Skipped++
			continue
		}
		if !bodyMatches(event.BodyName, j.MeetingBodies) {
			result.Skipped++
			continue
		}

		a.pause()
		items, err := a.fetchEventItems(ctx, client, event.EventID)
		if err != nil {
			logger.Warn("agenda items unavailable, keeping event metadata only",
				logging.Int("event_id", event.EventID), logging.Error(err))
			items = nil
		}

		agenda := a.buildAgenda(ctx, client, items, logger)
		normalized, err := normalize.FromLegistar(normalize.LegistarEvent{
			EventID:     event.EventID,
			Client:      client,
			BodyName:    event.BodyName,
			Date:        event.Date,
			Time:        event.Time,
			InSiteURL:   event.InSiteURL,
			VideoURL:    event.VideoPath,
			AgendaItems: agenda,
			Relevance:   a.scoreRelevance(event.BodyName, agenda),
		}, jurisdiction)
		if err != nil {
			result.Skipped++
			logger.Warn("skipping invalid event", logging.Error(err))
			continue
		}
		result.Meetings = append(result.Meetings, normalized)
		if maxResults > 0 && len(result.Meetings) >= maxResults {
			break
		}
	}
	return result, nil
}

func (a *Adapter) fetchEvents(ctx context.Context, client string, j config.Jurisdiction) ([]apiEvent, error) {
	cutoff := a.now().AddDate(0, 0, -a.cfg.LookbackDays(j)).Format("2006-01-02")
	pageSize := a.cfg.Legistar.PageSize

	var events []apiEvent
	for skip := 0; ; skip += pageSize {
		params := url.Values{}
		params.Set("$top", fmt.Sprintf("%d", pageSize))
		params.Set("$skip", fmt.Sprintf("%d", skip))
		params.Set("$filter", fmt.Sprintf("EventDate ge datetime'%s'", cutoff))
		params.Set("$orderby", "EventDate desc")
		endpoint := fmt.Sprintf("%s/%s/events?%s", strings.TrimRight(a.cfg.Legistar.BaseURL, "/"), client, params.Encode())

		var page []apiEvent
		if err := a.getJSON(ctx, endpoint, &page); err != nil {
			return nil, err
		}
		events = append(events, page...)
		if len(page) < pageSize {
			return events, nil
		}
		a.pause()
	}
}

func (a *Adapter) fetchEventItems(ctx context.Context, client string, eventID int) ([]apiEventItem, error) {
	endpoint := fmt.Sprintf("%s/%s/events/%d/eventitems?AgendaNote=1&MinutesNote=1&Attachments=0",
		strings.TrimRight(a.cfg.Legistar.BaseURL, "/"), client, eventID)
	var items []apiEventItem
	if err := a.getJSON(ctx, endpoint, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (a *Adapter) fetchVotes(ctx context.Context, client string, itemID int) ([]apiVote, error) {
	endpoint := fmt.Sprintf("%s/%s/eventitems/%d/votes",
		strings.TrimRight(a.cfg.Legistar.BaseURL, "/"), client, itemID)
	var votes []apiVote
	if err := a.getJSON(ctx, endpoint, &votes); err != nil {
		return nil, err
	}
	return votes, nil
}

// buildAgenda converts raw event items to agenda entries, attaching votes for
// items that carry a matter file and a recorded action.
func (a *Adapter) buildAgenda(ctx context.Context, client string, items []apiEventItem, logger *slog.Logger) []meeting.AgendaItem {
	agenda := make([]meeting.AgendaItem, 0, len(items))
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		entry := meeting.AgendaItem{
			Title:      title,
			MatterFile: strings.TrimSpace(item.MatterFile),
			MatterType: strings.TrimSpace(item.MatterType),
			Action:     firstNonEmpty(strings.TrimSpace(item.ActionText), strings.TrimSpace(item.PassedFlagName)),
		}
		if entry.MatterFile != "" && entry.Action != "" && item.ID > 0 {
			a.pause()
			votes, err := a.fetchVotes(ctx, client, item.ID)
			if err != nil {
				logger.Warn("votes unavailable for agenda item",
					logging.Int("event_item_id", item.ID), logging.Error(err))
			}
			for _, vote := range votes {
				entry.Votes = append(entry.Votes, meeting.Vote{Person: vote.Person, Value: vote.Value})
			}
		}
		agenda = append(agenda, entry)
	}
	return agenda
}

// scoreRelevance estimates housing relevance from agenda text before any
// transcript exists. Events without agenda text fall back to a body-name
// heuristic so they still rank above nothing.
func (a *Adapter) scoreRelevance(bodyName string, agenda []meeting.AgendaItem) float64 {
	var text strings.Builder
	text.WriteString(strings.ToLower(bodyName))
	for _, item := range agenda {
		text.WriteString(" ")
		text.WriteString(strings.ToLower(item.Title))
		text.WriteString(" ")
		text.WriteString(strings.ToLower(item.MatterType))
	}
	combined := text.String()

	if len(agenda) == 0 {
		lowered := strings.ToLower(bodyName)
		for _, marker := range []string{"planning", "zoning", "housing", "land use"} {
			if strings.Contains(lowered, marker) {
				return 0.3
			}
		}
		return 0.1
	}

	matches := 0
	for _, keyword := range a.cfg.Keywords.Housing {
		if keyword != "" && strings.Contains(combined, strings.ToLower(keyword)) {
			matches++
		}
	}
	score := float64(matches) / relevanceDivisor
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func (a *Adapter) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (a *Adapter) pause() {
	if a.cfg.Legistar.RateLimitMillis > 0 {
		a.sleep(time.Duration(a.cfg.Legistar.RateLimitMillis) * time.Millisecond)
	}
}

func bodyMatches(bodyName string, bodies []string) bool {
	if len(bodies) == 0 {
		return true
	}
	lowered := strings.ToLower(bodyName)
	for _, body := range bodies {
		if body != "" && strings.Contains(lowered, strings.ToLower(body)) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
