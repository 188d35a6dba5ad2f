// Package granicus discovers meeting clips from Granicus-hosted video
// archives, preferring the JSON clip API and falling back to scraping the
// public archive page when the API is unavailable.
package granicus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/zachurban/housing-policy-monitor/internal/config"
	"github.com/zachurban/housing-policy-monitor/internal/logging"
	"github.com/zachurban/housing-policy-monitor/internal/meeting"
	"github.com/zachurban/housing-policy-monitor/internal/normalize"
	"github.com/zachurban/housing-policy-monitor/internal/services"
	"github.com/zachurban/housing-policy-monitor/internal/sources"
)

// Clip titles matching these markers are broadcast tests, not meetings.
var excludedTitleMarkers = []string{"test", "training", "demo", "sample"}

var archiveClipPattern = regexp.MustCompile(`clip_id=(\d+)[^>]*>([^<]+)<`)

type apiClip struct {
	ID        json.Number `json:"id"`
	Title     string      `json:"title"`
	Date      string      `json:"date"`
	Duration  float64     `json:"duration"`
	AgendaURL string      `json:"agenda_url"`
}

// Adapter fetches clips from one Granicus site per jurisdiction.
type Adapter struct {
	cfg          *config.Config
	logger       *slog.Logger
	client       *http.Client
	now          func() time.Time
	baseOverride string
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

// WithClock overrides the time source used for lookback filtering.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// WithBaseURL rewrites the site scheme and host, for tests against a local
// server.
func WithBaseURL(base string) Option {
	return func(a *Adapter) {
		a.baseOverride = strings.TrimRight(base, "/")
	}
}

// New constructs the Granicus discovery adapter.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &Adapter{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Source implements sources.Adapter.
func (a *Adapter) Source() meeting.Source {
	return meeting.SourceGranicus
}

// Enabled implements sources.Adapter.
func (a *Adapter) Enabled(j config.Jurisdiction) bool {
	return strings.TrimSpace(j.GranicusSite) != ""
}

// Discover implements sources.Adapter.
func (a *Adapter) Discover(ctx context.Context, jurisdiction string, j config.Jurisdiction) (sources.Result, error) {
	var result sources.Result
	if !a.Enabled(j) {
		return result, nil
	}

	logger := logging.WithContext(ctx, a.logger).With(
		logging.String(logging.FieldComponent, "granicus"),
		logging.String(logging.FieldJurisdiction, jurisdiction))

	clips, err := a.fetchClipsAPI(ctx, j)
	if err != nil {
		logger.Warn("clip api unavailable, scraping archive page", logging.Error(err))
		clips, err = a.scrapeArchive(ctx, j)
		if err != nil {
			return result, services.Wrap(services.ErrTransient, "discover", "granicus", fmt.Sprintf("fetch clips from %s", j.GranicusSite), err)
		}
	}

	cutoff := a.now().AddDate(0, 0, -a.cfg.LookbackDays(j)).Format("2006-01-02")
	for _, clip := range clips {
		if isExcludedTitle(clip.Title) {
			result.Skipped++
			continue
		}
		if !bodyMatches(clip.Title, j.MeetingBodies) {
			result.Skipped++
			continue
		}
		m, err := normalize.FromGranicus(clip, jurisdiction)
		if err != nil {
			result.Skipped++
			logger.Warn("skipping invalid clip", logging.Error(err))
			continue
		}
		if m.Date != "" && m.Date < cutoff {
			result.Skipped++
			continue
		}
		result.Meetings = append(result.Meetings, m)
		if max := a.cfg.MaxResults(j); max > 0 && len(result.Meetings) >= max {
			break
		}
	}
	return result, nil
}

func (a *Adapter) siteBase(j config.Jurisdiction) string {
	if a.baseOverride != "" {
		return a.baseOverride
	}
	return "https://" + strings.TrimSpace(j.GranicusSite)
}

func (a *Adapter) fetchClipsAPI(ctx context.Context, j config.Jurisdiction) ([]normalize.GranicusClip, error) {
	endpoint := fmt.Sprintf("%s/api/clips?count=%d", a.siteBase(j), a.cfg.MaxResults(j))
	body, err := a.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var raw []apiClip
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode clip list: %w", err)
	}
	clips := make([]normalize.GranicusClip, 0, len(raw))
	for _, clip := range raw {
		clips = append(clips, normalize.GranicusClip{
			ID:              clip.ID.String(),
			Title:           clip.Title,
			Date:            clip.Date,
			DurationSeconds: clip.Duration,
			Site:            j.GranicusSite,
			AgendaURL:       clip.AgendaURL,
		})
	}
	return clips, nil
}

func (a *Adapter) scrapeArchive(ctx context.Context, j config.Jurisdiction) ([]normalize.GranicusClip, error) {
	body, err := a.get(ctx, a.siteBase(j)+"/ViewPublisher.php?view_id=1")
	if err != nil {
		return nil, err
	}

	matches := archiveClipPattern.FindAllStringSubmatch(string(body), -1)
	seen := make(map[string]bool, len(matches))
	clips := make([]normalize.GranicusClip, 0, len(matches))
	for _, match := range matches {
		clipID, title := match[1], strings.TrimSpace(match[2])
		if clipID == "" || title == "" || seen[clipID] {
			continue
		}
		seen[clipID] = true
		clips = append(clips, normalize.GranicusClip{
			ID:    clipID,
			Title: title,
			Site:  j.GranicusSite,
		})
	}
	return clips, nil
}

func (a *Adapter) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 16<<20))
}

func isExcludedTitle(title string) bool {
	lowered := strings.ToLower(title)
	for _, marker := range excludedTitleMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

func bodyMatches(title string, bodies []string) bool {
	if len(bodies) == 0 {
		return true
	}
	lowered := strings.ToLower(title)
	for _, body := range bodies {
		if body != "" && strings.Contains(lowered, strings.ToLower(body)) {
			return true
		}
	}
	return false
}
