// Package youtube discovers meeting recordings from municipal YouTube
// channels using yt-dlp's flat playlist listing.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/zachurban/housing-policy-monitor/internal/config"
	"github.com/zachurban/housing-policy-monitor/internal/logging"
	"github.com/zachurban/housing-policy-monitor/internal/meeting"
	"github.com/zachurban/housing-policy-monitor/internal/normalize"
	"github.com/zachurban/housing-policy-monitor/internal/services"
	"github.com/zachurban/housing-policy-monitor/internal/sources"
)

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Adapter lists channel uploads with yt-dlp and keeps entries whose titles
// look like government meetings.
type Adapter struct {
	cfg     *config.Config
	logger  *slog.Logger
	command string
	runner  commandRunner
	now     func() time.Time
}

// Option customizes adapter construction.
type Option func(*Adapter)

// WithCommandRunner overrides subprocess execution, primarily for tests.
func WithCommandRunner(runner commandRunner) Option {
	return func(a *Adapter) {
		if runner != nil {
			a.runner = runner
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

// New constructs the YouTube discovery adapter.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &Adapter{
		cfg:     cfg,
		logger:  logger,
		command: "yt-dlp",
		runner:  runCommand,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return output, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return output, err
	}
	return output, nil
}

// Source implements sources.Adapter.
func (a *Adapter) Source() meeting.Source {
	return meeting.SourceYouTube
}

// Enabled implements sources.Adapter.
func (a *Adapter) Enabled(j config.Jurisdiction) bool {
	return strings.TrimSpace(j.YouTubeURL) != ""
}

// Discover implements sources.Adapter. Each playlist entry is parsed
// independently so one malformed line never discards the rest of the listing.
func (a *Adapter) Discover(ctx context.Context, jurisdiction string, j config.Jurisdiction) (sources.Result, error) {
	var result sources.Result
	if !a.Enabled(j) {
		return result, nil
	}

	maxResults := a.cfg.MaxResults(j)
	args := []string{
		"--flat-playlist",
		"--dump-json",
		"--playlist-end", strconv.Itoa(maxResults),
		j.YouTubeURL,
	}
	output, err := a.runner(ctx, a.command, args...)
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, "discover", "youtube", fmt.Sprintf("list %s", j.YouTubeURL), err)
	}

	cutoff := a.now().AddDate(0, 0, -a.cfg.LookbackDays(j)).Format("2006-01-02")
	logger := logging.WithContext(ctx, a.logger).With(
		logging.String(logging.FieldComponent, "youtube"),
		logging.String(logging.FieldJurisdiction, jurisdiction))

	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var entry normalize.YouTubeEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			result.Skipped++
			logger.Warn("skipping unparseable playlist entry", logging.Error(err))
			continue
		}
		if !titleMatches(entry.Title, a.cfg.Keywords.MeetingTitles) {
			result.Skipped++
			continue
		}
		m, err := normalize.FromYouTube(entry, jurisdiction)
		if err != nil {
			result.Skipped++
			logger.Warn("skipping invalid playlist entry", logging.Error(err))
			continue
		}
		if m.Date != "" && m.Date < cutoff {
			result.Skipped++
			continue
		}
		result.Meetings = append(result.Meetings, m)
	}
	return result, nil
}

func titleMatches(title string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lowered := strings.ToLower(title)
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(lowered, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
