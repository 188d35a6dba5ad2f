// Package download extracts meeting audio from source video with yt-dlp.
package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/zachurban/housing-policy-monitor/internal/config"
	"github.com/zachurban/housing-policy-monitor/internal/logging"
	"github.com/zachurban/housing-policy-monitor/internal/meeting"
	"github.com/zachurban/housing-policy-monitor/internal/services"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// Handler downloads audio for meetings that have a recording.
type Handler struct {
	cfg     *config.Config
	logger  *slog.Logger
	command string
	runner  commandRunner
	lookup  func(string) (string, error)
}

// Option customizes handler construction.
type Option func(*Handler)

// WithCommandRunner overrides subprocess execution, primarily for tests.
func WithCommandRunner(runner commandRunner) Option {
	return func(h *Handler) {
		if runner != nil {
			h.runner = runner
		}
	}
}

// WithLookPath overrides tool resolution, primarily for tests.
func WithLookPath(lookup func(string) (string, error)) Option {
	return func(h *Handler) {
		if lookup != nil {
			h.lookup = lookup
		}
	}
}

// New constructs the download stage.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &Handler{
		cfg:     cfg,
		logger:  logger,
		command: "yt-dlp",
		runner:  runCommand,
		lookup:  exec.LookPath,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// Name implements stage.Handler.
func (h *Handler) Name() string {
	return "download"
}

// Available implements stage.Handler.
func (h *Handler) Available() error {
	if _, err := h.lookup(h.command); err != nil {
		return services.Wrap(services.ErrConfiguration, h.Name(), "locate tool", fmt.Sprintf("%s not found in PATH", h.command), err)
	}
	return nil
}

// Eligible implements stage.Handler. Agenda-only meetings have nothing to
// download and records with audio already on disk are done.
func (h *Handler) Eligible(m *meeting.Meeting) bool {
	return !m.AgendaOnly() && m.AudioPath == ""
}

// Execute implements stage.Handler. A pre-existing audio file is adopted
// instead of re-downloaded so interrupted runs resume without rework.
func (h *Handler) Execute(ctx context.Context, m *meeting.Meeting) error {
	audioPath := filepath.Join(h.cfg.AudioDir(), m.ID+"."+h.cfg.Processing.AudioFormat)
	if info, err := os.Stat(audioPath); err == nil && info.Size() > 0 {
		m.AudioPath = audioPath
		return nil
	}

	timeout := time.Duration(h.cfg.Processing.DownloadTimeoutSeconds) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outputTemplate := filepath.Join(h.cfg.AudioDir(), m.ID+".%(ext)s")
	args := []string{
		"-x",
		"--audio-format", h.cfg.Processing.AudioFormat,
		"--audio-quality", h.cfg.Processing.AudioQuality,
		"-o", outputTemplate,
		"--no-playlist",
		m.VideoURL,
	}

	logging.WithContext(ctx, h.logger).Info("downloading meeting audio",
		logging.String(logging.FieldComponent, h.Name()),
		logging.String(logging.FieldMeetingID, m.ID))

	if err := h.runner(runCtx, h.command, args...); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrExternalTool, h.Name(), "extract audio", fmt.Sprintf("timed out after %s", timeout), err)
		}
		return services.Wrap(services.ErrExternalTool, h.Name(), "extract audio", m.VideoURL, err)
	}

	if _, err := os.Stat(audioPath); err != nil {
		return services.Wrap(services.ErrExternalTool, h.Name(), "extract audio", fmt.Sprintf("expected output %s missing", audioPath), err)
	}
	m.AudioPath = audioPath
	return nil
}
