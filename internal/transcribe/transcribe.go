// Package transcribe produces speaker-labeled transcripts of meeting audio
// through the Deepgram prerecorded API.
package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zachurban/housing-policy-monitor/internal/config"
	"github.com/zachurban/housing-policy-monitor/internal/logging"
	"github.com/zachurban/housing-policy-monitor/internal/meeting"
	"github.com/zachurban/housing-policy-monitor/internal/services"
)

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
				Paragraphs struct {
					Transcript string `json:"transcript"`
				} `json:"paragraphs"`
			} `json:"alternatives"`
		} `json:"channels"`
		Utterances []struct {
			Speaker    int    `json:"speaker"`
			Transcript string `json:"transcript"`
		} `json:"utterances"`
	} `json:"results"`
}

// Handler transcribes downloaded meeting audio.
type Handler struct {
	cfg    *config.Config
	logger *slog.Logger
	client *http.Client
}

// Option customizes handler construction.
type Option func(*Handler)

// WithHTTPClient overrides the HTTP client, primarily for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(h *Handler) {
		if client != nil {
			h.client = client
		}
	}
}

// New constructs the transcription stage.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &Handler{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: time.Duration(cfg.Deepgram.TimeoutSeconds) * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements stage.Handler.
func (h *Handler) Name() string {
	return "transcribe"
}

// Available implements stage.Handler.
func (h *Handler) Available() error {
	if h.cfg.DeepgramAPIKey() == "" {
		return services.Wrap(services.ErrConfiguration, h.Name(), "check credentials", "deepgram api key not configured (set deepgram.api_key or DEEPGRAM_API_KEY)", nil)
	}
	return nil
}

// Eligible implements stage.Handler.
func (h *Handler) Eligible(m *meeting.Meeting) bool {
	return m.AudioPath != "" && m.TranscriptPath == ""
}

// Execute implements stage.Handler. An existing transcript file on disk is
// adopted so interrupted runs resume without re-billing the API.
func (h *Handler) Execute(ctx context.Context, m *meeting.Meeting) error {
	transcriptPath := filepath.Join(h.cfg.TranscriptDir(), m.ID+".txt")
	if info, err := os.Stat(transcriptPath); err == nil && info.Size() > 0 {
		m.TranscriptPath = transcriptPath
		return nil
	}

	audio, err := os.Open(m.AudioPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, h.Name(), "open audio", m.AudioPath, err)
	}
	defer audio.Close()

	logging.WithContext(ctx, h.logger).Info("transcribing meeting audio",
		logging.String(logging.FieldComponent, h.Name()),
		logging.String(logging.FieldMeetingID, m.ID))

	response, err := h.request(ctx, audio, m.AudioPath)
	if err != nil {
		return err
	}

	transcript := formatTranscript(response)
	if strings.TrimSpace(transcript) == "" {
		return services.Wrap(services.ErrValidation, h.Name(), "format transcript", "service returned an empty transcript", nil)
	}

	if err := os.WriteFile(transcriptPath, []byte(transcript), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, h.Name(), "write transcript", transcriptPath, err)
	}
	m.TranscriptPath = transcriptPath
	return nil
}

func (h *Handler) request(ctx context.Context, audio io.Reader, audioPath string) (*deepgramResponse, error) {
	params := url.Values{}
	params.Set("model", h.cfg.Deepgram.Model)
	params.Set("smart_format", "true")
	params.Set("punctuate", "true")
	params.Set("diarize", "true")
	params.Set("utterances", "true")
	params.Set("paragraphs", "true")
	params.Set("language", "en-US")
	endpoint := h.cfg.Deepgram.BaseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, audio)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, h.Name(), "build request", "", err)
	}
	req.Header.Set("Authorization", "Token "+h.cfg.DeepgramAPIKey())
	req.Header.Set("Content-Type", contentTypeFor(audioPath))

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, h.Name(), "call deepgram", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, h.Name(), "read response", "", err)
	}
	if resp.StatusCode != http.StatusOK {
		marker := services.ErrTransient
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			marker = services.ErrValidation
		}
		return nil, services.Wrap(marker, h.Name(), "call deepgram", fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(body), 200)), nil)
	}

	var decoded deepgramResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, services.Wrap(services.ErrValidation, h.Name(), "decode response", "", err)
	}
	return &decoded, nil
}

// formatTranscript prefers speaker-labeled utterances, then formatted
// paragraphs, then the flat transcript.
func formatTranscript(resp *deepgramResponse) string {
	if len(resp.Results.Utterances) > 0 {
		lines := make([]string, 0, len(resp.Results.Utterances))
		for _, u := range resp.Results.Utterances {
			text := strings.TrimSpace(u.Transcript)
			if text == "" {
				continue
			}
			lines = append(lines, fmt.Sprintf("Speaker %d: %s", u.Speaker, text))
		}
		if len(lines) > 0 {
			return strings.Join(lines, "\n")
		}
	}
	if len(resp.Results.Channels) > 0 && len(resp.Results.Channels[0].Alternatives) > 0 {
		alt := resp.Results.Channels[0].Alternatives[0]
		if p := strings.TrimSpace(alt.Paragraphs.Transcript); p != "" {
			return p
		}
		return strings.TrimSpace(alt.Transcript)
	}
	return ""
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	default:
		return "audio/mpeg"
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
