package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zachurban/housing-policy-monitor/internal/config"
	"github.com/zachurban/housing-policy-monitor/internal/logging"
	"github.com/zachurban/housing-policy-monitor/internal/meeting"
	"github.com/zachurban/housing-policy-monitor/internal/services"
)

const analysisJSON = `{
	"key_topics": ["rezoning", "budget"],
	"housing_proposals": ["Inclusionary zoning update"],
	"development_projects": ["123 Main St apartments"],
	"funding_amounts": ["$2.5 million for affordable housing fund"],
	"overall_sentiment": "cautiously supportive",
	"action_items": ["Second reading scheduled"],
	"notable_quotes": ["We need more housing at every income level."],
	"housing_relevance_score": 0.85
}`

func replyWith(text string) string {
	encoded, _ := json.Marshal(text)
	return `{"content": [{"type": "text", "text": ` + string(encoded) + `}]}`
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Anthropic.APIKey = "test-key"
	cfg.Anthropic.BaseURL = baseURL
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories() error = %v", err)
	}
	return &cfg
}

func transcribedMeeting(t *testing.T, cfg *config.Config) *meeting.Meeting {
	t.Helper()
	transcriptPath := filepath.Join(cfg.TranscriptDir(), "abc123.txt")
	transcript := "Speaker 0: The affordable housing rezoning at 123 Main St passes. Housing is our priority."
	if err := os.WriteFile(transcriptPath, []byte(transcript), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	return &meeting.Meeting{
		ID:             "abc123",
		Jurisdiction:   "Denver",
		Title:          "City Council Meeting - July 14, 2026",
		Date:           "2026-07-14",
		VideoURL:       "https://www.youtube.com/watch?v=abc123",
		Source:         meeting.SourceYouTube,
		AudioPath:      filepath.Join(cfg.AudioDir(), "abc123.mp3"),
		TranscriptPath: transcriptPath,
	}
}

func newHandler(t *testing.T, server *httptest.Server) (*Handler, *config.Config) {
	t.Helper()
	cfg := testConfig(t, server.URL)
	client := NewClient(cfg, WithHTTPClient(server.Client()), WithSleeper(func(time.Duration) {}))
	return New(cfg, logging.NewNop(), WithClient(client)), cfg
}

func TestExecuteTranscriptAnalysis(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("anthropic-version = %q", r.Header.Get("anthropic-version"))
		}
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) > 0 {
			gotPrompt = req.Messages[0].Content
		}
		_, _ = w.Write([]byte(replyWith(analysisJSON)))
	}))
	defer server.Close()

	h, cfg := newHandler(t, server)
	m := transcribedMeeting(t, cfg)

	if err := h.Execute(context.Background(), m); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !m.Processed {
		t.Fatal("Processed should be true")
	}
	if m.State() != meeting.StateAnalyzed {
		t.Fatalf("State() = %q", m.State())
	}
	if m.HousingRelevanceScore != 0.85 {
		t.Fatalf("HousingRelevanceScore = %v", m.HousingRelevanceScore)
	}
	if m.HousingMentions == 0 {
		t.Fatal("HousingMentions should be counted from the transcript")
	}
	if !strings.Contains(gotPrompt, "transcript") {
		t.Fatalf("prompt should name the transcript input: %q", gotPrompt)
	}

	var stored Analysis
	data, err := os.ReadFile(m.AnalysisPath)
	if err != nil {
		t.Fatalf("read analysis: %v", err)
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("decode stored analysis: %v", err)
	}
	if stored.OverallSentiment != "cautiously supportive" {
		t.Fatalf("stored sentiment = %q", stored.OverallSentiment)
	}

	summary, err := os.ReadFile(m.SummaryPath)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	for _, want := range []string{"# City Council Meeting", "Housing Proposals", "123 Main St"} {
		if !strings.Contains(string(summary), want) {
			t.Fatalf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestExecuteAgendaOnlyAnalysis(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) > 0 {
			gotPrompt = req.Messages[0].Content
		}
		_, _ = w.Write([]byte(replyWith("```json\n" + analysisJSON + "\n```")))
	}))
	defer server.Close()

	h, _ := newHandler(t, server)
	m := &meeting.Meeting{
		ID:           "legistar_denver_456",
		Jurisdiction: "Denver",
		Title:        "Planning Board - 2026-07-08",
		Date:         "2026-07-08",
		Source:       meeting.SourceLegistar,
		AgendaItems: []meeting.AgendaItem{{
			Title:      "Rezoning 123 Main St to allow multifamily housing",
			MatterFile: "26-0456",
			Action:     "approved",
			Votes:      []meeting.Vote{{Person: "Member A", Value: "Aye"}},
		}},
	}

	if err := h.Execute(context.Background(), m); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !m.Processed {
		t.Fatal("Processed should be true")
	}
	if m.State() != meeting.StateAnalyzed {
		t.Fatalf("State() = %q, agenda-only meetings go straight to analyzed", m.State())
	}
	for _, want := range []string{"agenda", "Rezoning 123 Main St", "26-0456", "Member A - Aye"} {
		if !strings.Contains(gotPrompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, gotPrompt)
		}
	}
}

func TestExecuteTruncatesLongTranscripts(t *testing.T) {
	var gotLen int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotLen = len(req.Messages[0].Content)
		_, _ = w.Write([]byte(replyWith(analysisJSON)))
	}))
	defer server.Close()

	h, cfg := newHandler(t, server)
	cfg.Anthropic.MaxTranscriptChars = 100
	m := transcribedMeeting(t, cfg)
	long := strings.Repeat("housing development discussion ", 100)
	if err := os.WriteFile(m.TranscriptPath, []byte(long), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}

	if err := h.Execute(context.Background(), m); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if gotLen > len(promptTemplate)+600 {
		t.Fatalf("prompt length %d suggests transcript was not truncated", gotLen)
	}
}

func TestCompleteRetriesRateLimit(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(replyWith("ok")))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	var slept []time.Duration
	client := NewClient(cfg, WithHTTPClient(server.Client()), WithSleeper(func(d time.Duration) {
		slept = append(slept, d)
	}))

	text, err := client.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "ok" {
		t.Fatalf("text = %q", text)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("slept = %v, want [1s] from Retry-After", slept)
	}
}

func TestCompleteGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	client := NewClient(cfg, WithHTTPClient(server.Client()), WithSleeper(func(time.Duration) {}))

	_, err := client.Complete(context.Background(), "prompt")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("error = %v, want ErrTransient", err)
	}
	if attempts != defaultAttempts {
		t.Fatalf("attempts = %d, want %d", attempts, defaultAttempts)
	}
}

func TestCompleteAuthFailureIsConfiguration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	client := NewClient(cfg, WithHTTPClient(server.Client()), WithSleeper(func(time.Duration) {}))

	_, err := client.Complete(context.Background(), "prompt")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
}

func TestDecodeAnalysis(t *testing.T) {
	plain, err := DecodeAnalysis(analysisJSON)
	if err != nil {
		t.Fatalf("DecodeAnalysis(plain) error = %v", err)
	}
	if plain.HousingRelevanceScore != 0.85 {
		t.Fatalf("score = %v", plain.HousingRelevanceScore)
	}

	fenced, err := DecodeAnalysis("Here is the analysis:\n```json\n" + analysisJSON + "\n```")
	if err != nil {
		t.Fatalf("DecodeAnalysis(fenced) error = %v", err)
	}
	if len(fenced.KeyTopics) != 2 {
		t.Fatalf("KeyTopics = %v", fenced.KeyTopics)
	}

	if _, err := DecodeAnalysis("no json here"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}

	clamped, err := DecodeAnalysis(`{"housing_relevance_score": 1.7}`)
	if err != nil {
		t.Fatalf("DecodeAnalysis(clamped) error = %v", err)
	}
	if clamped.HousingRelevanceScore != 1.0 {
		t.Fatalf("score = %v, want clamped to 1.0", clamped.HousingRelevanceScore)
	}
}

func TestCountMentions(t *testing.T) {
	text := "Housing, housing, and more HOUSING. Also a zoning variance."
	got := CountMentions(text, []string{"housing", "zoning", "eviction"})
	if got != 4 {
		t.Fatalf("CountMentions = %d, want 4", got)
	}
}

func TestEligible(t *testing.T) {
	cfg := config.Default()
	h := New(&cfg, logging.NewNop())

	transcribed := &meeting.Meeting{TranscriptPath: "/t.txt", VideoURL: "https://x"}
	if !h.Eligible(transcribed) {
		t.Fatal("transcribed meeting should be eligible")
	}
	agendaOnly := &meeting.Meeting{}
	if !h.Eligible(agendaOnly) {
		t.Fatal("agenda-only meeting should be eligible")
	}
	pending := &meeting.Meeting{VideoURL: "https://x"}
	if h.Eligible(pending) {
		t.Fatal("meeting with video but no transcript yet should wait")
	}
	done := &meeting.Meeting{TranscriptPath: "/t.txt", Processed: true}
	if h.Eligible(done) {
		t.Fatal("processed meeting should not be eligible")
	}
}

func TestAvailable(t *testing.T) {
	cfg := config.Default()
	cfg.Anthropic.APIKey = ""
	t.Setenv("ANTHROPIC_API_KEY", "")
	h := New(&cfg, logging.NewNop())
	if err := h.Available(); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("Available() = %v, want ErrConfiguration", err)
	}
	cfg.Anthropic.APIKey = "key"
	if err := h.Available(); err != nil {
		t.Fatalf("Available() error = %v", err)
	}
}
