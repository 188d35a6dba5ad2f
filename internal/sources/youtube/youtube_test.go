package youtube

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zachurban/housing-policy-monitor/internal/config"
	"github.com/zachurban/housing-policy-monitor/internal/logging"
	"github.com/zachurban/housing-policy-monitor/internal/services"
)

func testConfig() *config.Config {
	cfg := config.Default()
	return &cfg
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, 7, 20, 12, 0, 0, 0, time.UTC)
	}
}

func denverJurisdiction() config.Jurisdiction {
	return config.Jurisdiction{YouTubeURL: "https://www.youtube.com/@Denver8TV/videos"}
}

func TestDiscoverParsesAndFilters(t *testing.T) {
	playlist := strings.Join([]string{
		`{"id": "abc123", "title": "City Council Meeting - July 14, 2026", "upload_date": "20260714", "duration": 5400}`,
		`{"id": "def456", "title": "Mayor's Cooking Show", "upload_date": "20260715"}`,
		`{"id": "old789", "title": "City Council Meeting", "upload_date": "20250101"}`,
		`not json at all`,
		``,
	}, "\n")

	var gotArgs []string
	adapter := New(testConfig(), logging.NewNop(),
		WithClock(fixedClock()),
		WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
			gotArgs = append([]string{name}, args...)
			return []byte(playlist), nil
		}))

	result, err := adapter.Discover(context.Background(), "Denver", denverJurisdiction())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(result.Meetings) != 1 {
		t.Fatalf("Meetings = %d, want 1 (got %+v)", len(result.Meetings), result.Meetings)
	}
	m := result.Meetings[0]
	if m.ID != "abc123" {
		t.Fatalf("ID = %q, want abc123", m.ID)
	}
	if m.Date != "2026-07-14" {
		t.Fatalf("Date = %q", m.Date)
	}
	if result.Skipped != 3 {
		t.Fatalf("Skipped = %d, want 3", result.Skipped)
	}

	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"yt-dlp", "--flat-playlist", "--dump-json", "--playlist-end"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("command %q missing %q", joined, want)
		}
	}
}

func TestDiscoverToolFailure(t *testing.T) {
	adapter := New(testConfig(), logging.NewNop(),
		WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return nil, errors.New("exit status 1")
		}))

	_, err := adapter.Discover(context.Background(), "Denver", denverJurisdiction())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("error = %v, want ErrExternalTool", err)
	}
}

func TestDiscoverDisabledJurisdiction(t *testing.T) {
	adapter := New(testConfig(), logging.NewNop(),
		WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
			t.Fatal("runner should not be invoked without a channel url")
			return nil, nil
		}))

	result, err := adapter.Discover(context.Background(), "Aurora", config.Jurisdiction{GranicusSite: "auroracity.granicus.com"})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(result.Meetings) != 0 {
		t.Fatalf("Meetings = %d, want 0", len(result.Meetings))
	}
	if adapter.Enabled(config.Jurisdiction{GranicusSite: "x"}) {
		t.Fatal("Enabled() should be false without youtube_url")
	}
}

func TestDiscoverKeepsUndatedEntries(t *testing.T) {
	playlist := `{"id": "nodate1", "title": "Planning Commission Study Session"}`
	adapter := New(testConfig(), logging.NewNop(),
		WithClock(fixedClock()),
		WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte(playlist), nil
		}))

	result, err := adapter.Discover(context.Background(), "Denver", denverJurisdiction())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(result.Meetings) != 1 {
		t.Fatalf("Meetings = %d, want 1", len(result.Meetings))
	}
	if result.Meetings[0].Date != "" {
		t.Fatalf("Date = %q, want empty", result.Meetings[0].Date)
	}
}
