package legistar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zachurban/housing-policy-monitor/internal/config"
	"github.com/zachurban/housing-policy-monitor/internal/logging"
)

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.Legistar.BaseURL = baseURL
	cfg.Legistar.RateLimitMillis = 0
	return &cfg
}

func denverJurisdiction() config.Jurisdiction {
	return config.Jurisdiction{
		LegistarClient: "denver",
		MeetingBodies:  []string{"City Council", "Planning Board"},
	}
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, 7, 20, 12, 0, 0, 0, time.UTC)
	}
}

func newEventServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/denver/events":
			if !strings.Contains(r.URL.RawQuery, "EventDate+ge+datetime") &&
				!strings.Contains(r.URL.RawQuery, "EventDate%20ge%20datetime") {
				t.Errorf("events query missing date filter: %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`[
				{"EventId": 456, "EventBodyName": "Planning Board", "EventDate": "2026-07-08T00:00:00", "EventTime": "5:30 PM"},
				{"EventId": 457, "EventBodyName": "Parks Advisory Committee", "EventDate": "2026-07-09T00:00:00"},
				{"EventId": 458, "EventBodyName": "City Council", "EventDate": "2026-07-10T00:00:00", "EventVideoPath": "https://video.example.com/458"}
			]`))
		case r.URL.Path == "/denver/events/456/eventitems":
			_, _ = w.Write([]byte(`[
				{"EventItemId": 9001, "EventItemTitle": "Rezoning 123 Main St to allow multifamily housing", "EventItemMatterFile": "26-0456", "EventItemMatterType": "Rezoning", "EventItemActionText": "approved"},
				{"EventItemId": 9002, "EventItemTitle": "Approval of minutes"}
			]`))
		case r.URL.Path == "/denver/events/458/eventitems":
			_, _ = w.Write([]byte(`[]`))
		case r.URL.Path == "/denver/eventitems/9001/votes":
			_, _ = w.Write([]byte(`[
				{"VotePersonName": "Member A", "VoteValueName": "Aye"},
				{"VotePersonName": "Member B", "VoteValueName": "Nay"}
			]`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestDiscoverEventsWithAgendaAndVotes(t *testing.T) {
	server := newEventServer(t)
	defer server.Close()

	adapter := New(testConfig(server.URL), logging.NewNop(),
		WithHTTPClient(server.Client()),
		WithSleeper(func(time.Duration) {}),
		WithClock(fixedClock()))

	result, err := adapter.Discover(context.Background(), "Denver", denverJurisdiction())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(result.Meetings) != 2 {
		t.Fatalf("Meetings = %d, want 2 (%+v)", len(result.Meetings), result.Meetings)
	}
	if result.Skipped != 1 {
		t.Fatalf("Skipped = %d, want 1", result.Skipped)
	}

	planning := result.Meetings[0]
	if planning.ID != "legistar_denver_456" {
		t.Fatalf("ID = %q", planning.ID)
	}
	if !planning.AgendaOnly() {
		t.Fatal("event without video should be agenda-only")
	}
	if len(planning.AgendaItems) != 2 {
		t.Fatalf("AgendaItems = %d, want 2", len(planning.AgendaItems))
	}
	rezoning := planning.AgendaItems[0]
	if rezoning.MatterFile != "26-0456" || rezoning.Action != "approved" {
		t.Fatalf("agenda item = %+v", rezoning)
	}
	if len(rezoning.Votes) != 2 || rezoning.Votes[0].Value != "Aye" {
		t.Fatalf("votes = %+v", rezoning.Votes)
	}
	if planning.HousingRelevanceScore <= 0 {
		t.Fatalf("HousingRelevanceScore = %v, want > 0", planning.HousingRelevanceScore)
	}

	council := result.Meetings[1]
	if council.ID != "legistar_denver_458" {
		t.Fatalf("ID = %q", council.ID)
	}
	if council.AgendaOnly() {
		t.Fatal("event with video path should not be agenda-only")
	}
	if council.HousingRelevanceScore != 0.1 {
		t.Fatalf("empty-agenda council score = %v, want 0.1", council.HousingRelevanceScore)
	}
}

func TestScoreRelevance(t *testing.T) {
	adapter := New(testConfig("http://unused"), logging.NewNop())

	if got := adapter.scoreRelevance("Planning Board", nil); got != 0.3 {
		t.Fatalf("planning body fallback = %v, want 0.3", got)
	}
	if got := adapter.scoreRelevance("Audit Committee", nil); got != 0.1 {
		t.Fatalf("generic body fallback = %v, want 0.1", got)
	}
}

func TestDiscoverServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := New(testConfig(server.URL), logging.NewNop(),
		WithHTTPClient(server.Client()),
		WithSleeper(func(time.Duration) {}))

	if _, err := adapter.Discover(context.Background(), "Denver", denverJurisdiction()); err == nil {
		t.Fatal("expected error when event listing fails")
	}
}

func TestEnabled(t *testing.T) {
	adapter := New(testConfig("http://unused"), logging.NewNop())
	if !adapter.Enabled(denverJurisdiction()) {
		t.Fatal("Enabled() = false with legistar_client set")
	}
	if adapter.Enabled(config.Jurisdiction{GranicusSite: "x"}) {
		t.Fatal("Enabled() = true without legistar_client")
	}
}
