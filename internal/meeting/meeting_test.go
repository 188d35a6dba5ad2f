package meeting

import (
	"testing"
	"time"
)

func TestStateDerivation(t *testing.T) {
	m := &Meeting{ID: "abc123", Jurisdiction: "Denver", Source: SourceYouTube}
	if got := m.State(); got != StateDiscovered {
		t.Fatalf("State() = %q, want %q", got, StateDiscovered)
	}
	m.AudioPath = "/data/audio/abc123.mp3"
	if got := m.State(); got != StateDownloaded {
		t.Fatalf("State() = %q, want %q", got, StateDownloaded)
	}
	m.TranscriptPath = "/data/transcripts/abc123.txt"
	if got := m.State(); got != StateTranscribed {
		t.Fatalf("State() = %q, want %q", got, StateTranscribed)
	}
	m.AnalysisPath = "/data/analysis/abc123.json"
	m.Processed = true
	if got := m.State(); got != StateAnalyzed {
		t.Fatalf("State() = %q, want %q", got, StateAnalyzed)
	}
}

func TestMergeRefreshesMetadata(t *testing.T) {
	existing := &Meeting{
		ID:           "granicus_991",
		Jurisdiction: "Aurora",
		Title:        "City Council",
		Date:         "2026-07-01",
		Source:       SourceGranicus,
	}
	existing.Merge(&Meeting{
		ID:        "granicus_991",
		Title:     "City Council Regular Meeting",
		Date:      "2026-07-02",
		AgendaURL: "https://auroracity.granicus.com/AgendaViewer.php?clip_id=991",
		VideoURL:  "https://auroracity.granicus.com/clip/991",
		Source:    SourceGranicus,
	})
	if existing.Title != "City Council Regular Meeting" {
		t.Fatalf("Title = %q", existing.Title)
	}
	if existing.Date != "2026-07-02" {
		t.Fatalf("Date = %q", existing.Date)
	}
	if existing.VideoURL == "" {
		t.Fatal("VideoURL should be set by merge")
	}
	if existing.AgendaURL == "" {
		t.Fatal("AgendaURL should be set by merge")
	}
}

func TestMergeNeverClearsStageFields(t *testing.T) {
	existing := &Meeting{
		ID:             "abc123",
		Jurisdiction:   "Denver",
		Source:         SourceYouTube,
		AudioPath:      "/data/audio/abc123.mp3",
		TranscriptPath: "/data/transcripts/abc123.txt",
		AnalysisPath:   "/data/analysis/abc123.json",
		Processed:      true,
	}
	existing.Merge(&Meeting{ID: "abc123", Title: "Council", Source: SourceYouTube})
	if existing.AudioPath == "" || existing.TranscriptPath == "" || existing.AnalysisPath == "" {
		t.Fatal("merge cleared stage artifact paths")
	}
	if !existing.Processed {
		t.Fatal("merge cleared processed flag")
	}
	if existing.State() != StateAnalyzed {
		t.Fatalf("State() = %q, want %q", existing.State(), StateAnalyzed)
	}
}

func TestMergeIgnoresEmptyIncomingMetadata(t *testing.T) {
	existing := &Meeting{ID: "x", Title: "Planning Board", Date: "2026-06-15", Jurisdiction: "Boulder", Source: SourceYouTube}
	existing.Merge(&Meeting{ID: "x"})
	if existing.Title != "Planning Board" || existing.Date != "2026-06-15" {
		t.Fatalf("empty incoming values overwrote metadata: %+v", existing)
	}
}

func TestMergeDifferentIDNoop(t *testing.T) {
	existing := &Meeting{ID: "a", Title: "A", Jurisdiction: "Denver", Source: SourceYouTube}
	existing.Merge(&Meeting{ID: "b", Title: "B"})
	if existing.Title != "A" {
		t.Fatalf("Title = %q, want A", existing.Title)
	}
}

func TestMergeTimestamps(t *testing.T) {
	first := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	second := time.Date(2026, 7, 8, 10, 0, 0, 0, time.UTC)
	existing := &Meeting{ID: "a", Jurisdiction: "Denver", Source: SourceYouTube, DiscoveredAt: first, UpdatedAt: first}
	existing.Merge(&Meeting{ID: "a", DiscoveredAt: second, UpdatedAt: second})
	if !existing.DiscoveredAt.Equal(first) {
		t.Fatalf("DiscoveredAt = %v, want original %v", existing.DiscoveredAt, first)
	}
	if !existing.UpdatedAt.Equal(second) {
		t.Fatalf("UpdatedAt = %v, want %v", existing.UpdatedAt, second)
	}
}

func TestAgendaOnly(t *testing.T) {
	withVideo := &Meeting{VideoURL: "https://youtube.com/watch?v=abc123"}
	if withVideo.AgendaOnly() {
		t.Fatal("meeting with video reported agenda-only")
	}
	withoutVideo := &Meeting{}
	if !withoutVideo.AgendaOnly() {
		t.Fatal("meeting without video should be agenda-only")
	}
}

func TestIDBuilders(t *testing.T) {
	if got := GranicusID("12345"); got != "granicus_12345" {
		t.Fatalf("GranicusID = %q", got)
	}
	if got := LegistarID("denver", 987); got != "legistar_denver_987" {
		t.Fatalf("LegistarID = %q", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := &Meeting{
		ID:           "legistar_denver_1",
		Jurisdiction: "Denver",
		Source:       SourceLegistar,
		AgendaItems: []AgendaItem{{
			Title: "Rezoning 123 Main St",
			Votes: []Vote{{Person: "Member A", Value: "Aye"}},
		}},
	}
	clone := original.Clone()
	clone.AgendaItems[0].Votes[0].Value = "Nay"
	if original.AgendaItems[0].Votes[0].Value != "Aye" {
		t.Fatal("Clone shares vote slice with original")
	}
}

func TestValidate(t *testing.T) {
	valid := &Meeting{ID: "abc", Jurisdiction: "Denver", Source: SourceYouTube}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	cases := []*Meeting{
		{Jurisdiction: "Denver", Source: SourceYouTube},
		{ID: "abc", Source: SourceYouTube},
		{ID: "abc", Jurisdiction: "Denver", Source: Source("rss")},
	}
	for i, m := range cases {
		if err := m.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
