package meeting

import (
	"fmt"
	"strings"
	"time"
)

// Source identifies the discovery system a meeting came from.
type Source string

const (
	SourceYouTube  Source = "youtube"
	SourceGranicus Source = "granicus"
	SourceLegistar Source = "legistar"
)

// State describes how far through the pipeline a meeting has progressed.
// It is derived from which artifact fields are populated rather than stored,
// so a partially failed run can never leave the state ahead of the artifacts.
type State string

const (
	StateDiscovered  State = "discovered"
	StateDownloaded  State = "downloaded"
	StateTranscribed State = "transcribed"
	StateAnalyzed    State = "analyzed"
)

// Vote records one member's vote on an agenda item.
type Vote struct {
	Person string `json:"person"`
	Value  string `json:"value"`
}

// AgendaItem is one item of legislative business attached to a meeting.
type AgendaItem struct {
	Title      string `json:"title"`
	MatterFile string `json:"matter_file,omitempty"`
	MatterType string `json:"matter_type,omitempty"`
	Action     string `json:"action,omitempty"`
	Votes      []Vote `json:"votes,omitempty"`
}

// Meeting is the canonical record for one government meeting. Records are
// keyed by ID; rediscovery of the same ID merges rather than duplicates.
type Meeting struct {
	ID              string       `json:"id"`
	Jurisdiction    string       `json:"jurisdiction"`
	Title           string       `json:"title"`
	Date            string       `json:"date"`
	VideoURL        string       `json:"video_url,omitempty"`
	AgendaURL       string       `json:"agenda_url,omitempty"`
	Source          Source       `json:"source"`
	DurationMinutes float64      `json:"duration_minutes,omitempty"`
	AgendaItems     []AgendaItem `json:"agenda_items,omitempty"`

	AudioPath      string `json:"audio_path,omitempty"`
	TranscriptPath string `json:"transcript_path,omitempty"`
	AnalysisPath   string `json:"analysis_path,omitempty"`
	SummaryPath    string `json:"summary_path,omitempty"`

	HousingMentions       int     `json:"housing_mentions"`
	HousingRelevanceScore float64 `json:"housing_relevance_score"`

	Processed bool   `json:"processed"`
	LastError string `json:"last_error,omitempty"`

	DiscoveredAt time.Time `json:"discovered_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// GranicusID builds the record id for a Granicus clip.
func GranicusID(clipID string) string {
	return "granicus_" + clipID
}

// LegistarID builds the record id for a Legistar event.
func LegistarID(client string, eventID int) string {
	return fmt.Sprintf("legistar_%s_%d", client, eventID)
}

// State reports the derived pipeline state for the record.
func (m *Meeting) State() State {
	if m.Processed && m.AnalysisPath != "" {
		return StateAnalyzed
	}
	if m.TranscriptPath != "" {
		return StateTranscribed
	}
	if m.AudioPath != "" {
		return StateDownloaded
	}
	return StateDiscovered
}

// AgendaOnly reports whether the meeting has no recording and must be
// analyzed from agenda text alone.
func (m *Meeting) AgendaOnly() bool {
	return strings.TrimSpace(m.VideoURL) == ""
}

// Merge folds a freshly discovered record into the existing one. Discovery
// metadata is refreshed when the incoming value is non-empty; fields produced
// by processing stages are never cleared or regressed by rediscovery.
func (m *Meeting) Merge(incoming *Meeting) {
	if incoming == nil || incoming.ID != m.ID {
		return
	}
	if incoming.Title != "" {
		m.Title = incoming.Title
	}
	if incoming.Date != "" {
		m.Date = incoming.Date
	}
	if incoming.VideoURL != "" {
		m.VideoURL = incoming.VideoURL
	}
	if incoming.AgendaURL != "" {
		m.AgendaURL = incoming.AgendaURL
	}
	if incoming.Jurisdiction != "" {
		m.Jurisdiction = incoming.Jurisdiction
	}
	if incoming.Source != "" {
		m.Source = incoming.Source
	}
	if incoming.DurationMinutes > 0 {
		m.DurationMinutes = incoming.DurationMinutes
	}
	if len(incoming.AgendaItems) > 0 {
		m.AgendaItems = incoming.AgendaItems
	}
	if incoming.HousingRelevanceScore > m.HousingRelevanceScore && !m.Processed {
		m.HousingRelevanceScore = incoming.HousingRelevanceScore
	}
	if m.DiscoveredAt.IsZero() {
		m.DiscoveredAt = incoming.DiscoveredAt
	}
	if !incoming.UpdatedAt.IsZero() {
		m.UpdatedAt = incoming.UpdatedAt
	}
}

// Clone returns a deep copy so callers can mutate without aliasing the
// store's in-memory records.
func (m *Meeting) Clone() *Meeting {
	if m == nil {
		return nil
	}
	out := *m
	if len(m.AgendaItems) > 0 {
		out.AgendaItems = make([]AgendaItem, len(m.AgendaItems))
		for i, item := range m.AgendaItems {
			copied := item
			if len(item.Votes) > 0 {
				copied.Votes = append([]Vote(nil), item.Votes...)
			}
			out.AgendaItems[i] = copied
		}
	}
	return &out
}

// Validate reports whether the record carries the fields every meeting must
// have before it can be stored.
func (m *Meeting) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("meeting id must not be empty")
	}
	if strings.TrimSpace(m.Jurisdiction) == "" {
		return fmt.Errorf("meeting %s: jurisdiction must not be empty", m.ID)
	}
	switch m.Source {
	case SourceYouTube, SourceGranicus, SourceLegistar:
	default:
		return fmt.Errorf("meeting %s: unknown source %q", m.ID, m.Source)
	}
	return nil
}
