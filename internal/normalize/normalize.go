package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/zachurban/housing-policy-monitor/internal/meeting"
	"github.com/zachurban/housing-policy-monitor/internal/services"
)

// YouTubeEntry is one flat-playlist entry emitted by yt-dlp.
type YouTubeEntry struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	URL             string  `json:"url"`
	UploadDate      string  `json:"upload_date"`
	DurationSeconds float64 `json:"duration"`
}

// GranicusClip is one clip row from a Granicus site, whether it came from the
// JSON API or was scraped from the archive page.
type GranicusClip struct {
	ID              string
	Title           string
	Date            string
	DurationSeconds float64
	Site            string
	AgendaURL       string
}

// LegistarEvent is one event from the Legistar Web API together with its
// agenda items.
type LegistarEvent struct {
	EventID     int
	Client      string
	BodyName    string
	Date        string
	Time        string
	InSiteURL   string
	VideoURL    string
	AgendaItems []meeting.AgendaItem
	Relevance   float64
}

var (
	longDatePattern    = regexp.MustCompile(`(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),?\s+(\d{4})`)
	slashDatePattern   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	compactDatePattern = regexp.MustCompile(`^\d{8}$`)
)

// FromYouTube maps a yt-dlp playlist entry to a meeting record. The video id
// is used directly as the record id.
func FromYouTube(entry YouTubeEntry, jurisdiction string) (*meeting.Meeting, error) {
	id := strings.TrimSpace(entry.ID)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, "discover", "youtube", "entry missing video id", nil)
	}
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		return nil, services.Wrap(services.ErrValidation, "discover", "youtube", fmt.Sprintf("entry %s missing title", id), nil)
	}

	videoURL := strings.TrimSpace(entry.URL)
	if videoURL == "" {
		videoURL = "https://www.youtube.com/watch?v=" + id
	}

	// Titles carry the meeting date; upload dates lag for delayed uploads.
	date := DateFromTitle(title)
	if date == "" {
		date = ParseDate(entry.UploadDate)
	}

	return &meeting.Meeting{
		ID:              id,
		Jurisdiction:    jurisdiction,
		Title:           title,
		Date:            date,
		VideoURL:        videoURL,
		Source:          meeting.SourceYouTube,
		DurationMinutes: entry.DurationSeconds / 60,
	}, nil
}

// FromGranicus maps a Granicus clip to a meeting record with a
// granicus_<clipID> id.
func FromGranicus(clip GranicusClip, jurisdiction string) (*meeting.Meeting, error) {
	clipID := strings.TrimSpace(clip.ID)
	if clipID == "" {
		return nil, services.Wrap(services.ErrValidation, "discover", "granicus", "clip missing id", nil)
	}
	title := strings.TrimSpace(clip.Title)
	if title == "" {
		return nil, services.Wrap(services.ErrValidation, "discover", "granicus", fmt.Sprintf("clip %s missing title", clipID), nil)
	}

	date := ParseDate(clip.Date)
	if date == "" {
		date = DateFromTitle(title)
	}

	var videoURL string
	if clip.Site != "" {
		videoURL = fmt.Sprintf("https://%s/MediaPlayer.php?clip_id=%s", clip.Site, clipID)
	}

	return &meeting.Meeting{
		ID:              meeting.GranicusID(clipID),
		Jurisdiction:    jurisdiction,
		Title:           title,
		Date:            date,
		VideoURL:        videoURL,
		Source:          meeting.SourceGranicus,
		DurationMinutes: clip.DurationSeconds / 60,
		AgendaURL:       strings.TrimSpace(clip.AgendaURL),
	}, nil
}

// FromLegistar maps a Legistar event to a meeting record with a
// legistar_<client>_<eventID> id. Events without video yield agenda-only
// records.
func FromLegistar(event LegistarEvent, jurisdiction string) (*meeting.Meeting, error) {
	if event.EventID <= 0 {
		return nil, services.Wrap(services.ErrValidation, "discover", "legistar", "event missing id", nil)
	}
	client := strings.TrimSpace(event.Client)
	if client == "" {
		return nil, services.Wrap(services.ErrValidation, "discover", "legistar", fmt.Sprintf("event %d missing client", event.EventID), nil)
	}

	date := ParseDate(event.Date)
	title := strings.TrimSpace(event.BodyName)
	if title == "" {
		title = "Meeting"
	}
	if date != "" {
		title = fmt.Sprintf("%s - %s", title, date)
	}
	if t := strings.TrimSpace(event.Time); t != "" {
		title = fmt.Sprintf("%s %s", title, t)
	}

	videoURL := strings.TrimSpace(event.VideoURL)

	return &meeting.Meeting{
		ID:                    meeting.LegistarID(client, event.EventID),
		Jurisdiction:          jurisdiction,
		Title:                 title,
		Date:                  date,
		VideoURL:              videoURL,
		Source:                meeting.SourceLegistar,
		AgendaItems:           event.AgendaItems,
		HousingRelevanceScore: event.Relevance,
	}, nil
}

// ParseDate normalizes the date formats the sources emit to YYYY-MM-DD.
// Unrecognized input yields an empty string.
func ParseDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if compactDatePattern.MatchString(raw) {
		if t, err := time.Parse("20060102", raw); err == nil {
			return t.Format("2006-01-02")
		}
		return ""
	}
	layouts := []string{
		"2006-01-02",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"1/2/2006",
		"01/02/2006",
		"January 2, 2006",
		"Jan 2, 2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// DateFromTitle extracts a meeting date embedded in a title, handling both
// "July 14, 2026" and "7/14/2026" styles.
func DateFromTitle(title string) string {
	if match := longDatePattern.FindString(title); match != "" {
		for _, layout := range []string{"January 2, 2006", "January 2 2006"} {
			if t, err := time.Parse(layout, match); err == nil {
				return t.Format("2006-01-02")
			}
		}
	}
	if match := slashDatePattern.FindString(title); match != "" {
		if t, err := time.Parse("1/2/2006", match); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}
