package sources

import (
	"context"

	"github.com/zachurban/housing-policy-monitor/internal/config"
	"github.com/zachurban/housing-policy-monitor/internal/meeting"
)

// Result is the outcome of one adapter pass over one jurisdiction. Skipped
// counts items the adapter saw but dropped as malformed, filtered, or out of
// the lookback window.
type Result struct {
	Meetings []*meeting.Meeting
	Skipped  int
}

// Adapter discovers meetings from one source system. An adapter failure
// affects only its own source; the caller continues with the others.
type Adapter interface {
	// Source names the system this adapter talks to.
	Source() meeting.Source
	// Enabled reports whether the jurisdiction configures this source.
	Enabled(j config.Jurisdiction) bool
	// Discover fetches and normalizes current meetings for the jurisdiction.
	Discover(ctx context.Context, jurisdiction string, j config.Jurisdiction) (Result, error)
}
