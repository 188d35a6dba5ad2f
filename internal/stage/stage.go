// Package stage defines the contract implemented by the download,
// transcribe, and analyze processing stages.
package stage

import (
	"context"

	"github.com/zachurban/housing-policy-monitor/internal/meeting"
)

// Handler is one processing stage in the pipeline. Stages mutate the meeting
// record in place; the caller persists the record after each stage so a crash
// loses at most the stage in flight.
type Handler interface {
	// Name identifies the stage in logs and error messages.
	Name() string
	// Available reports whether the stage can run at all this run. A
	// configuration error here causes the pipeline to skip the stage for
	// every record rather than fail each one individually.
	Available() error
	// Eligible reports whether the record needs this stage.
	Eligible(m *meeting.Meeting) bool
	// Execute performs the stage's work against the record.
	Execute(ctx context.Context, m *meeting.Meeting) error
}
