// Package logging provides slog-based structured logging for the monitor.
//
// It exposes a console handler for interactive use and a JSON handler for
// machine consumption, plus helpers for component loggers and for deriving
// standard fields (meeting id, stage, jurisdiction) from a context.
package logging
