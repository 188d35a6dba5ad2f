package services

import "context"

type contextKey string

const (
	meetingIDKey    contextKey = "meeting_id"
	stageKey        contextKey = "stage"
	jurisdictionKey contextKey = "jurisdiction"
	requestIDKey    contextKey = "request_id"
)

// WithMeetingID annotates the context with the meeting being processed.
func WithMeetingID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, meetingIDKey, id)
}

// MeetingIDFromContext extracts the meeting id if present.
func MeetingIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, meetingIDKey)
}

// WithStage annotates the context with the active stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext extracts the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, stageKey)
}

// WithJurisdiction annotates the context with the active jurisdiction.
func WithJurisdiction(ctx context.Context, jurisdiction string) context.Context {
	if jurisdiction == "" {
		return ctx
	}
	return context.WithValue(ctx, jurisdictionKey, jurisdiction)
}

// JurisdictionFromContext extracts the jurisdiction if present.
func JurisdictionFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, jurisdictionKey)
}

// WithRequestID annotates the context with a correlation id for one record's
// trip through the pipeline.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation id if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, requestIDKey)
}

func stringFromContext(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(key).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}
