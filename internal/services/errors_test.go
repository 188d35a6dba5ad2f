package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	inner := errors.New("connection refused")
	err := Wrap(ErrTransient, "transcribe", "call deepgram", "", inner)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("errors.Is(ErrTransient) = false for %v", err)
	}
	if !errors.Is(err, inner) {
		t.Fatalf("wrapped cause lost: %v", err)
	}
	if !strings.Contains(err.Error(), "transcribe: call deepgram") {
		t.Fatalf("detail missing: %v", err)
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := Wrap(nil, "", "", "something broke", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("nil marker should default to ErrTransient: %v", err)
	}
}

func TestIsConfiguration(t *testing.T) {
	err := Wrap(ErrConfiguration, "analyze", "check credentials", "key missing", nil)
	if !IsConfiguration(err) {
		t.Fatalf("IsConfiguration = false for %v", err)
	}
	if IsConfiguration(Wrap(ErrValidation, "", "", "bad", nil)) {
		t.Fatal("IsConfiguration = true for validation error")
	}
}

func TestContextCarriers(t *testing.T) {
	ctx := WithMeetingID(context.Background(), "abc123")
	ctx = WithStage(ctx, "download")
	ctx = WithJurisdiction(ctx, "Denver")
	ctx = WithRequestID(ctx, "run-1")

	if id, ok := MeetingIDFromContext(ctx); !ok || id != "abc123" {
		t.Fatalf("meeting id = %q, %v", id, ok)
	}
	if stage, ok := StageFromContext(ctx); !ok || stage != "download" {
		t.Fatalf("stage = %q, %v", stage, ok)
	}
	if j, ok := JurisdictionFromContext(ctx); !ok || j != "Denver" {
		t.Fatalf("jurisdiction = %q, %v", j, ok)
	}
	if rid, ok := RequestIDFromContext(ctx); !ok || rid != "run-1" {
		t.Fatalf("request id = %q, %v", rid, ok)
	}

	if _, ok := MeetingIDFromContext(context.Background()); ok {
		t.Fatal("empty context should not carry a meeting id")
	}
	if id, ok := MeetingIDFromContext(WithMeetingID(context.Background(), "")); ok {
		t.Fatalf("blank id stored: %q", id)
	}
}
