package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestRecordAndList(t *testing.T) {
	log, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer log.Close()

	ctx := context.Background()
	base := time.Date(2026, 7, 20, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-1", "run-2"} {
		entry := Entry{
			ID:            id,
			StartedAt:     base.Add(time.Duration(i) * time.Hour),
			FinishedAt:    base.Add(time.Duration(i)*time.Hour + 10*time.Minute),
			Jurisdictions: "Denver,Aurora",
			Discovered:    5,
			Processed:     3,
			Failed:        1,
			Skipped:       1,
		}
		if err := log.Record(ctx, entry); err != nil {
			t.Fatalf("Record(%s) error = %v", id, err)
		}
	}

	entries, err := log.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List() = %d entries, want 2", len(entries))
	}
	if entries[0].ID != "run-2" {
		t.Fatalf("entries[0].ID = %q, want newest first", entries[0].ID)
	}
	if entries[0].Processed != 3 || entries[0].Jurisdictions != "Denver,Aurora" {
		t.Fatalf("entry = %+v", entries[0])
	}
	if !entries[0].StartedAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("StartedAt = %v", entries[0].StartedAt)
	}
}

func TestListLimit(t *testing.T) {
	log, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer log.Close()

	ctx := context.Background()
	base := time.Date(2026, 7, 20, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		entry := Entry{
			ID:        string(rune('a' + i)),
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := log.Record(ctx, entry); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	entries, err := log.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List(2) = %d entries", len(entries))
	}
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := log.Record(context.Background(), Entry{ID: "run-1", StartedAt: time.Now()}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()
	entries, err := reopened.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
}
