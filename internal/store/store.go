package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/zachurban/housing-policy-monitor/internal/logging"
	"github.com/zachurban/housing-policy-monitor/internal/meeting"
)

// ErrLocked indicates another process currently holds the collection lock.
var ErrLocked = errors.New("meeting collection is locked by another run")

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Jurisdiction string
	Source       meeting.Source
	State        meeting.State
}

type fileFormat struct {
	Meetings map[string]*meeting.Meeting `json:"meetings"`
	SavedAt  time.Time                   `json:"saved_at"`
}

// Store holds the meeting collection in memory and persists it to one JSON
// file. All methods are safe for concurrent use within a process; the file
// lock guards against other processes.
type Store struct {
	path   string
	lock   *flock.Flock
	logger *slog.Logger

	mu       sync.Mutex
	meetings map[string]*meeting.Meeting
}

// Open acquires the collection lock and loads the meeting file. A missing
// file yields an empty collection; an unreadable one is logged and replaced
// with an empty collection on the next save rather than aborting the run.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	fileLock := flock.New(path + ".lock")
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	s := &Store{
		path:     path,
		lock:     fileLock,
		logger:   logger,
		meetings: make(map[string]*meeting.Meeting),
	}
	if err := s.load(); err != nil {
		_ = fileLock.Unlock()
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read meeting collection: %w", err)
	}

	var contents fileFormat
	if err := json.Unmarshal(data, &contents); err != nil {
		s.logger.Warn("meeting collection unreadable, starting empty",
			logging.String(logging.FieldComponent, "store"),
			logging.String("path", s.path),
			logging.Error(err))
		return nil
	}
	if contents.Meetings != nil {
		s.meetings = contents.Meetings
	}
	return nil
}

// Close releases the collection lock.
func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

// Len reports the number of records in the collection.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.meetings)
}

// Upsert inserts a new record or merges the incoming one into the existing
// record with the same id. It reports whether a new record was created.
func (s *Store) Upsert(m *meeting.Meeting) (bool, error) {
	if m == nil {
		return false, fmt.Errorf("upsert nil meeting")
	}
	if err := m.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := s.meetings[m.ID]
	if !ok {
		record := m.Clone()
		if record.DiscoveredAt.IsZero() {
			record.DiscoveredAt = now
		}
		record.UpdatedAt = now
		s.meetings[record.ID] = record
		return true, nil
	}

	incoming := m.Clone()
	incoming.UpdatedAt = now
	existing.Merge(incoming)
	return false, nil
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id string) (*meeting.Meeting, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

// Update replaces the stored record with the provided one. It is used by the
// pipeline after a stage mutates a working copy.
func (s *Store) Update(m *meeting.Meeting) error {
	if m == nil {
		return fmt.Errorf("update nil meeting")
	}
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[m.ID]; !ok {
		return fmt.Errorf("meeting %s not in collection", m.ID)
	}
	record := m.Clone()
	record.UpdatedAt = time.Now().UTC()
	s.meetings[m.ID] = record
	return nil
}

// List returns copies of all records matching the filter, ordered by date
// descending then id so output is stable between runs.
func (s *Store) List(filter Filter) []*meeting.Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]*meeting.Meeting, 0, len(s.meetings))
	for _, m := range s.meetings {
		if filter.Jurisdiction != "" && m.Jurisdiction != filter.Jurisdiction {
			continue
		}
		if filter.Source != "" && m.Source != filter.Source {
			continue
		}
		if filter.State != "" && m.State() != filter.State {
			continue
		}
		results = append(results, m.Clone())
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Date != results[j].Date {
			return results[i].Date > results[j].Date
		}
		return results[i].ID < results[j].ID
	})
	return results
}

// Unprocessed returns up to limit records that have not completed analysis,
// oldest date first so backlogs drain in order. A limit of zero or below
// returns all of them.
func (s *Store) Unprocessed(limit int) []*meeting.Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]*meeting.Meeting, 0)
	for _, m := range s.meetings {
		if m.Processed {
			continue
		}
		results = append(results, m.Clone())
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Date != results[j].Date {
			return results[i].Date < results[j].Date
		}
		return results[i].ID < results[j].ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Save writes the collection to disk, replacing the previous file only once
// the new contents are fully written.
func (s *Store) Save() error {
	s.mu.Lock()
	contents := fileFormat{
		Meetings: s.meetings,
		SavedAt:  time.Now().UTC(),
	}
	data, err := json.MarshalIndent(contents, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode meeting collection: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write meeting collection: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace meeting collection: %w", err)
	}
	return nil
}
