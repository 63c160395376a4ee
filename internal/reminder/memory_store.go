package reminder

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/meridian-health/platform/internal/shared/types"
)

// MemoryStore is an in-memory schedule store used in tests and when the
// platform runs in limited mode without a database. Status transitions are
// compare-and-set under the store mutex.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[types.ID]*Entry
}

// NewMemoryStore creates an empty in-memory schedule store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[types.ID]*Entry)}
}

func (s *MemoryStore) Upsert(ctx context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[e.ID]; ok {
		// Delivery state survives a re-upsert of the same (event, offset)
		existing.ScheduledFor = e.ScheduledFor
		existing.Channel = e.Channel
		existing.UpdatedAt = e.UpdatedAt
		return nil
	}

	cp := *e
	s.entries[e.ID] = &cp
	return nil
}

// ReplaceForEvent drops the event's pending entries and inserts the derived
// set. Entries already in a final status are kept for the audit window and
// never re-armed.
func (s *MemoryStore) ReplaceForEvent(ctx context.Context, eventID types.ID, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.entries {
		if e.EventID == eventID && e.Status == StatusPending {
			delete(s.entries, id)
		}
	}

	for i := range entries {
		if _, exists := s.entries[entries[i].ID]; exists {
			continue
		}
		cp := entries[i]
		s.entries[cp.ID] = &cp
	}
	return nil
}

func (s *MemoryStore) DueEntries(ctx context.Context, now time.Time, slack time.Duration) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	horizon := now.Add(slack)

	var due []Entry
	for _, e := range s.entries {
		if e.Status == StatusPending && !e.ScheduledFor.After(horizon) {
			due = append(due, *e)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].ScheduledFor.Before(due[j].ScheduledFor)
	})
	return due, nil
}

func (s *MemoryStore) MarkResult(ctx context.Context, id types.ID, result Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.Status != StatusPending {
		return nil
	}

	e.Status = result.Status
	e.VoicePlayed = result.VoicePlayed
	e.FailureReason = result.FailureReason
	e.UpdatedAt = time.Now().UTC()
	if result.Status == StatusSent {
		now := time.Now().UTC()
		e.SentAt = &now
	}
	return nil
}

func (s *MemoryStore) ListForEvent(ctx context.Context, eventID types.ID) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []Entry
	for _, e := range s.entries {
		if e.EventID == eventID {
			result = append(result, *e)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ScheduledFor.Before(result[j].ScheduledFor)
	})
	return result, nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []Entry
	for _, e := range s.entries {
		if filter.EventID != nil && e.EventID != *filter.EventID {
			continue
		}
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		result = append(result, *e)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ScheduledFor.After(result[j].ScheduledFor)
	})

	limit := 100
	if filter.Limit > 0 && filter.Limit <= 500 {
		limit = filter.Limit
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStore) DeleteForEvent(ctx context.Context, eventID types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.entries {
		if e.EventID == eventID {
			delete(s.entries, id)
		}
	}
	return nil
}

func (s *MemoryStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if e.Status == StatusPending {
			continue
		}

		reference := e.ScheduledFor
		if e.SentAt != nil {
			reference = *e.SentAt
		}

		if reference.Before(olderThan) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

// MemorySettings is an in-memory settings store
type MemorySettings struct {
	mu      sync.Mutex
	voiceOn bool
}

// NewMemorySettings creates in-memory settings with the given voice default
func NewMemorySettings(voiceDefault bool) *MemorySettings {
	return &MemorySettings{voiceOn: voiceDefault}
}

func (s *MemorySettings) VoiceEnabled(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voiceOn, nil
}

func (s *MemorySettings) SetVoiceEnabled(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voiceOn = enabled
	return nil
}
