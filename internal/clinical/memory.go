package clinical

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/meridian-health/platform/internal/shared/errors"
	"github.com/meridian-health/platform/internal/shared/types"
)

// MemorySource is an in-memory event source used in tests and when the
// platform runs in limited mode without a database.
type MemorySource struct {
	mu     sync.RWMutex
	events map[types.ID]*Event
}

// NewMemorySource creates an empty in-memory event source
func NewMemorySource() *MemorySource {
	return &MemorySource{events: make(map[types.ID]*Event)}
}

// Create saves a new event
func (m *MemorySource) Create(ctx context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.events[e.ID]; exists {
		return errors.Conflict("clinical event already exists")
	}

	cp := *e
	m.events[e.ID] = &cp
	return nil
}

// Upsert inserts or replaces an event
func (m *MemorySource) Upsert(ctx context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *e
	m.events[e.ID] = &cp
	return nil
}

// Update replaces an existing event's fields
func (m *MemorySource) Update(ctx context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.events[e.ID]; !exists {
		return errors.NotFound("clinical event", e.ID.String())
	}

	cp := *e
	cp.UpdatedAt = time.Now().UTC()
	m.events[e.ID] = &cp
	return nil
}

// Cancel marks an active event as cancelled
func (m *MemorySource) Cancel(ctx context.Context, id types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.events[id]
	if !exists || e.Status != EventStatusActive {
		return errors.NotFound("clinical event", id.String())
	}

	e.Status = EventStatusCancelled
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// Get returns the active event by ID, or nil. Implements Source.
func (m *MemorySource) Get(ctx context.Context, id types.ID) (*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, exists := m.events[id]
	if !exists || e.Status != EventStatusActive {
		return nil, nil
	}

	cp := *e
	return &cp, nil
}

// ListUpcoming returns active events of the given kinds scheduled within
// the window from now. Implements Source.
func (m *MemorySource) ListUpcoming(ctx context.Context, kinds []EventKind, window time.Duration) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(kinds) == 0 {
		kinds = AllKinds()
	}
	wanted := make(map[EventKind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}

	now := time.Now().UTC()
	horizon := now.Add(window)

	var result []Event
	for _, e := range m.events {
		if e.Status != EventStatusActive || !wanted[e.Kind] {
			continue
		}
		if e.ScheduledAt.Before(now) || e.ScheduledAt.After(horizon) {
			continue
		}
		result = append(result, *e)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ScheduledAt.Before(result[j].ScheduledAt)
	})
	return result, nil
}

// List lists events with filters
func (m *MemorySource) List(ctx context.Context, filter ListEventsFilter) ([]Event, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Event
	for _, e := range m.events {
		if filter.Kind != nil && e.Kind != *filter.Kind {
			continue
		}
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		if filter.PatientID != nil && e.PatientID != *filter.PatientID {
			continue
		}
		if filter.Search != "" && !matchesSearch(e, filter.Search) {
			continue
		}
		matched = append(matched, *e)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ScheduledAt.Before(matched[j].ScheduledAt)
	})

	total := len(matched)

	offset := filter.Offset
	if offset > total {
		offset = total
	}
	matched = matched[offset:]

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, total, nil
}

func matchesSearch(e *Event, search string) bool {
	s := strings.ToLower(search)
	return strings.Contains(strings.ToLower(e.Title), s) ||
		strings.Contains(strings.ToLower(e.PatientName), s)
}
