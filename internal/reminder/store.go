package reminder

import (
	"context"
	"time"

	"github.com/meridian-health/platform/internal/shared/types"
)

// Store is the durable schedule store. Implementations serialize per-entry
// status mutations; cross-event transactions are not required. Operation
// failures are persistence I/O errors and are retryable, callers log and
// continue on the next tick.
type Store interface {
	// Upsert inserts or replaces an entry by ID. Re-upserting an
	// identical entry is observationally a no-op.
	Upsert(ctx context.Context, entry *Entry) error

	// ReplaceForEvent deletes the event's pending entries and inserts the
	// given set in one operation. Entries already sent or failed keep
	// their rows until cleanup and are never re-armed by the insert.
	ReplaceForEvent(ctx context.Context, eventID types.ID, entries []Entry) error

	// DueEntries returns pending entries with scheduledFor at or before
	// now plus the slack window that absorbs tick jitter.
	DueEntries(ctx context.Context, now time.Time, slack time.Duration) ([]Entry, error)

	// MarkResult transitions one pending entry to its final status. The
	// transition applies at most once; calls against a missing or already
	// final entry are harmless no-ops.
	MarkResult(ctx context.Context, id types.ID, result Result) error

	// ListForEvent returns all entries for the event ordered by
	// scheduledFor.
	ListForEvent(ctx context.Context, eventID types.ID) ([]Entry, error)

	// List returns entries matching the filter, most recent first
	List(ctx context.Context, filter ListFilter) ([]Entry, error)

	// DeleteForEvent removes all entries for the event
	DeleteForEvent(ctx context.Context, eventID types.ID) error

	// Cleanup removes sent and failed entries whose delivery instant is
	// older than the cutoff. Pending entries are never removed.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)
}

// ListFilter filters entry listings
type ListFilter struct {
	EventID *types.ID
	Status  *Status
	Limit   int
}

// Settings is the persisted operator configuration queried before any
// voice delivery.
type Settings interface {
	VoiceEnabled(ctx context.Context) (bool, error)
	SetVoiceEnabled(ctx context.Context, enabled bool) error
}
