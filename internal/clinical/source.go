package clinical

import (
	"context"
	"time"

	"github.com/meridian-health/platform/internal/shared/types"
)

// Source provides read access to upcoming clinical events. The reminder
// engine depends only on this interface; the postgres repository and the
// in-memory source both satisfy it.
type Source interface {
	// ListUpcoming returns active events of the given kinds scheduled
	// within the window from now. A nil kinds slice means all kinds.
	ListUpcoming(ctx context.Context, kinds []EventKind, window time.Duration) ([]Event, error)

	// Get returns the event by ID, or nil if it no longer exists or is
	// no longer active.
	Get(ctx context.Context, id types.ID) (*Event, error)
}

// ScheduleHooks is implemented by the reminder engine and invoked
// synchronously when a tracked event is created, materially changed, or
// cancelled by its owning module.
type ScheduleHooks interface {
	// EventUpserted rebuilds the reminder schedule for one event
	EventUpserted(ctx context.Context, event *Event) error

	// EventCancelled drops all reminder entries for one event
	EventCancelled(ctx context.Context, eventID types.ID) error
}

// ImmediateNotifier is implemented by the reminder engine's immediate path
// and invoked exactly once per artifact creation.
type ImmediateNotifier interface {
	NotifyImmediate(ctx context.Context, artifact *Artifact) error
}
