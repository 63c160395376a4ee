package reminder

import (
	"context"
	"time"

	"github.com/meridian-health/platform/internal/clinical"
	"github.com/meridian-health/platform/internal/shared/metrics"
	"github.com/meridian-health/platform/internal/shared/types"
	"github.com/rs/zerolog"
)

// Rebuilder re-derives reminder schedules from the clinical event source.
// It runs on a slow interval and is also invoked synchronously when a
// single event changes.
type Rebuilder struct {
	store     Store
	source    clinical.Source
	lookahead time.Duration
	retention time.Duration
	logger    zerolog.Logger
}

// NewRebuilder creates a rebuilder over the given lookahead and retention
// windows.
func NewRebuilder(store Store, source clinical.Source, lookahead, retention time.Duration, logger zerolog.Logger) *Rebuilder {
	return &Rebuilder{
		store:     store,
		source:    source,
		lookahead: lookahead,
		retention: retention,
		logger:    logger,
	}
}

// Rebuild re-pulls all upcoming events and replaces each one's schedule,
// then purges entries past the retention window. Per-event failures are
// logged and skipped; the pass continues.
func (r *Rebuilder) Rebuild(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.RecordRebuild(time.Since(start))
	}()

	events, err := r.source.ListUpcoming(ctx, nil, r.lookahead)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for i := range events {
		if err := r.rebuildEvent(ctx, &events[i], now); err != nil {
			metrics.RecordStoreError("replace_for_event")
			r.logger.Warn().Err(err).
				Str("event_id", events[i].ID.String()).
				Msg("failed to rebuild reminder schedule")
		}
	}

	removed, err := r.store.Cleanup(ctx, now.Add(-r.retention))
	if err != nil {
		metrics.RecordStoreError("cleanup")
		r.logger.Warn().Err(err).Msg("reminder cleanup failed")
	} else if removed > 0 {
		metrics.RecordCleanup(removed)
		r.logger.Debug().Int("removed", removed).Msg("purged completed reminders")
	}

	r.logger.Debug().
		Int("events", len(events)).
		Dur("took", time.Since(start)).
		Msg("reminder rebuild finished")

	return nil
}

// rebuildEvent replaces one event's schedule. When the live set already
// matches the derived set the replace is skipped, which keeps the periodic
// pass cheap for unchanged events.
func (r *Rebuilder) rebuildEvent(ctx context.Context, event *clinical.Event, now time.Time) error {
	entries := BuildSchedule(event, now)

	existing, err := r.store.ListForEvent(ctx, event.ID)
	if err == nil && scheduleUnchanged(existing, entries) {
		return nil
	}

	if err := r.store.ReplaceForEvent(ctx, event.ID, entries); err != nil {
		return err
	}

	metrics.RecordEntriesBuilt(string(event.Kind), len(entries))
	return nil
}

// EventUpserted rebuilds the schedule for one created or changed event.
// Implements the clinical schedule hooks.
func (r *Rebuilder) EventUpserted(ctx context.Context, event *clinical.Event) error {
	return r.rebuildEvent(ctx, event, time.Now().UTC())
}

// EventCancelled drops all entries for a cancelled event. No rebuild.
func (r *Rebuilder) EventCancelled(ctx context.Context, eventID types.ID) error {
	return r.store.DeleteForEvent(ctx, eventID)
}

// scheduleUnchanged reports whether the live pending set already equals the
// derived set. Entries that have completed do not block the short-circuit;
// only a difference in what remains deliverable forces a replace.
func scheduleUnchanged(existing []Entry, derived []Entry) bool {
	pending := make(map[types.ID]time.Time)
	for _, e := range existing {
		if e.Status == StatusPending {
			pending[e.ID] = e.ScheduledFor
		}
	}

	if len(pending) != len(derived) {
		return false
	}

	for _, e := range derived {
		at, ok := pending[e.ID]
		if !ok || !at.Equal(e.ScheduledFor) {
			return false
		}
	}
	return true
}
