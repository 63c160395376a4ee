package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/meridian-health/platform/internal/clinical"
	"github.com/meridian-health/platform/internal/shared/types"
)

func pendingEntry(eventID types.ID, offset int, scheduledFor time.Time) Entry {
	return Entry{
		ID:            EntryID(eventID, offset),
		EventID:       eventID,
		EventKind:     clinical.KindAppointment,
		ScheduledFor:  scheduledFor,
		OffsetMinutes: offset,
		Channel:       ChannelVisual,
		Status:        StatusPending,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
}

func TestUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	eventID := types.NewID()

	entry := pendingEntry(eventID, 30, time.Now().Add(time.Hour))

	if err := store.Upsert(ctx, &entry); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, &entry); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	entries, err := store.ListForEvent(ctx, eventID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after double upsert, got %d", len(entries))
	}
}

func TestReplaceForEvent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	eventID := types.NewID()
	base := time.Now().UTC().Add(2 * time.Hour)

	old := []Entry{
		pendingEntry(eventID, 120, base.Add(-120*time.Minute)),
		pendingEntry(eventID, 30, base.Add(-30*time.Minute)),
	}
	if err := store.ReplaceForEvent(ctx, eventID, old); err != nil {
		t.Fatalf("initial replace failed: %v", err)
	}

	// Reschedule: offset 120 disappears, 30 and 15 remain
	rescheduled := base.Add(time.Hour)
	next := []Entry{
		pendingEntry(eventID, 30, rescheduled.Add(-30*time.Minute)),
		pendingEntry(eventID, 15, rescheduled.Add(-15*time.Minute)),
	}
	if err := store.ReplaceForEvent(ctx, eventID, next); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	entries, _ := store.ListForEvent(ctx, eventID)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after replace, got %d", len(entries))
	}
	for _, e := range entries {
		if e.OffsetMinutes == 120 {
			t.Error("stale offset survived replace")
		}
		if e.OffsetMinutes == 30 && !e.ScheduledFor.Equal(rescheduled.Add(-30*time.Minute)) {
			t.Error("reused offset did not pick up the new instant")
		}
	}
}

// TestReplaceNeverReArms checks that a delivered entry keeps its final
// status through a rebuild that derives the same offset again.
func TestReplaceNeverReArms(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	eventID := types.NewID()
	at := time.Now().UTC().Add(10 * time.Minute)

	sent := pendingEntry(eventID, 15, at)
	if err := store.Upsert(ctx, &sent); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := store.MarkResult(ctx, sent.ID, Result{Status: StatusSent}); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	if err := store.ReplaceForEvent(ctx, eventID, []Entry{pendingEntry(eventID, 15, at)}); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	entries, _ := store.ListForEvent(ctx, eventID)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Status != StatusSent {
		t.Errorf("delivered entry was re-armed to %s", entries[0].Status)
	}
}

func TestDueEntriesSlack(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	eventID := types.NewID()
	now := time.Now().UTC()

	overdue := pendingEntry(eventID, 60, now.Add(-time.Minute))
	soon := pendingEntry(eventID, 30, now.Add(30*time.Second))
	later := pendingEntry(eventID, 15, now.Add(5*time.Minute))

	for _, e := range []Entry{overdue, soon, later} {
		cp := e
		if err := store.Upsert(ctx, &cp); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	due, err := store.DueEntries(ctx, now, time.Minute)
	if err != nil {
		t.Fatalf("due query failed: %v", err)
	}

	if len(due) != 2 {
		t.Fatalf("expected 2 due entries, got %d", len(due))
	}
	if due[0].ID != overdue.ID || due[1].ID != soon.ID {
		t.Error("due entries not ordered by scheduled instant")
	}
}

func TestMarkResultMonotonic(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	eventID := types.NewID()

	entry := pendingEntry(eventID, 30, time.Now().UTC())
	if err := store.Upsert(ctx, &entry); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if err := store.MarkResult(ctx, entry.ID, Result{Status: StatusSent, VoicePlayed: true}); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	// A second transition must not apply
	if err := store.MarkResult(ctx, entry.ID, Result{Status: StatusFailed, FailureReason: "late"}); err != nil {
		t.Fatalf("second mark errored: %v", err)
	}

	entries, _ := store.ListForEvent(ctx, eventID)
	if entries[0].Status != StatusSent {
		t.Errorf("status changed after final transition: %s", entries[0].Status)
	}
	if !entries[0].VoicePlayed {
		t.Error("voice played flag lost")
	}
	if entries[0].SentAt == nil {
		t.Error("sent timestamp not recorded")
	}

	// Marking a missing entry is a harmless no-op
	if err := store.MarkResult(ctx, types.NewID(), Result{Status: StatusSent}); err != nil {
		t.Errorf("mark on missing entry errored: %v", err)
	}
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	eventID := types.NewID()
	now := time.Now().UTC()

	oldSent := pendingEntry(eventID, 120, now.Add(-48*time.Hour))
	oldPending := pendingEntry(eventID, 60, now.Add(-48*time.Hour))
	freshSent := pendingEntry(eventID, 30, now.Add(-time.Hour))

	for _, e := range []Entry{oldSent, oldPending, freshSent} {
		cp := e
		if err := store.Upsert(ctx, &cp); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}
	store.MarkResult(ctx, oldSent.ID, Result{Status: StatusSent})
	store.MarkResult(ctx, freshSent.ID, Result{Status: StatusSent})

	// Force the old entry's delivery timestamp into the past
	store.mu.Lock()
	past := now.Add(-36 * time.Hour)
	store.entries[oldSent.ID].SentAt = &past
	store.mu.Unlock()

	removed, err := store.Cleanup(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	entries, _ := store.ListForEvent(ctx, eventID)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after cleanup, got %d", len(entries))
	}
	for _, e := range entries {
		if e.ID == oldSent.ID {
			t.Error("old delivered entry survived cleanup")
		}
		if e.ID == oldPending.ID && e.Status != StatusPending {
			t.Error("pending entry touched by cleanup")
		}
	}
}

func TestDeleteForEvent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	eventID := types.NewID()
	other := types.NewID()

	a := pendingEntry(eventID, 30, time.Now().Add(time.Hour))
	b := pendingEntry(eventID, 15, time.Now().Add(time.Hour))
	c := pendingEntry(other, 30, time.Now().Add(time.Hour))
	for _, e := range []Entry{a, b, c} {
		cp := e
		store.Upsert(ctx, &cp)
	}

	if err := store.DeleteForEvent(ctx, eventID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	gone, _ := store.ListForEvent(ctx, eventID)
	if len(gone) != 0 {
		t.Errorf("expected 0 entries for cancelled event, got %d", len(gone))
	}

	kept, _ := store.ListForEvent(ctx, other)
	if len(kept) != 1 {
		t.Errorf("unrelated event lost entries: %d", len(kept))
	}
}
