package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meridian-health/platform/internal/clinical"
	"github.com/meridian-health/platform/internal/notify"
	"github.com/meridian-health/platform/internal/shared/types"
	"github.com/rs/zerolog"
)

type dispatchFixture struct {
	store    *MemoryStore
	source   *clinical.MemorySource
	notifier *notify.Mock
	settings *MemorySettings
	disp     *Dispatcher
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()

	f := &dispatchFixture{
		store:    NewMemoryStore(),
		source:   clinical.NewMemorySource(),
		notifier: notify.NewMock(),
		settings: NewMemorySettings(true),
	}
	f.disp = NewDispatcher(f.store, f.source, f.notifier, NewTextFormatter(), f.settings, time.Minute, zerolog.Nop())
	return f
}

// addEvent registers an active event scheduled shortly in the future
func (f *dispatchFixture) addEvent(t *testing.T, priority clinical.Priority) *clinical.Event {
	t.Helper()

	event := testEvent(clinical.KindAppointment, time.Now().UTC().Add(14*time.Minute))
	event.Priority = priority
	if err := f.source.Create(context.Background(), event); err != nil {
		t.Fatalf("failed to create event: %v", err)
	}
	return event
}

// addDue stores a pending entry already past its instant
func (f *dispatchFixture) addDue(t *testing.T, eventID types.ID, offset int, channel Channel) Entry {
	t.Helper()

	entry := pendingEntry(eventID, offset, time.Now().UTC().Add(-time.Minute))
	entry.Channel = channel
	if err := f.store.Upsert(context.Background(), &entry); err != nil {
		t.Fatalf("failed to store entry: %v", err)
	}
	return entry
}

func (f *dispatchFixture) entryStatus(t *testing.T, id types.ID) Entry {
	t.Helper()

	entries, err := f.store.List(context.Background(), ListFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, e := range entries {
		if e.ID == id {
			return e
		}
	}
	t.Fatalf("entry %s not found", id)
	return Entry{}
}

func TestTickDispatchesDueEntry(t *testing.T) {
	f := newDispatchFixture(t)
	event := f.addEvent(t, clinical.PriorityRoutine)
	entry := f.addDue(t, event.ID, 15, ChannelVisual)

	if err := f.disp.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	if f.notifier.VisualCount() != 1 {
		t.Fatalf("expected 1 visual delivery, got %d", f.notifier.VisualCount())
	}
	if f.notifier.Visuals[0].Urgency != notify.UrgencyHigh {
		t.Errorf("offset 15 should deliver at high urgency, got %s", f.notifier.Visuals[0].Urgency)
	}

	got := f.entryStatus(t, entry.ID)
	if got.Status != StatusSent {
		t.Errorf("expected sent, got %s", got.Status)
	}
}

func TestTickVoiceChannel(t *testing.T) {
	f := newDispatchFixture(t)
	event := f.addEvent(t, clinical.PriorityRoutine)
	entry := f.addDue(t, event.ID, 15, ChannelVoice)

	if err := f.disp.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	if f.notifier.SpeakCount() != 1 {
		t.Fatalf("expected 1 voice delivery, got %d", f.notifier.SpeakCount())
	}
	if len(f.notifier.Tones) != 1 {
		t.Errorf("expected tone before speech, got %d tones", len(f.notifier.Tones))
	}

	got := f.entryStatus(t, entry.ID)
	if !got.VoicePlayed {
		t.Error("voice played flag not recorded")
	}
}

func TestTickVoiceDisabled(t *testing.T) {
	f := newDispatchFixture(t)
	f.settings.SetVoiceEnabled(context.Background(), false)

	event := f.addEvent(t, clinical.PriorityRoutine)
	entry := f.addDue(t, event.ID, 15, ChannelVoice)

	if err := f.disp.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	if f.notifier.SpeakCount() != 0 {
		t.Errorf("voice delivered with toggle off")
	}
	if f.notifier.VisualCount() != 1 {
		t.Errorf("visual delivery should not depend on the voice toggle")
	}

	got := f.entryStatus(t, entry.ID)
	if got.Status != StatusSent || got.VoicePlayed {
		t.Errorf("expected sent without voice, got %s voice=%v", got.Status, got.VoicePlayed)
	}
}

// TestTickOrphanedEntry closes entries whose event disappeared without
// delivering anything.
func TestTickOrphanedEntry(t *testing.T) {
	f := newDispatchFixture(t)
	entry := f.addDue(t, types.NewID(), 15, ChannelVisual)

	if err := f.disp.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	if f.notifier.VisualCount() != 0 {
		t.Error("orphaned entry should not be delivered")
	}

	got := f.entryStatus(t, entry.ID)
	if got.Status != StatusSent {
		t.Errorf("orphaned entry should be closed as sent, got %s", got.Status)
	}
}

func TestTickDeliveryFailureIsTerminal(t *testing.T) {
	f := newDispatchFixture(t)
	f.notifier.VisualErr = errors.New("permission denied")

	event := f.addEvent(t, clinical.PriorityRoutine)
	entry := f.addDue(t, event.ID, 15, ChannelVisual)

	if err := f.disp.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	got := f.entryStatus(t, entry.ID)
	if got.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if got.FailureReason != "permission denied" {
		t.Errorf("failure reason not recorded: %q", got.FailureReason)
	}

	// The failure is terminal: a later tick must not retry
	f.notifier.VisualErr = nil
	if err := f.disp.Tick(context.Background()); err != nil {
		t.Fatalf("second tick failed: %v", err)
	}
	if f.notifier.VisualCount() != 0 {
		t.Error("failed entry was retried")
	}
}

// TestTickNoDoubleDelivery runs two ticks over the same due entry
func TestTickNoDoubleDelivery(t *testing.T) {
	f := newDispatchFixture(t)
	event := f.addEvent(t, clinical.PriorityRoutine)
	f.addDue(t, event.ID, 15, ChannelVisual)

	for i := 0; i < 2; i++ {
		if err := f.disp.Tick(context.Background()); err != nil {
			t.Fatalf("tick %d failed: %v", i, err)
		}
	}

	if f.notifier.VisualCount() != 1 {
		t.Errorf("entry delivered %d times", f.notifier.VisualCount())
	}
}

// TestTickFailureIsolation checks one entry's failure does not abort the
// remaining entries in the same tick.
func TestTickFailureIsolation(t *testing.T) {
	f := newDispatchFixture(t)
	f.notifier.VisualErr = errors.New("backend down")

	event := f.addEvent(t, clinical.PriorityRoutine)
	a := f.addDue(t, event.ID, 30, ChannelVisual)
	b := f.addDue(t, event.ID, 15, ChannelVisual)

	if err := f.disp.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	for _, id := range []types.ID{a.ID, b.ID} {
		if got := f.entryStatus(t, id); got.Status != StatusFailed {
			t.Errorf("entry %s: expected failed, got %s", id, got.Status)
		}
	}
}

// TestTickUrgentPriorityRaisesUrgency checks the priority escalation path
// through a real dispatch.
func TestTickUrgentPriorityRaisesUrgency(t *testing.T) {
	f := newDispatchFixture(t)
	event := testEvent(clinical.KindAppointment, time.Now().UTC().Add(25*time.Hour))
	event.Priority = clinical.PriorityUrgent
	if err := f.source.Create(context.Background(), event); err != nil {
		t.Fatalf("failed to create event: %v", err)
	}
	f.addDue(t, event.ID, 1440, ChannelVisual)

	if err := f.disp.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	if f.notifier.Visuals[0].Urgency != notify.UrgencyMedium {
		t.Errorf("urgent priority should raise low to medium, got %s", f.notifier.Visuals[0].Urgency)
	}
}
