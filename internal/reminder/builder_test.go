package reminder

import (
	"testing"
	"time"

	"github.com/meridian-health/platform/internal/clinical"
	"github.com/meridian-health/platform/internal/shared/types"
)

func testEvent(kind clinical.EventKind, scheduledAt time.Time) *clinical.Event {
	return &clinical.Event{
		ID:           types.NewID(),
		Kind:         kind,
		Title:        "Test event",
		PatientID:    types.NewID(),
		PatientName:  "Ana Petrov",
		HospitalID:   types.NewID(),
		HospitalName: "Meridian General",
		ScheduledAt:  scheduledAt,
		Priority:     clinical.PriorityRoutine,
		Status:       clinical.EventStatusActive,
	}
}

// TestBuildScheduleAppointment builds the full schedule for an appointment
// two days out and checks every derived instant.
func TestBuildScheduleAppointment(t *testing.T) {
	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	scheduledAt := day.Add(48*time.Hour + time.Hour) // D+2d 10:00

	event := testEvent(clinical.KindAppointment, scheduledAt)
	entries := BuildSchedule(event, day)

	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	expected := []time.Time{
		scheduledAt.Add(-1440 * time.Minute), // D+1d 10:00
		scheduledAt.Add(-120 * time.Minute),  // D+2d 08:00
		scheduledAt.Add(-30 * time.Minute),   // D+2d 09:30
		scheduledAt.Add(-15 * time.Minute),   // D+2d 09:45
	}

	for i, want := range expected {
		if !entries[i].ScheduledFor.Equal(want) {
			t.Errorf("entry %d: expected %v, got %v", i, want, entries[i].ScheduledFor)
		}
		if entries[i].Status != StatusPending {
			t.Errorf("entry %d: expected pending, got %s", i, entries[i].Status)
		}
		if entries[i].EventID != event.ID {
			t.Errorf("entry %d: event ID mismatch", i)
		}
	}
}

// TestBuildScheduleDropsPastOffsets rebuilds the same appointment one hour
// before it starts; only the two near offsets remain buildable.
func TestBuildScheduleDropsPastOffsets(t *testing.T) {
	scheduledAt := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	now := scheduledAt.Add(-time.Hour) // D+2d 09:00

	event := testEvent(clinical.KindAppointment, scheduledAt)
	entries := BuildSchedule(event, now)

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	if entries[0].OffsetMinutes != 30 || entries[1].OffsetMinutes != 15 {
		t.Errorf("expected offsets 30 and 15, got %d and %d",
			entries[0].OffsetMinutes, entries[1].OffsetMinutes)
	}
}

// TestBuildSchedulePastEvent yields no entries and no error
func TestBuildSchedulePastEvent(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	event := testEvent(clinical.KindSurgery, now.Add(-time.Hour))

	if entries := BuildSchedule(event, now); len(entries) != 0 {
		t.Errorf("expected no entries for past event, got %d", len(entries))
	}
}

// TestBuildScheduleNeverPast checks the builder invariant across all kinds
// and a range of build instants.
func TestBuildScheduleNeverPast(t *testing.T) {
	scheduledAt := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	for _, kind := range clinical.AllKinds() {
		for hours := -48; hours <= 48; hours += 3 {
			now := scheduledAt.Add(time.Duration(hours) * time.Hour)
			event := testEvent(kind, scheduledAt)

			for _, e := range BuildSchedule(event, now) {
				if !e.ScheduledFor.After(now) {
					t.Errorf("kind %s, now %v: entry scheduled at %v is not in the future",
						kind, now, e.ScheduledFor)
				}
			}
		}
	}
}

// TestChannelHints checks the voice escalation thresholds per kind
func TestChannelHints(t *testing.T) {
	tests := []struct {
		kind   clinical.EventKind
		offset int
		want   Channel
	}{
		{clinical.KindSurgery, 1440, ChannelVisual},
		{clinical.KindSurgery, 120, ChannelVoice},
		{clinical.KindSurgery, 5, ChannelVoice},
		{clinical.KindAppointment, 1440, ChannelVisual},
		{clinical.KindAppointment, 120, ChannelVoice},
		{clinical.KindTreatmentActivity, 60, ChannelVisual},
		{clinical.KindTreatmentActivity, 30, ChannelVoice},
		{clinical.KindTreatmentActivity, 15, ChannelVoice},
	}

	for _, tt := range tests {
		if got := channelFor(tt.kind, tt.offset); got != tt.want {
			t.Errorf("channelFor(%s, %d) = %s, want %s", tt.kind, tt.offset, got, tt.want)
		}
	}
}

// TestEntryIDDeterministic checks that rebuilding reproduces the same IDs
func TestEntryIDDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	event := testEvent(clinical.KindSurgery, now.Add(24*time.Hour))

	first := BuildSchedule(event, now)
	second := BuildSchedule(event, now)

	if len(first) != len(second) {
		t.Fatalf("entry counts differ: %d vs %d", len(first), len(second))
	}

	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("entry %d: IDs differ across builds", i)
		}
	}

	other := testEvent(clinical.KindSurgery, now.Add(24*time.Hour))
	if EntryID(event.ID, 30) == EntryID(other.ID, 30) {
		t.Error("different events must produce different entry IDs")
	}
	if EntryID(event.ID, 30) == EntryID(event.ID, 15) {
		t.Error("different offsets must produce different entry IDs")
	}
}
