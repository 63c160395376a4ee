package reminder

import (
	"time"

	"github.com/meridian-health/platform/internal/clinical"
)

// BuildSchedule derives the reminder entries for one event at build time.
// Offsets whose instant has already passed are dropped, never created as
// missed. An event scheduled in the past yields an empty set. Pure
// function, no side effects.
func BuildSchedule(event *clinical.Event, now time.Time) []Entry {
	var entries []Entry

	for _, offset := range event.Kind.OffsetPolicy() {
		scheduledFor := event.ScheduledAt.Add(-time.Duration(offset) * time.Minute)
		if !scheduledFor.After(now) {
			continue
		}

		entries = append(entries, Entry{
			ID:            EntryID(event.ID, offset),
			EventID:       event.ID,
			EventKind:     event.Kind,
			ScheduledFor:  scheduledFor,
			OffsetMinutes: offset,
			Channel:       channelFor(event.Kind, offset),
			Status:        StatusPending,
			CreatedAt:     now.UTC(),
			UpdatedAt:     now.UTC(),
		})
	}

	return entries
}

// channelFor assigns the delivery channel hint. Surgeries and appointments
// escalate to voice within two hours of the event; treatment activities
// only within thirty minutes.
func channelFor(kind clinical.EventKind, offsetMinutes int) Channel {
	threshold := 120
	if kind == clinical.KindTreatmentActivity {
		threshold = 30
	}

	if offsetMinutes <= threshold {
		return ChannelVoice
	}
	return ChannelVisual
}
