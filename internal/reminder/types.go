// Package reminder derives future notification instants from clinical
// events, persists them durably, re-derives them as source data changes,
// and dispatches them on a timer across visual and voice channels.
package reminder

import (
	"fmt"
	"time"

	"github.com/meridian-health/platform/internal/clinical"
	"github.com/meridian-health/platform/internal/shared/types"
)

// Status is the delivery status of a reminder entry. It moves pending to
// sent or failed exactly once and never back.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Channel is the delivery channel hint assigned at build time
type Channel string

const (
	// ChannelVisual delivers a visual notice only
	ChannelVisual Channel = "visual"
	// ChannelVoice delivers a visual notice plus a spoken alert
	ChannelVoice Channel = "voice"
)

// Entry is one durable (event, offset) reminder awaiting dispatch
type Entry struct {
	ID            types.ID           `json:"id"`
	EventID       types.ID           `json:"event_id"`
	EventKind     clinical.EventKind `json:"event_kind"`
	ScheduledFor  time.Time          `json:"scheduled_for"`
	OffsetMinutes int                `json:"offset_minutes"`
	Channel       Channel            `json:"channel"`
	Status        Status             `json:"status"`
	SentAt        *time.Time         `json:"sent_at,omitempty"`
	VoicePlayed   bool               `json:"voice_played"`
	FailureReason string             `json:"failure_reason,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// EntryID derives the deterministic entry ID for an (event, offset) pair.
// Rebuilding an unchanged event therefore reproduces the same IDs, and a
// reused offset after a reschedule converges on the same row.
func EntryID(eventID types.ID, offsetMinutes int) types.ID {
	return types.NewDeterministicID("reminder-entry", fmt.Sprintf("%s#%d", eventID, offsetMinutes))
}

// Result is the recorded outcome of one delivery attempt
type Result struct {
	Status        Status
	FailureReason string
	VoicePlayed   bool
}
