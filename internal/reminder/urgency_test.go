package reminder

import (
	"testing"

	"github.com/meridian-health/platform/internal/clinical"
	"github.com/meridian-health/platform/internal/notify"
)

func TestUrgencyFor(t *testing.T) {
	tests := []struct {
		offset   int
		priority clinical.Priority
		want     notify.Urgency
	}{
		{10, clinical.PriorityRoutine, notify.UrgencyHigh},
		{15, clinical.PriorityRoutine, notify.UrgencyHigh},
		{30, clinical.PriorityRoutine, notify.UrgencyMedium},
		{60, clinical.PriorityRoutine, notify.UrgencyMedium},
		{90, clinical.PriorityRoutine, notify.UrgencyLow},
		{1440, clinical.PriorityRoutine, notify.UrgencyLow},
		// Urgent raises low to medium, leaves the rest alone
		{90, clinical.PriorityUrgent, notify.UrgencyMedium},
		{1440, clinical.PriorityUrgent, notify.UrgencyMedium},
		{30, clinical.PriorityUrgent, notify.UrgencyMedium},
		{10, clinical.PriorityUrgent, notify.UrgencyHigh},
		// Emergency forces high everywhere
		{1440, clinical.PriorityEmergency, notify.UrgencyHigh},
		{60, clinical.PriorityEmergency, notify.UrgencyHigh},
		{5, clinical.PriorityEmergency, notify.UrgencyHigh},
	}

	for _, tt := range tests {
		if got := UrgencyFor(tt.offset, tt.priority); got != tt.want {
			t.Errorf("UrgencyFor(%d, %s) = %s, want %s", tt.offset, tt.priority, got, tt.want)
		}
	}
}

func TestArtifactUrgency(t *testing.T) {
	tests := []struct {
		priority clinical.ArtifactPriority
		want     notify.Urgency
	}{
		{clinical.ArtifactRoutine, notify.UrgencyMedium},
		{clinical.ArtifactUrgent, notify.UrgencyHigh},
		{clinical.ArtifactStat, notify.UrgencyHigh},
	}

	for _, tt := range tests {
		if got := ArtifactUrgency(tt.priority); got != tt.want {
			t.Errorf("ArtifactUrgency(%s) = %s, want %s", tt.priority, got, tt.want)
		}
	}
}
