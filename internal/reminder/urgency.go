package reminder

import (
	"github.com/meridian-health/platform/internal/clinical"
	"github.com/meridian-health/platform/internal/notify"
)

// UrgencyFor maps an entry's offset and the event's clinical priority to a
// delivery urgency. Base urgency comes from proximity: high within 15
// minutes, medium within 60. Emergency priority forces high; urgent
// priority raises low to medium.
func UrgencyFor(offsetMinutes int, priority clinical.Priority) notify.Urgency {
	if priority == clinical.PriorityEmergency {
		return notify.UrgencyHigh
	}

	var base notify.Urgency
	switch {
	case offsetMinutes <= 15:
		base = notify.UrgencyHigh
	case offsetMinutes <= 60:
		base = notify.UrgencyMedium
	default:
		base = notify.UrgencyLow
	}

	if priority == clinical.PriorityUrgent && base == notify.UrgencyLow {
		return notify.UrgencyMedium
	}
	return base
}

// ArtifactUrgency maps a clinical artifact's own priority to a delivery
// urgency for the immediate notification path.
func ArtifactUrgency(priority clinical.ArtifactPriority) notify.Urgency {
	switch priority {
	case clinical.ArtifactUrgent, clinical.ArtifactStat:
		return notify.UrgencyHigh
	default:
		return notify.UrgencyMedium
	}
}
