package clinical

import (
	"time"

	"github.com/meridian-health/platform/internal/shared/errors"
	"github.com/meridian-health/platform/internal/shared/types"
)

// EventKind classifies a schedulable clinical occurrence
type EventKind string

const (
	KindSurgery           EventKind = "surgery"
	KindAppointment       EventKind = "appointment"
	KindTreatmentActivity EventKind = "treatment_activity"
)

// AllKinds returns every schedulable event kind
func AllKinds() []EventKind {
	return []EventKind{KindSurgery, KindAppointment, KindTreatmentActivity}
}

// Valid reports whether the kind is a known event kind
func (k EventKind) Valid() bool {
	switch k {
	case KindSurgery, KindAppointment, KindTreatmentActivity:
		return true
	}
	return false
}

// OffsetPolicy returns the reminder offsets for the kind, in minutes before
// the scheduled instant, ordered farthest-out first.
func (k EventKind) OffsetPolicy() []int {
	switch k {
	case KindSurgery:
		return []int{1440, 120, 60, 30, 15, 5}
	case KindAppointment:
		return []int{1440, 120, 30, 15}
	case KindTreatmentActivity:
		return []int{60, 30, 15}
	}
	return nil
}

// Priority is the clinical priority of an event
type Priority string

const (
	PriorityRoutine   Priority = "routine"
	PriorityUrgent    Priority = "urgent"
	PriorityEmergency Priority = "emergency"
)

// EventStatus is the lifecycle status of a clinical event
type EventStatus string

const (
	EventStatusActive    EventStatus = "active"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusCompleted EventStatus = "completed"
)

// Event is a denormalized projection of a schedulable clinical occurrence.
// It is produced fresh on every read; the reminder engine never mutates it.
type Event struct {
	ID   types.ID  `json:"id"`
	Kind EventKind `json:"kind"`

	Title string `json:"title"`

	// Patient denormalization
	PatientID   types.ID  `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	PatientMRN  types.MRN `json:"patient_mrn,omitempty"`

	// Hospital denormalization
	HospitalID   types.ID `json:"hospital_id"`
	HospitalName string   `json:"hospital_name"`

	ScheduledAt time.Time   `json:"scheduled_at"`
	Location    string      `json:"location,omitempty"`
	Priority    Priority    `json:"priority"`
	Status      EventStatus `json:"status"`

	// SourceSystem identifies where the event originated (empty for
	// events created through the platform API)
	SourceSystem string `json:"source_system,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEvent creates a new active clinical event
func NewEvent(kind EventKind, title string, patientID types.ID, patientName string, hospitalID types.ID, hospitalName string, scheduledAt time.Time, priority Priority) (*Event, error) {
	e := &Event{
		ID:           types.NewID(),
		Kind:         kind,
		Title:        title,
		PatientID:    patientID,
		PatientName:  patientName,
		HospitalID:   hospitalID,
		HospitalName: hospitalName,
		ScheduledAt:  scheduledAt,
		Priority:     priority,
		Status:       EventStatusActive,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks the event's required fields
func (e *Event) Validate() error {
	details := map[string]string{}

	if !e.Kind.Valid() {
		details["kind"] = "kind must be surgery, appointment or treatment_activity"
	}
	if e.Title == "" {
		details["title"] = "title is required"
	}
	if e.PatientID.IsZero() {
		details["patient_id"] = "patient_id is required"
	}
	if e.HospitalID.IsZero() {
		details["hospital_id"] = "hospital_id is required"
	}
	if e.ScheduledAt.IsZero() {
		details["scheduled_at"] = "scheduled_at is required"
	}
	switch e.Priority {
	case PriorityRoutine, PriorityUrgent, PriorityEmergency:
	case "":
		e.Priority = PriorityRoutine
	default:
		details["priority"] = "priority must be routine, urgent or emergency"
	}

	if len(details) > 0 {
		return errors.Validation("invalid clinical event", details)
	}
	return nil
}

// ArtifactKind classifies a clinical artifact that triggers an immediate
// notification at creation time.
type ArtifactKind string

const (
	ArtifactInvestigation ArtifactKind = "investigation"
	ArtifactLabOrder      ArtifactKind = "lab_order"
	ArtifactPrescription  ArtifactKind = "prescription"
	ArtifactTreatmentPlan ArtifactKind = "treatment_plan"
)

// Valid reports whether the kind is a known artifact kind
func (k ArtifactKind) Valid() bool {
	switch k {
	case ArtifactInvestigation, ArtifactLabOrder, ArtifactPrescription, ArtifactTreatmentPlan:
		return true
	}
	return false
}

// ArtifactPriority is the ordering priority on a clinical artifact
type ArtifactPriority string

const (
	ArtifactRoutine ArtifactPriority = "routine"
	ArtifactUrgent  ArtifactPriority = "urgent"
	ArtifactStat    ArtifactPriority = "stat"
)

// Artifact is the projection of a newly created clinical artifact handed to
// the immediate notification path. It is not persisted by this subsystem.
type Artifact struct {
	ID          types.ID         `json:"id"`
	Kind        ArtifactKind     `json:"kind"`
	Title       string           `json:"title"`
	PatientID   types.ID         `json:"patient_id"`
	PatientName string           `json:"patient_name"`
	Priority    ArtifactPriority `json:"priority"`
	CreatedAt   time.Time        `json:"created_at"`
}
