package clinical

import (
	"testing"
	"time"

	"github.com/meridian-health/platform/internal/shared/errors"
	"github.com/meridian-health/platform/internal/shared/types"
)

func TestNewEvent(t *testing.T) {
	patientID := types.NewID()
	hospitalID := types.NewID()
	at := time.Now().Add(24 * time.Hour)

	event, err := NewEvent(KindSurgery, "Appendectomy", patientID, "Ana Petrov", hospitalID, "Meridian General", at, "")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if event.ID.IsZero() {
		t.Error("expected non-zero ID")
	}
	if event.Status != EventStatusActive {
		t.Errorf("expected active status, got %s", event.Status)
	}
	if event.Priority != PriorityRoutine {
		t.Errorf("empty priority should default to routine, got %s", event.Priority)
	}
}

func TestEventValidation(t *testing.T) {
	patientID := types.NewID()
	hospitalID := types.NewID()
	at := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		mutate func(*Event)
		field  string
	}{
		{"invalid kind", func(e *Event) { e.Kind = "ward_round" }, "kind"},
		{"missing title", func(e *Event) { e.Title = "" }, "title"},
		{"missing patient", func(e *Event) { e.PatientID = "" }, "patient_id"},
		{"missing hospital", func(e *Event) { e.HospitalID = "" }, "hospital_id"},
		{"missing instant", func(e *Event) { e.ScheduledAt = time.Time{} }, "scheduled_at"},
		{"invalid priority", func(e *Event) { e.Priority = "critical" }, "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := &Event{
				ID:          types.NewID(),
				Kind:        KindAppointment,
				Title:       "Checkup",
				PatientID:   patientID,
				HospitalID:  hospitalID,
				ScheduledAt: at,
				Priority:    PriorityRoutine,
				Status:      EventStatusActive,
			}
			tt.mutate(event)

			err := event.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}

			appErr, ok := err.(*errors.AppError)
			if !ok {
				t.Fatalf("expected AppError, got %T", err)
			}
			if _, found := appErr.Details[tt.field]; !found {
				t.Errorf("expected detail for field %s, got %v", tt.field, appErr.Details)
			}
		})
	}
}

func TestOffsetPolicies(t *testing.T) {
	tests := []struct {
		kind EventKind
		want []int
	}{
		{KindSurgery, []int{1440, 120, 60, 30, 15, 5}},
		{KindAppointment, []int{1440, 120, 30, 15}},
		{KindTreatmentActivity, []int{60, 30, 15}},
	}

	for _, tt := range tests {
		got := tt.kind.OffsetPolicy()
		if len(got) != len(tt.want) {
			t.Fatalf("%s: expected %d offsets, got %d", tt.kind, len(tt.want), len(got))
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s offset %d: expected %d, got %d", tt.kind, i, tt.want[i], got[i])
			}
		}
	}

	if EventKind("ward_round").OffsetPolicy() != nil {
		t.Error("unknown kind should have no offset policy")
	}
}

func TestArtifactKindValid(t *testing.T) {
	valid := []ArtifactKind{ArtifactInvestigation, ArtifactLabOrder, ArtifactPrescription, ArtifactTreatmentPlan}
	for _, k := range valid {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if ArtifactKind("discharge_summary").Valid() {
		t.Error("unknown artifact kind should be invalid")
	}
}
