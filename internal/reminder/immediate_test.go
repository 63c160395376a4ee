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

func testArtifact(kind clinical.ArtifactKind, priority clinical.ArtifactPriority) *clinical.Artifact {
	return &clinical.Artifact{
		ID:          types.NewID(),
		Kind:        kind,
		Title:       "CBC panel",
		PatientID:   types.NewID(),
		PatientName: "Ana Petrov",
		Priority:    priority,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestNotifyImmediateRoutine(t *testing.T) {
	mock := notify.NewMock()
	imm := NewImmediate(mock, NewTextFormatter(), NewMemorySettings(true), zerolog.Nop())

	artifact := testArtifact(clinical.ArtifactLabOrder, clinical.ArtifactRoutine)
	if err := imm.NotifyImmediate(context.Background(), artifact); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	if mock.VisualCount() != 1 {
		t.Fatalf("expected 1 visual delivery, got %d", mock.VisualCount())
	}
	if mock.Visuals[0].Urgency != notify.UrgencyMedium {
		t.Errorf("routine artifact should deliver at medium, got %s", mock.Visuals[0].Urgency)
	}
	if mock.SpeakCount() != 0 {
		t.Error("routine artifact should not use the voice channel")
	}
}

func TestNotifyImmediateStat(t *testing.T) {
	mock := notify.NewMock()
	imm := NewImmediate(mock, NewTextFormatter(), NewMemorySettings(true), zerolog.Nop())

	artifact := testArtifact(clinical.ArtifactPrescription, clinical.ArtifactStat)
	if err := imm.NotifyImmediate(context.Background(), artifact); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	if mock.Visuals[0].Urgency != notify.UrgencyHigh {
		t.Errorf("stat artifact should deliver at high, got %s", mock.Visuals[0].Urgency)
	}
	if mock.SpeakCount() != 1 {
		t.Errorf("stat artifact should add voice, got %d voice deliveries", mock.SpeakCount())
	}
}

func TestNotifyImmediateVoiceToggleOff(t *testing.T) {
	mock := notify.NewMock()
	imm := NewImmediate(mock, NewTextFormatter(), NewMemorySettings(false), zerolog.Nop())

	artifact := testArtifact(clinical.ArtifactInvestigation, clinical.ArtifactUrgent)
	if err := imm.NotifyImmediate(context.Background(), artifact); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	if mock.SpeakCount() != 0 {
		t.Error("voice delivered with toggle off")
	}
}

// TestNotifyImmediateFailureSurfaced checks the failure is returned to the
// caller and nothing is persisted or retried here.
func TestNotifyImmediateFailureSurfaced(t *testing.T) {
	mock := notify.NewMock()
	mock.VisualErr = errors.New("synthesis unavailable")
	imm := NewImmediate(mock, NewTextFormatter(), NewMemorySettings(true), zerolog.Nop())

	artifact := testArtifact(clinical.ArtifactTreatmentPlan, clinical.ArtifactStat)
	if err := imm.NotifyImmediate(context.Background(), artifact); err == nil {
		t.Fatal("expected delivery failure to surface")
	}

	if mock.VisualCount() != 0 || mock.SpeakCount() != 0 {
		t.Error("no delivery should be recorded on failure")
	}
}
