package reminder

import (
	"fmt"

	"github.com/meridian-health/platform/internal/clinical"
)

// Payload is the rendered content of one notice
type Payload struct {
	Title string
	Body  string
	// Tag collapses repeated notices for the same event
	Tag string
	// Speech is the short alert string for the voice channel
	Speech string
}

// Formatter renders human-readable notice content. The default formatter
// below is deliberately plain; richer rendering lives outside this
// subsystem.
type Formatter interface {
	Format(event *clinical.Event, entry *Entry) Payload
	FormatArtifact(artifact *clinical.Artifact) Payload
}

// TextFormatter renders plain-text payloads
type TextFormatter struct{}

// NewTextFormatter creates the default plain-text formatter
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

func (f *TextFormatter) Format(event *clinical.Event, entry *Entry) Payload {
	lead := leadPhrase(entry.OffsetMinutes)

	title := fmt.Sprintf("%s %s", kindLabel(event.Kind), lead)
	body := fmt.Sprintf("%s for %s at %s", event.Title, event.PatientName,
		event.ScheduledAt.Local().Format("15:04"))
	if event.Location != "" {
		body += ", " + event.Location
	}

	return Payload{
		Title:  title,
		Body:   body,
		Tag:    "reminder-" + event.ID.String(),
		Speech: fmt.Sprintf("%s %s. %s.", kindLabel(event.Kind), lead, event.Title),
	}
}

func (f *TextFormatter) FormatArtifact(artifact *clinical.Artifact) Payload {
	return Payload{
		Title:  fmt.Sprintf("New %s", artifactLabel(artifact.Kind)),
		Body:   fmt.Sprintf("%s for %s", artifact.Title, artifact.PatientName),
		Tag:    "artifact-" + artifact.ID.String(),
		Speech: fmt.Sprintf("New %s. %s.", artifactLabel(artifact.Kind), artifact.Title),
	}
}

func leadPhrase(offsetMinutes int) string {
	if offsetMinutes >= 60 && offsetMinutes%60 == 0 {
		hours := offsetMinutes / 60
		if hours == 24 {
			return "tomorrow"
		}
		if hours == 1 {
			return "in 1 hour"
		}
		return fmt.Sprintf("in %d hours", hours)
	}
	return fmt.Sprintf("in %d minutes", offsetMinutes)
}

func kindLabel(kind clinical.EventKind) string {
	switch kind {
	case clinical.KindSurgery:
		return "Surgery"
	case clinical.KindAppointment:
		return "Appointment"
	case clinical.KindTreatmentActivity:
		return "Treatment activity"
	}
	return "Event"
}

func artifactLabel(kind clinical.ArtifactKind) string {
	switch kind {
	case clinical.ArtifactInvestigation:
		return "investigation order"
	case clinical.ArtifactLabOrder:
		return "lab order"
	case clinical.ArtifactPrescription:
		return "prescription"
	case clinical.ArtifactTreatmentPlan:
		return "treatment plan"
	}
	return "clinical artifact"
}
