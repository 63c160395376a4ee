package reminder

import (
	"context"

	"github.com/meridian-health/platform/internal/clinical"
	"github.com/meridian-health/platform/internal/notify"
	"github.com/meridian-health/platform/internal/shared/metrics"
	"github.com/rs/zerolog"
)

// Immediate delivers one-time notices for newly created clinical artifacts.
// It bypasses the schedule store entirely: nothing is persisted, and a
// failure is surfaced to the caller without retry. The caller invokes it
// exactly once per artifact creation.
type Immediate struct {
	notifier  notify.Notifier
	formatter Formatter
	settings  Settings
	logger    zerolog.Logger
}

// NewImmediate creates the immediate notification path
func NewImmediate(notifier notify.Notifier, formatter Formatter, settings Settings, logger zerolog.Logger) *Immediate {
	return &Immediate{
		notifier:  notifier,
		formatter: formatter,
		settings:  settings,
		logger:    logger,
	}
}

// NotifyImmediate delivers the notice for one artifact. Implements the
// clinical immediate notifier hook.
func (i *Immediate) NotifyImmediate(ctx context.Context, artifact *clinical.Artifact) error {
	urgency := ArtifactUrgency(artifact.Priority)
	payload := i.formatter.FormatArtifact(artifact)

	if err := i.notifier.ShowVisual(ctx, payload.Title, payload.Body, payload.Tag, urgency); err != nil {
		metrics.RecordImmediateNotification(string(artifact.Kind), "failed")
		return err
	}

	voiceOn, err := i.settings.VoiceEnabled(ctx)
	if err != nil {
		i.logger.Warn().Err(err).Msg("failed to read voice setting")
		voiceOn = false
	}

	// High urgency artifacts get the voice channel too
	if voiceOn && urgency == notify.UrgencyHigh {
		if err := i.notifier.PlayTone(ctx, urgency); err != nil {
			i.logger.Debug().Err(err).Msg("tone playback failed")
		}
		if err := i.notifier.Speak(ctx, payload.Speech, urgency); err != nil {
			i.logger.Warn().Err(err).
				Str("artifact_id", artifact.ID.String()).
				Msg("voice delivery failed, visual notice already shown")
		} else {
			metrics.RecordVoiceAlert(string(urgency))
		}
	}

	metrics.RecordImmediateNotification(string(artifact.Kind), "sent")

	i.logger.Info().
		Str("artifact_id", artifact.ID.String()).
		Str("kind", string(artifact.Kind)).
		Str("urgency", string(urgency)).
		Msg("immediate notification delivered")

	return nil
}
