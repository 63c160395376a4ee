package reminder

import (
	"context"
	"time"

	"github.com/meridian-health/platform/internal/clinical"
	"github.com/meridian-health/platform/internal/notify"
	"github.com/meridian-health/platform/internal/shared/metrics"
	"github.com/rs/zerolog"
)

// Dispatcher pulls due entries on each tick, resolves their events,
// delivers the notices and records the outcome. One entry's failure never
// aborts the rest of the tick.
type Dispatcher struct {
	store     Store
	source    clinical.Source
	notifier  notify.Notifier
	formatter Formatter
	settings  Settings
	slack     time.Duration
	logger    zerolog.Logger
}

// NewDispatcher creates a dispatcher. Slack is the forward-looking window
// added to the due query to absorb tick jitter.
func NewDispatcher(store Store, source clinical.Source, notifier notify.Notifier, formatter Formatter, settings Settings, slack time.Duration, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		source:    source,
		notifier:  notifier,
		formatter: formatter,
		settings:  settings,
		slack:     slack,
		logger:    logger,
	}
}

// Tick runs one dispatch cycle. Store failures abort the cycle and are
// retried naturally on the next tick.
func (d *Dispatcher) Tick(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.RecordDispatchTick(time.Since(start))
	}()

	due, err := d.store.DueEntries(ctx, time.Now().UTC(), d.slack)
	if err != nil {
		metrics.RecordStoreError("due_entries")
		return err
	}

	if len(due) == 0 {
		return nil
	}

	voiceOn, err := d.settings.VoiceEnabled(ctx)
	if err != nil {
		d.logger.Warn().Err(err).Msg("failed to read voice setting, voice disabled for this tick")
		voiceOn = false
	}

	for i := range due {
		d.dispatchOne(ctx, &due[i], voiceOn)
	}

	return nil
}

// dispatchOne delivers a single entry and records the result. Delivery
// failure is terminal for the entry: a proximity reminder has no useful
// meaning once its instant has passed.
func (d *Dispatcher) dispatchOne(ctx context.Context, entry *Entry, voiceOn bool) {
	event, err := d.source.Get(ctx, entry.EventID)
	if err != nil {
		// Source failure is transient; leave the entry pending for the
		// next tick.
		d.logger.Warn().Err(err).
			Str("entry_id", entry.ID.String()).
			Msg("failed to resolve event for reminder")
		return
	}

	if event == nil {
		// Event deleted or completed mid-flight. Close the entry without
		// delivery so it is never re-selected.
		d.markResult(ctx, entry, Result{Status: StatusSent})
		metrics.RecordDispatch(string(entry.Channel), "orphaned")
		return
	}

	urgency := UrgencyFor(entry.OffsetMinutes, event.Priority)
	payload := d.formatter.Format(event, entry)

	if err := d.notifier.ShowVisual(ctx, payload.Title, payload.Body, payload.Tag, urgency); err != nil {
		d.markResult(ctx, entry, Result{Status: StatusFailed, FailureReason: err.Error()})
		metrics.RecordDispatch(string(entry.Channel), "failed")
		d.logger.Error().Err(err).
			Str("entry_id", entry.ID.String()).
			Str("event_id", entry.EventID.String()).
			Msg("visual delivery failed")
		return
	}

	voicePlayed := false
	if entry.Channel == ChannelVoice && voiceOn {
		if err := d.notifier.PlayTone(ctx, urgency); err != nil {
			d.logger.Debug().Err(err).Msg("tone playback failed")
		}

		if err := d.notifier.Speak(ctx, payload.Speech, urgency); err != nil {
			d.logger.Warn().Err(err).
				Str("entry_id", entry.ID.String()).
				Msg("voice delivery failed, visual notice already shown")
		} else {
			voicePlayed = true
			metrics.RecordVoiceAlert(string(urgency))
		}
	}

	d.markResult(ctx, entry, Result{Status: StatusSent, VoicePlayed: voicePlayed})
	metrics.RecordDispatch(string(entry.Channel), "sent")

	d.logger.Info().
		Str("entry_id", entry.ID.String()).
		Str("event_id", entry.EventID.String()).
		Int("offset_minutes", entry.OffsetMinutes).
		Str("urgency", string(urgency)).
		Bool("voice", voicePlayed).
		Msg("reminder dispatched")
}

func (d *Dispatcher) markResult(ctx context.Context, entry *Entry, result Result) {
	if err := d.store.MarkResult(ctx, entry.ID, result); err != nil {
		metrics.RecordStoreError("mark_result")
		d.logger.Error().Err(err).
			Str("entry_id", entry.ID.String()).
			Msg("failed to record reminder result")
	}
}
