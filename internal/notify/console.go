package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// ConsoleNotifier writes notices to the structured log. It stands in for a
// real push/audio backend in development and on headless deployments.
type ConsoleNotifier struct {
	logger zerolog.Logger
}

// NewConsoleNotifier creates a notifier that logs all deliveries
func NewConsoleNotifier(logger zerolog.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger}
}

func (n *ConsoleNotifier) ShowVisual(ctx context.Context, title, body, tag string, urgency Urgency) error {
	n.logger.Info().
		Str("channel", "visual").
		Str("title", title).
		Str("body", body).
		Str("tag", tag).
		Str("urgency", string(urgency)).
		Msg("notice delivered")
	return nil
}

func (n *ConsoleNotifier) Speak(ctx context.Context, text string, urgency Urgency) error {
	params := VoiceParamsFor(urgency)
	n.logger.Info().
		Str("channel", "voice").
		Str("text", text).
		Str("urgency", string(urgency)).
		Float64("rate", params.Rate).
		Float64("pitch", params.Pitch).
		Float64("volume", params.Volume).
		Msg("voice alert delivered")
	return nil
}

func (n *ConsoleNotifier) PlayTone(ctx context.Context, urgency Urgency) error {
	pair := TonePairFor(urgency)
	n.logger.Debug().
		Str("channel", "tone").
		Int("first_hz", pair.First).
		Int("second_hz", pair.Second).
		Msg("tone played")
	return nil
}
