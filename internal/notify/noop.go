package notify

import "context"

// NoopNotifier discards all deliveries. Used on headless deployments where
// another process owns the staff-facing channels.
type NoopNotifier struct{}

func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

func (NoopNotifier) ShowVisual(ctx context.Context, title, body, tag string, urgency Urgency) error {
	return nil
}

func (NoopNotifier) Speak(ctx context.Context, text string, urgency Urgency) error {
	return nil
}

func (NoopNotifier) PlayTone(ctx context.Context, urgency Urgency) error {
	return nil
}
