// Package notify defines the delivery surface for reminder and alert
// output. Delivery backends are injected; the reminder engine never talks
// to a concrete channel directly.
package notify

import "context"

// Urgency is the 3-tier escalation level driving delivery intensity
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Notifier delivers notices to hospital staff. Implementations report
// delivery failure through the returned error; callers decide whether a
// failure is terminal.
type Notifier interface {
	// ShowVisual delivers a visual notice. Tag collapses repeated notices
	// for the same subject on channels that support replacement.
	ShowVisual(ctx context.Context, title, body, tag string, urgency Urgency) error

	// Speak delivers a short synthesized voice alert scaled by urgency
	Speak(ctx context.Context, text string, urgency Urgency) error

	// PlayTone plays a short ascending two-tone cue before speech
	PlayTone(ctx context.Context, urgency Urgency) error
}

// VoiceParams are the synthesis parameters for one urgency tier
type VoiceParams struct {
	Rate   float64
	Pitch  float64
	Volume float64
}

// VoiceParamsFor returns the synthesis parameters for an urgency tier.
// Higher tiers speak faster, higher and louder.
func VoiceParamsFor(u Urgency) VoiceParams {
	switch u {
	case UrgencyHigh:
		return VoiceParams{Rate: 1.2, Pitch: 1.2, Volume: 1.0}
	case UrgencyMedium:
		return VoiceParams{Rate: 1.1, Pitch: 1.1, Volume: 0.9}
	default:
		return VoiceParams{Rate: 1.0, Pitch: 1.0, Volume: 0.8}
	}
}

// TonePair is the two frequencies of the ascending audible cue, in hertz
type TonePair struct {
	First  int
	Second int
}

// TonePairFor returns the cue frequencies for an urgency tier. The second
// tone is always higher than the first.
func TonePairFor(u Urgency) TonePair {
	switch u {
	case UrgencyHigh:
		return TonePair{First: 880, Second: 1175}
	case UrgencyMedium:
		return TonePair{First: 660, Second: 880}
	default:
		return TonePair{First: 523, Second: 659}
	}
}
