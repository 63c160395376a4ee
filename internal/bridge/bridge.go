// Package bridge connects the reminder engine to an out-of-process
// background host over the event bus. The host can trigger a dispatch tick
// or a schedule rebuild while the platform UI is not in the foreground.
// Everything here is best-effort: without the bus the two interval loops
// remain the sole drivers.
package bridge

import (
	"context"

	"github.com/meridian-health/platform/internal/shared/events"
	"github.com/rs/zerolog"
)

// Inbound command event types handled by the bridge
const (
	CommandTickNow    = "reminder.command.tick_now"
	CommandRebuildNow = "reminder.command.rebuild_now"
)

// EnableBackgroundChecks is the startup handshake telling the host to wake
// the platform periodically.
const EnableBackgroundChecks = "reminder.background.enable_checks"

// Engine is the subset of the reminder engine the bridge drives
type Engine interface {
	TickNow(ctx context.Context) error
	RebuildNow(ctx context.Context) error
}

// Bridge subscribes to reminder commands and forwards them to the engine
type Bridge struct {
	bus    events.EventBus
	engine Engine
	logger zerolog.Logger
}

// New creates a bridge over the given bus. A nil bus yields a bridge whose
// Start is a no-op.
func New(bus events.EventBus, engine Engine, logger zerolog.Logger) *Bridge {
	return &Bridge{bus: bus, engine: engine, logger: logger}
}

// Start subscribes to inbound commands and sends the handshake. Failures
// are logged and swallowed; the bridge is an optimization, not a
// correctness requirement.
func (b *Bridge) Start(ctx context.Context) {
	if b.bus == nil {
		b.logger.Debug().Msg("no event bus, background bridge disabled")
		return
	}

	err := b.bus.Subscribe(ctx, "reminder.command.*", "reminder-bridge", b.handle)
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to subscribe to reminder commands")
		return
	}

	// One-time handshake so the host knows to wake the process
	handshake := events.NewEvent(EnableBackgroundChecks, "reminder", nil)
	if err := b.bus.Publish(ctx, handshake); err != nil {
		b.logger.Warn().Err(err).Msg("failed to announce background checks")
	}

	b.logger.Info().Msg("background bridge started")
}

func (b *Bridge) handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case CommandTickNow:
		b.logger.Debug().Str("event_id", event.ID).Msg("tick requested by background host")
		if err := b.engine.TickNow(ctx); err != nil {
			b.logger.Warn().Err(err).Msg("bridge-triggered tick failed")
		}
	case CommandRebuildNow:
		b.logger.Debug().Str("event_id", event.ID).Msg("rebuild requested by background host")
		if err := b.engine.RebuildNow(ctx); err != nil {
			b.logger.Warn().Err(err).Msg("bridge-triggered rebuild failed")
		}
	}
	return nil
}
