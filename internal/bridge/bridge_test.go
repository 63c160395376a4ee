package bridge

import (
	"context"
	"testing"

	"github.com/meridian-health/platform/internal/shared/events"
	"github.com/rs/zerolog"
)

// fakeBus captures publishes and lets tests inject inbound events
type fakeBus struct {
	published []events.Event
	handler   events.Handler
}

func (f *fakeBus) Publish(ctx context.Context, event events.Event) error {
	f.published = append(f.published, event)
	return nil
}

func (f *fakeBus) Subscribe(ctx context.Context, pattern string, consumerName string, handler events.Handler) error {
	f.handler = handler
	return nil
}

func (f *fakeBus) Close()        {}
func (f *fakeBus) Health() error { return nil }

type countingEngine struct {
	ticks    int
	rebuilds int
}

func (e *countingEngine) TickNow(ctx context.Context) error {
	e.ticks++
	return nil
}

func (e *countingEngine) RebuildNow(ctx context.Context) error {
	e.rebuilds++
	return nil
}

func TestBridgeHandshake(t *testing.T) {
	bus := &fakeBus{}
	engine := &countingEngine{}

	b := New(bus, engine, zerolog.Nop())
	b.Start(context.Background())

	if len(bus.published) != 1 {
		t.Fatalf("expected 1 handshake event, got %d", len(bus.published))
	}
	if bus.published[0].Type != EnableBackgroundChecks {
		t.Errorf("expected %s, got %s", EnableBackgroundChecks, bus.published[0].Type)
	}
}

func TestBridgeCommands(t *testing.T) {
	bus := &fakeBus{}
	engine := &countingEngine{}
	ctx := context.Background()

	b := New(bus, engine, zerolog.Nop())
	b.Start(ctx)

	if bus.handler == nil {
		t.Fatal("bridge did not subscribe")
	}

	bus.handler(ctx, events.NewEvent(CommandTickNow, "host", nil))
	bus.handler(ctx, events.NewEvent(CommandRebuildNow, "host", nil))
	bus.handler(ctx, events.NewEvent("reminder.command.unknown", "host", nil))

	if engine.ticks != 1 {
		t.Errorf("expected 1 tick, got %d", engine.ticks)
	}
	if engine.rebuilds != 1 {
		t.Errorf("expected 1 rebuild, got %d", engine.rebuilds)
	}
}

// TestBridgeWithoutBus degrades to a no-op
func TestBridgeWithoutBus(t *testing.T) {
	b := New(nil, &countingEngine{}, zerolog.Nop())
	b.Start(context.Background())
}
