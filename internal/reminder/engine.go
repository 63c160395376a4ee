package reminder

import (
	"context"
	"fmt"

	"github.com/meridian-health/platform/internal/shared/config"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Engine owns the two timer loops: the fast dispatch tick and the slow
// schedule rebuild. Both can also be triggered out of band through TickNow
// and RebuildNow, which the background bridge uses. Overlapping triggers of
// the same loop are collapsed to one running pass.
type Engine struct {
	dispatcher *Dispatcher
	rebuilder  *Rebuilder
	cfg        config.ReminderConfig
	logger     zerolog.Logger

	cron        *cron.Cron
	tickGate    chan struct{}
	rebuildGate chan struct{}
}

// NewEngine creates the reminder engine
func NewEngine(dispatcher *Dispatcher, rebuilder *Rebuilder, cfg config.ReminderConfig, logger zerolog.Logger) *Engine {
	e := &Engine{
		dispatcher:  dispatcher,
		rebuilder:   rebuilder,
		cfg:         cfg,
		logger:      logger,
		tickGate:    make(chan struct{}, 1),
		rebuildGate: make(chan struct{}, 1),
	}
	e.tickGate <- struct{}{}
	e.rebuildGate <- struct{}{}
	return e
}

// Start runs an eager rebuild and starts both interval loops. The loops
// stop when ctx is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	// Eager pass so reminders exist before the first interval fires
	if err := e.RebuildNow(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("initial reminder rebuild failed")
	}

	e.cron = cron.New()

	_, err := e.cron.AddFunc(fmt.Sprintf("@every %s", e.cfg.TickInterval), func() {
		if err := e.TickNow(ctx); err != nil {
			e.logger.Warn().Err(err).Msg("dispatch tick failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule dispatch tick: %w", err)
	}

	_, err = e.cron.AddFunc(fmt.Sprintf("@every %s", e.cfg.RebuildInterval), func() {
		if err := e.RebuildNow(ctx); err != nil {
			e.logger.Warn().Err(err).Msg("reminder rebuild failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule rebuild: %w", err)
	}

	e.cron.Start()

	go func() {
		<-ctx.Done()
		e.cron.Stop()
	}()

	e.logger.Info().
		Dur("tick_interval", e.cfg.TickInterval).
		Dur("rebuild_interval", e.cfg.RebuildInterval).
		Msg("reminder engine started")

	return nil
}

// Stop stops the timer loops and waits for running jobs to finish
func (e *Engine) Stop(ctx context.Context) error {
	if e.cron == nil {
		return nil
	}

	done := e.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TickNow runs one dispatch cycle immediately. A tick already in flight
// absorbs the request.
func (e *Engine) TickNow(ctx context.Context) error {
	select {
	case <-e.tickGate:
	default:
		return nil
	}
	defer func() { e.tickGate <- struct{}{} }()

	return e.dispatcher.Tick(ctx)
}

// RebuildNow runs one rebuild pass immediately. A rebuild already in
// flight absorbs the request.
func (e *Engine) RebuildNow(ctx context.Context) error {
	select {
	case <-e.rebuildGate:
	default:
		return nil
	}
	defer func() { e.rebuildGate <- struct{}{} }()

	return e.rebuilder.Rebuild(ctx)
}

// Rebuilder exposes the schedule hooks for the clinical module
func (e *Engine) Rebuilder() *Rebuilder {
	return e.rebuilder
}
