package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/meridian-health/platform/internal/bridge"
	"github.com/meridian-health/platform/internal/clinical"
	"github.com/meridian-health/platform/internal/clinical/heliant"
	"github.com/meridian-health/platform/internal/notify"
	"github.com/meridian-health/platform/internal/reminder"
	"github.com/meridian-health/platform/internal/shared/auth"
	"github.com/meridian-health/platform/internal/shared/config"
	"github.com/meridian-health/platform/internal/shared/database"
	"github.com/meridian-health/platform/internal/shared/events"
	"github.com/meridian-health/platform/internal/shared/logging"
	"github.com/meridian-health/platform/internal/shared/metrics"
	secmiddleware "github.com/meridian-health/platform/internal/shared/middleware"
	"github.com/rs/zerolog"
)

// App holds the application dependencies
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	DB     *database.DB
	Bus    *events.Bus
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Server.Env)
	app := &App{Config: cfg, Logger: logger}

	// Database is optional; without it the platform runs in limited mode
	// on in-memory stores.
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Warn().Err(err).Msg("database not available, running in limited mode")
	} else {
		app.DB = db
		defer db.Close()

		if err := database.Migrate(ctx, db.Pool); err != nil {
			logger.Warn().Err(err).Msg("migration failed")
		}
	}

	// Event bus is optional; without it the background bridge is disabled
	bus, err := events.NewBus(ctx, cfg.EventStore)
	if err != nil {
		logger.Warn().Err(err).Msg("event store not available, running without event streaming")
	} else {
		app.Bus = bus
		defer bus.Close()
		logger.Info().Msg("event bus initialized")
	}

	var busIface events.EventBus
	if app.Bus != nil {
		busIface = app.Bus
	}

	// Clinical event store: postgres when available, in-memory otherwise
	var clinicalStore clinical.Store
	var heliantSink heliant.EventSink
	var reminderStore reminder.Store
	var settings reminder.Settings
	if app.DB != nil {
		repo := clinical.NewRepository(app.DB.Pool)
		clinicalStore = repo
		heliantSink = repo
		reminderStore = reminder.NewPostgresStore(app.DB.Pool)
		settings = reminder.NewPostgresSettings(app.DB.Pool, cfg.Reminder.VoiceDefault)
	} else {
		mem := clinical.NewMemorySource()
		clinicalStore = mem
		heliantSink = mem
		reminderStore = reminder.NewMemoryStore()
		settings = reminder.NewMemorySettings(cfg.Reminder.VoiceDefault)
	}

	notifier := buildNotifier(cfg.Notifier, logger)
	formatter := reminder.NewTextFormatter()

	dispatcher := reminder.NewDispatcher(
		reminderStore, clinicalStore, notifier, formatter, settings,
		cfg.Reminder.DueSlack, logging.Component(logger, "dispatcher"),
	)
	rebuilder := reminder.NewRebuilder(
		reminderStore, clinicalStore,
		cfg.Reminder.Lookahead, cfg.Reminder.Retention,
		logging.Component(logger, "rebuilder"),
	)
	engine := reminder.NewEngine(dispatcher, rebuilder, cfg.Reminder, logging.Component(logger, "engine"))

	if err := engine.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to start reminder engine")
		os.Exit(1)
	}

	reminderBridge := bridge.New(busIface, engine, logging.Component(logger, "bridge"))
	reminderBridge.Start(ctx)

	immediate := reminder.NewImmediate(notifier, formatter, settings, logging.Component(logger, "immediate"))

	// Legacy HIS sync (optional)
	if cfg.Heliant.Enabled {
		adapter := heliant.New(cfg.Heliant, heliantSink, engine.Rebuilder(), logging.Component(logger, "heliant"))
		if err := adapter.Start(ctx); err != nil {
			logger.Warn().Err(err).Msg("heliant sync not available")
		} else {
			defer adapter.Stop(context.Background())
		}
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.InputSanitizer)
	r.Use(secmiddleware.NewIPRateLimiter(100, 200).Middleware)
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler(app))
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	r.Get("/", infoHandler)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Server.Env == "production" {
			r.Use(auth.Middleware(cfg.Auth))
		}

		clinicalHandler := clinical.NewHandler(
			clinicalStore, engine.Rebuilder(), immediate, busIface,
			logging.Component(logger, "clinical"),
		)
		r.Mount("/clinical", clinicalHandler.Routes())

		reminderHandler := reminder.NewHandler(reminderStore, settings, engine)
		r.Mount("/reminders", reminderHandler.Routes())
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info().Msg("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown error")
		}

		cancel()
		if err := engine.Stop(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("reminder engine shutdown error")
		}

		close(done)
	}()

	logger.Info().
		Str("env", cfg.Server.Env).
		Int("port", cfg.Server.Port).
		Bool("database", app.DB != nil).
		Bool("event_bus", app.Bus != nil).
		Bool("heliant_sync", cfg.Heliant.Enabled).
		Msg("meridian platform started")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("server error")
		os.Exit(1)
	}

	<-done
	logger.Info().Msg("server stopped")
}

func buildNotifier(cfg config.NotifierConfig, logger zerolog.Logger) notify.Notifier {
	switch cfg.Provider {
	case "noop":
		return notify.NewNoopNotifier()
	default:
		return notify.NewConsoleNotifier(logging.Component(logger, "notifier"))
	}
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "Meridian Health Platform",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
		})
	}
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		if app.DB != nil {
			if err := app.DB.Health(r.Context()); err != nil {
				checks["database"] = "not ready: " + err.Error()
			} else {
				checks["database"] = "ready"
			}
		} else {
			checks["database"] = "not configured"
		}

		if app.Bus != nil {
			if err := app.Bus.Health(); err != nil {
				checks["event_store"] = "not ready: " + err.Error()
			} else {
				checks["event_store"] = "ready"
			}
		} else {
			checks["event_store"] = "not configured"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
