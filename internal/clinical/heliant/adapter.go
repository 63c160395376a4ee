// Package heliant syncs surgeries and appointments from a legacy Heliant
// hospital information system running on SQL Server into the platform's
// clinical event store.
package heliant

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server driver
	"github.com/meridian-health/platform/internal/clinical"
	"github.com/meridian-health/platform/internal/shared/config"
	"github.com/meridian-health/platform/internal/shared/metrics"
	"github.com/meridian-health/platform/internal/shared/types"
	"github.com/rs/zerolog"
)

const sourceSystem = "heliant"

// EventSink receives events discovered in the legacy system
type EventSink interface {
	Upsert(ctx context.Context, e *clinical.Event) error
}

// Adapter polls a Heliant HIS database and mirrors its scheduled surgeries
// and appointments as clinical events. Each upserted event triggers a
// reminder schedule rebuild through the hooks.
type Adapter struct {
	db     *sql.DB
	config config.HeliantConfig
	sink   EventSink
	hooks  clinical.ScheduleHooks
	logger zerolog.Logger

	running  bool
	mu       sync.RWMutex
	cancel   context.CancelFunc
	lastPoll time.Time
	wg       sync.WaitGroup
}

// New creates a new Heliant adapter
func New(cfg config.HeliantConfig, sink EventSink, hooks clinical.ScheduleHooks, logger zerolog.Logger) *Adapter {
	return &Adapter{
		config: cfg,
		sink:   sink,
		hooks:  hooks,
		logger: logger,
	}
}

// Start opens the database connection and starts the polling loop
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return fmt.Errorf("adapter already running")
	}

	connStr := fmt.Sprintf("server=%s;port=%d;database=%s;user id=%s;password=%s",
		a.config.Host,
		a.config.Port,
		a.config.Database,
		a.config.User,
		a.config.Password,
	)
	if a.config.SSLMode != "disable" {
		connStr += ";encrypt=true;TrustServerCertificate=true"
	}

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = db
	a.running = true
	a.lastPoll = time.Now().Add(-a.config.PollInterval)

	pollCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.wg.Add(1)
	go a.pollLoop(pollCtx)

	a.logger.Info().
		Str("institution", a.config.InstitutionCode).
		Dur("poll_interval", a.config.PollInterval).
		Msg("heliant sync started")

	return nil
}

// Stop stops the polling loop and closes the connection
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}

	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if a.db != nil {
		a.db.Close()
	}

	a.running = false
	return nil
}

// Health checks database connectivity
func (a *Adapter) Health(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.running {
		return fmt.Errorf("adapter not running")
	}
	return a.db.PingContext(ctx)
}

func (a *Adapter) pollLoop(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			since := a.lastPoll
			now := time.Now()

			if err := a.pollSurgeries(ctx, since); err != nil {
				a.logger.Error().Err(err).Msg("surgery poll failed")
				continue
			}
			if err := a.pollAppointments(ctx, since); err != nil {
				a.logger.Error().Err(err).Msg("appointment poll failed")
				continue
			}

			a.lastPoll = now
		}
	}
}

// pollSurgeries mirrors surgeries created or changed since the last poll
func (a *Adapter) pollSurgeries(ctx context.Context, since time.Time) error {
	query := `
		SELECT
			s.SurgeryID,
			s.ProcedureName,
			p.PatientID,
			p.FirstName + ' ' + p.LastName,
			p.MRN,
			s.ScheduledAt,
			s.OperatingRoom,
			s.Urgency,
			s.Status
		FROM dbo.Surgeries s
		INNER JOIN dbo.Patients p ON s.PatientID = p.PatientID
		WHERE s.LastModified > @since
		  AND s.ScheduledAt > GETUTCDATE()`

	rows, err := a.db.QueryContext(ctx, query, sql.Named("since", since))
	if err != nil {
		return fmt.Errorf("failed to query surgeries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec legacyRecord
		var room sql.NullString
		err := rows.Scan(
			&rec.LocalID,
			&rec.Title,
			&rec.PatientLocalID,
			&rec.PatientName,
			&rec.MRN,
			&rec.ScheduledAt,
			&room,
			&rec.Urgency,
			&rec.Status,
		)
		if err != nil {
			return fmt.Errorf("failed to scan surgery: %w", err)
		}
		if room.Valid {
			rec.Location = room.String
		}

		a.mirror(ctx, clinical.KindSurgery, rec)
	}

	return rows.Err()
}

// pollAppointments mirrors appointments created or changed since the last poll
func (a *Adapter) pollAppointments(ctx context.Context, since time.Time) error {
	query := `
		SELECT
			ap.AppointmentID,
			ap.Reason,
			p.PatientID,
			p.FirstName + ' ' + p.LastName,
			p.MRN,
			ap.ScheduledAt,
			ap.Clinic,
			ap.Urgency,
			ap.Status
		FROM dbo.Appointments ap
		INNER JOIN dbo.Patients p ON ap.PatientID = p.PatientID
		WHERE ap.LastModified > @since
		  AND ap.ScheduledAt > GETUTCDATE()`

	rows, err := a.db.QueryContext(ctx, query, sql.Named("since", since))
	if err != nil {
		return fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec legacyRecord
		var clinic sql.NullString
		err := rows.Scan(
			&rec.LocalID,
			&rec.Title,
			&rec.PatientLocalID,
			&rec.PatientName,
			&rec.MRN,
			&rec.ScheduledAt,
			&clinic,
			&rec.Urgency,
			&rec.Status,
		)
		if err != nil {
			return fmt.Errorf("failed to scan appointment: %w", err)
		}
		if clinic.Valid {
			rec.Location = clinic.String
		}

		a.mirror(ctx, clinical.KindAppointment, rec)
	}

	return rows.Err()
}

// legacyRecord is a row read from the Heliant schedule tables
type legacyRecord struct {
	LocalID        string
	Title          string
	PatientLocalID string
	PatientName    string
	MRN            sql.NullString
	ScheduledAt    time.Time
	Location       string
	Urgency        string
	Status         string
}

// mirror upserts one legacy record as a clinical event and rebuilds its
// reminder schedule. IDs are derived from the legacy keys so repeated polls
// converge on the same rows.
func (a *Adapter) mirror(ctx context.Context, kind clinical.EventKind, rec legacyRecord) {
	event := &clinical.Event{
		ID:           types.NewDeterministicID(sourceSystem, string(kind)+"/"+rec.LocalID),
		Kind:         kind,
		Title:        rec.Title,
		PatientID:    types.NewDeterministicID(sourceSystem, "patient/"+rec.PatientLocalID),
		PatientName:  rec.PatientName,
		HospitalID:   types.NewDeterministicID(sourceSystem, "hospital/"+a.config.InstitutionCode),
		HospitalName: a.config.InstitutionName,
		ScheduledAt:  rec.ScheduledAt.UTC(),
		Location:     rec.Location,
		Priority:     mapUrgency(rec.Urgency),
		Status:       mapStatus(rec.Status),
		SourceSystem: sourceSystem,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	if rec.MRN.Valid {
		if mrn, err := types.ParseMRN(rec.MRN.String); err == nil {
			event.PatientMRN = mrn
		}
	}

	if err := a.sink.Upsert(ctx, event); err != nil {
		a.logger.Error().Err(err).
			Str("legacy_id", rec.LocalID).
			Msg("failed to upsert legacy event")
		return
	}

	metrics.RecordClinicalSync(sourceSystem, string(kind))

	if a.hooks == nil {
		return
	}

	var err error
	if event.Status == clinical.EventStatusActive {
		err = a.hooks.EventUpserted(ctx, event)
	} else {
		err = a.hooks.EventCancelled(ctx, event.ID)
	}
	if err != nil {
		a.logger.Error().Err(err).
			Str("event_id", event.ID.String()).
			Msg("failed to update reminder schedule for legacy event")
	}
}

// mapUrgency converts Heliant urgency codes to platform priorities
func mapUrgency(code string) clinical.Priority {
	switch code {
	case "HITNO", "EMERGENCY":
		return clinical.PriorityEmergency
	case "URGENTNO", "URGENT":
		return clinical.PriorityUrgent
	default:
		return clinical.PriorityRoutine
	}
}

// mapStatus converts Heliant schedule statuses to platform statuses
func mapStatus(code string) clinical.EventStatus {
	switch code {
	case "CANCELLED", "OTKAZANO":
		return clinical.EventStatusCancelled
	case "COMPLETED", "ZAVRSENO":
		return clinical.EventStatusCompleted
	default:
		return clinical.EventStatusActive
	}
}
