package clinical

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meridian-health/platform/internal/shared/errors"
	"github.com/meridian-health/platform/internal/shared/metrics"
	"github.com/meridian-health/platform/internal/shared/types"
)

// Repository provides database operations for clinical events
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new clinical event repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, kind, title, patient_id, patient_name, patient_mrn,
	hospital_id, hospital_name, scheduled_at, location, priority, status,
	source_system, created_at, updated_at`

// Create saves a new clinical event
func (r *Repository) Create(ctx context.Context, e *Event) error {
	query := `
		INSERT INTO clinical.events (
			id, kind, title, patient_id, patient_name, patient_mrn,
			hospital_id, hospital_name, scheduled_at, location, priority,
			status, source_system, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.Kind, e.Title, e.PatientID, e.PatientName, nullableMRN(e.PatientMRN),
		e.HospitalID, e.HospitalName, e.ScheduledAt, nullableString(e.Location), e.Priority,
		e.Status, nullableString(e.SourceSystem), e.CreatedAt, e.UpdatedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("clinical event already exists")
		}
		return errors.Wrap(err, "failed to save clinical event")
	}

	return nil
}

// Upsert inserts an event or replaces its mutable fields. Used by the
// legacy HIS sync, which re-reads the same events on every poll.
func (r *Repository) Upsert(ctx context.Context, e *Event) error {
	query := `
		INSERT INTO clinical.events (
			id, kind, title, patient_id, patient_name, patient_mrn,
			hospital_id, hospital_name, scheduled_at, location, priority,
			status, source_system, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			scheduled_at = EXCLUDED.scheduled_at,
			location = EXCLUDED.location,
			priority = EXCLUDED.priority,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.Kind, e.Title, e.PatientID, e.PatientName, nullableMRN(e.PatientMRN),
		e.HospitalID, e.HospitalName, e.ScheduledAt, nullableString(e.Location), e.Priority,
		e.Status, nullableString(e.SourceSystem), e.CreatedAt, e.UpdatedAt,
	)

	if err != nil {
		return errors.Wrap(err, "failed to upsert clinical event")
	}

	return nil
}

// Update updates an event's mutable fields
func (r *Repository) Update(ctx context.Context, e *Event) error {
	query := `
		UPDATE clinical.events SET
			title = $2, scheduled_at = $3, location = $4, priority = $5,
			status = $6, updated_at = $7
		WHERE id = $1`

	e.UpdatedAt = time.Now().UTC()

	result, err := r.pool.Exec(ctx, query,
		e.ID, e.Title, e.ScheduledAt, nullableString(e.Location), e.Priority,
		e.Status, e.UpdatedAt,
	)

	if err != nil {
		return errors.Wrap(err, "failed to update clinical event")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("clinical event", e.ID.String())
	}

	return nil
}

// Cancel marks an event as cancelled
func (r *Repository) Cancel(ctx context.Context, id types.ID) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE clinical.events SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		id, EventStatusCancelled, EventStatusActive,
	)
	if err != nil {
		return errors.Wrap(err, "failed to cancel clinical event")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("clinical event", id.String())
	}

	return nil
}

// Get returns an active event by ID, or nil if it does not exist or is no
// longer active. Implements Source.
func (r *Repository) Get(ctx context.Context, id types.ID) (*Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM clinical.events WHERE id = $1 AND status = $2`, eventColumns)

	e := &Event{}
	var mrn, location, sourceSystem *string
	err := r.pool.QueryRow(ctx, query, id, EventStatusActive).Scan(
		&e.ID, &e.Kind, &e.Title, &e.PatientID, &e.PatientName, &mrn,
		&e.HospitalID, &e.HospitalName, &e.ScheduledAt, &location, &e.Priority, &e.Status,
		&sourceSystem, &e.CreatedAt, &e.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load clinical event")
	}

	applyNullable(e, mrn, location, sourceSystem)
	return e, nil
}

// ListUpcoming returns active events of the given kinds scheduled within
// the window from now. Implements Source.
func (r *Repository) ListUpcoming(ctx context.Context, kinds []EventKind, window time.Duration) ([]Event, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("clinical_list_upcoming", time.Since(start)) }()

	if len(kinds) == 0 {
		kinds = AllKinds()
	}

	kindStrings := make([]string, len(kinds))
	for i, k := range kinds {
		kindStrings[i] = string(k)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM clinical.events
		WHERE status = $1
		  AND kind = ANY($2)
		  AND scheduled_at BETWEEN NOW() AND NOW() + $3::interval
		ORDER BY scheduled_at`, eventColumns)

	interval := fmt.Sprintf("%d seconds", int(window.Seconds()))

	rows, err := r.pool.Query(ctx, query, EventStatusActive, kindStrings, interval)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list upcoming events")
	}
	defer rows.Close()

	return scanEvents(rows)
}

// List lists events with filters for the API
func (r *Repository) List(ctx context.Context, filter ListEventsFilter) ([]Event, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argNum))
		args = append(args, *filter.Kind)
		argNum++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *filter.Status)
		argNum++
	}

	if filter.PatientID != nil {
		conditions = append(conditions, fmt.Sprintf("patient_id = $%d", argNum))
		args = append(args, *filter.PatientID)
		argNum++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR patient_name ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM clinical.events %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count events")
	}

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT %s FROM clinical.events
		%s
		ORDER BY scheduled_at
		LIMIT $%d OFFSET $%d`, eventColumns, whereClause, argNum, argNum+1)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list events")
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// ListEventsFilter filters event listings
type ListEventsFilter struct {
	Kind      *EventKind
	Status    *EventStatus
	PatientID *types.ID
	Search    string
	Limit     int
	Offset    int
}

func scanEvents(rows pgx.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var mrn, location, sourceSystem *string
		err := rows.Scan(
			&e.ID, &e.Kind, &e.Title, &e.PatientID, &e.PatientName, &mrn,
			&e.HospitalID, &e.HospitalName, &e.ScheduledAt, &location, &e.Priority, &e.Status,
			&sourceSystem, &e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan event")
		}
		applyNullable(&e, mrn, location, sourceSystem)
		events = append(events, e)
	}
	return events, nil
}

func applyNullable(e *Event, mrn, location, sourceSystem *string) {
	if mrn != nil {
		e.PatientMRN = types.MRN(*mrn)
	}
	if location != nil {
		e.Location = *location
	}
	if sourceSystem != nil {
		e.SourceSystem = *sourceSystem
	}
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableMRN(m types.MRN) *string {
	if m.IsZero() {
		return nil
	}
	s := m.String()
	return &s
}
