package reminder

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

// PostgresStore is the durable schedule store backed by postgres
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a postgres-backed schedule store
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const entryColumns = `id, event_id, event_kind, scheduled_for, offset_minutes,
	channel, status, sent_at, voice_played, failure_reason, created_at, updated_at`

const insertEntry = `
	INSERT INTO reminders.entries (
		id, event_id, event_kind, scheduled_for, offset_minutes,
		channel, status, sent_at, voice_played, failure_reason,
		created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

func (s *PostgresStore) Upsert(ctx context.Context, e *Entry) error {
	query := insertEntry + `
		ON CONFLICT (id) DO UPDATE SET
			scheduled_for = EXCLUDED.scheduled_for,
			channel = EXCLUDED.channel,
			updated_at = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query, entryArgs(e)...)
	if err != nil {
		return errors.Wrap(err, "failed to upsert reminder entry")
	}
	return nil
}

// ReplaceForEvent drops the event's pending entries and inserts the derived
// set. Rows already in a final status are kept for the audit window, and
// inserting over them is a no-op so a delivered entry can never be re-armed
// by a rebuild.
func (s *PostgresStore) ReplaceForEvent(ctx context.Context, eventID types.ID, entries []Entry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM reminders.entries WHERE event_id = $1 AND status = $2`,
		eventID, StatusPending)
	if err != nil {
		return errors.Wrap(err, "failed to delete reminder entries")
	}

	insert := insertEntry + ` ON CONFLICT (id) DO NOTHING`
	for i := range entries {
		if _, err := tx.Exec(ctx, insert, entryArgs(&entries[i])...); err != nil {
			return errors.Wrap(err, "failed to insert reminder entry")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit reminder replacement")
	}
	return nil
}

func (s *PostgresStore) DueEntries(ctx context.Context, now time.Time, slack time.Duration) ([]Entry, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("reminder_due_entries", time.Since(start)) }()

	query := fmt.Sprintf(`
		SELECT %s FROM reminders.entries
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for`, entryColumns)

	rows, err := s.pool.Query(ctx, query, StatusPending, now.Add(slack))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query due entries")
	}
	defer rows.Close()

	return scanEntries(rows)
}

// MarkResult only matches rows still pending, which makes the status
// transition a database-enforced compare-and-set.
func (s *PostgresStore) MarkResult(ctx context.Context, id types.ID, result Result) error {
	query := `
		UPDATE reminders.entries SET
			status = $2, sent_at = $3, voice_played = $4,
			failure_reason = $5, updated_at = NOW()
		WHERE id = $1 AND status = $6`

	var sentAt *time.Time
	if result.Status == StatusSent {
		now := time.Now().UTC()
		sentAt = &now
	}

	var reason *string
	if result.FailureReason != "" {
		reason = &result.FailureReason
	}

	_, err := s.pool.Exec(ctx, query, id, result.Status, sentAt, result.VoicePlayed, reason, StatusPending)
	if err != nil {
		return errors.Wrap(err, "failed to mark reminder result")
	}
	return nil
}

func (s *PostgresStore) ListForEvent(ctx context.Context, eventID types.ID) ([]Entry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reminders.entries
		WHERE event_id = $1
		ORDER BY scheduled_for`, entryColumns)

	rows, err := s.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reminder entries")
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.EventID != nil {
		conditions = append(conditions, fmt.Sprintf("event_id = $%d", argNum))
		args = append(args, *filter.EventID)
		argNum++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *filter.Status)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := 100
	if filter.Limit > 0 && filter.Limit <= 500 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT %s FROM reminders.entries
		%s
		ORDER BY scheduled_for DESC
		LIMIT $%d`, entryColumns, whereClause, argNum)

	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reminder entries")
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (s *PostgresStore) DeleteForEvent(ctx context.Context, eventID types.ID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM reminders.entries WHERE event_id = $1`, eventID)
	if err != nil {
		return errors.Wrap(err, "failed to delete reminder entries")
	}
	return nil
}

func (s *PostgresStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := s.pool.Exec(ctx, `
		DELETE FROM reminders.entries
		WHERE status <> $1
		  AND COALESCE(sent_at, scheduled_for) < $2`,
		StatusPending, olderThan)
	if err != nil {
		return 0, errors.Wrap(err, "failed to clean up reminder entries")
	}
	return int(result.RowsAffected()), nil
}

func entryArgs(e *Entry) []interface{} {
	var reason *string
	if e.FailureReason != "" {
		reason = &e.FailureReason
	}
	return []interface{}{
		e.ID, e.EventID, e.EventKind, e.ScheduledFor, e.OffsetMinutes,
		e.Channel, e.Status, e.SentAt, e.VoicePlayed, reason,
		e.CreatedAt, e.UpdatedAt,
	}
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var reason *string
		err := rows.Scan(
			&e.ID, &e.EventID, &e.EventKind, &e.ScheduledFor, &e.OffsetMinutes,
			&e.Channel, &e.Status, &e.SentAt, &e.VoicePlayed, &reason,
			&e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan reminder entry")
		}
		if reason != nil {
			e.FailureReason = *reason
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// PostgresSettings persists operator configuration in the settings table
type PostgresSettings struct {
	pool         *pgxpool.Pool
	voiceDefault bool
}

// NewPostgresSettings creates postgres-backed settings with the given
// default for the voice toggle.
func NewPostgresSettings(pool *pgxpool.Pool, voiceDefault bool) *PostgresSettings {
	return &PostgresSettings{pool: pool, voiceDefault: voiceDefault}
}

const voiceKey = "voice_alerts_enabled"

func (s *PostgresSettings) VoiceEnabled(ctx context.Context) (bool, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM reminders.settings WHERE key = $1`, voiceKey).Scan(&value)

	if err == pgx.ErrNoRows {
		return s.voiceDefault, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to read voice setting")
	}

	return value == "true", nil
}

func (s *PostgresSettings) SetVoiceEnabled(ctx context.Context, enabled bool) error {
	value := "false"
	if enabled {
		value = "true"
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO reminders.settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		voiceKey, value)
	if err != nil {
		return errors.Wrap(err, "failed to write voice setting")
	}
	return nil
}
