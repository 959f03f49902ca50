package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
	"github.com/ErlanBelekov/wa-scheduler/internal/repository"
	"github.com/google/uuid"
)

const scheduleColumns = `id, contact_id, contact_name, contact_phone, message,
	schedule_type, scheduled_time, cron_expression, cron_description,
	is_active, last_run, next_run, executing_at, completed_at,
	lapsed_at, created_at`

type ScheduleRepository struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewScheduleRepository(db *sql.DB, logger *slog.Logger) *ScheduleRepository {
	return &ScheduleRepository{db: db, logger: logger.With("component", "schedule_repo"), now: time.Now}
}

func (r *ScheduleRepository) Create(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	var description any
	if s.Trigger.Type == domain.ScheduleRecurring && s.Trigger.Description != "" {
		description = s.Trigger.Description
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO schedules (
			id, contact_id, contact_name, contact_phone, message,
			schedule_type, scheduled_time, cron_expression, cron_description,
			is_active, next_run, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+scheduleColumns,
		s.ID, s.ContactID, s.ContactName, s.ContactPhone, s.Message,
		string(s.Trigger.Type), nullMillis(s.Trigger.ScheduledTime()), nullString(s.Trigger.CronExpression()), description,
		s.IsActive, nullMillis(s.NextRun), millis(r.now()),
	)
	return scanSchedule(row)
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	return scanSchedule(row)
}

func (r *ScheduleRepository) List(ctx context.Context, input repository.ListSchedulesInput) ([]*domain.Schedule, error) {
	if input.CursorTime != nil {
		ms := millis(*input.CursorTime)
		return r.query(ctx, `
			SELECT `+scheduleColumns+`
			FROM schedules
			WHERE created_at < ? OR (created_at = ? AND id < ?)
			ORDER BY created_at DESC, id DESC
			LIMIT ?`,
			ms, ms, input.CursorID, input.Limit)
	}
	return r.query(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, input.Limit)
}

func (r *ScheduleRepository) ListActive(ctx context.Context) ([]*domain.Schedule, error) {
	return r.query(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE is_active = 1 ORDER BY created_at ASC`)
}

func (r *ScheduleRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE schedules SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return requireRow(res)
}

func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return requireRow(res)
}

func (r *ScheduleRepository) Claim(ctx context.Context, id string, now time.Time, lease time.Duration) (*domain.Schedule, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE schedules
		SET    executing_at = ?
		WHERE  id = ?
		  AND  is_active = 1
		  AND  (executing_at IS NULL OR executing_at < ?)
		RETURNING `+scheduleColumns,
		millis(now), id, millis(now.Add(-lease)),
	)
	s, err := scanSchedule(row)
	if errors.Is(err, domain.ErrScheduleNotFound) {
		r.logger.DebugContext(ctx, "claim rejected", "schedule_id", id)
		return nil, domain.ErrScheduleNotClaimable
	}
	return s, err
}

func (r *ScheduleRepository) Finish(ctx context.Context, id string, in domain.FinishInput) error {
	var completedAt any
	if in.Complete {
		completedAt = millis(in.LastRun)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE schedules
		SET    last_run     = ?,
		       next_run     = ?,
		       executing_at = NULL,
		       is_active    = CASE WHEN ? THEN 0 ELSE is_active END,
		       completed_at = COALESCE(?, completed_at)
		WHERE  id = ?
		  AND  executing_at = ?`,
		millis(in.LastRun), nullMillis(in.NextRun), in.Complete, completedAt, id, millis(in.ClaimedAt),
	)
	if err != nil {
		return fmt.Errorf("finish schedule: %w", err)
	}
	return r.requireLease(ctx, res, id)
}

func (r *ScheduleRepository) ReleaseClaim(ctx context.Context, id string, claimedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE schedules SET executing_at = NULL WHERE id = ? AND executing_at = ?`,
		id, millis(claimedAt),
	)
	if err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	return r.requireLease(ctx, res, id)
}

func (r *ScheduleRepository) requireLease(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		r.logger.DebugContext(ctx, "lease no longer held", "schedule_id", id)
		return domain.ErrLeaseLost
	}
	return nil
}

func (r *ScheduleRepository) SetNextRun(ctx context.Context, id string, next *time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE schedules SET next_run = ? WHERE id = ?`, nullMillis(next), id); err != nil {
		return fmt.Errorf("set next run: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) MarkLapsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE schedules
		SET    is_active = 0, lapsed_at = ?, next_run = NULL
		WHERE  id = ? AND schedule_type = 'once'`,
		millis(at), id,
	)
	if err != nil {
		return fmt.Errorf("mark lapsed: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var schedules []*domain.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return schedules, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var (
		s                                 domain.Schedule
		typ                               string
		at, lastRun, nextRun, executingAt sql.NullInt64
		completedAt, lapsedAt             sql.NullInt64
		expr, descr                       sql.NullString
		createdAt                         int64
	)
	err := row.Scan(
		&s.ID, &s.ContactID, &s.ContactName, &s.ContactPhone, &s.Message,
		&typ, &at, &expr, &descr,
		&s.IsActive, &lastRun, &nextRun, &executingAt, &completedAt,
		&lapsedAt, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("scan schedule: %w", err)
	}

	switch domain.ScheduleType(typ) {
	case domain.ScheduleOnce:
		if t := fromMillis(at); t != nil {
			s.Trigger = domain.OnceAt(*t)
		}
	case domain.ScheduleRecurring:
		if expr.Valid {
			s.Trigger = domain.Recurring(expr.String, descr.String)
		}
	}
	if s.Trigger.Type == "" {
		s.Trigger.Type = domain.ScheduleType(typ)
	}

	s.LastRun = fromMillis(lastRun)
	s.NextRun = fromMillis(nextRun)
	s.ExecutingAt = fromMillis(executingAt)
	s.CompletedAt = fromMillis(completedAt)
	s.LapsedAt = fromMillis(lapsedAt)
	s.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &s, nil
}
