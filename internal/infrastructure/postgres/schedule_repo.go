package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
	"github.com/ErlanBelekov/wa-scheduler/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const scheduleColumns = `id, contact_id, contact_name, contact_phone, message,
		       schedule_type, scheduled_time, cron_expression, cron_description,
		       is_active, last_run, next_run, executing_at, completed_at,
		       lapsed_at, created_at`

type ScheduleRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewScheduleRepository(pool *pgxpool.Pool, logger *slog.Logger) *ScheduleRepository {
	return &ScheduleRepository{pool: pool, logger: logger.With("component", "schedule_repo")}
}

func (r *ScheduleRepository) Create(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	var description *string
	if s.Trigger.Type == domain.ScheduleRecurring && s.Trigger.Description != "" {
		description = &s.Trigger.Description
	}

	query := `
		INSERT INTO schedules (
			id, contact_id, contact_name, contact_phone, message,
			schedule_type, scheduled_time, cron_expression, cron_description,
			is_active, next_run
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + scheduleColumns

	row := r.pool.QueryRow(ctx, query,
		s.ID, s.ContactID, s.ContactName, s.ContactPhone, s.Message,
		s.Trigger.Type, s.Trigger.ScheduledTime(), s.Trigger.CronExpression(), description,
		s.IsActive, s.NextRun,
	)
	return scanSchedule(row)
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id)
	return scanSchedule(row)
}

func (r *ScheduleRepository) List(ctx context.Context, input repository.ListSchedulesInput) ([]*domain.Schedule, error) {
	var args []any
	var where []string

	if input.CursorTime != nil {
		args = append(args, *input.CursorTime, input.CursorID)
		where = append(where, fmt.Sprintf("(created_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}
	args = append(args, input.Limit)

	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM schedules
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d`,
		scheduleColumns, clause, len(args))

	return r.query(ctx, query, args...)
}

func (r *ScheduleRepository) ListActive(ctx context.Context) ([]*domain.Schedule, error) {
	return r.query(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE is_active ORDER BY created_at ASC`)
}

func (r *ScheduleRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE schedules SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

// Claim is a single conditional UPDATE so two callers can never both see
// the lease as free.
func (r *ScheduleRepository) Claim(ctx context.Context, id string, now time.Time, lease time.Duration) (*domain.Schedule, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE schedules
		SET    executing_at = $2
		WHERE  id = $1
		  AND  is_active
		  AND  (executing_at IS NULL OR executing_at < $3)
		RETURNING `+scheduleColumns,
		id, now, now.Add(-lease),
	)
	s, err := scanSchedule(row)
	if errors.Is(err, domain.ErrScheduleNotFound) {
		r.logger.DebugContext(ctx, "claim rejected", "schedule_id", id)
		return nil, domain.ErrScheduleNotClaimable
	}
	return s, err
}

func (r *ScheduleRepository) Finish(ctx context.Context, id string, in domain.FinishInput) error {
	var completedAt *time.Time
	if in.Complete {
		completedAt = &in.LastRun
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE schedules
		SET    last_run     = $2,
		       next_run     = $3,
		       executing_at = NULL,
		       is_active    = CASE WHEN $4 THEN FALSE ELSE is_active END,
		       completed_at = COALESCE($5, completed_at)
		WHERE  id = $1
		  AND  executing_at = $6`,
		id, in.LastRun, in.NextRun, in.Complete, completedAt, in.ClaimedAt,
	)
	if err != nil {
		return fmt.Errorf("finish schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLeaseLost
	}
	return nil
}

func (r *ScheduleRepository) ReleaseClaim(ctx context.Context, id string, claimedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE schedules SET executing_at = NULL WHERE id = $1 AND executing_at = $2`,
		id, claimedAt,
	)
	if err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLeaseLost
	}
	return nil
}

func (r *ScheduleRepository) SetNextRun(ctx context.Context, id string, next *time.Time) error {
	if _, err := r.pool.Exec(ctx, `UPDATE schedules SET next_run = $2 WHERE id = $1`, id, next); err != nil {
		return fmt.Errorf("set next run: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) MarkLapsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE schedules
		SET    is_active = FALSE, lapsed_at = $2, next_run = NULL
		WHERE  id = $1 AND schedule_type = 'once'`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("mark lapsed: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Schedule, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

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

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var (
		s           domain.Schedule
		typ         string
		at          *time.Time
		expr, descr *string
	)
	err := row.Scan(
		&s.ID, &s.ContactID, &s.ContactName, &s.ContactPhone, &s.Message,
		&typ, &at, &expr, &descr,
		&s.IsActive, &s.LastRun, &s.NextRun, &s.ExecutingAt, &s.CompletedAt,
		&s.LapsedAt, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("scan schedule: %w", err)
	}
	s.Trigger = triggerFromColumns(domain.ScheduleType(typ), at, expr, descr)
	return &s, nil
}

func triggerFromColumns(typ domain.ScheduleType, at *time.Time, expr, descr *string) domain.Trigger {
	switch typ {
	case domain.ScheduleOnce:
		if at != nil {
			return domain.OnceAt(*at)
		}
	case domain.ScheduleRecurring:
		if expr != nil {
			d := ""
			if descr != nil {
				d = *descr
			}
			return domain.Recurring(*expr, d)
		}
	}
	return domain.Trigger{Type: typ}
}
