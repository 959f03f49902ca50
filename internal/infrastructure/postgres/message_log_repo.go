package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
	"github.com/ErlanBelekov/wa-scheduler/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const logColumns = `id, contact_id, contact_name, contact_phone, message,
		       status, error_message, scheduled_message_id, sent_at`

type MessageLogRepository struct {
	pool *pgxpool.Pool
}

func NewMessageLogRepository(pool *pgxpool.Pool) *MessageLogRepository {
	return &MessageLogRepository{pool: pool}
}

func (r *MessageLogRepository) Create(ctx context.Context, l *domain.MessageLog) (*domain.MessageLog, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	query := `
		INSERT INTO message_logs (
			id, contact_id, contact_name, contact_phone, message,
			status, error_message, scheduled_message_id, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + logColumns

	row := r.pool.QueryRow(ctx, query,
		l.ID, l.ContactID, l.ContactName, l.ContactPhone, l.Message,
		l.Status, l.ErrorMessage, l.ScheduledMessageID, l.SentAt,
	)
	return scanLog(row)
}

func (r *MessageLogRepository) List(ctx context.Context, input repository.ListLogsInput) ([]*domain.MessageLog, error) {
	var args []any
	var where []string

	if input.ScheduleID != "" {
		args = append(args, input.ScheduleID)
		where = append(where, fmt.Sprintf("scheduled_message_id = $%d", len(args)))
	}
	if input.CursorTime != nil {
		args = append(args, *input.CursorTime, input.CursorID)
		where = append(where, fmt.Sprintf("(sent_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}
	args = append(args, input.Limit)

	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM message_logs
		%s
		ORDER BY sent_at DESC, id DESC
		LIMIT $%d`,
		logColumns, clause, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	var logs []*domain.MessageLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logs: %w", err)
	}
	return logs, nil
}

func scanLog(row rowScanner) (*domain.MessageLog, error) {
	var l domain.MessageLog
	var status string
	err := row.Scan(
		&l.ID, &l.ContactID, &l.ContactName, &l.ContactPhone, &l.Message,
		&status, &l.ErrorMessage, &l.ScheduledMessageID, &l.SentAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan log: %w", err)
	}
	l.Status = domain.LogStatus(status)
	return &l, nil
}
