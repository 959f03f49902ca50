package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
	"github.com/ErlanBelekov/wa-scheduler/internal/repository"
	"github.com/google/uuid"
)

const logColumns = `id, contact_id, contact_name, contact_phone, message,
	status, error_message, scheduled_message_id, sent_at`

type MessageLogRepository struct {
	db *sql.DB
}

func NewMessageLogRepository(db *sql.DB) *MessageLogRepository {
	return &MessageLogRepository{db: db}
}

func (r *MessageLogRepository) Create(ctx context.Context, l *domain.MessageLog) (*domain.MessageLog, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO message_logs (
			id, contact_id, contact_name, contact_phone, message,
			status, error_message, scheduled_message_id, sent_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+logColumns,
		l.ID, l.ContactID, l.ContactName, l.ContactPhone, l.Message,
		string(l.Status), nullString(l.ErrorMessage), nullString(l.ScheduledMessageID), millis(l.SentAt),
	)
	return scanLog(row)
}

func (r *MessageLogRepository) List(ctx context.Context, input repository.ListLogsInput) ([]*domain.MessageLog, error) {
	var args []any
	var where []string

	if input.ScheduleID != "" {
		where = append(where, "scheduled_message_id = ?")
		args = append(args, input.ScheduleID)
	}
	if input.CursorTime != nil {
		ms := millis(*input.CursorTime)
		where = append(where, "(sent_at < ? OR (sent_at = ? AND id < ?))")
		args = append(args, ms, ms, input.CursorID)
	}
	args = append(args, input.Limit)

	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM message_logs
		%s
		ORDER BY sent_at DESC, id DESC
		LIMIT ?`, logColumns, clause), args...)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
	var (
		l               domain.MessageLog
		status          string
		errMsg, schedID sql.NullString
		sentAt          int64
	)
	err := row.Scan(
		&l.ID, &l.ContactID, &l.ContactName, &l.ContactPhone, &l.Message,
		&status, &errMsg, &schedID, &sentAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan log: %w", err)
	}
	l.Status = domain.LogStatus(status)
	l.ErrorMessage = fromNullString(errMsg)
	l.ScheduledMessageID = fromNullString(schedID)
	l.SentAt = time.UnixMilli(sentAt).UTC()
	return &l, nil
}
