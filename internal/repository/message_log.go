package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
)

type ListLogsInput struct {
	ScheduleID string     // empty = all logs
	CursorTime *time.Time // cursor on (sent_at DESC, id DESC)
	CursorID   string
	Limit      int
}

// MessageLogRepository is append-only.
type MessageLogRepository interface {
	Create(ctx context.Context, l *domain.MessageLog) (*domain.MessageLog, error)
	List(ctx context.Context, input ListLogsInput) ([]*domain.MessageLog, error)
}
