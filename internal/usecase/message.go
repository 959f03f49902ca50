package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
	"github.com/ErlanBelekov/wa-scheduler/internal/repository"
	"github.com/ErlanBelekov/wa-scheduler/internal/scheduler"
)

type MessageUsecase struct {
	logs     repository.MessageLogRepository
	contacts repository.ContactRepository
	sender   scheduler.Sender
	logger   *slog.Logger
	now      func() time.Time
}

func NewMessageUsecase(
	logs repository.MessageLogRepository,
	contacts repository.ContactRepository,
	sender scheduler.Sender,
	logger *slog.Logger,
) *MessageUsecase {
	return &MessageUsecase{
		logs:     logs,
		contacts: contacts,
		sender:   sender,
		logger:   logger.With("component", "message_usecase"),
		now:      time.Now,
	}
}

type SendNowInput struct {
	ContactID string
	Message   string
}

// SendNow delivers an ad hoc message outside any schedule. The outcome is
// logged without a schedule id and mirrored back to the caller.
func (u *MessageUsecase) SendNow(ctx context.Context, input SendNowInput) (*domain.MessageLog, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, domain.ErrInvalidSchedule
	}
	contact, err := u.contacts.GetByID(ctx, input.ContactID)
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}

	res := u.sender.Send(ctx, contact.Phone, message)

	entry := &domain.MessageLog{
		ContactID:    contact.ID,
		ContactName:  contact.Name,
		ContactPhone: contact.Phone,
		Message:      message,
		Status:       domain.LogSent,
		SentAt:       u.now(),
	}
	if !res.Success {
		entry.Status = domain.LogFailed
		reason := res.Error
		entry.ErrorMessage = &reason
	}

	created, err := u.logs.Create(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("append message log: %w", err)
	}
	u.logger.InfoContext(ctx, "send-now finished", "contact_id", contact.ID, "status", created.Status, "attempts", res.Attempts)
	return created, nil
}

type ListLogsInput struct {
	ScheduleID string
	Cursor     string
	Limit      int
}

type ListLogsResult struct {
	Logs       []*domain.MessageLog
	NextCursor *string
}

func (u *MessageUsecase) ListLogs(ctx context.Context, input ListLogsInput) (ListLogsResult, error) {
	limit := pageSize(input.Limit)
	repoInput := repository.ListLogsInput{ScheduleID: input.ScheduleID, Limit: limit + 1}

	if input.Cursor != "" {
		at, id, err := decodeCursor(input.Cursor)
		if err != nil {
			return ListLogsResult{}, domain.ErrInvalidCursor
		}
		repoInput.CursorTime = at
		repoInput.CursorID = id
	}

	logs, err := u.logs.List(ctx, repoInput)
	if err != nil {
		return ListLogsResult{}, fmt.Errorf("list logs: %w", err)
	}

	var next *string
	if len(logs) == limit+1 {
		last := logs[limit-1]
		c := encodeCursor(last.SentAt, last.ID)
		next = &c
		logs = logs[:limit]
	}
	return ListLogsResult{Logs: logs, NextCursor: next}, nil
}
