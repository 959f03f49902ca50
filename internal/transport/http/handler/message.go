package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
	"github.com/ErlanBelekov/wa-scheduler/internal/usecase"
	"github.com/gin-gonic/gin"
)

type messageUsecaser interface {
	SendNow(ctx context.Context, input usecase.SendNowInput) (*domain.MessageLog, error)
	ListLogs(ctx context.Context, input usecase.ListLogsInput) (usecase.ListLogsResult, error)
}

type MessageHandler struct {
	uc     messageUsecaser
	logger *slog.Logger
}

func NewMessageHandler(uc messageUsecaser, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{uc: uc, logger: logger.With("component", "message_handler")}
}

type sendNowRequest struct {
	ContactID string `json:"contact_id" binding:"required"`
	Message   string `json:"message"    binding:"required,max=4096"`
}

type logResponse struct {
	ID                 string           `json:"id"`
	ContactID          string           `json:"contact_id"`
	ContactName        string           `json:"contact_name"`
	ContactPhone       string           `json:"contact_phone"`
	Message            string           `json:"message"`
	Status             domain.LogStatus `json:"status"`
	ErrorMessage       *string          `json:"error_message,omitempty"`
	ScheduledMessageID *string          `json:"scheduled_message_id,omitempty"`
	SentAt             time.Time        `json:"sent_at"`
}

func toLogResponse(l *domain.MessageLog) logResponse {
	return logResponse{
		ID:                 l.ID,
		ContactID:          l.ContactID,
		ContactName:        l.ContactName,
		ContactPhone:       l.ContactPhone,
		Message:            l.Message,
		Status:             l.Status,
		ErrorMessage:       l.ErrorMessage,
		ScheduledMessageID: l.ScheduledMessageID,
		SentAt:             l.SentAt,
	}
}

// POST /messages/send-now
// A failed delivery is still a 200: the outcome is in the body and the log.
func (h *MessageHandler) SendNow(ctx *gin.Context) {
	var req sendNowRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.uc.SendNow(ctx.Request.Context(), usecase.SendNowInput{
		ContactID: req.ContactID,
		Message:   req.Message,
	})
	if err != nil {
		respondError(ctx, h.logger, "send now", err, "contact_id", req.ContactID)
		return
	}

	resp := outcomeResponse{Success: entry.Status == domain.LogSent, LogID: entry.ID}
	if entry.ErrorMessage != nil {
		resp.Error = *entry.ErrorMessage
	}
	ctx.JSON(http.StatusOK, resp)
}

// GET /logs and GET /schedules/:id/logs
func (h *MessageHandler) ListLogs(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	scheduleID := ctx.Param("id")
	if scheduleID == "" {
		scheduleID = ctx.Query("schedule_id")
	}

	result, err := h.uc.ListLogs(ctx.Request.Context(), usecase.ListLogsInput{
		ScheduleID: scheduleID,
		Cursor:     ctx.Query("cursor"),
		Limit:      limit,
	})
	if err != nil {
		respondError(ctx, h.logger, "list logs", err)
		return
	}

	items := make([]logResponse, len(result.Logs))
	for i, l := range result.Logs {
		items[i] = toLogResponse(l)
	}
	ctx.JSON(http.StatusOK, gin.H{
		"logs":        items,
		"next_cursor": result.NextCursor,
	})
}
