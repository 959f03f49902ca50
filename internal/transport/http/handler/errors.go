package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	errInternalServer    = "Internal server error"
	errScheduleNotFound  = "Schedule not found"
	errContactNotFound   = "Contact not found"
	errInvalidCronExpr   = "Invalid cron expression"
	errInvalidSchedule   = "Invalid schedule: once needs scheduled_time, recurring needs cron_expression or preset, message must not be empty"
	errScheduleInPast    = "Scheduled time must be in the future"
	errInvalidPhone      = "Phone number must contain only digits"
	errInvalidCursor     = "Invalid cursor"
	errAlreadyExecuting  = "Schedule is inactive or already executing"
	errInvalidPresetHour = "hour must be between 0 and 23"
)

var errorTable = []struct {
	err    error
	status int
	msg    string
}{
	{domain.ErrScheduleNotFound, http.StatusNotFound, errScheduleNotFound},
	{domain.ErrContactNotFound, http.StatusNotFound, errContactNotFound},
	{domain.ErrInvalidCronExpr, http.StatusBadRequest, errInvalidCronExpr},
	{domain.ErrScheduleInPast, http.StatusBadRequest, errScheduleInPast},
	{domain.ErrInvalidSchedule, http.StatusBadRequest, errInvalidSchedule},
	{domain.ErrInvalidPhone, http.StatusBadRequest, errInvalidPhone},
	{domain.ErrInvalidCursor, http.StatusBadRequest, errInvalidCursor},
}

// respondError maps domain sentinels to their status. Anything else is
// logged and answered with a 500.
func respondError(ctx *gin.Context, logger *slog.Logger, op string, err error, args ...any) {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			ctx.JSON(e.status, gin.H{"error": e.msg})
			return
		}
	}
	logger.ErrorContext(ctx.Request.Context(), op, append(args, "error", err)...)
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
}
