package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
	"github.com/ErlanBelekov/wa-scheduler/internal/scheduler"
	"github.com/ErlanBelekov/wa-scheduler/internal/usecase"
	"github.com/gin-gonic/gin"
)

// scheduleUsecaser is the subset of ScheduleUsecase the handler needs.
type scheduleUsecaser interface {
	CreateSchedule(ctx context.Context, input usecase.CreateScheduleInput) (*domain.Schedule, error)
	GetSchedule(ctx context.Context, id string) (*domain.Schedule, error)
	ListSchedules(ctx context.Context, input usecase.ListSchedulesInput) (usecase.ListSchedulesResult, error)
	ToggleSchedule(ctx context.Context, id string) (*domain.Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
	TestRun(ctx context.Context, id string) (scheduler.Outcome, error)
	Debug(ctx context.Context) (usecase.DebugSnapshot, error)
}

type ScheduleHandler struct {
	uc     scheduleUsecaser
	logger *slog.Logger
}

func NewScheduleHandler(uc scheduleUsecaser, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{uc: uc, logger: logger.With("component", "schedule_handler")}
}

type createScheduleRequest struct {
	ContactID       string              `json:"contact_id"       binding:"required"`
	Message         string              `json:"message"          binding:"required,max=4096"`
	ScheduleType    domain.ScheduleType `json:"schedule_type"    binding:"required,oneof=once recurring"`
	ScheduledTime   *time.Time          `json:"scheduled_time"`
	CronExpression  string              `json:"cron_expression"  binding:"max=128"`
	CronDescription string              `json:"cron_description" binding:"max=256"`
	Preset          string              `json:"preset"`
	PresetHour      int                 `json:"preset_hour"      binding:"min=0,max=23"`
}

type scheduleResponse struct {
	ID              string              `json:"id"`
	ContactID       string              `json:"contact_id"`
	ContactName     string              `json:"contact_name"`
	ContactPhone    string              `json:"contact_phone"`
	Message         string              `json:"message"`
	ScheduleType    domain.ScheduleType `json:"schedule_type"`
	ScheduledTime   *time.Time          `json:"scheduled_time,omitempty"`
	CronExpression  *string             `json:"cron_expression,omitempty"`
	CronDescription string              `json:"cron_description,omitempty"`
	IsActive        bool                `json:"is_active"`
	Executing       bool                `json:"executing"`
	LastRun         *time.Time          `json:"last_run,omitempty"`
	NextRun         *time.Time          `json:"next_run,omitempty"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	LapsedAt        *time.Time          `json:"lapsed_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

func toScheduleResponse(s *domain.Schedule) scheduleResponse {
	return scheduleResponse{
		ID:              s.ID,
		ContactID:       s.ContactID,
		ContactName:     s.ContactName,
		ContactPhone:    s.ContactPhone,
		Message:         s.Message,
		ScheduleType:    s.Trigger.Type,
		ScheduledTime:   s.Trigger.ScheduledTime(),
		CronExpression:  s.Trigger.CronExpression(),
		CronDescription: s.Trigger.Description,
		IsActive:        s.IsActive,
		Executing:       s.ExecutingAt != nil,
		LastRun:         s.LastRun,
		NextRun:         s.NextRun,
		CompletedAt:     s.CompletedAt,
		LapsedAt:        s.LapsedAt,
		CreatedAt:       s.CreatedAt,
	}
}

type outcomeResponse struct {
	Success  bool   `json:"success"`
	Skipped  bool   `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
	Attempts int    `json:"attempts"`
	LogID    string `json:"log_id,omitempty"`
}

// POST /schedules
func (h *ScheduleHandler) Create(ctx *gin.Context) {
	var req createScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.uc.CreateSchedule(ctx.Request.Context(), usecase.CreateScheduleInput{
		ContactID:       req.ContactID,
		Message:         req.Message,
		Type:            req.ScheduleType,
		ScheduledTime:   req.ScheduledTime,
		CronExpr:        req.CronExpression,
		CronDescription: req.CronDescription,
		Preset:          req.Preset,
		PresetHour:      req.PresetHour,
	})
	if err != nil {
		respondError(ctx, h.logger, "create schedule", err)
		return
	}

	h.logger.InfoContext(ctx.Request.Context(), "schedule created", "schedule_id", s.ID, "type", s.Trigger.Type)
	ctx.JSON(http.StatusCreated, toScheduleResponse(s))
}

// GET /schedules
func (h *ScheduleHandler) List(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))

	result, err := h.uc.ListSchedules(ctx.Request.Context(), usecase.ListSchedulesInput{
		Cursor: ctx.Query("cursor"),
		Limit:  limit,
	})
	if err != nil {
		respondError(ctx, h.logger, "list schedules", err)
		return
	}

	items := make([]scheduleResponse, len(result.Schedules))
	for i, s := range result.Schedules {
		items[i] = toScheduleResponse(s)
	}
	ctx.JSON(http.StatusOK, gin.H{
		"schedules":   items,
		"next_cursor": result.NextCursor,
	})
}

// GET /schedules/:id
func (h *ScheduleHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	s, err := h.uc.GetSchedule(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, h.logger, "get schedule", err, "schedule_id", id)
		return
	}
	ctx.JSON(http.StatusOK, toScheduleResponse(s))
}

// POST /schedules/:id/toggle
func (h *ScheduleHandler) Toggle(ctx *gin.Context) {
	id := ctx.Param("id")

	s, err := h.uc.ToggleSchedule(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, h.logger, "toggle schedule", err, "schedule_id", id)
		return
	}
	ctx.JSON(http.StatusOK, toScheduleResponse(s))
}

// DELETE /schedules/:id
func (h *ScheduleHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if err := h.uc.DeleteSchedule(ctx.Request.Context(), id); err != nil {
		respondError(ctx, h.logger, "delete schedule", err, "schedule_id", id)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// POST /schedules/:id/test-run
// Runs through the same claim as a timed fire. 409 when another execution
// holds the lease or the schedule is paused.
func (h *ScheduleHandler) TestRun(ctx *gin.Context) {
	id := ctx.Param("id")

	out, err := h.uc.TestRun(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, h.logger, "test run", err, "schedule_id", id)
		return
	}
	if out.Skipped {
		ctx.JSON(http.StatusConflict, outcomeResponse{Skipped: true, Error: errAlreadyExecuting})
		return
	}
	ctx.JSON(http.StatusOK, outcomeResponse{
		Success:  out.Sent,
		Error:    out.Error,
		Attempts: out.Attempts,
		LogID:    out.LogID,
	})
}

// GET /schedules/debug
func (h *ScheduleHandler) Debug(ctx *gin.Context) {
	snap, err := h.uc.Debug(ctx.Request.Context())
	if err != nil {
		respondError(ctx, h.logger, "debug snapshot", err)
		return
	}
	entries := snap.Entries
	if entries == nil {
		entries = []scheduler.Entry{}
	}
	ctx.JSON(http.StatusOK, gin.H{
		"server_time": snap.ServerTime,
		"timezone":    snap.Location,
		"jobs":        entries,
		"unarmed":     snap.Unarmed,
	})
}

type presetResponse struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Cron  string `json:"cron"`
}

// GET /schedules/presets?hour=9
func (h *ScheduleHandler) Presets(ctx *gin.Context) {
	hour := 9
	if raw := ctx.Query("hour"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 || v > 23 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidPresetHour})
			return
		}
		hour = v
	}

	presets := scheduler.Presets()
	items := make([]presetResponse, 0, len(presets))
	for _, p := range presets {
		expr, err := scheduler.PresetCron(p.Key, hour)
		if err != nil {
			respondError(ctx, h.logger, "render preset", err, "preset", p.Key)
			return
		}
		items = append(items, presetResponse{Key: p.Key, Label: p.Label, Cron: expr})
	}
	ctx.JSON(http.StatusOK, gin.H{"presets": items})
}
