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

// Triggers is the slice of *scheduler.Jobs the API needs.
type Triggers interface {
	RegisterSchedule(s *domain.Schedule) (time.Time, error)
	Unregister(id string)
	Entries() []scheduler.Entry
	Location() *time.Location
}

type Runner interface {
	Execute(ctx context.Context, scheduleID string) (scheduler.Outcome, error)
}

type ScheduleUsecase struct {
	schedules repository.ScheduleRepository
	contacts  repository.ContactRepository
	triggers  Triggers
	runner    Runner
	logger    *slog.Logger
	now       func() time.Time
}

func NewScheduleUsecase(
	schedules repository.ScheduleRepository,
	contacts repository.ContactRepository,
	triggers Triggers,
	runner Runner,
	logger *slog.Logger,
) *ScheduleUsecase {
	return &ScheduleUsecase{
		schedules: schedules,
		contacts:  contacts,
		triggers:  triggers,
		runner:    runner,
		logger:    logger.With("component", "schedule_usecase"),
		now:       time.Now,
	}
}

type CreateScheduleInput struct {
	ContactID string
	Message   string
	Type      domain.ScheduleType

	ScheduledTime *time.Time // once

	CronExpr        string // recurring; or Preset + PresetHour
	CronDescription string
	Preset          string
	PresetHour      int
}

// CreateSchedule validates the trigger, snapshots the contact onto the
// schedule, stores it and arms its trigger.
func (u *ScheduleUsecase) CreateSchedule(ctx context.Context, input CreateScheduleInput) (*domain.Schedule, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, domain.ErrInvalidSchedule
	}

	trigger, err := u.buildTrigger(input)
	if err != nil {
		return nil, err
	}
	spec, err := scheduler.FireSpecFor(trigger, u.triggers.Location())
	if err != nil {
		return nil, err
	}
	next := spec.Next(u.now())
	if next.IsZero() {
		return nil, domain.ErrScheduleInPast
	}

	contact, err := u.contacts.GetByID(ctx, input.ContactID)
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}

	created, err := u.schedules.Create(ctx, &domain.Schedule{
		ContactID:    contact.ID,
		ContactName:  contact.Name,
		ContactPhone: contact.Phone,
		Message:      message,
		Trigger:      trigger,
		IsActive:     true,
		NextRun:      &next,
	})
	if err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}

	// The row is the source of truth; a failed registration is repaired by
	// the next reload and shows up in the debug snapshot meanwhile.
	if _, err := u.triggers.RegisterSchedule(created); err != nil {
		u.logger.ErrorContext(ctx, "register trigger for new schedule", "schedule_id", created.ID, "error", err)
	}
	return created, nil
}

func (u *ScheduleUsecase) buildTrigger(input CreateScheduleInput) (domain.Trigger, error) {
	switch input.Type {
	case domain.ScheduleOnce:
		if input.ScheduledTime == nil {
			return domain.Trigger{}, domain.ErrInvalidSchedule
		}
		if !input.ScheduledTime.After(u.now()) {
			return domain.Trigger{}, domain.ErrScheduleInPast
		}
		return domain.OnceAt(*input.ScheduledTime), nil
	case domain.ScheduleRecurring:
		expr, description := input.CronExpr, input.CronDescription
		if input.Preset != "" {
			rendered, err := scheduler.PresetCron(input.Preset, input.PresetHour)
			if err != nil {
				return domain.Trigger{}, fmt.Errorf("%w: %v", domain.ErrInvalidCronExpr, err)
			}
			expr = rendered
		}
		if err := scheduler.ValidateCron(expr); err != nil {
			return domain.Trigger{}, err
		}
		return domain.Recurring(expr, description), nil
	default:
		return domain.Trigger{}, domain.ErrInvalidSchedule
	}
}

func (u *ScheduleUsecase) GetSchedule(ctx context.Context, id string) (*domain.Schedule, error) {
	s, err := u.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return s, nil
}

type ListSchedulesInput struct {
	Cursor string
	Limit  int
}

type ListSchedulesResult struct {
	Schedules  []*domain.Schedule
	NextCursor *string
}

func (u *ScheduleUsecase) ListSchedules(ctx context.Context, input ListSchedulesInput) (ListSchedulesResult, error) {
	limit := pageSize(input.Limit)
	repoInput := repository.ListSchedulesInput{Limit: limit + 1}

	if input.Cursor != "" {
		at, id, err := decodeCursor(input.Cursor)
		if err != nil {
			return ListSchedulesResult{}, domain.ErrInvalidCursor
		}
		repoInput.CursorTime = at
		repoInput.CursorID = id
	}

	schedules, err := u.schedules.List(ctx, repoInput)
	if err != nil {
		return ListSchedulesResult{}, fmt.Errorf("list schedules: %w", err)
	}

	var next *string
	if len(schedules) == limit+1 {
		last := schedules[limit-1]
		c := encodeCursor(last.CreatedAt, last.ID)
		next = &c
		schedules = schedules[:limit]
	}
	return ListSchedulesResult{Schedules: schedules, NextCursor: next}, nil
}

// ToggleSchedule flips is_active and arms or disarms the trigger to match.
func (u *ScheduleUsecase) ToggleSchedule(ctx context.Context, id string) (*domain.Schedule, error) {
	s, err := u.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}

	activate := !s.IsActive
	if activate && s.Trigger.Type == domain.ScheduleOnce && !s.Trigger.At.After(u.now()) {
		return nil, domain.ErrScheduleInPast
	}

	if err := u.schedules.SetActive(ctx, id, activate); err != nil {
		return nil, fmt.Errorf("toggle schedule: %w", err)
	}
	s.IsActive = activate

	if !activate {
		u.triggers.Unregister(id)
		return s, nil
	}

	next, err := u.triggers.RegisterSchedule(s)
	if err != nil {
		u.logger.ErrorContext(ctx, "register trigger on resume", "schedule_id", id, "error", err)
		return s, nil
	}
	if err := u.schedules.SetNextRun(ctx, id, &next); err != nil {
		u.logger.WarnContext(ctx, "persist next run", "schedule_id", id, "error", err)
	} else {
		s.NextRun = &next
	}
	return s, nil
}

func (u *ScheduleUsecase) DeleteSchedule(ctx context.Context, id string) error {
	if err := u.schedules.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	u.triggers.Unregister(id)
	return nil
}

// TestRun executes the schedule now, through the same claim as a timed
// fire, and reports the gateway outcome.
func (u *ScheduleUsecase) TestRun(ctx context.Context, id string) (scheduler.Outcome, error) {
	if _, err := u.schedules.GetByID(ctx, id); err != nil {
		return scheduler.Outcome{}, fmt.Errorf("get schedule: %w", err)
	}
	out, err := u.runner.Execute(ctx, id)
	if err != nil {
		return out, fmt.Errorf("test run: %w", err)
	}
	return out, nil
}

type DebugSnapshot struct {
	ServerTime time.Time
	Location   string
	Entries    []scheduler.Entry
	// Active in the store but with no armed trigger, e.g. a broken cron
	// rule or a failed registration.
	Unarmed []string
}

func (u *ScheduleUsecase) Debug(ctx context.Context) (DebugSnapshot, error) {
	active, err := u.schedules.ListActive(ctx)
	if err != nil {
		return DebugSnapshot{}, fmt.Errorf("list active schedules: %w", err)
	}

	entries := u.triggers.Entries()
	armed := make(map[string]bool, len(entries))
	for _, e := range entries {
		armed[e.ScheduleID] = true
	}

	snap := DebugSnapshot{
		ServerTime: u.now(),
		Location:   u.triggers.Location().String(),
		Entries:    entries,
	}
	for _, s := range active {
		if !armed[s.ID] {
			snap.Unarmed = append(snap.Unarmed, s.ID)
		}
	}
	return snap, nil
}
