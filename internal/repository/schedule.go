package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
)

type ListSchedulesInput struct {
	CursorTime *time.Time // cursor on (created_at DESC, id DESC)
	CursorID   string
	Limit      int
}

// ScheduleRepository is the durable source of truth for schedules. The
// in-process scheduler only caches registrations derived from it.
//
// Execution state (executing_at, last_run, next_run, is_active) is only ever
// changed through targeted updates, never by rewriting the whole row.
type ScheduleRepository interface {
	Create(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error)
	GetByID(ctx context.Context, id string) (*domain.Schedule, error)
	List(ctx context.Context, input ListSchedulesInput) ([]*domain.Schedule, error)
	ListActive(ctx context.Context) ([]*domain.Schedule, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error

	// Claim atomically takes the execution lease: it succeeds only when the
	// schedule is active and executing_at is unset or older than now-lease.
	// Returns domain.ErrScheduleNotClaimable when another execution holds it.
	Claim(ctx context.Context, id string, now time.Time, lease time.Duration) (*domain.Schedule, error)
	// Finish records the run and clears the lease in one update. It only
	// applies while executing_at still equals in.ClaimedAt and returns
	// domain.ErrLeaseLost once a later claim has taken over.
	Finish(ctx context.Context, id string, in domain.FinishInput) error
	// ReleaseClaim clears the lease taken at claimedAt without touching
	// anything else. Returns domain.ErrLeaseLost if the lease changed hands.
	ReleaseClaim(ctx context.Context, id string, claimedAt time.Time) error

	SetNextRun(ctx context.Context, id string, next *time.Time) error
	// MarkLapsed deactivates a one-shot whose fire time passed while no
	// trigger was armed.
	MarkLapsed(ctx context.Context, id string, at time.Time) error
}
