package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrScheduleNotFound     = errors.New("schedule not found")
	ErrInvalidCronExpr      = errors.New("invalid cron expression")
	ErrInvalidSchedule      = errors.New("invalid schedule definition")
	ErrScheduleInPast       = errors.New("scheduled time is in the past")
	ErrScheduleNotClaimable = errors.New("schedule is inactive or already executing")
	ErrInvalidCursor        = errors.New("invalid cursor")
	ErrLeaseLost            = errors.New("execution lease was taken over")
)

type ScheduleType string

const (
	ScheduleOnce      ScheduleType = "once"
	ScheduleRecurring ScheduleType = "recurring"
)

// Trigger is the tagged fire definition of a schedule. Only the fields of
// the variant named by Type are meaningful: At for once, Cron and
// Description for recurring.
type Trigger struct {
	Type        ScheduleType
	At          time.Time
	Cron        string
	Description string
}

func OnceAt(at time.Time) Trigger {
	return Trigger{Type: ScheduleOnce, At: at}
}

func Recurring(expr, description string) Trigger {
	return Trigger{Type: ScheduleRecurring, Cron: strings.TrimSpace(expr), Description: description}
}

// Validate checks the variant shape only. Cron syntax is checked by the
// scheduler package, which owns the parser.
func (t Trigger) Validate() error {
	switch t.Type {
	case ScheduleOnce:
		if t.At.IsZero() || t.Cron != "" {
			return ErrInvalidSchedule
		}
	case ScheduleRecurring:
		if t.Cron == "" || !t.At.IsZero() {
			return ErrInvalidSchedule
		}
	default:
		return ErrInvalidSchedule
	}
	return nil
}

// ScheduledTime returns the one-shot instant, nil for recurring schedules.
func (t Trigger) ScheduledTime() *time.Time {
	if t.Type != ScheduleOnce {
		return nil
	}
	at := t.At
	return &at
}

// CronExpression returns the cron rule, nil for one-shot schedules.
func (t Trigger) CronExpression() *string {
	if t.Type != ScheduleRecurring {
		return nil
	}
	expr := t.Cron
	return &expr
}

type Schedule struct {
	ID           string
	ContactID    string
	ContactName  string
	ContactPhone string
	Message      string
	Trigger      Trigger
	IsActive     bool
	LastRun      *time.Time
	NextRun      *time.Time
	ExecutingAt  *time.Time // lease; non-nil while an execution is in flight
	CompletedAt  *time.Time
	LapsedAt     *time.Time // set when a one-shot was found elapsed on reload
	CreatedAt    time.Time
}

// Leased reports whether an execution holds the lease at now. A lease
// exactly lease old is still held.
func (s *Schedule) Leased(now time.Time, lease time.Duration) bool {
	if s.ExecutingAt == nil {
		return false
	}
	return !s.ExecutingAt.Before(now.Add(-lease))
}

// FinishInput is the targeted update applied when an execution completes.
type FinishInput struct {
	ClaimedAt time.Time // executing_at returned by Claim
	LastRun   time.Time
	NextRun   *time.Time
	Complete  bool // one-shot: deactivate and stamp completed_at
}
