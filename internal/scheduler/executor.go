package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
	"github.com/ErlanBelekov/wa-scheduler/internal/gateway"
	"github.com/ErlanBelekov/wa-scheduler/internal/metrics"
	"github.com/ErlanBelekov/wa-scheduler/internal/notify"
	"github.com/ErlanBelekov/wa-scheduler/internal/repository"
	"github.com/ErlanBelekov/wa-scheduler/internal/requestid"
)

// DefaultLease bounds how long a claimed execution blocks other claims. A
// send that outlives it can race a later fire.
const DefaultLease = 5 * time.Minute

const (
	notifyTimeout  = 10 * time.Second
	releaseTimeout = 5 * time.Second
)

type Sender interface {
	Send(ctx context.Context, phone, message string) gateway.SendResult
}

// Unregisterer drops a trigger. Satisfied by *Jobs.
type Unregisterer interface {
	Unregister(id string)
}

// Outcome is what one Execute call did. Skipped means another execution
// held the lease or the schedule was inactive; nothing was sent.
type Outcome struct {
	Skipped  bool
	Sent     bool
	Error    string
	Attempts int
	LogID    string
}

type ExecutorOption func(*Executor)

func WithLease(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.lease = d
		}
	}
}

func WithLocation(loc *time.Location) ExecutorOption {
	return func(e *Executor) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func WithTriggers(t Unregisterer) ExecutorOption {
	return func(e *Executor) { e.triggers = t }
}

func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = now }
}

type Executor struct {
	schedules repository.ScheduleRepository
	logs      repository.MessageLogRepository
	sender    Sender
	notifier  notify.Notifier
	triggers  Unregisterer
	logger    *slog.Logger
	lease     time.Duration
	loc       *time.Location
	now       func() time.Time
}

func NewExecutor(
	schedules repository.ScheduleRepository,
	logs repository.MessageLogRepository,
	sender Sender,
	notifier notify.Notifier,
	logger *slog.Logger,
	opts ...ExecutorOption,
) *Executor {
	e := &Executor{
		schedules: schedules,
		logs:      logs,
		sender:    sender,
		notifier:  notifier,
		logger:    logger.With("component", "executor"),
		lease:     DefaultLease,
		loc:       time.UTC,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fire adapts Execute to FireFunc. Autonomous fires have no caller, so the
// outcome only lands in the log and the store.
func (e *Executor) Fire(ctx context.Context, scheduleID string) {
	if _, err := e.Execute(ctx, scheduleID); err != nil {
		e.logger.ErrorContext(ctx, "scheduled execution failed", "schedule_id", scheduleID, "error", err)
	}
}

// Execute runs one invocation of the schedule: claim the lease, send,
// append one log entry, then record the run and release the lease in one
// update. A lost claim is a skip, not an error. A panic after the claim
// releases the lease and comes back as an error.
func (e *Executor) Execute(ctx context.Context, scheduleID string) (out Outcome, err error) {
	ctx = requestid.WithExecutionID(ctx, requestid.New())
	logger := e.logger.With("schedule_id", scheduleID)

	s, err := e.schedules.Claim(ctx, scheduleID, e.now(), e.lease)
	if errors.Is(err, domain.ErrScheduleNotClaimable) {
		metrics.ClaimConflictsTotal.Inc()
		metrics.ExecutionsTotal.WithLabelValues("skipped").Inc()
		logger.InfoContext(ctx, "execution skipped, schedule inactive or already executing")
		return Outcome{Skipped: true}, nil
	}
	if err != nil {
		metrics.ExecutionsTotal.WithLabelValues("error").Inc()
		return Outcome{}, fmt.Errorf("claim schedule: %w", err)
	}

	claimedAt := *s.ExecutingAt

	metrics.ExecutionsInFlight.Inc()
	defer metrics.ExecutionsInFlight.Dec()

	finished := false
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		metrics.ExecutionsTotal.WithLabelValues("error").Inc()
		logger.ErrorContext(ctx, "execution panicked", "panic", r, "stack", string(debug.Stack()))
		if !finished {
			e.release(ctx, logger, scheduleID, claimedAt)
		}
		out, err = Outcome{}, fmt.Errorf("execution panicked: %v", r)
	}()

	out, err = e.run(ctx, logger, s, claimedAt)
	if err != nil {
		metrics.ExecutionsTotal.WithLabelValues("error").Inc()
		e.release(ctx, logger, scheduleID, claimedAt)
		return out, err
	}
	finished = true

	if out.Sent {
		metrics.ExecutionsTotal.WithLabelValues("sent").Inc()
	} else {
		metrics.ExecutionsTotal.WithLabelValues("failed").Inc()
	}
	e.notify(ctx, logger, s, out)
	return out, nil
}

func (e *Executor) run(ctx context.Context, logger *slog.Logger, s *domain.Schedule, claimedAt time.Time) (Outcome, error) {
	logger.InfoContext(ctx, "sending scheduled message", "contact", s.ContactName, "type", s.Trigger.Type)

	res := e.sender.Send(ctx, s.ContactPhone, s.Message)
	out := Outcome{Sent: res.Success, Error: res.Error, Attempts: res.Attempts}

	entry := &domain.MessageLog{
		ContactID:          s.ContactID,
		ContactName:        s.ContactName,
		ContactPhone:       s.ContactPhone,
		Message:            s.Message,
		Status:             domain.LogSent,
		ScheduledMessageID: &s.ID,
		SentAt:             e.now(),
	}
	if !res.Success {
		entry.Status = domain.LogFailed
		reason := res.Error
		entry.ErrorMessage = &reason
	}
	created, err := e.logs.Create(ctx, entry)
	if err != nil {
		if res.Success {
			logger.ErrorContext(ctx, "message sent but not recorded, reconcile manually",
				"contact", s.ContactName, "type", s.Trigger.Type, "attempts", res.Attempts, "error", err)
		}
		return out, fmt.Errorf("append message log: %w", err)
	}
	out.LogID = created.ID

	finishedAt := e.now()
	in := domain.FinishInput{ClaimedAt: claimedAt, LastRun: finishedAt}
	if s.Trigger.Type == domain.ScheduleOnce {
		in.Complete = true
	} else {
		in.NextRun = e.nextRun(ctx, logger, s, finishedAt)
	}
	err = e.schedules.Finish(ctx, s.ID, in)
	switch {
	case errors.Is(err, domain.ErrLeaseLost):
		// The later execution owns the row now and records its own run.
		logger.WarnContext(ctx, "lease taken over before finish, run not recorded on schedule", "lease", e.lease)
	case err != nil:
		return out, fmt.Errorf("finish schedule: %w", err)
	case in.Complete && e.triggers != nil:
		e.triggers.Unregister(s.ID)
	}

	if res.Success {
		logger.InfoContext(ctx, "scheduled message sent", "attempts", res.Attempts)
	} else {
		logger.WarnContext(ctx, "scheduled message failed", "attempts", res.Attempts, "error", res.Error)
	}
	return out, nil
}

func (e *Executor) nextRun(ctx context.Context, logger *slog.Logger, s *domain.Schedule, after time.Time) *time.Time {
	spec, err := FireSpecFor(s.Trigger, e.loc)
	if err != nil {
		logger.WarnContext(ctx, "cannot compute next run", "error", err)
		return nil
	}
	next := spec.Next(after)
	if next.IsZero() {
		return nil
	}
	return &next
}

// release clears the lease after a failure. It runs on a fresh context so a
// cancelled request still unlocks the schedule; if it fails the lease
// expires on its own.
func (e *Executor) release(ctx context.Context, logger *slog.Logger, id string, claimedAt time.Time) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	err := e.schedules.ReleaseClaim(rctx, id, claimedAt)
	switch {
	case errors.Is(err, domain.ErrLeaseLost):
		logger.WarnContext(ctx, "lease taken over before release, left in place", "lease", e.lease)
	case err != nil:
		logger.ErrorContext(ctx, "release claim failed, lease will expire", "lease", e.lease, "error", err)
	}
}

func (e *Executor) notify(ctx context.Context, logger *slog.Logger, s *domain.Schedule, out Outcome) {
	if e.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	text := notify.Summary{
		Sent:        out.Sent,
		ContactName: s.ContactName,
		Message:     s.Message,
		Error:       out.Error,
	}.Text()
	if err := e.notifier.Notify(nctx, text); err != nil {
		metrics.NotificationsTotal.WithLabelValues("error").Inc()
		logger.WarnContext(ctx, "delivery notification failed", "error", err)
		return
	}
	metrics.NotificationsTotal.WithLabelValues("ok").Inc()
}
