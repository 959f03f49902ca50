package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
	"github.com/robfig/cron/v3"
)

// FireSpec computes fire times for one trigger. It satisfies cron.Schedule
// so recurring specs can be handed to the cron runner as is.
type FireSpec struct {
	kind  domain.ScheduleType
	at    time.Time
	expr  string
	sched cron.Schedule
	loc   *time.Location
}

// FireSpecFor validates trigger and builds its FireSpec. Cron rules are
// evaluated in loc.
func FireSpecFor(t domain.Trigger, loc *time.Location) (FireSpec, error) {
	if err := t.Validate(); err != nil {
		return FireSpec{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	switch t.Type {
	case domain.ScheduleOnce:
		return FireSpec{kind: domain.ScheduleOnce, at: t.At, loc: loc}, nil
	default:
		sched, err := ParseCron(t.Cron)
		if err != nil {
			return FireSpec{}, err
		}
		return FireSpec{kind: domain.ScheduleRecurring, expr: t.Cron, sched: sched, loc: loc}, nil
	}
}

// ParseCron parses a standard five-field expression (or a descriptor such
// as @daily).
func ParseCron(expr string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(strings.TrimSpace(expr))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", domain.ErrInvalidCronExpr, expr, err)
	}
	return sched, nil
}

// ValidateCron reports whether expr is a usable cron rule.
func ValidateCron(expr string) error {
	_, err := ParseCron(expr)
	return err
}

func (f FireSpec) Kind() domain.ScheduleType { return f.kind }

// Next returns the first fire time strictly after after, or the zero time
// when the trigger has nothing left to fire.
func (f FireSpec) Next(after time.Time) time.Time {
	switch f.kind {
	case domain.ScheduleOnce:
		if f.at.After(after) {
			return f.at
		}
		return time.Time{}
	case domain.ScheduleRecurring:
		// robfig evaluates specs without CRON_TZ in the location of the
		// time it is given.
		return f.sched.Next(after.In(f.loc))
	}
	return time.Time{}
}

func (f FireSpec) String() string {
	if f.kind == domain.ScheduleOnce {
		return "once@" + f.at.Format(time.RFC3339)
	}
	return f.expr
}
