package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
	"github.com/ErlanBelekov/wa-scheduler/internal/metrics"
	"github.com/ErlanBelekov/wa-scheduler/internal/repository"
	"github.com/robfig/cron/v3"
)

var (
	ErrNotRunning = errors.New("job scheduler is not running")
	ErrExhausted  = errors.New("trigger has no future fire time")
)

// FireFunc is invoked once per fire with the schedule id only; the callee
// loads everything else from the store.
type FireFunc func(ctx context.Context, scheduleID string)

type registration struct {
	version uint64
	spec    FireSpec
	entryID cron.EntryID // recurring
	timer   *time.Timer  // once
}

type Entry struct {
	ScheduleID string              `json:"schedule_id"`
	Type       domain.ScheduleType `json:"type"`
	Trigger    string              `json:"trigger"`
	NextFire   time.Time           `json:"next_fire"`
}

type InvalidSchedule struct {
	ScheduleID string
	Err        error
}

type ReloadReport struct {
	Loaded  int
	Lapsed  []string
	Invalid []InvalidSchedule
}

// Jobs keeps the process-local trigger registrations. They are a cache of
// the store's active schedules: ReloadAll rebuilds them from scratch.
type Jobs struct {
	store  repository.ScheduleRepository
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time

	cron *cron.Cron

	mu       sync.Mutex
	regs     map[string]*registration
	seq      uint64
	fire     FireFunc
	running  bool
	stopped  bool
	inFlight sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewJobs(store repository.ScheduleRepository, loc *time.Location, logger *slog.Logger) *Jobs {
	if loc == nil {
		loc = time.UTC
	}
	logger = logger.With("component", "jobs")
	ctx, cancel := context.WithCancel(context.Background())
	return &Jobs{
		store:  store,
		loc:    loc,
		logger: logger,
		now:    time.Now,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger{logger})),
		),
		regs:    make(map[string]*registration),
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Start begins firing. fire receives every trigger from now until Stop.
func (j *Jobs) Start(fire FireFunc) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running || j.stopped {
		return
	}
	j.fire = fire
	j.running = true
	j.cron.Start()
	metrics.StartTime.SetToCurrentTime()
	j.logger.Info("job scheduler started", "location", j.loc.String())
}

// Stop disarms every trigger and waits for in-flight fires until ctx is
// done. No fire starts after Stop returns.
func (j *Jobs) Stop(ctx context.Context) error {
	j.mu.Lock()
	if j.stopped {
		j.mu.Unlock()
		return nil
	}
	j.stopped = true
	j.running = false
	for id, reg := range j.regs {
		j.disarm(reg)
		delete(j.regs, id)
	}
	j.updateGauge()
	j.mu.Unlock()

	cronDone := j.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		j.inFlight.Wait()
		close(done)
	}()

	defer j.cancel()
	select {
	case <-done:
		j.logger.Info("job scheduler stopped")
		return nil
	case <-ctx.Done():
		j.logger.Warn("job scheduler stop timed out with fires in flight")
		return fmt.Errorf("stop job scheduler: %w", ctx.Err())
	}
}

// Register arms spec for id, replacing any existing registration.
func (j *Jobs) Register(id string, spec FireSpec) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.running {
		return ErrNotRunning
	}

	next := spec.Next(j.now())
	if next.IsZero() {
		return ErrExhausted
	}

	if old, ok := j.regs[id]; ok {
		j.disarm(old)
	}
	j.seq++
	reg := &registration{version: j.seq, spec: spec}
	version := reg.version

	switch spec.Kind() {
	case domain.ScheduleOnce:
		reg.timer = time.AfterFunc(time.Until(next), func() { j.fireOnce(id, version) })
	default:
		reg.entryID = j.cron.Schedule(spec, cron.FuncJob(func() { j.fireRecurring(id, version) }))
	}
	j.regs[id] = reg
	j.updateGauge()

	j.logger.Debug("trigger registered", "schedule_id", id, "trigger", spec.String(), "next_fire", next)
	return nil
}

// RegisterSchedule builds the schedule's FireSpec and arms it, returning
// the next fire time.
func (j *Jobs) RegisterSchedule(s *domain.Schedule) (time.Time, error) {
	spec, err := FireSpecFor(s.Trigger, j.loc)
	if err != nil {
		return time.Time{}, err
	}
	if err := j.Register(s.ID, spec); err != nil {
		return time.Time{}, err
	}
	return spec.Next(j.now()), nil
}

// Unregister disarms id. Unknown ids are ignored.
func (j *Jobs) Unregister(id string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if reg, ok := j.regs[id]; ok {
		j.disarm(reg)
		delete(j.regs, id)
		j.updateGauge()
		j.logger.Debug("trigger unregistered", "schedule_id", id)
	}
}

// ReloadAll drops every registration and re-derives them from the store's
// active schedules. One-shots whose time has passed are not armed: they are
// marked lapsed in the store. Schedules with a broken cron rule stay active
// in the store and are reported in Invalid.
func (j *Jobs) ReloadAll(ctx context.Context) (ReloadReport, error) {
	var report ReloadReport

	schedules, err := j.store.ListActive(ctx)
	if err != nil {
		return report, fmt.Errorf("list active schedules: %w", err)
	}

	j.mu.Lock()
	for id, reg := range j.regs {
		j.disarm(reg)
		delete(j.regs, id)
	}
	j.updateGauge()
	j.mu.Unlock()

	now := j.now()
	for _, s := range schedules {
		spec, err := FireSpecFor(s.Trigger, j.loc)
		if err != nil {
			j.logger.ErrorContext(ctx, "schedule has an invalid trigger, not armed",
				"schedule_id", s.ID, "cron_expr", s.Trigger.Cron, "error", err)
			report.Invalid = append(report.Invalid, InvalidSchedule{ScheduleID: s.ID, Err: err})
			continue
		}

		next := spec.Next(now)
		if next.IsZero() {
			if spec.Kind() == domain.ScheduleOnce {
				j.logger.WarnContext(ctx, "one-shot schedule lapsed while down, skipping",
					"schedule_id", s.ID, "scheduled_time", s.Trigger.At)
				if err := j.store.MarkLapsed(ctx, s.ID, now); err != nil {
					j.logger.ErrorContext(ctx, "mark lapsed", "schedule_id", s.ID, "error", err)
				}
				metrics.LapsedTotal.Inc()
				report.Lapsed = append(report.Lapsed, s.ID)
			}
			continue
		}

		if err := j.Register(s.ID, spec); err != nil {
			return report, fmt.Errorf("register %s: %w", s.ID, err)
		}
		if err := j.store.SetNextRun(ctx, s.ID, &next); err != nil {
			j.logger.WarnContext(ctx, "persist next run", "schedule_id", s.ID, "error", err)
		}
		report.Loaded++
	}

	j.logger.InfoContext(ctx, "registrations reloaded",
		"loaded", report.Loaded, "lapsed", len(report.Lapsed), "invalid", len(report.Invalid))
	return report, nil
}

// Entries returns a snapshot of the armed triggers ordered by next fire.
func (j *Jobs) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	entries := make([]Entry, 0, len(j.regs))
	for id, reg := range j.regs {
		entries = append(entries, Entry{
			ScheduleID: id,
			Type:       reg.spec.Kind(),
			Trigger:    reg.spec.String(),
			NextFire:   reg.spec.Next(now),
		})
	}
	sort.Slice(entries, func(a, b int) bool {
		if entries[a].NextFire.Equal(entries[b].NextFire) {
			return entries[a].ScheduleID < entries[b].ScheduleID
		}
		return entries[a].NextFire.Before(entries[b].NextFire)
	})
	return entries
}

// Location is the zone cron rules are evaluated in.
func (j *Jobs) Location() *time.Location { return j.loc }

func (j *Jobs) fireOnce(id string, version uint64) {
	j.mu.Lock()
	reg, ok := j.regs[id]
	if !ok || reg.version != version || !j.running {
		j.mu.Unlock()
		return
	}
	delete(j.regs, id)
	j.updateGauge()
	j.inFlight.Add(1)
	fire := j.fire
	j.mu.Unlock()

	j.run(fire, id)
}

func (j *Jobs) fireRecurring(id string, version uint64) {
	j.mu.Lock()
	reg, ok := j.regs[id]
	if !ok || reg.version != version || !j.running {
		j.mu.Unlock()
		return
	}
	j.inFlight.Add(1)
	fire := j.fire
	j.mu.Unlock()

	j.run(fire, id)
}

// run invokes fire and keeps a panic from taking the process down. One-shot
// timers have no cron.Recover wrapper.
func (j *Jobs) run(fire FireFunc, id string) {
	defer j.inFlight.Done()
	defer func() {
		if r := recover(); r != nil {
			j.logger.Error("scheduled fire panicked", "schedule_id", id, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fire(j.baseCtx, id)
}

// disarm must be called with mu held.
func (j *Jobs) disarm(reg *registration) {
	if reg.timer != nil {
		reg.timer.Stop()
	}
	if reg.entryID != 0 {
		j.cron.Remove(reg.entryID)
	}
}

// updateGauge must be called with mu held.
func (j *Jobs) updateGauge() {
	var once, recurring float64
	for _, reg := range j.regs {
		if reg.spec.Kind() == domain.ScheduleOnce {
			once++
		} else {
			recurring++
		}
	}
	metrics.Registrations.WithLabelValues(string(domain.ScheduleOnce)).Set(once)
	metrics.Registrations.WithLabelValues(string(domain.ScheduleRecurring)).Set(recurring)
}

// cronLogger adapts slog to robfig's logger so panics in fires are logged
// instead of killing the process.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
