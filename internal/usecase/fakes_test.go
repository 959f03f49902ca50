package usecase_test

import (
	"context"
	"time"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
	"github.com/ErlanBelekov/wa-scheduler/internal/gateway"
	"github.com/ErlanBelekov/wa-scheduler/internal/repository"
	"github.com/ErlanBelekov/wa-scheduler/internal/scheduler"
)

// ---- fakes ----

type fakeScheduleRepo struct {
	create     func(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error)
	getByID    func(ctx context.Context, id string) (*domain.Schedule, error)
	list       func(ctx context.Context, input repository.ListSchedulesInput) ([]*domain.Schedule, error)
	listActive func(ctx context.Context) ([]*domain.Schedule, error)
	setActive  func(ctx context.Context, id string, active bool) error
	delete     func(ctx context.Context, id string) error
	setNextRun func(ctx context.Context, id string, next *time.Time) error
}

func (r *fakeScheduleRepo) Create(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error) {
	return r.create(ctx, s)
}

func (r *fakeScheduleRepo) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	return r.getByID(ctx, id)
}

func (r *fakeScheduleRepo) List(ctx context.Context, input repository.ListSchedulesInput) ([]*domain.Schedule, error) {
	return r.list(ctx, input)
}

func (r *fakeScheduleRepo) ListActive(ctx context.Context) ([]*domain.Schedule, error) {
	return r.listActive(ctx)
}

func (r *fakeScheduleRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.setActive(ctx, id, active)
}

func (r *fakeScheduleRepo) Delete(ctx context.Context, id string) error {
	return r.delete(ctx, id)
}

func (r *fakeScheduleRepo) SetNextRun(ctx context.Context, id string, next *time.Time) error {
	if r.setNextRun == nil {
		return nil
	}
	return r.setNextRun(ctx, id, next)
}

func (r *fakeScheduleRepo) Claim(context.Context, string, time.Time, time.Duration) (*domain.Schedule, error) {
	panic("not used")
}

func (r *fakeScheduleRepo) Finish(context.Context, string, domain.FinishInput) error {
	panic("not used")
}

func (r *fakeScheduleRepo) ReleaseClaim(context.Context, string, time.Time) error {
	panic("not used")
}

func (r *fakeScheduleRepo) MarkLapsed(context.Context, string, time.Time) error { panic("not used") }

type fakeContactRepo struct {
	create  func(ctx context.Context, c *domain.Contact) (*domain.Contact, error)
	getByID func(ctx context.Context, id string) (*domain.Contact, error)
	list    func(ctx context.Context, limit int) ([]*domain.Contact, error)
}

func (r *fakeContactRepo) Create(ctx context.Context, c *domain.Contact) (*domain.Contact, error) {
	return r.create(ctx, c)
}

func (r *fakeContactRepo) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	return r.getByID(ctx, id)
}

func (r *fakeContactRepo) List(ctx context.Context, limit int) ([]*domain.Contact, error) {
	return r.list(ctx, limit)
}

type fakeLogRepo struct {
	create func(ctx context.Context, l *domain.MessageLog) (*domain.MessageLog, error)
	list   func(ctx context.Context, input repository.ListLogsInput) ([]*domain.MessageLog, error)
}

func (r *fakeLogRepo) Create(ctx context.Context, l *domain.MessageLog) (*domain.MessageLog, error) {
	return r.create(ctx, l)
}

func (r *fakeLogRepo) List(ctx context.Context, input repository.ListLogsInput) ([]*domain.MessageLog, error) {
	return r.list(ctx, input)
}

type fakeTriggers struct {
	registered   []string
	unregistered []string
	registerErr  error
	entries      []scheduler.Entry
}

func (f *fakeTriggers) RegisterSchedule(s *domain.Schedule) (time.Time, error) {
	if f.registerErr != nil {
		return time.Time{}, f.registerErr
	}
	f.registered = append(f.registered, s.ID)
	return time.Now().Add(time.Hour), nil
}

func (f *fakeTriggers) Unregister(id string) { f.unregistered = append(f.unregistered, id) }

func (f *fakeTriggers) Entries() []scheduler.Entry { return f.entries }

func (f *fakeTriggers) Location() *time.Location { return time.UTC }

type fakeRunner struct {
	execute func(ctx context.Context, id string) (scheduler.Outcome, error)
}

func (r *fakeRunner) Execute(ctx context.Context, id string) (scheduler.Outcome, error) {
	return r.execute(ctx, id)
}

type fakeSender struct {
	send func(ctx context.Context, phone, message string) gateway.SendResult
}

func (s *fakeSender) Send(ctx context.Context, phone, message string) gateway.SendResult {
	return s.send(ctx, phone, message)
}

// ---- helpers ----

var testContact = &domain.Contact{ID: "c1", Name: "Mom", Phone: "+15550001111"}

func contactsWithMom() *fakeContactRepo {
	return &fakeContactRepo{
		getByID: func(_ context.Context, id string) (*domain.Contact, error) {
			if id == testContact.ID {
				return testContact, nil
			}
			return nil, domain.ErrContactNotFound
		},
	}
}

func echoCreate(_ context.Context, s *domain.Schedule) (*domain.Schedule, error) {
	s.ID = "s1"
	s.CreatedAt = time.Now()
	return s, nil
}
