package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/ErlanBelekov/wa-scheduler/internal/domain"
	"github.com/ErlanBelekov/wa-scheduler/internal/gateway"
	"github.com/ErlanBelekov/wa-scheduler/internal/infrastructure/sqlite"
	"github.com/ErlanBelekov/wa-scheduler/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testStore struct {
	schedules *sqlite.ScheduleRepository
	logs      *sqlite.MessageLogRepository
}

func newTestStore(t *testing.T) testStore {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return testStore{
		schedules: sqlite.NewScheduleRepository(db, discardLogger()),
		logs:      sqlite.NewMessageLogRepository(db),
	}
}

func (s testStore) create(t *testing.T, trigger domain.Trigger) *domain.Schedule {
	t.Helper()
	created, err := s.schedules.Create(context.Background(), &domain.Schedule{
		ContactID:    "c1",
		ContactName:  "Mom",
		ContactPhone: "+15550001111",
		Message:      "Hi",
		Trigger:      trigger,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	return created
}

func (s testStore) get(t *testing.T, id string) *domain.Schedule {
	t.Helper()
	got, err := s.schedules.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	return got
}

func (s testStore) logsFor(t *testing.T, id string) []*domain.MessageLog {
	t.Helper()
	logs, err := s.logs.List(context.Background(), repository.ListLogsInput{ScheduleID: id, Limit: 100})
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	return logs
}

// fakeSender returns result for every send, optionally blocking on gate
// first.
type fakeSender struct {
	mu     sync.Mutex
	calls  []string
	result gateway.SendResult
	gate   chan struct{}
}

func (f *fakeSender) Send(ctx context.Context, phone, _ string) gateway.SendResult {
	f.mu.Lock()
	f.calls = append(f.calls, phone)
	f.mu.Unlock()
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
		}
	}
	return f.result
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type panicSender struct{}

func (panicSender) Send(context.Context, string, string) gateway.SendResult {
	panic("gateway client nil map")
}

type fakeNotifier struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.err
}

type fakeTriggers struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeTriggers) Unregister(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
}

// failingLogs rejects every append.
type failingLogs struct {
	repository.MessageLogRepository
	err error
}

func (f failingLogs) Create(context.Context, *domain.MessageLog) (*domain.MessageLog, error) {
	return nil, f.err
}
