package health_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/ErlanBelekov/wa-scheduler/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

func newTestChecker(store, gateway health.Pinger) (*health.Checker, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	deps := map[string]health.Pinger{"store": store, "gateway": gateway}
	return health.NewChecker(deps, slog.Default(), reg), reg
}

func TestLiveness_AlwaysUp(t *testing.T) {
	c, _ := newTestChecker(&mockPinger{err: errors.New("db down")}, &mockPinger{})

	result := c.Liveness(context.Background())
	if result.Status != "up" {
		t.Fatalf("expected status up, got %s", result.Status)
	}
	if result.Checks != nil {
		t.Fatalf("expected no checks, got %v", result.Checks)
	}
}

func TestReadiness_AllUp(t *testing.T) {
	c, reg := newTestChecker(&mockPinger{}, &mockPinger{})

	result := c.Readiness(context.Background())
	if result.Status != "up" {
		t.Fatalf("expected status up, got %s", result.Status)
	}
	for _, dep := range []string{"store", "gateway"} {
		if got := result.Checks[dep].Status; got != "up" {
			t.Fatalf("expected %s up, got %q", dep, got)
		}
		if g := testGauge(t, reg, dep); g != 1 {
			t.Fatalf("expected %s gauge 1, got %f", dep, g)
		}
	}
}

func TestReadiness_GatewayDown(t *testing.T) {
	c, reg := newTestChecker(&mockPinger{}, &mockPinger{err: errors.New("connection refused")})

	result := c.Readiness(context.Background())
	if result.Status != "down" {
		t.Fatalf("expected status down, got %s", result.Status)
	}
	gw := result.Checks["gateway"]
	if gw.Status != "down" || gw.Error == "" {
		t.Fatalf("expected gateway down with error, got %+v", gw)
	}
	if result.Checks["store"].Status != "up" {
		t.Fatal("store should still be up")
	}
	if g := testGauge(t, reg, "gateway"); g != 0 {
		t.Fatalf("expected gauge 0, got %f", g)
	}
}

func TestPingFunc(t *testing.T) {
	want := errors.New("boom")
	var p health.Pinger = health.PingFunc(func(context.Context) error { return want })
	if err := p.Ping(context.Background()); !errors.Is(err, want) {
		t.Fatalf("got %v", err)
	}
}

func testGauge(t *testing.T, reg *prometheus.Registry, dep string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "scheduler_health_check_up" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "dependency" && lp.GetValue() == dep {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric scheduler_health_check_up{dependency=%q} not found", dep)
	return 0
}

func TestGaugeCollects(t *testing.T) {
	c, reg := newTestChecker(&mockPinger{}, &mockPinger{})
	c.Readiness(context.Background())
	if n, err := testutil.GatherAndCount(reg, "scheduler_health_check_up"); err != nil || n != 2 {
		t.Fatalf("expected 2 series, got %d (%v)", n, err)
	}
}
