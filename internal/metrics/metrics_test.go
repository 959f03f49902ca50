package metrics_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ErlanBelekov/wa-scheduler/internal/health"
	"github.com/ErlanBelekov/wa-scheduler/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

func newServer(storeErr error) http.Handler {
	deps := map[string]health.Pinger{
		"store": health.PingFunc(func(context.Context) error { return storeErr }),
	}
	checker := health.NewChecker(deps, slog.Default(), prometheus.NewRegistry())
	return metrics.NewServer(":0", checker).Handler
}

func TestReadyzReportsDown(t *testing.T) {
	srv := newServer(errors.New("locked"))

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var res health.HealthResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.Checks["store"].Status != "down" {
		t.Fatalf("expected store down, got %+v", res.Checks)
	}
}

func TestHealthzAlwaysUp(t *testing.T) {
	srv := newServer(errors.New("locked"))

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
