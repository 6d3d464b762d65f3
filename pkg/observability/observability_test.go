package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLogLevel("debug"))
	assert.Equal(t, InfoLevel, ParseLogLevel("info"))
	assert.Equal(t, WarnLevel, ParseLogLevel("WARNING"))
	assert.Equal(t, ErrorLevel, ParseLogLevel("error"))
	assert.Equal(t, InfoLevel, ParseLogLevel("nonsense"))
}

func TestLoggerWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(InfoLevel, &buf)

	log.WithField("component", "test").WithError(errors.New("boom")).Error("something failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "something failed", entry["msg"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "error", entry["level"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(ErrorLevel, &buf)

	log.Info("quiet")
	assert.Zero(t, buf.Len())

	log.Error("loud")
	assert.NotZero(t, buf.Len())
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthCheckerReadiness(t *testing.T) {
	h := NewHealthChecker("1.2.3")
	h.AddDependency("good", pingFunc(func(context.Context) error { return nil }))

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, "1.2.3", status.Version)

	h.AddDependency("bad", pingFunc(func(context.Context) error { return errors.New("unreachable") }))
	rec = httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, StatusUnhealthy, status.Dependencies["bad"].Status)
	assert.Equal(t, StatusHealthy, status.Dependencies["good"].Status)
}

func TestHealthCheckerLiveness(t *testing.T) {
	h := NewHealthChecker("")
	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestShutdownManagerDrainRunsClosers(t *testing.T) {
	log := NewLogger(InfoLevel, &bytes.Buffer{})
	sm := NewShutdownManager(log, nil, time.Second)

	var closed atomic.Int64
	sm.RegisterCloser("a", func(context.Context) error { closed.Add(1); return nil })
	sm.RegisterCloser("b", func(context.Context) error { closed.Add(1); return nil })

	require.NoError(t, sm.drain())
	assert.Equal(t, int64(2), closed.Load())
}

func TestShutdownManagerDrainReportsNamedFailure(t *testing.T) {
	log := NewLogger(InfoLevel, &bytes.Buffer{})
	sm := NewShutdownManager(log, nil, time.Second)

	var survivor atomic.Bool
	sm.RegisterCloser("broken", func(context.Context) error { return errors.New("boom") })
	sm.RegisterCloser("fine", func(context.Context) error { survivor.Store(true); return nil })

	err := sm.drain()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	// One failure does not stop the others.
	assert.True(t, survivor.Load())
}

func TestShutdownManagerDrainBoundedByTimeout(t *testing.T) {
	log := NewLogger(InfoLevel, &bytes.Buffer{})
	sm := NewShutdownManager(log, nil, 50*time.Millisecond)

	sm.RegisterCloser("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	err := sm.drain()
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestShutdownManagerDefaultTimeout(t *testing.T) {
	sm := NewShutdownManager(NewLogger(InfoLevel, &bytes.Buffer{}), nil, 0)
	assert.Equal(t, defaultShutdownTimeout, sm.timeout)
}

func TestMetricsRegisterAndServe(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.DispatchTotal.WithLabelValues("POST", "create", "success").Inc()
	m.ResolveCacheHits.Inc()
	m.CollectionsActive.Set(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "switchboard_dispatch_total")
	assert.Contains(t, body, "switchboard_resolve_cache_hits_total")
	assert.Contains(t, body, "switchboard_collections_active 3")
}
