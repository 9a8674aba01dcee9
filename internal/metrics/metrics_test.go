package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInteractionCounter(t *testing.T) {
	m := New("test")
	m.ObserveInteraction("message", "enqueued")
	m.ObserveInteraction("message", "enqueued")
	m.ObserveInteraction("comment", "duplicate")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.interactions.WithLabelValues("message", "enqueued")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.interactions.WithLabelValues("comment", "duplicate")))
}

func TestQueueHooks(t *testing.T) {
	m := New("test")
	h := m.QueueHooks()
	h.Started(10, time.Now(), 50*time.Millisecond)
	h.Finished(10, time.Second, nil)
	h.Finished(10, time.Second, errors.New("x"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksStarted.WithLabelValues("10")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksFinished.WithLabelValues("10", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksFinished.WithLabelValues("10", "error")))
}

func TestMonitorCycle(t *testing.T) {
	m := New("test")
	m.ObserveMonitorCycle(map[string]int{"healthy": 3, "critical": 1}, time.Second, false)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.monitorStrategies.WithLabelValues("healthy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.monitorStrategies.WithLabelValues("critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.monitorCycles.WithLabelValues("ok")))
}

func TestHandlerExposesGaugeFuncs(t *testing.T) {
	m := New("test")
	m.GaugeFunc("queue_size", "Queued tasks.", func() float64 { return 7 })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "socialpilot_queue_size 7")
	assert.Contains(t, string(body), `socialpilot_build_info{version="test"} 1`)
}
