package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextlevelbuilder/socialpilot/internal/queue"
)

type fakeQueue struct{ st queue.Stats }

func (f fakeQueue) Stats() queue.Stats { return f.st }

type fakeLedger int

func (f fakeLedger) Len() int { return int(f) }

func TestHealth(t *testing.T) {
	h := NewHealthHandler(fakeQueue{queue.Stats{Queued: 4, InFlight: 2}}, fakeLedger(9), nil)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ok", got["status"])
	assert.Equal(t, map[string]interface{}{"size": 4.0, "pending": 2.0}, got["queue"])
	assert.Equal(t, 9.0, got["dedup"])
}

func TestMetricsRouteOptional(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthHandler(fakeQueue{}, fakeLedger(0), nil).RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	mux = http.NewServeMux()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("m 1\n")) })
	NewHealthHandler(fakeQueue{}, fakeLedger(0), metrics).RegisterRoutes(mux)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, "m 1\n", rec.Body.String())
}
