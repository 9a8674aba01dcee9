package http

import (
	"encoding/json"
	"net/http"

	"github.com/nextlevelbuilder/socialpilot/internal/queue"
)

// QueueStats reports reply-queue occupancy.
type QueueStats interface {
	Stats() queue.Stats
}

// LedgerSize reports the number of live dedup fingerprints.
type LedgerSize interface {
	Len() int
}

// HealthHandler serves liveness and metrics endpoints.
type HealthHandler struct {
	queue   QueueStats
	ledger  LedgerSize
	metrics http.Handler
}

// NewHealthHandler creates the handler. metrics may be nil to omit /metrics.
func NewHealthHandler(q QueueStats, l LedgerSize, metrics http.Handler) *HealthHandler {
	return &HealthHandler{queue: q, ledger: l, metrics: metrics}
}

// RegisterRoutes registers the health and metrics routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
}

type healthQueue struct {
	Size    int `json:"size"`
	Pending int `json:"pending"`
}

type healthResponse struct {
	Status string      `json:"status"`
	Queue  healthQueue `json:"queue"`
	Dedup  int         `json:"dedup"`
}

//	GET /health
func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := h.queue.Stats()
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Queue:  healthQueue{Size: st.Queued, Pending: st.InFlight},
		Dedup:  h.ledger.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
