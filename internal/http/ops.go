package http

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nextlevelbuilder/socialpilot/internal/monitor"
)

// MonitorRunner runs one health-check cycle on demand.
type MonitorRunner interface {
	RunOnce(ctx context.Context) (*monitor.Report, error)
}

// OpsHandler exposes operator endpoints guarded by a bearer token.
type OpsHandler struct {
	monitor MonitorRunner
	token   string
}

func NewOpsHandler(m MonitorRunner, token string) *OpsHandler {
	return &OpsHandler{monitor: m, token: token}
}

// RegisterRoutes mounts the ops routes. Nothing is mounted without a token.
func (h *OpsHandler) RegisterRoutes(mux *http.ServeMux) {
	if h.token == "" || h.monitor == nil {
		return
	}
	mux.HandleFunc("POST /v1/monitor/run", h.auth(h.handleMonitorRun))
}

func (h *OpsHandler) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := extractBearerToken(r)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

func extractBearerToken(r *http.Request) string {
	v := r.Header.Get("Authorization")
	if len(v) > 7 && strings.EqualFold(v[:7], "Bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}

type monitorRunResponse struct {
	Report *monitor.Report `json:"report"`
	Errors string          `json:"errors,omitempty"`
}

// handleMonitorRun runs a cycle and returns its report. Step failures still
// answer 200 with their text in "errors"; a failed scan answers 502.
//
//	POST /v1/monitor/run
func (h *OpsHandler) handleMonitorRun(w http.ResponseWriter, r *http.Request) {
	rep, err := h.monitor.RunOnce(r.Context())
	if err != nil {
		slog.Warn("ops.monitor_run", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	resp := monitorRunResponse{Report: rep}
	if rep.Err != nil {
		resp.Errors = rep.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
