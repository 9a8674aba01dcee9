package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

const defaultMaxBodyBytes = 1 << 20

// Dispatcher routes an accepted webhook body.
type Dispatcher interface {
	Handle(ctx context.Context, body []byte)
}

// HandlerConfig configures the HTTP endpoint.
type HandlerConfig struct {
	// VerifyToken answers the GET subscription handshake.
	VerifyToken string
	// AppSecret, when set, requires a valid X-Hub-Signature-256 on POST.
	AppSecret    string
	MaxBodyBytes int64
	// Limiter turns repeated rejections from one source into 429s; nil
	// disables it. Deliveries that pass verification bypass it.
	Limiter *RejectLimiter
}

// Handler serves the webhook endpoint.
type Handler struct {
	cfg        HandlerConfig
	dispatcher Dispatcher
}

func NewHandler(cfg HandlerConfig, d Dispatcher) *Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Handler{cfg: cfg, dispatcher: d}
}

// RegisterRoutes mounts the handshake and delivery handlers on path.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, path string) {
	mux.HandleFunc("GET "+path, h.handleVerify)
	mux.HandleFunc("POST "+path, h.handleDelivery)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || h.cfg.VerifyToken == "" ||
		!hmac.Equal([]byte(q.Get("hub.verify_token")), []byte(h.cfg.VerifyToken)) {
		slog.Warn("webhook.verify_rejected", "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	slog.Info("webhook.verified")
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, q.Get("hub.challenge"))
}

func (h *Handler) handleDelivery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		h.reject(w, r, "webhook.body_too_large", "request too large", http.StatusRequestEntityTooLarge)
		return
	}

	if !h.verifySignature(body, r.Header.Get("X-Hub-Signature-256")) {
		h.reject(w, r, "webhook.bad_signature", "invalid signature", http.StatusUnauthorized)
		return
	}

	// Acknowledge before any downstream work so the platform never retries
	// because of slow processing.
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "EVENT_RECEIVED")

	ctx := context.WithoutCancel(r.Context())
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("webhook.route_panic", "panic", rec)
			}
		}()
		h.dispatcher.Handle(ctx, body)
	}()
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, event, msg string, code int) {
	if h.cfg.Limiter.Reject(sourceKey(r)) {
		slog.Debug("webhook.rejects_throttled", "remote", r.RemoteAddr)
		http.Error(w, "too many rejected requests", http.StatusTooManyRequests)
		return
	}
	slog.Warn(event, "remote", r.RemoteAddr)
	http.Error(w, msg, code)
}

// verifySignature checks "sha256=<hex>" against the body. Passes when no
// app secret is configured.
func (h *Handler) verifySignature(body []byte, header string) bool {
	if h.cfg.AppSecret == "" {
		return true
	}
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	decoded, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.cfg.AppSecret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), decoded)
}

func sourceKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
