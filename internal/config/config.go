package config

import (
	"sync"
	"time"
)

// Config is the root configuration for the socialpilot service.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Webhook   WebhookConfig   `json:"webhook"`
	Queue     QueueConfig     `json:"queue"`
	Dedup     DedupConfig     `json:"dedup"`
	Provider  ProviderConfig  `json:"provider"`
	Messenger MessengerConfig `json:"messenger"`
	Monitor   MonitorConfig   `json:"monitor"`
	Alerts    AlertsConfig    `json:"alerts,omitempty"`
	Database  DatabaseConfig  `json:"database,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
	Pages     []PageConfig    `json:"pages,omitempty"` // standalone mode page provisioning
	mu        sync.RWMutex
}

// ServerConfig is the HTTP listener.
type ServerConfig struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	AdminToken string `json:"-"` // from env SOCIALPILOT_ADMIN_TOKEN only; guards /v1 ops routes
}

// WebhookConfig configures the inbound webhook endpoint.
// VerifyToken and AppSecret are NEVER read from config.json, only from env.
type WebhookConfig struct {
	Path             string `json:"path"`
	VerifyToken      string `json:"-"` // from env SOCIALPILOT_VERIFY_TOKEN only
	AppSecret        string `json:"-"` // from env SOCIALPILOT_APP_SECRET only
	MaxBodyBytes     int64  `json:"max_body_bytes,omitempty"`
	RejectsPerMinute int    `json:"rejects_per_minute,omitempty"` // failed deliveries per source before 429, 0 = never throttle
}

// QueueConfig bounds outbound reply work.
type QueueConfig struct {
	Concurrency int `json:"concurrency"`
	Limit       int `json:"limit"`     // task starts per window
	WindowMs    int `json:"window_ms"` // rolling window length
}

// Window returns the rolling window as a duration.
func (q QueueConfig) Window() time.Duration {
	return time.Duration(q.WindowMs) * time.Millisecond
}

// DedupConfig sizes the in-memory fingerprint ledger.
type DedupConfig struct {
	TTLSeconds int    `json:"ttl_seconds"`
	Capacity   uint64 `json:"capacity"`
}

func (d DedupConfig) TTL() time.Duration {
	return time.Duration(d.TTLSeconds) * time.Second
}

// ProviderConfig selects the generative-text service.
type ProviderConfig struct {
	Kind          string `json:"kind"` // "openai" (any OpenAI-compatible API) or "anthropic"
	APIBase       string `json:"api_base,omitempty"`
	APIKey        string `json:"-"` // from env SOCIALPILOT_AI_API_KEY only
	Model         string `json:"model"`
	TimeoutSec    int    `json:"timeout_sec"`
	RetryAttempts int    `json:"retry_attempts,omitempty"` // total attempts per call, default 1
}

func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSec) * time.Second
}

// MessengerConfig configures the reply-delivery Graph API client.
type MessengerConfig struct {
	BaseURL string  `json:"base_url,omitempty"`
	RPS     float64 `json:"rps,omitempty"` // 0 = client default, negative = unpaced
	Burst   int     `json:"burst,omitempty"`
}

// MonitorConfig configures the strategy health monitor.
type MonitorConfig struct {
	Enabled          bool   `json:"enabled"`
	Schedule         string `json:"schedule"` // cron expression
	RunAtStart       bool   `json:"run_at_start,omitempty"`
	FallbackImageURL string `json:"fallback_image_url,omitempty"`
}

// AlertsConfig configures optional chat notifiers. Tokens come from env only.
type AlertsConfig struct {
	Telegram TelegramAlertConfig `json:"telegram,omitempty"`
	Discord  DiscordAlertConfig  `json:"discord,omitempty"`
}

type TelegramAlertConfig struct {
	ChatID int64  `json:"chat_id,omitempty"`
	Token  string `json:"-"` // from env SOCIALPILOT_TELEGRAM_TOKEN only
}

type DiscordAlertConfig struct {
	ChannelID string `json:"channel_id,omitempty"`
	Token     string `json:"-"` // from env SOCIALPILOT_DISCORD_TOKEN only
}

// DatabaseConfig selects the store backend.
// PostgresDSN is NEVER read from config.json (secret), only from env SOCIALPILOT_POSTGRES_DSN.
type DatabaseConfig struct {
	PostgresDSN string `json:"-"`
	Mode        string `json:"mode,omitempty"`        // "standalone" (default) or "managed"
	SQLitePath  string `json:"sqlite_path,omitempty"` // standalone database file
}

// IsManagedMode returns true when Postgres backs every store.
func (c *Config) IsManagedMode() bool {
	return c.Database.Mode == "managed" && c.Database.PostgresDSN != ""
}

// TelemetryConfig configures OpenTelemetry OTLP export.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`     // e.g. "localhost:4317"
	Protocol    string            `json:"protocol,omitempty"`     // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`     // plaintext transport for local collectors
	ServiceName string            `json:"service_name,omitempty"` // default "socialpilot"
	Headers     map[string]string `json:"headers,omitempty"`
}

// PageConfig provisions one page in standalone mode. The access token is
// read from the env var named by AccessTokenEnv, or
// SOCIALPILOT_PAGE_TOKEN_<PAGE_ID> when unset.
type PageConfig struct {
	PageID         string `json:"page_id"`
	AdminID        string `json:"admin_id"`
	Enabled        *bool  `json:"enabled,omitempty"` // default true
	AccessTokenEnv string `json:"access_token_env,omitempty"`
	AccessToken    string `json:"-"`
}

// IsEnabled reports the effective enabled flag.
func (p PageConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// PageList returns a copy of the configured pages.
func (c *Config) PageList() []PageConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]PageConfig, len(c.Pages))
	copy(out, c.Pages)
	return out
}
