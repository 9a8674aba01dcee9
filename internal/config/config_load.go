package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Webhook: WebhookConfig{
			Path:             "/webhook",
			MaxBodyBytes:     1 << 20,
			RejectsPerMinute: 30,
		},
		Queue: QueueConfig{
			Concurrency: 3,
			Limit:       10,
			WindowMs:    1000,
		},
		Dedup: DedupConfig{
			TTLSeconds: 600,
			Capacity:   100_000,
		},
		Provider: ProviderConfig{
			Kind:          "openai",
			Model:         "gpt-4o-mini",
			TimeoutSec:    30,
			RetryAttempts: 1,
		},
		Monitor: MonitorConfig{
			Enabled:  true,
			Schedule: "*/30 * * * *",
		},
		Database: DatabaseConfig{
			Mode:       "standalone",
			SQLitePath: "~/.socialpilot/socialpilot.db",
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "socialpilot",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*dst = n
			}
		}
	}
	envBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	// Secrets
	envStr("SOCIALPILOT_VERIFY_TOKEN", &c.Webhook.VerifyToken)
	envStr("SOCIALPILOT_APP_SECRET", &c.Webhook.AppSecret)
	envStr("SOCIALPILOT_AI_API_KEY", &c.Provider.APIKey)
	envStr("SOCIALPILOT_TELEGRAM_TOKEN", &c.Alerts.Telegram.Token)
	envStr("SOCIALPILOT_DISCORD_TOKEN", &c.Alerts.Discord.Token)
	envStr("SOCIALPILOT_ADMIN_TOKEN", &c.Server.AdminToken)

	// Provider
	envStr("SOCIALPILOT_AI_PROVIDER", &c.Provider.Kind)
	envStr("SOCIALPILOT_AI_API_BASE", &c.Provider.APIBase)
	envStr("SOCIALPILOT_AI_MODEL", &c.Provider.Model)

	// Server
	envStr("SOCIALPILOT_HOST", &c.Server.Host)
	envInt("SOCIALPILOT_PORT", &c.Server.Port)

	// Queue
	envInt("SOCIALPILOT_QUEUE_CONCURRENCY", &c.Queue.Concurrency)
	envInt("SOCIALPILOT_QUEUE_LIMIT", &c.Queue.Limit)
	envInt("SOCIALPILOT_QUEUE_WINDOW_MS", &c.Queue.WindowMs)

	// Monitor
	envStr("SOCIALPILOT_MONITOR_SCHEDULE", &c.Monitor.Schedule)
	envBool("SOCIALPILOT_MONITOR_ENABLED", &c.Monitor.Enabled)

	// Database
	envStr("SOCIALPILOT_POSTGRES_DSN", &c.Database.PostgresDSN)
	envStr("SOCIALPILOT_MODE", &c.Database.Mode)
	envStr("SOCIALPILOT_SQLITE_PATH", &c.Database.SQLitePath)

	// Telemetry
	envStr("SOCIALPILOT_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("SOCIALPILOT_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("SOCIALPILOT_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	envBool("SOCIALPILOT_TELEMETRY_ENABLED", &c.Telemetry.Enabled)
	envBool("SOCIALPILOT_TELEMETRY_INSECURE", &c.Telemetry.Insecure)

	for i := range c.Pages {
		c.Pages[i].AccessToken = os.Getenv(c.Pages[i].tokenEnvKey())
	}
}

func (p PageConfig) tokenEnvKey() string {
	if p.AccessTokenEnv != "" {
		return p.AccessTokenEnv
	}
	return "SOCIALPILOT_PAGE_TOKEN_" + strings.ToUpper(p.PageID)
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Queue.Concurrency <= 0 || c.Queue.Limit <= 0 || c.Queue.WindowMs <= 0 {
		return fmt.Errorf("queue: concurrency, limit and window_ms must be positive")
	}
	if !strings.HasPrefix(c.Webhook.Path, "/") {
		return fmt.Errorf("webhook.path must start with /")
	}
	switch c.Provider.Kind {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("provider.kind %q not supported", c.Provider.Kind)
	}
	seen := make(map[string]bool, len(c.Pages))
	for _, p := range c.Pages {
		if p.PageID == "" {
			return fmt.Errorf("pages: page_id is required")
		}
		if seen[p.PageID] {
			return fmt.Errorf("pages: duplicate page_id %q", p.PageID)
		}
		seen[p.PageID] = true
	}
	return nil
}

// ApplyEnvOverrides re-applies environment variable overrides onto the config.
func (c *Config) ApplyEnvOverrides() {
	c.applyEnvOverrides()
}

// Hash returns a short SHA-256 of the config, used to detect effective changes on reload.
func (c *Config) Hash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, _ := json.Marshal(c)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:8])
}

const secretMask = "***"

// MaskedCopy returns a copy of the config with secrets masked, for logging.
func (c *Config) MaskedCopy() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cp := &Config{
		Server:    c.Server,
		Webhook:   c.Webhook,
		Queue:     c.Queue,
		Dedup:     c.Dedup,
		Provider:  c.Provider,
		Messenger: c.Messenger,
		Monitor:   c.Monitor,
		Alerts:    c.Alerts,
		Database:  c.Database,
		Telemetry: c.Telemetry,
		Pages:     make([]PageConfig, len(c.Pages)),
	}
	copy(cp.Pages, c.Pages)

	maskNonEmpty(&cp.Webhook.VerifyToken)
	maskNonEmpty(&cp.Webhook.AppSecret)
	maskNonEmpty(&cp.Provider.APIKey)
	maskNonEmpty(&cp.Alerts.Telegram.Token)
	maskNonEmpty(&cp.Alerts.Discord.Token)
	maskNonEmpty(&cp.Server.AdminToken)
	maskNonEmpty(&cp.Database.PostgresDSN)
	for i := range cp.Pages {
		maskNonEmpty(&cp.Pages[i].AccessToken)
	}
	return cp
}

func maskNonEmpty(s *string) {
	if *s != "" {
		*s = secretMask
	}
}

// ExpandHome replaces leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
