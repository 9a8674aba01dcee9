package cmd

import (
	"fmt"
	"log/slog"

	"github.com/nextlevelbuilder/socialpilot/internal/alerts"
	"github.com/nextlevelbuilder/socialpilot/internal/config"
	"github.com/nextlevelbuilder/socialpilot/internal/messenger"
	"github.com/nextlevelbuilder/socialpilot/internal/providers"
)

func buildProvider(pc config.ProviderConfig) (providers.Provider, error) {
	if pc.APIKey == "" {
		return nil, fmt.Errorf("SOCIALPILOT_AI_API_KEY environment variable is not set")
	}
	retry := providers.DefaultRetryConfig()
	if pc.RetryAttempts > 0 {
		retry.Attempts = pc.RetryAttempts
	}

	switch pc.Kind {
	case "anthropic":
		slog.Info("registered provider", "name", "anthropic", "model", pc.Model)
		return providers.NewAnthropicProvider(pc.APIKey,
			providers.WithAnthropicModel(pc.Model),
			providers.WithAnthropicBaseURL(pc.APIBase),
			providers.WithAnthropicRetry(retry),
		), nil
	case "openai":
		slog.Info("registered provider", "name", "openai", "model", pc.Model, "api_base", pc.APIBase)
		return providers.NewOpenAIProvider("openai", pc.APIKey, pc.APIBase, pc.Model).WithRetry(retry), nil
	default:
		return nil, fmt.Errorf("provider kind %q not supported", pc.Kind)
	}
}

func messengerOptions(mc config.MessengerConfig) []messenger.Option {
	var opts []messenger.Option
	if mc.BaseURL != "" {
		opts = append(opts, messenger.WithBaseURL(mc.BaseURL))
	}
	if mc.RPS != 0 {
		opts = append(opts, messenger.WithRateLimit(mc.RPS, mc.Burst))
	}
	return opts
}

// buildNotifiers creates the chat notifiers that have credentials. A notifier
// that fails to initialize is logged and skipped; alerts are still stored.
func buildNotifiers(ac config.AlertsConfig) []alerts.Notifier {
	var out []alerts.Notifier
	if ac.Telegram.Token != "" && ac.Telegram.ChatID != 0 {
		n, err := alerts.NewTelegramNotifier(ac.Telegram.Token, ac.Telegram.ChatID)
		if err != nil {
			slog.Warn("telegram notifier disabled", "error", err)
		} else {
			out = append(out, n)
			slog.Info("alert notifier enabled", "name", n.Name())
		}
	}
	if ac.Discord.Token != "" && ac.Discord.ChannelID != "" {
		n, err := alerts.NewDiscordNotifier(ac.Discord.Token, ac.Discord.ChannelID)
		if err != nil {
			slog.Warn("discord notifier disabled", "error", err)
		} else {
			out = append(out, n)
			slog.Info("alert notifier enabled", "name", n.Name())
		}
	}
	return out
}
