package alerts

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

// TelegramNotifier sends alerts to a single chat.
type TelegramNotifier struct {
	bot    *telego.Bot
	chatID int64
}

// NewTelegramNotifier creates a notifier; opts are passed to telego.NewBot.
func NewTelegramNotifier(token string, chatID int64, opts ...telego.BotOption) (*TelegramNotifier, error) {
	bot, err := telego.NewBot(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (n *TelegramNotifier) Name() string { return "telegram" }

func (n *TelegramNotifier) Notify(ctx context.Context, a store.Alert) error {
	if _, err := n.bot.SendMessage(ctx, tu.Message(tu.ID(n.chatID), formatAlert(a))); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
