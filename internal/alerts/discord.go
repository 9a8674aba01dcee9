package alerts

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/socialpilot/internal/store"
)

// DiscordNotifier posts alerts to one channel using the REST API only; no
// gateway session is opened.
type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordNotifier(token, channelID string) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordNotifier{session: session, channelID: channelID}, nil
}

func (n *DiscordNotifier) Name() string { return "discord" }

func (n *DiscordNotifier) Notify(ctx context.Context, a store.Alert) error {
	if _, err := n.session.ChannelMessageSend(n.channelID, formatAlert(a), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send discord message: %w", err)
	}
	return nil
}
