// Package chat runs the Twitch IRC bot: command handling, passive solution
// detection, and outbound messages for the ad machinery.
package chat

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/shassen14/boneless-couch/ads"
	"github.com/shassen14/boneless-couch/config"
	"github.com/shassen14/boneless-couch/cooldown"
	"github.com/shassen14/boneless-couch/github"
	"github.com/shassen14/boneless-couch/leetcode"
)

// Bot is the chat front end. It is also the ChatSender the ad scheduler
// posts warnings through.
type Bot struct {
	DB     *sql.DB
	Budget *ads.Budget
	Helix  ads.CommercialStarter
	LC     *leetcode.Client
	GH     *github.Client
	Videos ads.VideoSource // nil when YouTube is not configured

	Channel       string
	BroadcasterID string
	botUsername   string

	client *twitch.Client
	gate   *cooldown.Gate
	logger *slog.Logger

	// IRC send functions, swappable for tests.
	sayFn   func(channel, text string)
	replyFn func(channel, parentID, text string)
}

// NewBot wires the bot from config. The caller resolves BroadcasterID first
// (it is needed to start commercials).
func NewBot(cfg *config.Config, dbc *sql.DB, budget *ads.Budget, helix ads.CommercialStarter, lc *leetcode.Client, gh *github.Client, videos ads.VideoSource, broadcasterID string) *Bot {
	token := cfg.TwitchOAuthToken
	if token != "" && !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}
	b := &Bot{
		DB:            dbc,
		Budget:        budget,
		Helix:         helix,
		LC:            lc,
		GH:            gh,
		Videos:        videos,
		Channel:       cfg.TwitchChannel,
		BroadcasterID: broadcasterID,
		botUsername:   cfg.TwitchBotUsername,
		client:        twitch.NewClient(cfg.TwitchBotUsername, token),
		gate:          cooldown.NewGate(),
		logger:        slog.Default().With(slog.String("component", "chat")),
	}
	b.sayFn = b.client.Say
	b.replyFn = b.client.Reply
	b.client.OnPrivateMessage(b.onMessage)
	return b
}

// Run connects to chat and blocks until ctx is cancelled or the connection
// fails for good.
func (b *Bot) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		b.client.Disconnect()
	}()
	b.client.Join(b.Channel)
	b.logger.Info("joining chat", slog.String("channel", b.Channel))
	err := b.client.Connect()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Say posts to the broadcaster's channel. Sends are fire-and-forget at the
// IRC layer, so this only fails when the message is empty.
func (b *Bot) Say(_ context.Context, text string) error {
	if text == "" {
		return nil
	}
	b.sayFn(b.Channel, text)
	return nil
}

func (b *Bot) reply(msg twitch.PrivateMessage, text string) {
	b.replyFn(b.Channel, msg.ID, text)
}

// isPrivileged reports whether the sender may use broadcaster/mod commands.
func isPrivileged(msg twitch.PrivateMessage) bool {
	return msg.User.Badges["broadcaster"] > 0 || msg.User.Badges["moderator"] > 0
}
