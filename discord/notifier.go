package discord

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/shassen14/boneless-couch/session"
)

// Notifier posts go-live announcements and recaps. It satisfies the lifecycle
// tracker's Notifier interface. Unconfigured channel ids degrade to warnings,
// never errors: a missing Discord channel must not break session tracking.
type Notifier struct {
	Client *Client

	StreamUpdatesChannelID string
	FallbackChannelID      string
	TwitchLogin            string
	YouTubeChannelID       string

	logger *slog.Logger
}

func NewNotifier(c *Client, streamUpdatesID, fallbackID, twitchLogin, youtubeChannelID string) *Notifier {
	return &Notifier{
		Client:                 c,
		StreamUpdatesChannelID: streamUpdatesID,
		FallbackChannelID:      fallbackID,
		TwitchLogin:            twitchLogin,
		YouTubeChannelID:       youtubeChannelID,
		logger:                 slog.Default().With(slog.String("component", "discord")),
	}
}

func (n *Notifier) streamURL(platform string) (url, label string, color int) {
	if platform == session.PlatformYouTube {
		return "https://www.youtube.com/channel/" + n.YouTubeChannelID, "YouTube", ColorYouTube
	}
	return "https://twitch.tv/" + n.TwitchLogin, "Twitch", ColorTwitch
}

// PostGoLive announces the new stream and returns the message id for recap
// threading. Returns "" with no error when no channel is configured.
func (n *Notifier) PostGoLive(ctx context.Context, s *session.Session, thumbnailURL string) (string, error) {
	if n.StreamUpdatesChannelID == "" {
		n.logger.Warn("no stream updates channel configured; skipping announcement")
		return "", nil
	}
	url, label, color := n.streamURL(s.Platform)
	embed := &Embed{
		Title:       fmt.Sprintf("🔴 %s is LIVE on %s!", n.TwitchLogin, label),
		Description: fmt.Sprintf("**%s**\nPlaying: %s", s.Title, s.Category),
		URL:         url,
		Color:       color,
	}
	if thumbnailURL != "" {
		// Cache buster so Discord refetches a fresh preview frame.
		embed.Image = &EmbedImage{URL: fmt.Sprintf("%s?r=%d", thumbnailURL, rand.Intn(99999)+1)}
	}
	id, err := n.Client.SendMessage(ctx, n.StreamUpdatesChannelID, "", embed, "")
	if err != nil {
		return "", fmt.Errorf("go-live announcement: %w", err)
	}
	n.logger.Info("posted go-live announcement", slog.String("message_id", id))
	return id, nil
}

// PostRecap posts the end-of-stream rollup, replying to the go-live message
// when known. A failed reply retries on the fallback channel so the recap is
// never silently lost.
func (n *Notifier) PostRecap(ctx context.Context, s *session.Session, r *session.Recap, replyTo string) error {
	_, _, color := n.streamURL(s.Platform)
	embed := &Embed{
		Title:       "📊 Stream Recap",
		Description: r.Summary(),
		Color:       color,
	}

	channelID := n.StreamUpdatesChannelID
	if channelID == "" || replyTo == "" {
		channelID = n.FallbackChannelID
		replyTo = ""
	}
	if channelID == "" {
		n.logger.Warn("no recap channel configured; skipping recap")
		return nil
	}
	if _, err := n.Client.SendMessage(ctx, channelID, "", embed, replyTo); err != nil {
		if replyTo != "" && n.FallbackChannelID != "" {
			n.logger.Warn("recap reply failed; using fallback channel", slog.Any("err", err))
			_, err = n.Client.SendMessage(ctx, n.FallbackChannelID, "", embed, "")
		}
		if err != nil {
			return fmt.Errorf("recap post: %w", err)
		}
	}
	n.logger.Info("posted stream recap")
	return nil
}

// PostClip announces one clip in the showcase channel.
func (n *Notifier) PostClip(ctx context.Context, channelID string, c *session.ClipLog) (string, error) {
	embed := &Embed{Title: c.Title, Description: c.URL, Color: ColorTwitch}
	id, err := n.Client.SendMessage(ctx, channelID, "", embed, "")
	if err != nil {
		return "", fmt.Errorf("clip post: %w", err)
	}
	return id, nil
}
