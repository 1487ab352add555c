// Package clips watches for clips created during the active stream, logs
// them to the event ledger, and showcases them in Discord.
package clips

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/shassen14/boneless-couch/db"
	"github.com/shassen14/boneless-couch/discord"
	"github.com/shassen14/boneless-couch/session"
	"github.com/shassen14/boneless-couch/telemetry"
	"github.com/shassen14/boneless-couch/twitchapi"
)

type Poller struct {
	DB       *sql.DB
	Helix    *twitchapi.HelixClient
	Notifier *discord.Notifier // nil disables showcase posting

	BroadcasterID     string
	ShowcaseChannelID string
	Interval          time.Duration

	logger *slog.Logger
}

func NewPoller(dbc *sql.DB, helix *twitchapi.HelixClient, notifier *discord.Notifier, broadcasterID, showcaseChannelID string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{
		DB:                dbc,
		Helix:             helix,
		Notifier:          notifier,
		BroadcasterID:     broadcasterID,
		ShowcaseChannelID: showcaseChannelID,
		Interval:          interval,
		logger:            slog.Default().With(slog.String("component", "clips")),
	}
}

// Run polls until ctx is done. Clips only exist relative to an active
// session, so ticks while offline are no-ops.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("clip poller starting", slog.Duration("interval", p.Interval))
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("clip poller stopped")
			return
		case <-ticker.C:
			if err := p.pollOnce(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn("clip poll failed", slog.Any("err", err))
			}
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) error {
	db.SetHeartbeat(ctx, p.DB, "clips")

	sess, err := session.Active(ctx, p.DB, session.PlatformTwitch)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	found, err := p.Helix.GetClips(ctx, p.BroadcasterID, sess.StartTime)
	if err != nil {
		telemetry.Inc(telemetry.PollErrors)
		return err
	}
	for _, clip := range found {
		c := &session.ClipLog{
			ClipID:       clip.ID,
			Title:        clip.Title,
			URL:          clip.URL,
			VODTimestamp: session.VODTimestamp(sess.StartTime, clip.CreatedAt.UTC()),
		}
		inserted, err := session.InsertClip(ctx, p.DB, sess.ID, c)
		if err != nil {
			p.logger.Warn("clip write failed", slog.String("clip_id", clip.ID), slog.Any("err", err))
			continue
		}
		if inserted {
			telemetry.CountEvent(session.EventClip)
			p.logger.Info("logged clip", slog.String("clip_id", clip.ID), slog.String("title", clip.Title))
		}
	}

	return p.postUnposted(ctx, sess)
}

// postUnposted announces logged clips that have no Discord message yet. Each
// clip fails independently so one bad post never blocks the rest.
func (p *Poller) postUnposted(ctx context.Context, sess *session.Session) error {
	if p.Notifier == nil || p.ShowcaseChannelID == "" {
		return nil
	}
	unposted, err := session.UnpostedClips(ctx, p.DB, sess.ID)
	if err != nil {
		return err
	}
	for i := range unposted {
		c := &unposted[i]
		id, err := p.Notifier.PostClip(ctx, p.ShowcaseChannelID, c)
		if err != nil {
			p.logger.Warn("clip showcase post failed", slog.String("clip_id", c.ClipID), slog.Any("err", err))
			continue
		}
		if err := session.SetClipMessageID(ctx, p.DB, c.ID, id); err != nil {
			p.logger.Warn("clip message id write failed", slog.Any("err", err))
		}
	}
	return nil
}
