package chat

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/shassen14/boneless-couch/session"
	"github.com/shassen14/boneless-couch/telemetry"
)

// Viewers paste their accepted submissions into chat; the bot quietly
// attributes them to the problem currently on stream.
var (
	lcSubmissionSlug = regexp.MustCompile(`leetcode\.com/problems/([\w-]+)/submissions/\d+`)
	lcSubmissionBare = regexp.MustCompile(`leetcode\.com/submissions/detail/\d+`)
	urlPattern       = regexp.MustCompile(`https?://\S+`)
)

func (b *Bot) checkSolutionURL(ctx context.Context, msg twitch.PrivateMessage) {
	var slug string
	if m := lcSubmissionSlug.FindStringSubmatch(msg.Message); m != nil {
		slug = m[1]
	} else if !lcSubmissionBare.MatchString(msg.Message) {
		return
	}

	url := urlPattern.FindString(msg.Message)
	if url == "" {
		return
	}

	sess, err := session.Active(ctx, b.DB, session.PlatformTwitch)
	if err != nil || sess == nil {
		return
	}
	attempt, err := session.LatestProblemAttempt(ctx, b.DB, sess.ID)
	if err != nil || attempt == nil {
		return
	}
	// A slugged link must match the problem on stream; a bare detail link is
	// trusted to be for it.
	if slug != "" && slug != attempt.Slug {
		return
	}

	sp := &session.SolutionPost{
		ProblemSlug:  attempt.Slug,
		Platform:     session.PlatformTwitch,
		Username:     msg.User.Name,
		URL:          url,
		VODTimestamp: session.VODTimestamp(sess.StartTime, time.Now().UTC()),
	}
	inserted, err := session.InsertSolutionPost(ctx, b.DB, sess.ID, sp)
	if err != nil {
		b.logger.Warn("solution write failed", slog.Any("err", err))
		return
	}
	if !inserted {
		return
	}
	telemetry.CountEvent(session.EventSolution)
	b.logger.Info("logged solution",
		slog.String("user", msg.User.Name),
		slog.String("slug", attempt.Slug))
}
