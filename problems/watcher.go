// Package problems mirrors logged problem attempts into a Discord forum and
// attributes solutions to them, including the streamer's own accepted
// LeetCode submissions.
package problems

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shassen14/boneless-couch/db"
	"github.com/shassen14/boneless-couch/discord"
	"github.com/shassen14/boneless-couch/leetcode"
	"github.com/shassen14/boneless-couch/session"
	"github.com/shassen14/boneless-couch/telemetry"
)

type Watcher struct {
	DB      *sql.DB
	Discord *discord.Client // nil disables forum syncing
	LC      *leetcode.Client

	ForumID          string
	LeetCodeUsername string // streamer's LC account; "" disables solution polling
	TwitchChannel    string // attribution name for auto-logged streamer solutions
	Interval         time.Duration

	watermark int64
	logger    *slog.Logger
}

func NewWatcher(dbc *sql.DB, dc *discord.Client, lc *leetcode.Client, forumID, lcUsername, twitchChannel string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	return &Watcher{
		DB:               dbc,
		Discord:          dc,
		LC:               lc,
		ForumID:          forumID,
		LeetCodeUsername: lcUsername,
		TwitchChannel:    twitchChannel,
		Interval:         interval,
		logger:           slog.Default().With(slog.String("component", "problems")),
	}
}

// Run seeds the watermark so pre-existing attempts are not re-announced,
// then polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	max, err := maxAttemptID(ctx, w.DB)
	if err != nil {
		w.logger.Warn("watermark seed failed; starting from zero", slog.Any("err", err))
	}
	w.watermark = max
	w.logger.Info("problems watcher starting",
		slog.Int64("watermark", w.watermark),
		slog.Duration("interval", w.Interval))

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("problems watcher stopped")
			return
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

// pollOnce runs the three sub-steps, each failing independently.
func (w *Watcher) pollOnce(ctx context.Context) {
	db.SetHeartbeat(ctx, w.DB, "problems")

	if err := w.pollStreamerSolutions(ctx); err != nil && ctx.Err() == nil {
		w.logger.Warn("streamer solution poll failed", slog.Any("err", err))
	}
	if w.Discord == nil || w.ForumID == "" {
		return
	}
	if err := w.syncNewAttempts(ctx); err != nil && ctx.Err() == nil {
		w.logger.Warn("attempt sync failed", slog.Any("err", err))
	}
	if err := w.flushSolutions(ctx); err != nil && ctx.Err() == nil {
		w.logger.Warn("solution flush failed", slog.Any("err", err))
	}
}

// pollStreamerSolutions checks the streamer's recent accepted submissions
// against the problem currently on stream and logs a solution when they match.
func (w *Watcher) pollStreamerSolutions(ctx context.Context) error {
	if w.LeetCodeUsername == "" {
		return nil
	}
	sess, err := session.Active(ctx, w.DB, session.PlatformTwitch)
	if err != nil || sess == nil {
		return err
	}
	attempt, err := session.LatestProblemAttempt(ctx, w.DB, sess.ID)
	if err != nil || attempt == nil {
		return err
	}

	subs, err := w.LC.RecentAccepted(ctx, w.LeetCodeUsername, 10)
	if err != nil {
		telemetry.Inc(telemetry.PollErrors)
		return err
	}
	for _, sub := range subs {
		if sub.TitleSlug != attempt.Slug {
			continue
		}
		sp := &session.SolutionPost{
			ProblemSlug:  attempt.Slug,
			Platform:     session.PlatformTwitch,
			Username:     w.TwitchChannel,
			URL:          leetcode.SubmissionURL(sub.ID),
			VODTimestamp: session.VODTimestamp(sess.StartTime, time.Now().UTC()),
		}
		inserted, err := session.InsertSolutionPost(ctx, w.DB, sess.ID, sp)
		if err != nil {
			return err
		}
		if inserted {
			telemetry.CountEvent(session.EventSolution)
			w.logger.Info("auto-logged streamer solution",
				slog.String("slug", attempt.Slug),
				slog.String("submission", sub.ID))
		}
	}
	return nil
}

// syncNewAttempts creates forum posts for problems logged since the
// watermark. Repeat attempts at an already-posted problem advance the
// watermark without opening a second thread.
func (w *Watcher) syncNewAttempts(ctx context.Context) error {
	attempts, err := attemptsAfter(ctx, w.DB, w.watermark)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	for _, a := range attempts {
		if seen[a.Slug] {
			continue
		}
		seen[a.Slug] = true
		if err := w.syncProblem(ctx, a.Slug); err != nil {
			w.logger.Warn("problem sync failed", slog.String("slug", a.Slug), slog.Any("err", err))
		}
	}
	w.watermark = attempts[len(attempts)-1].ID
	return nil
}

func (w *Watcher) syncProblem(ctx context.Context, slug string) error {
	threadID, err := forumThreadID(ctx, w.DB, slug)
	if err != nil {
		return err
	}
	if threadID != "" {
		return nil
	}
	name, embed, err := w.buildEmbed(ctx, slug)
	if err != nil || embed == nil {
		return err
	}
	threadID, err = w.Discord.CreateForumPost(ctx, w.ForumID, name, embed)
	if err != nil {
		return fmt.Errorf("create forum post: %w", err)
	}
	if err := insertForumThread(ctx, w.DB, slug, threadID); err != nil {
		return err
	}
	w.logger.Info("created problem thread", slog.String("slug", slug), slog.String("thread_id", threadID))
	return nil
}

// buildEmbed renders the problem's forum post from its attempt history.
func (w *Watcher) buildEmbed(ctx context.Context, slug string) (string, *discord.Embed, error) {
	attempts, err := attemptsBySlug(ctx, w.DB, slug)
	if err != nil || len(attempts) == 0 {
		return "", nil, err
	}
	first := attempts[0]
	embed := &discord.Embed{
		Title: first.Title,
		URL:   first.URL,
		Color: discord.ColorPrimary,
	}
	difficulty := first.Difficulty
	if difficulty == "" {
		difficulty = "Unknown"
	}
	embed.Fields = append(embed.Fields, discord.EmbedField{Name: "Difficulty", Value: difficulty, Inline: true})
	if first.Rating > 0 {
		embed.Fields = append(embed.Fields, discord.EmbedField{Name: "Rating", Value: strconv.Itoa(first.Rating), Inline: true})
	}

	var lines []string
	for _, a := range attempts {
		lines = append(lines, fmt.Sprintf("Stream attempt · [%s](%s)", a.VODTimestamp, a.URL))
	}
	embed.Fields = append(embed.Fields, discord.EmbedField{
		Name:  fmt.Sprintf("Appearances (%d)", len(attempts)),
		Value: strings.Join(lines, "\n"),
	})

	solved, err := solutionCount(ctx, w.DB, slug)
	if err != nil {
		return "", nil, err
	}
	if solved == 0 {
		embed.Fields = append(embed.Fields, discord.EmbedField{
			Name:  "Status",
			Value: "Attempted — no solution linked yet",
		})
	}
	return first.Title, embed, nil
}

// flushSolutions posts pending solutions into their problem threads.
// Solutions whose problem has no thread yet stay queued for the next tick.
func (w *Watcher) flushSolutions(ctx context.Context) error {
	pending, err := unpostedSolutions(ctx, w.DB)
	if err != nil {
		return err
	}
	for i := range pending {
		sp := &pending[i]
		threadID, err := forumThreadID(ctx, w.DB, sp.ProblemSlug)
		if err != nil {
			return err
		}
		if threadID == "" {
			continue
		}
		content := fmt.Sprintf("**%s** solved this (via %s)!\n[View Submission](%s)", sp.Username, sp.Platform, sp.URL)
		msgID, err := w.Discord.SendMessage(ctx, threadID, content, nil, "")
		if err != nil {
			w.logger.Warn("solution post failed", slog.String("slug", sp.ProblemSlug), slog.Any("err", err))
			continue
		}
		if err := session.SetSolutionMessageID(ctx, w.DB, sp.ID, msgID); err != nil {
			w.logger.Warn("solution message id write failed", slog.Any("err", err))
		}
	}
	return nil
}
