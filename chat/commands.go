package chat

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/shassen14/boneless-couch/ads"
	"github.com/shassen14/boneless-couch/cooldown"
	"github.com/shassen14/boneless-couch/github"
	"github.com/shassen14/boneless-couch/session"
	"github.com/shassen14/boneless-couch/telemetry"
)

const commandTimeout = 20 * time.Second

// Per-command throttles. Informational commands get generous per-user
// cooldowns and a short global one; the write paths are gated by permission
// checks instead.
var cooldowns = map[string]cooldown.Spec{
	"commands": {Global: 10 * time.Second, PerUser: 60 * time.Second},
	"newvideo": {Global: 30 * time.Second, PerUser: 120 * time.Second},
	"lc":       {Global: 5 * time.Second, PerUser: 30 * time.Second},
	"project":  {Global: 5 * time.Second, PerUser: 30 * time.Second},
}

func (b *Bot) onMessage(msg twitch.PrivateMessage) {
	if strings.EqualFold(msg.User.Name, b.botUsername) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if strings.HasPrefix(msg.Message, "!") {
		b.dispatch(ctx, msg)
		return
	}
	b.checkSolutionURL(ctx, msg)
}

func (b *Bot) dispatch(ctx context.Context, msg twitch.PrivateMessage) {
	args := strings.Fields(msg.Message)
	cmd := strings.ToLower(strings.TrimPrefix(args[0], "!"))
	switch cmd {
	case "commands":
		b.cmdCommands(msg)
	case "newvideo":
		b.cmdNewVideo(ctx, msg)
	case "lc":
		b.cmdLC(ctx, msg, args)
	case "project":
		b.cmdProject(ctx, msg, args)
	case "ad":
		b.cmdAd(ctx, msg, args)
	default:
		return
	}
	telemetry.CountCommand(cmd)
}

// throttled applies the command's cooldown. The block is silent: replying
// "try later" to every repeat is exactly the spam the cooldown prevents.
func (b *Bot) throttled(cmd string, msg twitch.PrivateMessage) bool {
	if b.gate.Check(cmd, msg.User.ID, cooldowns[cmd]) {
		telemetry.Inc(telemetry.CommandsThrottled)
		return true
	}
	b.gate.Record(cmd, msg.User.ID)
	return false
}

func (b *Bot) cmdCommands(msg twitch.PrivateMessage) {
	if b.throttled("commands", msg) {
		return
	}
	public := "Commands: !lc (current problem) · !project (current project)"
	if b.Videos != nil {
		public += " · !newvideo (latest YouTube video)"
	}
	b.reply(msg, public)
}

func (b *Bot) cmdNewVideo(ctx context.Context, msg twitch.PrivateMessage) {
	if b.throttled("newvideo", msg) {
		return
	}
	if b.Videos == nil {
		b.reply(msg, "YouTube is not configured.")
		return
	}
	v, err := b.Videos.Latest(ctx)
	if err != nil || v == nil {
		if err != nil {
			b.logger.Warn("latest video lookup failed", slog.Any("err", err))
		}
		b.reply(msg, "Could not fetch the latest video right now.")
		return
	}
	b.reply(msg, v.Title+" → "+v.URL)
}

func (b *Bot) cmdLC(ctx context.Context, msg twitch.PrivateMessage, args []string) {
	// Bare !lc: show the current problem.
	if len(args) < 2 {
		if b.throttled("lc", msg) {
			return
		}
		sess, err := session.Active(ctx, b.DB, session.PlatformTwitch)
		if err != nil {
			b.logger.Warn("active session lookup failed", slog.Any("err", err))
			return
		}
		if sess == nil {
			b.reply(msg, "⚠️ No active stream session.")
			return
		}
		attempt, err := session.LatestProblemAttempt(ctx, b.DB, sess.ID)
		if err != nil {
			b.logger.Warn("latest problem lookup failed", slog.Any("err", err))
			return
		}
		if attempt == nil {
			b.reply(msg, "No LeetCode problem logged yet.")
		} else if attempt.URL != "" {
			b.reply(msg, attempt.URL)
		} else {
			b.reply(msg, attempt.Title)
		}
		return
	}

	// !lc <url>: log a new problem. Broadcaster/mod only, silently.
	if !isPrivileged(msg) {
		return
	}
	url := args[1]
	if !strings.Contains(url, "leetcode.com/problems/") {
		b.reply(msg, "Invalid LeetCode URL.")
		return
	}
	_, after, _ := strings.Cut(url, "problems/")
	slug := strings.SplitN(after, "/", 2)[0]
	if slug == "" {
		b.reply(msg, "Could not parse problem slug.")
		return
	}

	sess, err := session.Active(ctx, b.DB, session.PlatformTwitch)
	if err != nil {
		b.logger.Warn("active session lookup failed", slog.Any("err", err))
		return
	}
	if sess == nil {
		b.reply(msg, "⚠️ No active stream session.")
		return
	}

	problem, err := b.LC.FetchProblem(ctx, slug)
	if err != nil || problem == nil {
		if err != nil {
			b.logger.Warn("problem fetch failed", slog.String("slug", slug), slog.Any("err", err))
		}
		b.reply(msg, "❌ Could not fetch problem data from LeetCode.")
		return
	}

	ratingInt := 0
	if r, ok := b.LC.Rating(problem.ID); ok {
		ratingInt = int(math.Round(r))
	}
	title := strconv.Itoa(problem.ID) + ". " + problem.Title
	vodTS := session.VODTimestamp(sess.StartTime, time.Now().UTC())

	attempt := &session.ProblemAttempt{
		Slug:         slug,
		Title:        title,
		URL:          url,
		Difficulty:   problem.Difficulty,
		Rating:       ratingInt,
		VODTimestamp: vodTS,
	}
	if err := session.InsertProblemAttempt(ctx, b.DB, sess.ID, attempt); err != nil {
		b.logger.Error("problem attempt write failed", slog.Any("err", err))
		b.reply(msg, "❌ Failed to save to DB.")
		return
	}
	telemetry.CountEvent(session.EventProblemAttempt)

	if ratingInt > 0 {
		b.reply(msg, "✅ "+title+" | "+problem.Difficulty+" | Rating: "+strconv.Itoa(ratingInt)+" @ "+vodTS)
	} else {
		b.reply(msg, "✅ "+title+" | "+problem.Difficulty+" @ "+vodTS)
	}
	b.logger.Info("logged problem attempt", slog.String("title", title))
}

func (b *Bot) cmdProject(ctx context.Context, msg twitch.PrivateMessage, args []string) {
	// Bare !project: show the current project.
	if len(args) < 2 {
		if b.throttled("project", msg) {
			return
		}
		sess, err := session.Active(ctx, b.DB, session.PlatformTwitch)
		if err != nil {
			b.logger.Warn("active session lookup failed", slog.Any("err", err))
			return
		}
		if sess == nil {
			b.reply(msg, "⚠️ No active stream session.")
			return
		}
		proj, err := session.LatestProjectLog(ctx, b.DB, sess.ID)
		if err != nil {
			b.logger.Warn("latest project lookup failed", slog.Any("err", err))
			return
		}
		switch {
		case proj == nil:
			b.reply(msg, "No project logged yet.")
		case proj.Description != "":
			b.reply(msg, "Now working on: "+proj.Title+" — "+proj.Description)
		default:
			b.reply(msg, "Now working on: "+proj.Title)
		}
		return
	}

	// !project <url>: log the active project. Broadcaster/mod only.
	if !isPrivileged(msg) {
		return
	}
	url := args[1]
	owner, repo, ok := github.ParseRepoURL(url)
	if !ok {
		b.reply(msg, "Invalid GitHub URL.")
		return
	}

	sess, err := session.Active(ctx, b.DB, session.PlatformTwitch)
	if err != nil {
		b.logger.Warn("active session lookup failed", slog.Any("err", err))
		return
	}
	if sess == nil {
		b.reply(msg, "⚠️ No active stream session.")
		return
	}

	description := ""
	if r, err := b.GH.FetchRepo(ctx, owner, repo); err != nil {
		b.logger.Warn("repo fetch failed", slog.Any("err", err))
	} else if r != nil {
		description = r.Description
	}
	repoName := owner + "/" + repo

	proj := &session.ProjectLog{
		URL:          url,
		Title:        repoName,
		Description:  description,
		VODTimestamp: session.VODTimestamp(sess.StartTime, time.Now().UTC()),
	}
	if err := session.InsertProjectLog(ctx, b.DB, sess.ID, proj); err != nil {
		b.logger.Error("project write failed", slog.Any("err", err))
		b.reply(msg, "❌ Failed to save to DB.")
		return
	}
	telemetry.CountEvent(session.EventProject)

	if description != "" {
		b.reply(msg, "Now working on: "+repoName+" — "+description)
	} else {
		b.reply(msg, "Now working on: "+repoName)
	}
	b.logger.Info("logged project", slog.String("repo", repoName))
}

// cmdAd runs an ad now. Bare !ad runs whatever budget is still owed this
// window and declines once the quota is met; an explicit !ad <minutes>
// clamps the request and runs regardless of quota, so the broadcaster can
// always force a break. Either way the pending auto-ad is cancelled so the
// ledger is never double-credited.
func (b *Bot) cmdAd(ctx context.Context, msg twitch.PrivateMessage, args []string) {
	if !isPrivileged(msg) {
		return
	}
	sess, err := session.Active(ctx, b.DB, session.PlatformTwitch)
	if err != nil {
		b.logger.Warn("active session lookup failed", slog.Any("err", err))
		return
	}
	if sess == nil {
		b.reply(msg, "⚠️ No active stream session.")
		return
	}

	var duration int
	if len(args) > 1 {
		minutes, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			b.reply(msg, "Usage: !ad [minutes] — e.g. !ad 1.5 for 90s")
			return
		}
		duration = ads.Clamp(int(math.Round(minutes * 60)))
	} else {
		remaining, err := b.Budget.Remaining(ctx, sess.ID)
		if err != nil {
			b.logger.Warn("remaining lookup failed", slog.Any("err", err))
			return
		}
		if remaining == 0 {
			b.reply(msg, "Ad quota already met this hour.")
			return
		}
		duration = ads.Clamp(remaining)
	}

	if _, err := b.Helix.StartCommercial(ctx, b.BroadcasterID, duration); err != nil {
		b.logger.Error("start commercial failed", slog.Any("err", err))
		b.reply(msg, "❌ Failed to run ad.")
		return
	}

	vodTS := session.VODTimestamp(sess.StartTime, time.Now().UTC())
	if err := b.Budget.LogAd(ctx, sess.ID, duration, vodTS); err != nil {
		b.logger.Error("manual-ad ledger write failed", slog.Any("err", err))
	}
	b.Budget.CancelPending()
	telemetry.Inc(telemetry.AdsFired)

	endsAt := time.Now().UTC().Add(time.Duration(duration) * time.Second).Format("3:04:05 PM UTC")
	mins, secs := duration/60, duration%60
	label := strconv.Itoa(mins) + "m"
	if secs != 0 {
		label += " " + strconv.Itoa(secs) + "s"
	}
	b.reply(msg, "🎬 Running "+label+" ad — ends ~"+endsAt+". Time to stretch!")
	b.logger.Info("manual ad started", slog.Int("duration_s", duration))

	var latest *ads.LatestVideo
	if b.Videos != nil {
		if v, err := b.Videos.Latest(ctx); err == nil {
			latest = v
		}
	}
	if promo := ads.PickAdMessage(latest); promo != "" {
		_ = b.Say(ctx, promo)
	}

	// Welcome chat back once the break ends.
	time.AfterFunc(time.Duration(duration)*time.Second, func() {
		_ = b.Say(context.Background(), ads.PickReturnMessage())
	})
}
