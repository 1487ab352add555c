package session

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/shassen14/boneless-couch/db"
	"github.com/shassen14/boneless-couch/telemetry"
)

// Thumbnail URLs from the liveness payload carry {width}x{height} templates.
const (
	thumbnailWidth  = "1280"
	thumbnailHeight = "720"
)

// LiveStatus is the result of one liveness poll.
type LiveStatus struct {
	Live         bool
	Title        string
	Category     string
	ThumbnailURL string
	ViewerCount  int
	StartedAt    time.Time
}

// LiveChecker polls an external "is this channel live" signal. Implemented by
// the Helix streams endpoint for Twitch and the Data API for YouTube.
type LiveChecker interface {
	CheckLive(ctx context.Context) (*LiveStatus, error)
}

// Notifier posts go-live and recap announcements. Implemented by the Discord
// client; a nil Notifier disables announcements but not session tracking.
type Notifier interface {
	// PostGoLive announces the stream and returns an opaque message reference
	// for later recap threading.
	PostGoLive(ctx context.Context, s *Session, thumbnailURL string) (string, error)
	// PostRecap posts the end-of-stream recap, threaded onto replyTo when
	// non-empty, else to the fallback destination.
	PostRecap(ctx context.Context, s *Session, r *Recap, replyTo string) error
}

// Tracker is the per-platform stream lifecycle state machine: OFFLINE⇄LIVE
// driven by a periodic liveness poll. It owns session existence; every other
// component reads the session it maintains.
type Tracker struct {
	DB       *sql.DB
	Platform string
	Checker  LiveChecker
	Notifier Notifier
	Interval time.Duration

	wasLive bool
	logger  *slog.Logger
}

func (t *Tracker) log() *slog.Logger {
	if t.logger == nil {
		t.logger = slog.Default().With(slog.String("component", "lifecycle"), slog.String("platform", t.Platform))
	}
	return t.logger
}

// Run polls until ctx is done. An immediate first poll runs at boot so a
// restart mid-stream reattaches to the existing session without waiting a
// full interval.
func (t *Tracker) Run(ctx context.Context) {
	interval := t.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	t.log().Info("lifecycle tracker starting", slog.Duration("interval", interval))
	t.pollOnce(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			t.log().Info("lifecycle tracker stopped")
			return
		case <-ticker.C:
			t.pollOnce(ctx)
		}
	}
}

// pollOnce performs one liveness check and fires a transition handler when
// the state changed since the previous poll. Poll failures mean "no data this
// tick": logged, state untouched.
func (t *Tracker) pollOnce(ctx context.Context) {
	db.SetHeartbeat(ctx, t.DB, "lifecycle_"+t.Platform)
	st, err := t.Checker.CheckLive(ctx)
	if err != nil {
		telemetry.Inc(telemetry.PollErrors)
		t.log().Warn("liveness poll failed", slog.Any("err", err))
		return
	}
	switch {
	case st.Live && !t.wasLive:
		t.log().Info("channel went LIVE", slog.String("title", st.Title))
		t.wasLive = true
		telemetry.SetLive(t.Platform, true)
		t.handleStreamStart(ctx, st)
	case !st.Live && t.wasLive:
		t.log().Info("channel went OFFLINE")
		t.wasLive = false
		telemetry.SetLive(t.Platform, false)
		t.handleStreamEnd(ctx)
	case st.Live:
		t.updateWhileLive(ctx, st)
	}
}

// handleStreamStart creates the session (unless one is already active, the
// restart guard) and posts the go-live announcement. The two side effects
// fail independently: a Discord outage never blocks session creation, and a
// database hiccup never suppresses the announcement of an existing session.
func (t *Tracker) handleStreamStart(ctx context.Context, st *LiveStatus) {
	title := st.Title
	if title == "" {
		title = DefaultTitle
	}
	category := st.Category
	if category == "" {
		category = DefaultCategory
	}

	s, err := Active(ctx, t.DB, t.Platform)
	if err != nil {
		t.log().Error("active session lookup failed", slog.Any("err", err))
	}
	if s != nil {
		// Process restarted while the stream stayed up; reuse the session.
		t.log().Info("active session already exists, skipping creation", slog.Int64("session_id", s.ID))
	} else {
		s, err = Create(ctx, t.DB, t.Platform, title, category)
		if err != nil {
			t.log().Error("session create failed", slog.Any("err", err))
		} else {
			telemetry.Inc(telemetry.SessionsStarted)
			t.log().Info("session created", slog.Int64("session_id", s.ID))
		}
	}

	if t.Notifier == nil || s == nil {
		return
	}
	thumb := expandThumbnail(st.ThumbnailURL)
	msgID, err := t.Notifier.PostGoLive(ctx, s, thumb)
	if err != nil {
		t.log().Error("go-live announcement failed", slog.Any("err", err))
		return
	}
	if msgID != "" {
		if err := SetNotifyMessageID(ctx, t.DB, s.ID, msgID); err != nil {
			t.log().Warn("failed to attach announcement message id", slog.Any("err", err))
		}
	}
}

// handleStreamEnd closes the active session and posts the recap. A missing
// session (offline detected with nothing on record) is a warning, not an
// error.
func (t *Tracker) handleStreamEnd(ctx context.Context) {
	s, err := Active(ctx, t.DB, t.Platform)
	if err != nil {
		t.log().Error("active session lookup failed", slog.Any("err", err))
		return
	}
	if s == nil {
		t.log().Warn("went offline with no active session on record")
		return
	}
	end := time.Now().UTC()
	if err := Close(ctx, t.DB, s.ID, end); err != nil {
		t.log().Error("session close failed", slog.Any("err", err))
		return
	}
	s.EndTime = &end
	s.IsActive = false
	telemetry.Inc(telemetry.SessionsClosed)
	t.log().Info("session closed", slog.Int64("session_id", s.ID), slog.String("duration", FormatDuration(end.Sub(s.StartTime))))

	if t.Notifier == nil {
		return
	}
	recap, err := BuildRecap(ctx, t.DB, s)
	if err != nil {
		t.log().Error("recap build failed", slog.Any("err", err))
		return
	}
	if err := t.Notifier.PostRecap(ctx, s, recap, s.NotifyMessageID); err != nil {
		t.log().Error("recap post failed", slog.Any("err", err))
	}
}

// updateWhileLive raises the peak viewer counter on ordinary live ticks.
func (t *Tracker) updateWhileLive(ctx context.Context, st *LiveStatus) {
	if st.ViewerCount <= 0 {
		return
	}
	s, err := Active(ctx, t.DB, t.Platform)
	if err != nil || s == nil {
		return
	}
	if st.ViewerCount > s.PeakViewers {
		if err := UpdatePeakViewers(ctx, t.DB, s.ID, st.ViewerCount); err != nil {
			t.log().Warn("peak viewers update failed", slog.Any("err", err))
		} else {
			t.log().Debug("peak viewers updated", slog.Int("viewers", st.ViewerCount))
		}
	}
}

func expandThumbnail(raw string) string {
	if raw == "" {
		return ""
	}
	out := strings.ReplaceAll(raw, "{width}", thumbnailWidth)
	return strings.ReplaceAll(out, "{height}", thumbnailHeight)
}
