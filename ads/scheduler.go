package ads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shassen14/boneless-couch/db"
	"github.com/shassen14/boneless-couch/session"
	"github.com/shassen14/boneless-couch/telemetry"
)

// ChatSender posts a message to the broadcaster's chat.
type ChatSender interface {
	Say(ctx context.Context, text string) error
}

// CommercialStarter runs a commercial on the broadcaster's channel and
// returns the length the platform actually accepted.
type CommercialStarter interface {
	StartCommercial(ctx context.Context, broadcasterID string, length int) (int, error)
}

// VideoSource resolves the channel's most recent upload, if any.
type VideoSource interface {
	Latest(ctx context.Context) (*LatestVideo, error)
}

// Scheduler is the safety net that auto-fires ads so the rolling budget is
// met before the window closes. It never pre-empts a manual ad: one pending
// auto-ad exists at a time, and a manual !ad cancels it.
type Scheduler struct {
	DB     *sql.DB
	Budget *Budget
	Chat   ChatSender
	Helix  CommercialStarter
	Videos VideoSource // nil when YouTube is not configured

	BroadcasterID string
	Warmup        time.Duration // no auto-ads this early into the process
	Tick          time.Duration
	WarningDelay  time.Duration // lead time between chat warning and the ad

	logger *slog.Logger
}

// NewScheduler wires a Scheduler with the given knobs. Zero durations get
// the usual defaults (10m warm-up, 60s tick, 60s warning).
func NewScheduler(dbc *sql.DB, budget *Budget, chat ChatSender, helix CommercialStarter, videos VideoSource, broadcasterID string, warmup, tick, warningDelay time.Duration) *Scheduler {
	if warmup <= 0 {
		warmup = 10 * time.Minute
	}
	if tick <= 0 {
		tick = time.Minute
	}
	if warningDelay <= 0 {
		warningDelay = time.Minute
	}
	return &Scheduler{
		DB:            dbc,
		Budget:        budget,
		Chat:          chat,
		Helix:         helix,
		Videos:        videos,
		BroadcasterID: broadcasterID,
		Warmup:        warmup,
		Tick:          tick,
		WarningDelay:  warningDelay,
		logger:        slog.Default().With(slog.String("component", "ad_scheduler")),
	}
}

// Run blocks until ctx is cancelled, checking the budget every tick after an
// initial warm-up so a freshly started stream is not greeted with an ad.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("ad scheduler starting",
		slog.Duration("warmup", s.Warmup),
		slog.Duration("tick", s.Tick))

	select {
	case <-ctx.Done():
		return
	case <-time.After(s.Warmup):
	}

	ticker := time.NewTicker(s.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ad scheduler stopping")
			return
		case <-ticker.C:
			if err := s.tickOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("ad scheduler tick failed", slog.Any("err", err))
			}
		}
	}
}

// tickOnce decides whether an auto-ad has to fire right now. The deadline is
// the latest moment the remaining seconds still fit inside the window,
// measured from the last ad (or stream start if none yet).
func (s *Scheduler) tickOnce(ctx context.Context) error {
	db.SetHeartbeat(ctx, s.DB, "ad_scheduler")

	sess, err := session.Active(ctx, s.DB, session.PlatformTwitch)
	if err != nil {
		return fmt.Errorf("active session: %w", err)
	}
	if sess == nil || s.Budget.HasPending() {
		return nil
	}

	remaining, err := s.Budget.Remaining(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("remaining: %w", err)
	}
	telemetry.SetAdRemaining(remaining)
	if remaining == 0 {
		return nil
	}

	anchor := sess.StartTime
	last, err := s.Budget.LastAdTime(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("last ad time: %w", err)
	}
	if last != nil && last.After(anchor) {
		anchor = *last
	}

	elapsed := time.Since(anchor)
	threshold := s.Budget.Window - time.Duration(remaining)*time.Second
	if elapsed < threshold {
		return nil
	}

	adCtx, cancel := context.WithCancel(ctx)
	token := s.Budget.setPending(cancel)
	if token == nil {
		cancel()
		return nil
	}
	s.logger.Info("scheduling auto-ad",
		slog.Duration("elapsed", elapsed.Round(time.Second)),
		slog.Duration("threshold", threshold.Round(time.Second)),
		slog.Int("remaining_s", remaining))
	go s.warnThenFire(adCtx, token, sess, remaining)
	return nil
}

// warnThenFire warns chat, waits out the lead time, then runs the ad. A
// cancellation during the wait (a manual ad beat us to it) exits quietly
// with no side effects.
func (s *Scheduler) warnThenFire(ctx context.Context, token *pendingAd, sess *session.Session, durationSeconds int) {
	defer s.Budget.finishPending(token)

	warn := fmt.Sprintf("⏰ Ad break in %ds — time to stretch!", int(s.WarningDelay.Seconds()))
	if err := s.Chat.Say(ctx, warn); err != nil {
		s.logger.Warn("ad warning message failed", slog.Any("err", err))
	}

	select {
	case <-ctx.Done():
		telemetry.Inc(telemetry.AdsCancelled)
		s.logger.Info("auto-ad cancelled before firing")
		return
	case <-time.After(s.WarningDelay):
	}

	clamped := Clamp(durationSeconds)
	if _, err := s.Helix.StartCommercial(ctx, s.BroadcasterID, clamped); err != nil {
		s.logger.Error("start commercial failed", slog.Any("err", err))
		return
	}

	vodTS := session.VODTimestamp(sess.StartTime, time.Now().UTC())
	if err := s.Budget.LogAd(ctx, sess.ID, clamped, vodTS); err != nil {
		s.logger.Error("auto-ad ledger write failed", slog.Any("err", err))
	}
	telemetry.Inc(telemetry.AdsFired)

	if err := s.Chat.Say(ctx, fmt.Sprintf("🎬 Auto ad running (%dm). Back soon!", clamped/60)); err != nil {
		s.logger.Warn("ad confirmation message failed", slog.Any("err", err))
	}
	s.logger.Info("auto-ad complete", slog.Int("duration_s", clamped), slog.String("vod_ts", vodTS))

	var latest *LatestVideo
	if s.Videos != nil {
		v, err := s.Videos.Latest(ctx)
		if err != nil {
			s.logger.Warn("latest video lookup failed", slog.Any("err", err))
		} else {
			latest = v
		}
	}
	if msg := PickAdMessage(latest); msg != "" {
		if err := s.Chat.Say(ctx, msg); err != nil {
			s.logger.Warn("post-ad message failed", slog.Any("err", err))
		}
	}
}
