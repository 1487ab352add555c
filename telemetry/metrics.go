// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	SessionsStarted   prometheus.Counter
	SessionsClosed    prometheus.Counter
	EventsLogged      *prometheus.CounterVec // by event type
	AdsFired          prometheus.Counter
	AdsCancelled      prometheus.Counter
	AdSecondsTotal    prometheus.Counter
	PollErrors        prometheus.Counter
	CommandsHandled   *prometheus.CounterVec // by command
	CommandsThrottled prometheus.Counter

	// Histograms (seconds)
	PollDuration prometheus.Observer

	// Gauges
	liveGauge        *prometheus.GaugeVec // by platform, 1=live
	AdRemainingGauge prometheus.Gauge     // seconds of ads still owed
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "couch_sessions_started_total", Help: "Stream sessions created"})
		SessionsClosed = promauto.NewCounter(prometheus.CounterOpts{Name: "couch_sessions_closed_total", Help: "Stream sessions closed"})
		EventsLogged = promauto.NewCounterVec(prometheus.CounterOpts{Name: "couch_events_logged_total", Help: "Ledger events written"}, []string{"type"})
		AdsFired = promauto.NewCounter(prometheus.CounterOpts{Name: "couch_ads_fired_total", Help: "Ad breaks started (manual and auto)"})
		AdsCancelled = promauto.NewCounter(prometheus.CounterOpts{Name: "couch_ads_cancelled_total", Help: "Scheduled auto-ads cancelled before firing"})
		AdSecondsTotal = promauto.NewCounter(prometheus.CounterOpts{Name: "couch_ad_seconds_total", Help: "Total seconds of advertising run"})
		PollErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "couch_poll_errors_total", Help: "External API poll failures"})
		CommandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{Name: "couch_commands_handled_total", Help: "Chat commands handled"}, []string{"command"})
		CommandsThrottled = promauto.NewCounter(prometheus.CounterOpts{Name: "couch_commands_throttled_total", Help: "Chat commands blocked by cooldown"})
		PollDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "couch_poll_duration_seconds", Help: "Liveness poll duration seconds", Buckets: prometheus.DefBuckets})
		liveGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "couch_channel_live", Help: "Channel live=1 offline=0"}, []string{"platform"})
		AdRemainingGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "couch_ad_seconds_remaining", Help: "Seconds of advertising currently owed"})
	})
}

// SetLive records channel liveness for a platform.
func SetLive(platform string, live bool) {
	if liveGauge == nil {
		return
	}
	v := 0.0
	if live {
		v = 1.0
	}
	liveGauge.WithLabelValues(platform).Set(v)
}

// CountEvent increments the ledger event counter for an event type.
func CountEvent(eventType string) {
	if EventsLogged != nil {
		EventsLogged.WithLabelValues(eventType).Inc()
	}
}

// CountCommand increments the handled counter for a chat command.
func CountCommand(cmd string) {
	if CommandsHandled != nil {
		CommandsHandled.WithLabelValues(cmd).Inc()
	}
}

// SetAdRemaining records the seconds of advertising still owed.
func SetAdRemaining(seconds int) {
	if AdRemainingGauge != nil {
		AdRemainingGauge.Set(float64(seconds))
	}
}

// Inc bumps a counter, tolerating an uninitialized registry in tests.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// TimeFunc measures the duration of fn and records it in obs if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------

type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with the corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
