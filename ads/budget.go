package ads

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/shassen14/boneless-couch/session"
	"github.com/shassen14/boneless-couch/telemetry"
)

// Budget computes seconds of advertising owed in a rolling window and records
// ad events. The policy is a rolling lookback measured from now: ads run in
// the past Window must sum to Quota. Both the manual command and the
// autonomous scheduler consult the same arithmetic.
//
// Budget also holds the single in-flight auto-ad marker so a manual ad can
// pre-empt a scheduled one and the scheduler never double-schedules.
type Budget struct {
	DB     *sql.DB
	Quota  int           // seconds of ads owed per window
	Window time.Duration // rolling lookback, normally one hour

	mu      sync.Mutex
	pending *pendingAd
}

// pendingAd is the cancellation handle for the single in-flight auto-ad.
type pendingAd struct {
	cancel context.CancelFunc
}

// NewBudget builds a Budget from a per-hour quota in minutes.
func NewBudget(dbc *sql.DB, quotaMinutes int, window time.Duration) *Budget {
	if window <= 0 {
		window = time.Hour
	}
	return &Budget{DB: dbc, Quota: quotaMinutes * 60, Window: window}
}

// SecondsUsed sums the durations of the session's ad events inside the
// rolling window. Ad durations live in the event notes column as numeric
// strings; timestamps are TIMESTAMPTZ so naive values read back as UTC.
func (b *Budget) SecondsUsed(ctx context.Context, sessionID int64) (int, error) {
	cutoff := time.Now().UTC().Add(-b.Window)
	var used int
	row := b.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CAST(notes AS INTEGER)), 0) FROM stream_events
		 WHERE session_id=$1 AND event_type=$2 AND timestamp > $3`,
		sessionID, session.EventAd, cutoff)
	if err := row.Scan(&used); err != nil {
		return 0, fmt.Errorf("sum ad seconds: %w", err)
	}
	return used, nil
}

// Remaining returns how many seconds of ads still need to run this window.
func (b *Budget) Remaining(ctx context.Context, sessionID int64) (int, error) {
	used, err := b.SecondsUsed(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	rem := b.Quota - used
	if rem < 0 {
		rem = 0
	}
	return rem, nil
}

// LastAdTime returns the timestamp of the most recent ad event in the
// session, or nil when none has run.
func (b *Budget) LastAdTime(ctx context.Context, sessionID int64) (*time.Time, error) {
	var last sql.NullTime
	row := b.DB.QueryRowContext(ctx,
		`SELECT MAX(timestamp) FROM stream_events WHERE session_id=$1 AND event_type=$2`,
		sessionID, session.EventAd)
	if err := row.Scan(&last); err != nil {
		return nil, fmt.Errorf("last ad time: %w", err)
	}
	if !last.Valid {
		return nil, nil
	}
	t := last.Time.UTC()
	return &t, nil
}

// LogAd appends an ad event to the ledger. Callers clamp the duration first;
// the ledger never stores an invalid length.
func (b *Budget) LogAd(ctx context.Context, sessionID int64, durationSeconds int, vodTimestamp string) error {
	if _, err := session.InsertEvent(ctx, b.DB, sessionID, session.EventAd, strconv.Itoa(durationSeconds)); err != nil {
		return fmt.Errorf("log ad: %w", err)
	}
	telemetry.CountEvent(session.EventAd)
	if telemetry.AdSecondsTotal != nil {
		telemetry.AdSecondsTotal.Add(float64(durationSeconds))
	}
	slog.Info("logged ad event", slog.Int("duration_s", durationSeconds), slog.String("vod_ts", vodTimestamp))
	return nil
}

// setPending installs the cancel handle for a newly scheduled auto-ad and
// returns the ownership token, or nil if one is already in flight.
func (b *Budget) setPending(cancel context.CancelFunc) *pendingAd {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending != nil {
		return nil
	}
	b.pending = &pendingAd{cancel: cancel}
	return b.pending
}

// finishPending clears the marker when the auto-ad task exits, but only if
// the task still owns it: a cancel followed by a fresh schedule must not be
// wiped by the old task's deferred cleanup.
func (b *Budget) finishPending(token *pendingAd) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == token {
		b.pending = nil
	}
}

// CancelPending cancels the scheduled auto-ad task if one is waiting.
// HasPending reports false immediately afterwards regardless of prior state.
func (b *Budget) CancelPending() {
	b.mu.Lock()
	p := b.pending
	b.pending = nil
	b.mu.Unlock()
	if p != nil {
		p.cancel()
	}
}

// HasPending reports whether an auto-ad task is currently scheduled.
func (b *Budget) HasPending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending != nil
}
