// Package oauth provides token refresh scheduling for providers whose tokens
// are persisted in the oauth_tokens table. It performs jittered checks and
// refreshes when expiry falls within a configured window. The bot uses it to
// keep the broadcaster token (channel:edit:commercial) warm so auto-ads never
// fail on an expired token.
package oauth

import (
	"context"
	"database/sql"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/shassen14/boneless-couch/db"
)

// RefreshFunc performs provider-specific refresh and returns (access, refresh, expiry, scope).
type RefreshFunc func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error)

// StartRefresher launches a goroutine that periodically checks an oauth token
// row and refreshes it when its remaining lifetime drops inside window.
func StartRefresher(ctx context.Context, dbc *sql.DB, provider string, interval, window time.Duration, fn RefreshFunc) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	logger := slog.Default().With(slog.String("component", "oauth_refresh"), slog.String("provider", provider))
	go func() {
		// Randomized initial delay spreads load across instances.
		//nolint:gosec // G404: math/rand is fine for scheduling jitter
		initial := time.Duration(rand.Int63n(int64(interval / 2)))
		select {
		case <-ctx.Done():
			return
		case <-time.After(initial):
		}
		for {
			// Per-iteration jitter (±20%) so replicas don't refresh in lockstep.
			jitterRange := int64(interval / 5)
			//nolint:gosec // G404: scheduling jitter
			jitter := time.Duration(rand.Int63n(jitterRange*2) - jitterRange)
			sleep := interval + jitter
			if sleep < interval/2 {
				sleep = interval / 2
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(sleep):
			}
			_, refresh, expiry, scope, err := db.GetOAuthToken(ctx, dbc, provider)
			if err != nil {
				logger.Warn("token read failed", slog.Any("err", err))
				continue
			}
			if refresh == "" {
				continue
			}
			if time.Until(expiry) > window {
				continue
			}
			rctx, cancel := context.WithTimeout(ctx, 15*time.Second)
			newAT, newRT, newExp, newScope, err := fn(rctx, refresh)
			cancel()
			if err != nil {
				logger.Warn("token refresh failed", slog.Any("err", err))
				continue
			}
			if newRT == "" {
				newRT = refresh
			}
			if newScope == "" {
				newScope = scope
			}
			if err := db.UpsertOAuthToken(ctx, dbc, provider, newAT, newRT, newExp, strings.TrimSpace(newScope)); err != nil {
				logger.Warn("token persist failed", slog.Any("err", err))
				continue
			}
			logger.Info("token refreshed", slog.Time("expires_at", newExp))
		}
	}()
}
