package oauth

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shassen14/boneless-couch/db"
	"github.com/shassen14/boneless-couch/testutil"
)

func TestRefresherSkipsFreshToken(t *testing.T) {
	dbc := testutil.SetupTestDB(t)
	ctx := context.Background()

	futureExpiry := time.Now().Add(time.Hour)
	if err := db.UpsertOAuthToken(ctx, dbc, "test-fresh", "access", "refresh", futureExpiry, "scope"); err != nil {
		t.Fatalf("upsert token: %v", err)
	}

	var called atomic.Bool
	fn := func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		called.Store(true)
		return "new-access", "new-refresh", time.Now().Add(2 * time.Hour), "scope", nil
	}

	runCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	StartRefresher(runCtx, dbc, "test-fresh", 20*time.Millisecond, 30*time.Minute, fn)
	<-runCtx.Done()

	if called.Load() {
		t.Error("refresh called for a token with an hour of lifetime left")
	}
}

func TestRefresherRefreshesExpiringToken(t *testing.T) {
	dbc := testutil.SetupTestDB(t)
	ctx := context.Background()

	soonExpiry := time.Now().Add(5 * time.Minute)
	if err := db.UpsertOAuthToken(ctx, dbc, "test-stale", "old-access", "old-refresh", soonExpiry, "scope"); err != nil {
		t.Fatalf("upsert token: %v", err)
	}

	var called atomic.Bool
	newExpiry := time.Now().Add(2 * time.Hour)
	fn := func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		if refreshToken != "old-refresh" {
			t.Errorf("refresh got token %q, want old-refresh", refreshToken)
		}
		called.Store(true)
		return "new-access", "new-refresh", newExpiry, "scope", nil
	}

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	StartRefresher(runCtx, dbc, "test-stale", 20*time.Millisecond, 15*time.Minute, fn)

	deadline := time.After(2 * time.Second)
	for !called.Load() {
		select {
		case <-deadline:
			t.Fatal("refresh never called for an expiring token")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Wait for the persisted row to show the new token.
	for {
		access, refresh, _, _, err := db.GetOAuthToken(ctx, dbc, "test-stale")
		if err != nil {
			t.Fatalf("get token: %v", err)
		}
		if access == "new-access" && refresh == "new-refresh" {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("refreshed token never persisted (access=%q)", access)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
