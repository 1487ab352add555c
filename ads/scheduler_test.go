package ads

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shassen14/boneless-couch/session"
	"github.com/shassen14/boneless-couch/testutil"
)

type fakeChat struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeChat) Say(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, text)
	return nil
}

func (f *fakeChat) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.msgs...)
}

type fakeHelix struct {
	mu      sync.Mutex
	started []int
}

func (f *fakeHelix) StartCommercial(ctx context.Context, broadcasterID string, length int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, length)
	return length, nil
}

func (f *fakeHelix) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started)
}

func TestWarnThenFireCancelled(t *testing.T) {
	chat := &fakeChat{}
	helix := &fakeHelix{}
	budget := &Budget{Quota: 180, Window: time.Hour}
	s := NewScheduler(nil, budget, chat, helix, nil, "123", time.Minute, time.Minute, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	token := budget.setPending(cancel)
	if token == nil {
		t.Fatal("setPending failed on idle budget")
	}

	done := make(chan struct{})
	go func() {
		s.warnThenFire(ctx, token, &session.Session{ID: 1, StartTime: time.Now().UTC()}, 90)
		close(done)
	}()

	// Wait for the warning, then pre-empt as a manual ad would.
	deadline := time.After(2 * time.Second)
	for len(chat.messages()) == 0 {
		select {
		case <-deadline:
			t.Fatal("warning message never sent")
		case <-time.After(5 * time.Millisecond):
		}
	}
	budget.CancelPending()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("warnThenFire did not exit after cancel")
	}

	if helix.count() != 0 {
		t.Fatalf("commercial started %d times after cancellation, want 0", helix.count())
	}
	if budget.HasPending() {
		t.Fatal("pending marker still set after cancelled task exited")
	}
}

func TestSchedulerFiresWhenBehindQuota(t *testing.T) {
	dbc := testutil.SetupTestDB(t)
	testutil.ResetTables(t, dbc)
	ctx := context.Background()

	sess, err := session.Create(ctx, dbc, session.PlatformTwitch, "test stream", "Just Chatting")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	chat := &fakeChat{}
	helix := &fakeHelix{}
	// A one-second window with the full quota outstanding puts the deadline
	// in the past, so the very first tick schedules an ad.
	budget := NewBudget(dbc, 3, time.Second)
	s := NewScheduler(dbc, budget, chat, helix, nil, "123", time.Minute, time.Minute, 20*time.Millisecond)

	if err := s.tickOnce(ctx); err != nil {
		t.Fatalf("tickOnce: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for helix.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("commercial never started")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if got := helix.started[0]; got != 180 {
		t.Fatalf("commercial length = %d, want clamped 180", got)
	}

	// Ledger must carry the ad event.
	for {
		var notes string
		err := dbc.QueryRowContext(ctx,
			`SELECT notes FROM stream_events WHERE session_id=$1 AND event_type=$2`,
			sess.ID, session.EventAd).Scan(&notes)
		if err == nil {
			if notes != "180" {
				t.Fatalf("ad event notes = %q, want 180", notes)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("ad event not recorded: %v", err)
		case <-time.After(10 * time.Millisecond):
		}
	}

	msgs := chat.messages()
	if len(msgs) < 2 {
		t.Fatalf("expected warning and confirmation messages, got %v", msgs)
	}
	if msgs[0] != "⏰ Ad break in 0s — time to stretch!" {
		t.Fatalf("warning message = %q", msgs[0])
	}
	if msgs[1] != "🎬 Auto ad running (3m). Back soon!" {
		t.Fatalf("confirmation message = %q", msgs[1])
	}
}

func TestSchedulerSkipsWhenQuotaMet(t *testing.T) {
	dbc := testutil.SetupTestDB(t)
	testutil.ResetTables(t, dbc)
	ctx := context.Background()

	sess, err := session.Create(ctx, dbc, session.PlatformTwitch, "test stream", "Just Chatting")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	budget := NewBudget(dbc, 1, time.Hour)
	if err := budget.LogAd(ctx, sess.ID, 60, "00h01m00s"); err != nil {
		t.Fatalf("log ad: %v", err)
	}

	chat := &fakeChat{}
	helix := &fakeHelix{}
	s := NewScheduler(dbc, budget, chat, helix, nil, "123", time.Minute, time.Minute, time.Millisecond)

	if err := s.tickOnce(ctx); err != nil {
		t.Fatalf("tickOnce: %v", err)
	}
	if budget.HasPending() {
		t.Fatal("scheduled an ad with zero remaining quota")
	}
	time.Sleep(50 * time.Millisecond)
	if helix.count() != 0 {
		t.Fatal("commercial started with quota already met")
	}
}

func TestSchedulerNoSessionNoAd(t *testing.T) {
	dbc := testutil.SetupTestDB(t)
	testutil.ResetTables(t, dbc)

	chat := &fakeChat{}
	helix := &fakeHelix{}
	budget := NewBudget(dbc, 3, time.Second)
	s := NewScheduler(dbc, budget, chat, helix, nil, "123", time.Minute, time.Minute, time.Millisecond)

	if err := s.tickOnce(context.Background()); err != nil {
		t.Fatalf("tickOnce: %v", err)
	}
	if budget.HasPending() {
		t.Fatal("scheduled an ad with no live session")
	}
}
