package clips

import (
	"context"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/shassen14/boneless-couch/discord"
	"github.com/shassen14/boneless-couch/session"
	"github.com/shassen14/boneless-couch/testutil"
	"github.com/shassen14/boneless-couch/twitchapi"
)

func TestPollOnceLogsAndPostsClips(t *testing.T) {
	dbc := testutil.SetupTestDB(t)
	testutil.ResetTables(t, dbc)
	ctx := context.Background()

	sess, err := session.Create(ctx, dbc, session.PlatformTwitch, "clip stream", "Just Chatting")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	twitchMock := testutil.NewMockTwitchServer(t)
	twitchMock.MockClipsResponse([]map[string]string{
		{
			"id":         "Clip1",
			"url":        "https://clips.twitch.tv/Clip1",
			"title":      "first clip",
			"created_at": time.Now().UTC().Format(time.RFC3339),
		},
		{
			"id":         "Clip2",
			"url":        "https://clips.twitch.tv/Clip2",
			"title":      "second clip",
			"created_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	helix := &twitchapi.HelixClient{
		AppTokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "app"}),
		ClientID:       "client-id",
		BaseURL:        twitchMock.URL,
	}

	discordMock := testutil.NewMockDiscordServer(t)
	dc := discord.NewClient("token")
	dc.APIBase = discordMock.URL
	notifier := discord.NewNotifier(dc, "", "", "somestreamer", "")

	p := NewPoller(dbc, helix, notifier, "12345", "showcase-1", time.Minute)
	if err := p.pollOnce(ctx); err != nil {
		t.Fatalf("pollOnce: %v", err)
	}

	// Both clips logged, both posted, none left unposted.
	unposted, err := session.UnpostedClips(ctx, dbc, sess.ID)
	if err != nil {
		t.Fatalf("unposted clips: %v", err)
	}
	if len(unposted) != 0 {
		t.Fatalf("unposted clips = %d after poll, want 0", len(unposted))
	}
	if len(discordMock.Messages) != 2 {
		t.Fatalf("showcase posts = %d, want 2", len(discordMock.Messages))
	}

	// A second poll of the same clips must not duplicate anything.
	if err := p.pollOnce(ctx); err != nil {
		t.Fatalf("second pollOnce: %v", err)
	}
	if len(discordMock.Messages) != 2 {
		t.Fatalf("showcase posts = %d after re-poll, want still 2", len(discordMock.Messages))
	}
	var count int
	if err := dbc.QueryRowContext(ctx, `SELECT COUNT(*) FROM clip_logs`).Scan(&count); err != nil {
		t.Fatalf("count clips: %v", err)
	}
	if count != 2 {
		t.Fatalf("clip rows = %d, want 2", count)
	}
}

func TestPollOnceOfflineIsNoop(t *testing.T) {
	dbc := testutil.SetupTestDB(t)
	testutil.ResetTables(t, dbc)

	twitchMock := testutil.NewMockTwitchServer(t)
	helix := &twitchapi.HelixClient{
		AppTokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "app"}),
		ClientID:       "client-id",
		BaseURL:        twitchMock.URL,
	}
	p := NewPoller(dbc, helix, nil, "12345", "", time.Minute)
	// No handlers registered: any Helix call would 404 and error out.
	if err := p.pollOnce(context.Background()); err != nil {
		t.Fatalf("pollOnce with no active session: %v", err)
	}
}
