package discord

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shassen14/boneless-couch/session"
	"github.com/shassen14/boneless-couch/testutil"
)

func TestPostGoLive(t *testing.T) {
	mock := testutil.NewMockDiscordServer(t)
	n := NewNotifier(newTestClient(mock), "updates-1", "fallback-1", "somestreamer", "")

	s := &session.Session{
		Platform:  session.PlatformTwitch,
		Title:     "refactoring the bot live",
		Category:  "Software and Game Development",
		StartTime: time.Now().UTC(),
	}
	id, err := n.PostGoLive(context.Background(), s, "https://example.com/thumb.jpg")
	if err != nil {
		t.Fatalf("PostGoLive: %v", err)
	}
	if id == "" {
		t.Fatal("PostGoLive returned empty message id")
	}

	got := mock.Messages[0]
	if got["_path"] != "/channels/updates-1/messages" {
		t.Fatalf("posted to %v", got["_path"])
	}
	embeds := got["embeds"].([]interface{})
	e := embeds[0].(map[string]interface{})
	if e["title"] != "🔴 somestreamer is LIVE on Twitch!" {
		t.Fatalf("embed title = %v", e["title"])
	}
	desc, _ := e["description"].(string)
	if !strings.Contains(desc, "**refactoring the bot live**") || !strings.Contains(desc, "Playing: Software and Game Development") {
		t.Fatalf("embed description = %q", desc)
	}
	img, ok := e["image"].(map[string]interface{})
	if !ok {
		t.Fatal("embed missing thumbnail image")
	}
	imgURL, _ := img["url"].(string)
	if !strings.HasPrefix(imgURL, "https://example.com/thumb.jpg?r=") {
		t.Fatalf("thumbnail url missing cache buster: %q", imgURL)
	}
}

func TestPostGoLiveUnconfigured(t *testing.T) {
	mock := testutil.NewMockDiscordServer(t)
	n := NewNotifier(newTestClient(mock), "", "", "somestreamer", "")

	id, err := n.PostGoLive(context.Background(), &session.Session{Platform: session.PlatformTwitch}, "")
	if err != nil {
		t.Fatalf("PostGoLive: %v", err)
	}
	if id != "" {
		t.Fatalf("PostGoLive = %q with no channel configured, want empty", id)
	}
	if len(mock.Messages) != 0 {
		t.Fatal("message posted with no channel configured")
	}
}

func TestPostRecapThreadsOntoAnnouncement(t *testing.T) {
	mock := testutil.NewMockDiscordServer(t)
	n := NewNotifier(newTestClient(mock), "updates-1", "fallback-1", "somestreamer", "")

	s := &session.Session{Platform: session.PlatformTwitch, Title: "t"}
	r := &session.Recap{Duration: "1h 30m", PeakViewers: 12}
	if err := n.PostRecap(context.Background(), s, r, "announce-7"); err != nil {
		t.Fatalf("PostRecap: %v", err)
	}

	got := mock.Messages[0]
	if got["_path"] != "/channels/updates-1/messages" {
		t.Fatalf("posted to %v", got["_path"])
	}
	ref, ok := got["message_reference"].(map[string]interface{})
	if !ok || ref["message_id"] != "announce-7" {
		t.Fatalf("recap not threaded: %v", got)
	}
}

func TestPostRecapFallsBackWithoutReply(t *testing.T) {
	mock := testutil.NewMockDiscordServer(t)
	n := NewNotifier(newTestClient(mock), "updates-1", "fallback-1", "somestreamer", "")

	s := &session.Session{Platform: session.PlatformTwitch}
	r := &session.Recap{Duration: "20m"}
	if err := n.PostRecap(context.Background(), s, r, ""); err != nil {
		t.Fatalf("PostRecap: %v", err)
	}
	if got := mock.Messages[0]["_path"]; got != "/channels/fallback-1/messages" {
		t.Fatalf("recap without announcement posted to %v, want fallback channel", got)
	}
}

func TestPostClip(t *testing.T) {
	mock := testutil.NewMockDiscordServer(t)
	n := NewNotifier(newTestClient(mock), "updates-1", "", "somestreamer", "")

	c := &session.ClipLog{Title: "clutch moment", URL: "https://clips.twitch.tv/Clutch1"}
	id, err := n.PostClip(context.Background(), "showcase-1", c)
	if err != nil {
		t.Fatalf("PostClip: %v", err)
	}
	if id == "" {
		t.Fatal("PostClip returned empty id")
	}
	got := mock.Messages[0]
	if got["_path"] != "/channels/showcase-1/messages" {
		t.Fatalf("posted to %v", got["_path"])
	}
	e := got["embeds"].([]interface{})[0].(map[string]interface{})
	if e["title"] != "clutch moment" || e["description"] != "https://clips.twitch.tv/Clutch1" {
		t.Fatalf("clip embed = %v", e)
	}
}
