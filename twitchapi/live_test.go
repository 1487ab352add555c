package twitchapi

import (
	"context"
	"testing"

	"github.com/shassen14/boneless-couch/testutil"
)

func TestLiveSourceCheckLive(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	mock.MockStreamsResponse([]map[string]interface{}{
		{
			"id":            "9001",
			"user_login":    "somestreamer",
			"title":         "live now",
			"game_name":     "Just Chatting",
			"viewer_count":  8,
			"thumbnail_url": "https://example.com/{width}x{height}.jpg",
		},
	})

	ls := &LiveSource{Helix: newTestHelix(t, mock), Login: "somestreamer"}
	st, err := ls.CheckLive(context.Background())
	if err != nil {
		t.Fatalf("CheckLive: %v", err)
	}
	if !st.Live {
		t.Fatal("CheckLive reported offline for a live channel")
	}
	if st.Title != "live now" || st.Category != "Just Chatting" || st.ViewerCount != 8 {
		t.Fatalf("status = %+v", st)
	}
}

func TestLiveSourceCheckLiveOffline(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	mock.MockStreamsResponse(nil)

	ls := &LiveSource{Helix: newTestHelix(t, mock), Login: "somestreamer"}
	st, err := ls.CheckLive(context.Background())
	if err != nil {
		t.Fatalf("CheckLive: %v", err)
	}
	if st.Live {
		t.Fatal("CheckLive reported live for an offline channel")
	}
}
