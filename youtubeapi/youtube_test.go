package youtubeapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/api/option"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s, err := New(context.Background(), "test-key", "chan-1", option.WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return s
}

func TestLatestVideo(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("channelId") != "chan-1" || q.Get("order") != "date" {
			http.Error(w, "unexpected query", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{
			"id":{"videoId":"abc123"},
			"snippet":{"title":"Stream Highlights #7","thumbnails":{"high":{"url":"https://i.ytimg.com/abc123/hq.jpg"}}}}]}`))
	})

	v, err := s.LatestVideo(context.Background())
	if err != nil {
		t.Fatalf("LatestVideo: %v", err)
	}
	if v == nil {
		t.Fatal("LatestVideo returned nil for a channel with uploads")
	}
	if v.ID != "abc123" || v.Title != "Stream Highlights #7" {
		t.Fatalf("video = %+v", v)
	}
	if v.URL != "https://www.youtube.com/watch?v=abc123" {
		t.Fatalf("video url = %q", v.URL)
	}
	if v.ThumbnailURL != "https://i.ytimg.com/abc123/hq.jpg" {
		t.Fatalf("thumbnail = %q", v.ThumbnailURL)
	}
}

func TestLatestVideoEmptyChannel(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[]}`))
	})

	v, err := s.LatestVideo(context.Background())
	if err != nil {
		t.Fatalf("LatestVideo: %v", err)
	}
	if v != nil {
		t.Fatalf("video = %+v for an empty channel, want nil", v)
	}
}

func TestLiveSourceCheckLive(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("eventType") != "live" {
			http.Error(w, "unexpected query", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{
			"id":{"videoId":"live789"},
			"snippet":{"title":"LIVE: algorithms night"}}]}`))
	})

	ls := &LiveSource{Service: s}
	st, err := ls.CheckLive(context.Background())
	if err != nil {
		t.Fatalf("CheckLive: %v", err)
	}
	if !st.Live || st.Title != "LIVE: algorithms night" {
		t.Fatalf("status = %+v", st)
	}
}

func TestLiveSourceCheckLiveOffline(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[]}`))
	})

	ls := &LiveSource{Service: s}
	st, err := ls.CheckLive(context.Background())
	if err != nil {
		t.Fatalf("CheckLive: %v", err)
	}
	if st.Live {
		t.Fatal("CheckLive reported live for an offline channel")
	}
}

func TestVideoSourceLatest(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{
			"id":{"videoId":"vid42"},
			"snippet":{"title":"DP from scratch"}}]}`))
	})

	vs := &VideoSource{Service: s}
	latest, err := vs.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil || latest.Title != "DP from scratch" || latest.URL != "https://www.youtube.com/watch?v=vid42" {
		t.Fatalf("latest = %+v", latest)
	}
}
