package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shassen14/boneless-couch/ads"
	"github.com/shassen14/boneless-couch/session"
)

type Handlers struct {
	db     *sql.DB
	budget *ads.Budget
}

// HandleHealthz is the liveness probe: process up and database reachable.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz is the readiness probe. Beyond the database ping it confirms
// the schema is present, since every component reads stream_sessions.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error { return h.db.PingContext(r.Context()) }},
		{"schema", func() error {
			var n int
			return h.db.QueryRowContext(r.Context(),
				"SELECT COUNT(*) FROM stream_sessions WHERE FALSE").Scan(&n)
		}},
	}
	for _, check := range checks {
		if err := check.fn(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

type sessionStatus struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	StartTime   time.Time `json:"start_time"`
	PeakViewers int       `json:"peak_viewers"`
}

type adStatus struct {
	QuotaSeconds     int  `json:"quota_seconds"`
	UsedSeconds      int  `json:"used_seconds"`
	RemainingSeconds int  `json:"remaining_seconds"`
	WindowSeconds    int  `json:"window_seconds"`
	PendingAutoAd    bool `json:"pending_auto_ad"`
}

// HandleStatus reports the active sessions, the Twitch ad budget, and the
// last heartbeat of each background job.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out := struct {
		Sessions map[string]*sessionStatus `json:"sessions"`
		Ads      *adStatus                 `json:"ads,omitempty"`
		Jobs     map[string]string         `json:"jobs"`
	}{Sessions: make(map[string]*sessionStatus), Jobs: map[string]string{}}

	jobKeys := []string{
		"job_lifecycle_twitch_last", "job_lifecycle_youtube_last",
		"job_ad_scheduler_last", "job_clips_last", "job_problems_last",
	}
	for _, k := range jobKeys {
		var val string
		_ = h.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=$1`, k).Scan(&val)
		if val != "" {
			out.Jobs[k] = val
		}
	}

	for _, platform := range []string{session.PlatformTwitch, session.PlatformYouTube} {
		s, err := session.Active(ctx, h.db, platform)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if s == nil {
			continue
		}
		out.Sessions[platform] = &sessionStatus{
			ID:          s.ID,
			Title:       s.Title,
			Category:    s.Category,
			StartTime:   s.StartTime,
			PeakViewers: s.PeakViewers,
		}
		if platform == session.PlatformTwitch && h.budget != nil {
			used, err := h.budget.SecondsUsed(ctx, s.ID)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			remaining := h.budget.Quota - used
			if remaining < 0 {
				remaining = 0
			}
			out.Ads = &adStatus{
				QuotaSeconds:     h.budget.Quota,
				UsedSeconds:      used,
				RemainingSeconds: remaining,
				WindowSeconds:    int(h.budget.Window.Seconds()),
				PendingAutoAd:    h.budget.HasPending(),
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
