// Package session owns broadcast sessions and their event ledger: the
// persisted Session/Event records, the query layer over them, and the
// lifecycle tracker that detects go-live and go-offline transitions.
package session

import (
	"time"
)

// Platform tags for sessions.
const (
	PlatformTwitch  = "twitch"
	PlatformYouTube = "youtube"
)

// Event types recorded in the ledger. For EventAd, the event's Notes field
// holds the ad duration in seconds as a numeric string.
const (
	EventAd             = "ad"
	EventProblemAttempt = "problem_attempt"
	EventProject        = "project"
	EventSolution       = "solution"
	EventClip           = "clip"
	EventNote           = "note"
)

// Defaults used when the liveness payload omits fields.
const (
	DefaultTitle    = "No Title Provided"
	DefaultCategory = "Just Chatting"
)

// Session is one continuous tracked broadcast on a platform. At most one
// session per platform is active at any time (enforced by a partial unique
// index).
type Session struct {
	ID              int64
	Platform        string
	Title           string
	Category        string
	StartTime       time.Time
	EndTime         *time.Time
	IsActive        bool
	PeakViewers     int
	NotifyMessageID string // Discord message id of the go-live announcement, if posted
}

// Event is a single timestamped, typed occurrence logged during a Session.
// Events are append-only; structured detail lives in the extension tables
// (problem_attempts, project_logs, clip_logs).
type Event struct {
	ID        int64
	SessionID int64
	Timestamp time.Time
	Type      string
	Notes     string
}

// ProblemAttempt is the structured detail behind a problem_attempt event.
type ProblemAttempt struct {
	ID           int64
	EventID      int64
	Slug         string
	Title        string
	URL          string
	Difficulty   string
	Rating       int // zero when unrated
	VODTimestamp string
	Timestamp    time.Time // from the owning event
}

// ProjectLog is the structured detail behind a project event.
type ProjectLog struct {
	ID           int64
	EventID      int64
	URL          string
	Title        string
	Description  string
	VODTimestamp string
	Timestamp    time.Time
}

// ClipLog is the structured detail behind a clip event.
type ClipLog struct {
	ID               int64
	EventID          int64
	ClipID           string
	Title            string
	URL              string
	VODTimestamp     string
	DiscordMessageID string
}

// SolutionPost is a viewer's (or the streamer's) submitted solution to a
// logged problem. One row per (problem, platform, user): reposts are dropped
// by the unique constraint rather than checked first.
type SolutionPost struct {
	ID               int64
	ProblemSlug      string
	Platform         string
	Username         string
	URL              string
	VODTimestamp     string
	DiscordMessageID string
}
