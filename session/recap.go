package session

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Recap is the end-of-stream rollup posted when a session closes.
type Recap struct {
	Duration    string
	PeakViewers int
	Attempts    []ProblemAttempt
	Projects    []ProjectLog
}

// BuildRecap compiles the recap for a closed session from its event ledger.
func BuildRecap(ctx context.Context, dbc *sql.DB, s *Session) (*Recap, error) {
	end := time.Now().UTC()
	if s.EndTime != nil {
		end = *s.EndTime
	}
	r := &Recap{
		Duration:    FormatDuration(end.Sub(s.StartTime)),
		PeakViewers: s.PeakViewers,
	}
	attempts, err := ProblemAttempts(ctx, dbc, s.ID)
	if err != nil {
		return nil, fmt.Errorf("recap attempts: %w", err)
	}
	r.Attempts = attempts
	projects, err := ProjectLogs(ctx, dbc, s.ID)
	if err != nil {
		return nil, fmt.Errorf("recap projects: %w", err)
	}
	r.Projects = projects
	return r, nil
}

// Summary renders the recap body as plain text lines suitable for an embed
// description.
func (r *Recap) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stream lasted %s", r.Duration)
	if r.PeakViewers > 0 {
		fmt.Fprintf(&b, " · peak %d viewers", r.PeakViewers)
	}
	b.WriteString("\n")
	if len(r.Attempts) > 0 {
		b.WriteString("\nProblems:\n")
		for _, a := range r.Attempts {
			fmt.Fprintf(&b, "• %s", a.Title)
			if a.Difficulty != "" {
				fmt.Fprintf(&b, " (%s)", a.Difficulty)
			}
			if a.VODTimestamp != "" {
				fmt.Fprintf(&b, " @ %s", a.VODTimestamp)
			}
			b.WriteString("\n")
		}
	}
	if len(r.Projects) > 0 {
		b.WriteString("\nProjects:\n")
		for _, p := range r.Projects {
			fmt.Fprintf(&b, "• %s", p.Title)
			if p.VODTimestamp != "" {
				fmt.Fprintf(&b, " @ %s", p.VODTimestamp)
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
