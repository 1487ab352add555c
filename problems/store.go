package problems

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shassen14/boneless-couch/session"
)

// maxAttemptID returns the highest problem attempt id, for watermark seeding.
func maxAttemptID(ctx context.Context, dbc *sql.DB) (int64, error) {
	var max sql.NullInt64
	row := dbc.QueryRowContext(ctx, `SELECT MAX(id) FROM problem_attempts`)
	if err := row.Scan(&max); err != nil {
		return 0, fmt.Errorf("max attempt id: %w", err)
	}
	return max.Int64, nil
}

// attemptsAfter lists attempts across all sessions with id above the
// watermark, oldest first.
func attemptsAfter(ctx context.Context, dbc *sql.DB, afterID int64) ([]session.ProblemAttempt, error) {
	rows, err := dbc.QueryContext(ctx,
		`SELECT pa.id, pa.stream_event_id, pa.slug, pa.title, COALESCE(pa.url,''), COALESCE(pa.difficulty,''), COALESCE(pa.rating,0), COALESCE(pa.vod_timestamp,''), se.timestamp
		 FROM problem_attempts pa JOIN stream_events se ON se.id = pa.stream_event_id
		 WHERE pa.id > $1 ORDER BY pa.id ASC`, afterID)
	if err != nil {
		return nil, fmt.Errorf("attempts after %d: %w", afterID, err)
	}
	defer rows.Close()
	var out []session.ProblemAttempt
	for rows.Next() {
		var a session.ProblemAttempt
		if err := rows.Scan(&a.ID, &a.EventID, &a.Slug, &a.Title, &a.URL, &a.Difficulty, &a.Rating, &a.VODTimestamp, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// attemptsBySlug lists every attempt at one problem across all sessions,
// oldest first. The forum post shows each appearance.
func attemptsBySlug(ctx context.Context, dbc *sql.DB, slug string) ([]session.ProblemAttempt, error) {
	rows, err := dbc.QueryContext(ctx,
		`SELECT pa.id, pa.stream_event_id, pa.slug, pa.title, COALESCE(pa.url,''), COALESCE(pa.difficulty,''), COALESCE(pa.rating,0), COALESCE(pa.vod_timestamp,''), se.timestamp
		 FROM problem_attempts pa JOIN stream_events se ON se.id = pa.stream_event_id
		 WHERE pa.slug=$1 ORDER BY se.timestamp ASC`, slug)
	if err != nil {
		return nil, fmt.Errorf("attempts for %s: %w", slug, err)
	}
	defer rows.Close()
	var out []session.ProblemAttempt
	for rows.Next() {
		var a session.ProblemAttempt
		if err := rows.Scan(&a.ID, &a.EventID, &a.Slug, &a.Title, &a.URL, &a.Difficulty, &a.Rating, &a.VODTimestamp, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// forumThreadID resolves the existing forum thread for a problem, or "".
func forumThreadID(ctx context.Context, dbc *sql.DB, slug string) (string, error) {
	var id string
	row := dbc.QueryRowContext(ctx, `SELECT forum_thread_id FROM problem_posts WHERE platform_id=$1`, slug)
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("forum thread for %s: %w", slug, err)
	}
	return id, nil
}

func insertForumThread(ctx context.Context, dbc *sql.DB, slug, threadID string) error {
	_, err := dbc.ExecContext(ctx,
		`INSERT INTO problem_posts (platform_id, forum_thread_id) VALUES ($1,$2)
		 ON CONFLICT (platform_id) DO UPDATE SET forum_thread_id=EXCLUDED.forum_thread_id`, slug, threadID)
	if err != nil {
		return fmt.Errorf("insert forum thread: %w", err)
	}
	return nil
}

// unpostedSolutions lists solutions not yet announced in a forum thread.
func unpostedSolutions(ctx context.Context, dbc *sql.DB) ([]session.SolutionPost, error) {
	rows, err := dbc.QueryContext(ctx,
		`SELECT id, problem_slug, platform, username, url, COALESCE(vod_timestamp,'')
		 FROM solution_posts WHERE discord_message_id IS NULL ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("unposted solutions: %w", err)
	}
	defer rows.Close()
	var out []session.SolutionPost
	for rows.Next() {
		var sp session.SolutionPost
		if err := rows.Scan(&sp.ID, &sp.ProblemSlug, &sp.Platform, &sp.Username, &sp.URL, &sp.VODTimestamp); err != nil {
			return nil, fmt.Errorf("scan solution: %w", err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func solutionCount(ctx context.Context, dbc *sql.DB, slug string) (int, error) {
	var n int
	row := dbc.QueryRowContext(ctx, `SELECT COUNT(*) FROM solution_posts WHERE problem_slug=$1`, slug)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("solution count for %s: %w", slug, err)
	}
	return n, nil
}
