package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shassen14/boneless-couch/db"
)

// errDuplicate aborts a transaction whose insert hit a dedup constraint.
var errDuplicate = errors.New("duplicate row")

// Create inserts a new active session and returns it with its assigned id
// and server-side start time.
func Create(ctx context.Context, dbc *sql.DB, platform, title, category string) (*Session, error) {
	s := &Session{Platform: platform, Title: title, Category: category, IsActive: true}
	row := dbc.QueryRowContext(ctx,
		`INSERT INTO stream_sessions (platform, title, category, is_active) VALUES ($1,$2,$3,TRUE)
		 RETURNING id, start_time`, platform, title, category)
	if err := row.Scan(&s.ID, &s.StartTime); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.StartTime = s.StartTime.UTC()
	return s, nil
}

// Active returns the currently active session for a platform, or nil when
// offline. If the one-active invariant is ever violated, the most recently
// started session wins.
func Active(ctx context.Context, dbc *sql.DB, platform string) (*Session, error) {
	row := dbc.QueryRowContext(ctx,
		`SELECT id, platform, COALESCE(title,''), COALESCE(category,''), start_time, end_time, is_active, peak_viewers, COALESCE(notify_message_id,'')
		 FROM stream_sessions WHERE platform=$1 AND is_active ORDER BY start_time DESC LIMIT 1`, platform)
	return scanSession(row)
}

// ByID returns a session by id, or nil when absent.
func ByID(ctx context.Context, dbc *sql.DB, id int64) (*Session, error) {
	row := dbc.QueryRowContext(ctx,
		`SELECT id, platform, COALESCE(title,''), COALESCE(category,''), start_time, end_time, is_active, peak_viewers, COALESCE(notify_message_id,'')
		 FROM stream_sessions WHERE id=$1`, id)
	return scanSession(row)
}

func scanSession(row *sql.Row) (*Session, error) {
	s := &Session{}
	var end sql.NullTime
	err := row.Scan(&s.ID, &s.Platform, &s.Title, &s.Category, &s.StartTime, &end, &s.IsActive, &s.PeakViewers, &s.NotifyMessageID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	s.StartTime = s.StartTime.UTC()
	if end.Valid {
		t := end.Time.UTC()
		s.EndTime = &t
	}
	return s, nil
}

// Close marks a session inactive and stamps its end time.
func Close(ctx context.Context, dbc *sql.DB, id int64, end time.Time) error {
	_, err := dbc.ExecContext(ctx,
		`UPDATE stream_sessions SET is_active=FALSE, end_time=$1 WHERE id=$2`, end.UTC(), id)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// UpdatePeakViewers raises the session's peak viewer count; it never lowers it.
func UpdatePeakViewers(ctx context.Context, dbc *sql.DB, id int64, viewers int) error {
	_, err := dbc.ExecContext(ctx,
		`UPDATE stream_sessions SET peak_viewers=$1 WHERE id=$2 AND peak_viewers < $1`, viewers, id)
	if err != nil {
		return fmt.Errorf("update peak viewers: %w", err)
	}
	return nil
}

// SetNotifyMessageID attaches the go-live announcement message id to the
// session so the recap can be threaded onto it. Late-arriving by design.
func SetNotifyMessageID(ctx context.Context, dbc *sql.DB, id int64, messageID string) error {
	_, err := dbc.ExecContext(ctx,
		`UPDATE stream_sessions SET notify_message_id=$1 WHERE id=$2`, messageID, id)
	if err != nil {
		return fmt.Errorf("set notify message id: %w", err)
	}
	return nil
}

// InsertEvent appends a typed event to the session ledger and returns its id.
func InsertEvent(ctx context.Context, dbc *sql.DB, sessionID int64, eventType, notes string) (int64, error) {
	var id int64
	row := dbc.QueryRowContext(ctx,
		`INSERT INTO stream_events (session_id, event_type, notes) VALUES ($1,$2,NULLIF($3,'')) RETURNING id`,
		sessionID, eventType, notes)
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

// InsertProblemAttempt records a problem_attempt event plus its structured
// detail row in one transaction.
func InsertProblemAttempt(ctx context.Context, dbc *sql.DB, sessionID int64, a *ProblemAttempt) error {
	return db.WithTx(ctx, dbc, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`INSERT INTO stream_events (session_id, event_type) VALUES ($1,$2) RETURNING id`,
			sessionID, EventProblemAttempt)
		if err := row.Scan(&a.EventID); err != nil {
			return fmt.Errorf("insert attempt event: %w", err)
		}
		var rating sql.NullInt32
		if a.Rating > 0 {
			rating = sql.NullInt32{Int32: int32(a.Rating), Valid: true}
		}
		row = tx.QueryRowContext(ctx,
			`INSERT INTO problem_attempts (stream_event_id, slug, title, url, difficulty, rating, vod_timestamp)
			 VALUES ($1,$2,$3,NULLIF($4,''),NULLIF($5,''),$6,NULLIF($7,'')) RETURNING id`,
			a.EventID, a.Slug, a.Title, a.URL, a.Difficulty, rating, a.VODTimestamp)
		if err := row.Scan(&a.ID); err != nil {
			return fmt.Errorf("insert problem attempt: %w", err)
		}
		return nil
	})
}

// InsertProjectLog records a project event plus its structured detail row in
// one transaction.
func InsertProjectLog(ctx context.Context, dbc *sql.DB, sessionID int64, p *ProjectLog) error {
	return db.WithTx(ctx, dbc, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`INSERT INTO stream_events (session_id, event_type) VALUES ($1,$2) RETURNING id`,
			sessionID, EventProject)
		if err := row.Scan(&p.EventID); err != nil {
			return fmt.Errorf("insert project event: %w", err)
		}
		row = tx.QueryRowContext(ctx,
			`INSERT INTO project_logs (stream_event_id, url, title, description, vod_timestamp)
			 VALUES ($1,NULLIF($2,''),$3,NULLIF($4,''),NULLIF($5,'')) RETURNING id`,
			p.EventID, p.URL, p.Title, p.Description, p.VODTimestamp)
		if err := row.Scan(&p.ID); err != nil {
			return fmt.Errorf("insert project log: %w", err)
		}
		return nil
	})
}

const attemptCols = `pa.id, pa.stream_event_id, pa.slug, pa.title, COALESCE(pa.url,''), COALESCE(pa.difficulty,''), COALESCE(pa.rating,0), COALESCE(pa.vod_timestamp,''), se.timestamp`

// LatestProblemAttempt returns the most recent problem attempt in a session,
// or nil when none has been logged.
func LatestProblemAttempt(ctx context.Context, dbc *sql.DB, sessionID int64) (*ProblemAttempt, error) {
	row := dbc.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM problem_attempts pa
		 JOIN stream_events se ON se.id = pa.stream_event_id
		 WHERE se.session_id=$1 ORDER BY se.timestamp DESC LIMIT 1`, sessionID)
	a := &ProblemAttempt{}
	err := row.Scan(&a.ID, &a.EventID, &a.Slug, &a.Title, &a.URL, &a.Difficulty, &a.Rating, &a.VODTimestamp, &a.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest problem attempt: %w", err)
	}
	return a, nil
}

// ProblemAttempts lists a session's problem attempts in timestamp order.
func ProblemAttempts(ctx context.Context, dbc *sql.DB, sessionID int64) ([]ProblemAttempt, error) {
	rows, err := dbc.QueryContext(ctx,
		`SELECT `+attemptCols+` FROM problem_attempts pa
		 JOIN stream_events se ON se.id = pa.stream_event_id
		 WHERE se.session_id=$1 ORDER BY se.timestamp ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list problem attempts: %w", err)
	}
	defer rows.Close()
	var out []ProblemAttempt
	for rows.Next() {
		var a ProblemAttempt
		if err := rows.Scan(&a.ID, &a.EventID, &a.Slug, &a.Title, &a.URL, &a.Difficulty, &a.Rating, &a.VODTimestamp, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan problem attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LatestProjectLog returns the most recent project in a session, or nil.
func LatestProjectLog(ctx context.Context, dbc *sql.DB, sessionID int64) (*ProjectLog, error) {
	row := dbc.QueryRowContext(ctx,
		`SELECT pl.id, pl.stream_event_id, COALESCE(pl.url,''), pl.title, COALESCE(pl.description,''), COALESCE(pl.vod_timestamp,''), se.timestamp
		 FROM project_logs pl JOIN stream_events se ON se.id = pl.stream_event_id
		 WHERE se.session_id=$1 ORDER BY se.timestamp DESC LIMIT 1`, sessionID)
	p := &ProjectLog{}
	err := row.Scan(&p.ID, &p.EventID, &p.URL, &p.Title, &p.Description, &p.VODTimestamp, &p.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest project log: %w", err)
	}
	return p, nil
}

// ProjectLogs lists a session's projects in timestamp order.
func ProjectLogs(ctx context.Context, dbc *sql.DB, sessionID int64) ([]ProjectLog, error) {
	rows, err := dbc.QueryContext(ctx,
		`SELECT pl.id, pl.stream_event_id, COALESCE(pl.url,''), pl.title, COALESCE(pl.description,''), COALESCE(pl.vod_timestamp,''), se.timestamp
		 FROM project_logs pl JOIN stream_events se ON se.id = pl.stream_event_id
		 WHERE se.session_id=$1 ORDER BY se.timestamp ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list project logs: %w", err)
	}
	defer rows.Close()
	var out []ProjectLog
	for rows.Next() {
		var p ProjectLog
		if err := rows.Scan(&p.ID, &p.EventID, &p.URL, &p.Title, &p.Description, &p.VODTimestamp, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("scan project log: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// InsertSolutionPost records a solution alongside its ledger event. One
// solution per (problem, platform, user): a repost leaves the database
// untouched and returns false.
func InsertSolutionPost(ctx context.Context, dbc *sql.DB, sessionID int64, sp *SolutionPost) (bool, error) {
	err := db.WithTx(ctx, dbc, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`INSERT INTO solution_posts (problem_slug, platform, username, url, vod_timestamp)
			 VALUES ($1,$2,$3,$4,NULLIF($5,''))
			 ON CONFLICT (problem_slug, platform, username) DO NOTHING RETURNING id`,
			sp.ProblemSlug, sp.Platform, sp.Username, sp.URL, sp.VODTimestamp)
		if err := row.Scan(&sp.ID); err != nil {
			if err == sql.ErrNoRows {
				return errDuplicate
			}
			return fmt.Errorf("insert solution post: %w", err)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO stream_events (session_id, event_type, notes) VALUES ($1,$2,$3)`,
			sessionID, EventSolution, sp.Username+" solved "+sp.ProblemSlug)
		if err != nil {
			return fmt.Errorf("insert solution event: %w", err)
		}
		return nil
	})
	if errors.Is(err, errDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetSolutionMessageID attaches the Discord message id once the solution has
// been posted to the problem thread.
func SetSolutionMessageID(ctx context.Context, dbc *sql.DB, id int64, messageID string) error {
	_, err := dbc.ExecContext(ctx,
		`UPDATE solution_posts SET discord_message_id=$1 WHERE id=$2`, messageID, id)
	if err != nil {
		return fmt.Errorf("set solution message id: %w", err)
	}
	return nil
}

// InsertClip records a clip event plus its detail row. A clip id already in
// the log rolls the whole write back and returns false.
func InsertClip(ctx context.Context, dbc *sql.DB, sessionID int64, c *ClipLog) (bool, error) {
	err := db.WithTx(ctx, dbc, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`INSERT INTO stream_events (session_id, event_type, notes) VALUES ($1,$2,$3) RETURNING id`,
			sessionID, EventClip, c.Title)
		if err := row.Scan(&c.EventID); err != nil {
			return fmt.Errorf("insert clip event: %w", err)
		}
		row = tx.QueryRowContext(ctx,
			`INSERT INTO clip_logs (stream_event_id, clip_id, title, url, vod_timestamp)
			 VALUES ($1,$2,$3,$4,NULLIF($5,''))
			 ON CONFLICT (clip_id) DO NOTHING RETURNING id`,
			c.EventID, c.ClipID, c.Title, c.URL, c.VODTimestamp)
		if err := row.Scan(&c.ID); err != nil {
			if err == sql.ErrNoRows {
				return errDuplicate
			}
			return fmt.Errorf("insert clip log: %w", err)
		}
		return nil
	})
	if errors.Is(err, errDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UnpostedClips lists the session's clips that have not been announced yet.
func UnpostedClips(ctx context.Context, dbc *sql.DB, sessionID int64) ([]ClipLog, error) {
	rows, err := dbc.QueryContext(ctx,
		`SELECT cl.id, cl.stream_event_id, cl.clip_id, cl.title, cl.url, COALESCE(cl.vod_timestamp,'')
		 FROM clip_logs cl JOIN stream_events se ON se.id = cl.stream_event_id
		 WHERE se.session_id=$1 AND cl.discord_message_id IS NULL ORDER BY se.timestamp ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list unposted clips: %w", err)
	}
	defer rows.Close()
	var out []ClipLog
	for rows.Next() {
		var c ClipLog
		if err := rows.Scan(&c.ID, &c.EventID, &c.ClipID, &c.Title, &c.URL, &c.VODTimestamp); err != nil {
			return nil, fmt.Errorf("scan clip log: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetClipMessageID marks a clip as announced.
func SetClipMessageID(ctx context.Context, dbc *sql.DB, id int64, messageID string) error {
	_, err := dbc.ExecContext(ctx,
		`UPDATE clip_logs SET discord_message_id=$1 WHERE id=$2`, messageID, id)
	if err != nil {
		return fmt.Errorf("set clip message id: %w", err)
	}
	return nil
}
