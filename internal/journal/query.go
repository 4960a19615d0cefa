package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mohitagr18/game-sound-generator/internal/intent"
	"github.com/mohitagr18/game-sound-generator/internal/session"
)

// #region types
// SessionSummary is one row of the session listing.
type SessionSummary struct {
	ID        string
	CreatedAt time.Time
	Entries   int
	Attempts  int
}

// AttemptRecord is one stored advisor attempt.
type AttemptRecord struct {
	AdviceID   string
	NextTheme  string
	AttemptNum int
	Status     string
	Raw        string
	Error      string
	DurationMS int64
	Outcome    string
	Accepted   bool
	CreatedAt  time.Time
}

// Stats aggregates advisor activity across all sessions.
type Stats struct {
	Recommendations  int
	Retried          int
	Exhausted        int
	AttemptsByStatus map[string]int
}

// #endregion types

// #region sessions
// Sessions lists journaled sessions, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.session_id, s.created_at,
		       (SELECT COUNT(*) FROM session_entries e WHERE e.session_id = s.session_id),
		       (SELECT COUNT(*) FROM advisor_attempts a WHERE a.session_id = s.session_id)
		FROM sessions s
		ORDER BY s.created_at, s.session_id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var created string
		if err := rows.Scan(&sum.ID, &created, &sum.Entries, &sum.Attempts); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sum.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// #endregion sessions

// #region entries
// Entries loads a session's log in sequence order.
func (s *Store) Entries(ctx context.Context, sessionID string) ([]session.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, state, intensity, flags_json, intent_json, source, new_selection, reason
		FROM session_entries
		WHERE session_id = ?
		ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []session.Entry
	for rows.Next() {
		var (
			e                session.Entry
			state, flagsJSON string
			intentJSON, src  string
			newSel           int
			reason           sql.NullString
		)
		if err := rows.Scan(&e.Seq, &state, &e.Event.Intensity, &flagsJSON, &intentJSON, &src, &newSel, &reason); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Event.State = intent.State(state)
		if err := json.Unmarshal([]byte(flagsJSON), &e.Event.Flags); err != nil {
			return nil, fmt.Errorf("entry %d flags: %w", e.Seq, err)
		}
		if err := json.Unmarshal([]byte(intentJSON), &e.Intent); err != nil {
			return nil, fmt.Errorf("entry %d intent: %w", e.Seq, err)
		}
		e.Source = session.Source(src)
		e.NewSelection = newSel == 1
		e.Reasoning = reason.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion entries

// #region attempts
// Attempts loads a session's advisor attempts in insertion order.
func (s *Store) Attempts(ctx context.Context, sessionID string) ([]AttemptRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT advice_id, next_theme, attempt_num, status, raw, error, duration_ms, outcome, accepted, created_at
		FROM advisor_attempts
		WHERE session_id = ?
		ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		var (
			r         AttemptRecord
			raw, errS sql.NullString
			accepted  int
			created   string
		)
		if err := rows.Scan(&r.AdviceID, &r.NextTheme, &r.AttemptNum, &r.Status, &raw, &errS,
			&r.DurationMS, &r.Outcome, &accepted, &created); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		r.Raw = raw.String
		r.Error = errS.String
		r.Accepted = accepted == 1
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats counts recommendations by outcome and attempts by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{AttemptsByStatus: map[string]int{}}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM advisor_attempts GROUP BY status`)
	if err != nil {
		return st, fmt.Errorf("query attempt stats: %w", err)
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return st, fmt.Errorf("scan attempt stats: %w", err)
		}
		st.AttemptsByStatus[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN outcome = 'retried' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN outcome = 'exhausted' THEN 1 ELSE 0 END), 0)
		FROM (SELECT DISTINCT advice_id, outcome FROM advisor_attempts)`).
		Scan(&st.Recommendations, &st.Retried, &st.Exhausted)
	if err != nil {
		return st, fmt.Errorf("query outcome stats: %w", err)
	}
	return st, nil
}

// #endregion attempts
