// Package journal records session entries and advisor attempts in SQLite so
// a session can be inspected or exported after the fact.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mohitagr18/game-sound-generator/internal/session"
)

// MemoryDSN keeps the journal in process memory.
const MemoryDSN = ":memory:"

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id    TEXT PRIMARY KEY,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS session_entries (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL,
	seq           INTEGER NOT NULL,
	state         TEXT NOT NULL,
	intensity     INTEGER NOT NULL,
	flags_json    TEXT NOT NULL,
	intent_json   TEXT NOT NULL,
	source        TEXT NOT NULL,
	new_selection INTEGER NOT NULL DEFAULT 0,
	reason        TEXT,
	created_at    TEXT NOT NULL,
	UNIQUE (session_id, seq),
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE TABLE IF NOT EXISTS advisor_attempts (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	advice_id     TEXT NOT NULL,
	session_id    TEXT NOT NULL,
	next_theme    TEXT NOT NULL,
	attempt_num   INTEGER NOT NULL,
	status        TEXT NOT NULL,
	raw           TEXT,
	error         TEXT,
	duration_ms   INTEGER NOT NULL DEFAULT 0,
	outcome       TEXT NOT NULL,
	accepted      INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE INDEX IF NOT EXISTS idx_advisor_attempts_session
ON advisor_attempts(session_id, advice_id);
`

// #endregion schema

// #region store-struct
// Store is the SQLite journal. It implements session.Recorder.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// Open opens (or creates) the journal at dsn and runs migrations.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dsn == MemoryDSN || strings.Contains(dsn, "mode=memory") {
		// each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", stmt, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion constructor

// #region record-entry
// RecordEntry writes one session log entry, registering the session on first use.
func (s *Store) RecordEntry(ctx context.Context, sessionID string, e session.Entry) error {
	flags, err := json.Marshal(e.Event.Flags)
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}
	mi, err := json.Marshal(e.Intent)
	if err != nil {
		return fmt.Errorf("marshal intent: %w", err)
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := ensureSession(ctx, tx, sessionID, now); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO session_entries
		 (session_id, seq, state, intensity, flags_json, intent_json, source, new_selection, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, e.Seq, string(e.Event.State), e.Event.Intensity, string(flags), string(mi),
		string(e.Source), boolInt(e.NewSelection), nullIfEmpty(e.Reasoning), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// #endregion record-entry

// #region record-advice
// RecordAdvice writes one row per advisor attempt. The last attempt of a
// non-exhausted recommendation is marked accepted.
func (s *Store) RecordAdvice(ctx context.Context, sessionID string, a session.Advice) error {
	rec := a.Recommendation
	adviceID := uuid.NewString()
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := ensureSession(ctx, tx, sessionID, now); err != nil {
		return err
	}
	for i, att := range rec.Attempts {
		accepted := i == len(rec.Attempts)-1 && !rec.Empty()
		_, err := tx.ExecContext(ctx,
			`INSERT INTO advisor_attempts
			 (advice_id, session_id, next_theme, attempt_num, status, raw, error, duration_ms, outcome, accepted, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			adviceID, sessionID, string(a.NextTheme), att.Number, string(att.Status),
			nullIfEmpty(att.Raw), nullIfEmpty(att.Error), att.Duration.Milliseconds(),
			string(rec.Outcome), boolInt(accepted), now.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert attempt %d: %w", att.Number, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// #endregion record-advice

// #region helpers
func ensureSession(ctx context.Context, tx *sql.Tx, sessionID string, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (session_id, created_at) VALUES (?, ?)`,
		sessionID, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("register session: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
