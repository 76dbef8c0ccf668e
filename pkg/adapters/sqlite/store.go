package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caseflow/playbook/pkg/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id   TEXT PRIMARY KEY,
	case_id      TEXT NOT NULL,
	playbook_id  TEXT NOT NULL,
	status       TEXT NOT NULL,
	version      INTEGER NOT NULL,
	body         TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_active_pair
	ON sessions(case_id, playbook_id) WHERE status = 'Active';

CREATE INDEX IF NOT EXISTS idx_sessions_pair ON sessions(case_id, playbook_id);
`

// Store implements ports.SessionStore on SQLite via the pure-Go driver.
// The full session lives as a JSON body column; case, playbook, status and
// version are extracted for indexing. The partial unique index enforces the
// one-Active-per-pair invariant even across racing writers.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for an ephemeral store.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite permits one writer; a single pooled connection sidesteps
	// SQLITE_BUSY and keeps ":memory:" from silently becoming several
	// independent databases.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
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

// Create inserts a new session row.
func (s *Store) Create(ctx context.Context, sess *domain.DecisionSession) error {
	body, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, case_id, playbook_id, status, version, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.SessionID, sess.CaseID, sess.PlaybookID, string(sess.Status),
		sess.Version, string(body), sess.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err, "sessions.session_id"):
			return domain.ErrSessionExists
		case isUniqueViolation(err, "sessions.case_id"):
			return domain.ErrDuplicateActiveSession
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Get retrieves a session by id.
func (s *Store) Get(ctx context.Context, sessionID string) (*domain.DecisionSession, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("query session: %w", err)
	}
	return unmarshalSession(body)
}

// Put swaps the stored row iff the stored version matches expectedVersion.
// The version predicate on the UPDATE is the compare-and-swap; RowsAffected
// tells the winner from the loser.
func (s *Store) Put(ctx context.Context, sess *domain.DecisionSession, expectedVersion int64) (int64, error) {
	updated := sess.Clone()
	updated.Version = expectedVersion + 1

	body, err := json.Marshal(updated)
	if err != nil {
		return 0, fmt.Errorf("marshal session: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET case_id = ?, playbook_id = ?, status = ?, version = ?, body = ?, updated_at = ?
		WHERE session_id = ? AND version = ?`,
		updated.CaseID, updated.PlaybookID, string(updated.Status), updated.Version,
		string(body), updated.UpdatedAt.UTC().Format(time.RFC3339Nano),
		updated.SessionID, expectedVersion,
	)
	if err != nil {
		// Flipping a session back to Active can collide with the partial
		// unique index when the pair already has a newer Active session.
		if isUniqueViolation(err, "sessions.case_id") {
			return 0, domain.ErrDuplicateActiveSession
		}
		return 0, fmt.Errorf("update session: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM sessions WHERE session_id = ?`, updated.SessionID,
		).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrSessionNotFound
		}
		return 0, domain.ErrVersionMismatch
	}
	return updated.Version, nil
}

// FindActive returns the Active session for the (case, playbook) pair.
func (s *Store) FindActive(ctx context.Context, caseID, playbookID string) (*domain.DecisionSession, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM sessions
		WHERE case_id = ? AND playbook_id = ? AND status = ?`,
		caseID, playbookID, string(domain.StatusActive),
	).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("query active session: %w", err)
	}
	return unmarshalSession(body)
}

// Delete removes a session row.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// List returns all session ids in deterministic order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id FROM sessions ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func unmarshalSession(body string) (*domain.DecisionSession, error) {
	var sess domain.DecisionSession
	if err := json.Unmarshal([]byte(body), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// isUniqueViolation matches the driver's constraint error text for a given
// indexed column. The driver exposes no structured error codes for this, so
// the match is textual, anchored on the column name.
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}
