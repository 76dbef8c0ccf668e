package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/caseflow/playbook/pkg/domain"
)

// Store implements ports.SessionStore on the local filesystem, one JSON
// document per session. Compare-and-swap is a read-modify-write guarded by
// an in-process mutex, which is enough for the single-process deployments
// this store targets; multi-replica setups use redis or sqlite instead.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a file store rooted at dir. An empty dir defaults to
// ".playbook/sessions". The directory is created on first use.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = filepath.Join(".playbook", "sessions")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure session directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

// write serializes the session and swaps it into place atomically so a crash
// mid-write never leaves a truncated document behind.
func (s *Store) write(sess *domain.DecisionSession) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, sess.SessionID+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(sess.SessionID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit session file: %w", err)
	}
	return nil
}

func (s *Store) read(sessionID string) (*domain.DecisionSession, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var sess domain.DecisionSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

// Create persists a brand-new session file.
func (s *Store) Create(ctx context.Context, sess *domain.DecisionSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(sess.SessionID)); err == nil {
		return domain.ErrSessionExists
	}
	if sess.Active() {
		if _, err := s.findActiveLocked(sess.CaseID, sess.PlaybookID); err == nil {
			return domain.ErrDuplicateActiveSession
		}
	}
	return s.write(sess)
}

// Get retrieves a session by id. Deserialization produces a fresh value, so
// no further copying is needed.
func (s *Store) Get(ctx context.Context, sessionID string) (*domain.DecisionSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(sessionID)
}

// Put performs the versioned swap.
func (s *Store) Put(ctx context.Context, sess *domain.DecisionSession, expectedVersion int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(sess.SessionID)
	if err != nil {
		return 0, err
	}
	if current.Version != expectedVersion {
		return 0, domain.ErrVersionMismatch
	}

	updated := sess.Clone()
	updated.Version = expectedVersion + 1
	if err := s.write(updated); err != nil {
		return 0, err
	}
	return updated.Version, nil
}

// FindActive scans the directory for the Active session of the pair.
func (s *Store) FindActive(ctx context.Context, caseID, playbookID string) (*domain.DecisionSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findActiveLocked(caseID, playbookID)
}

func (s *Store) findActiveLocked(caseID, playbookID string) (*domain.DecisionSession, error) {
	ids, err := s.listLocked()
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		sess, err := s.read(id)
		if err != nil {
			continue
		}
		if sess.Active() && sess.CaseID == caseID && sess.PlaybookID == playbookID {
			return sess, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

// Delete removes the session file.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// List returns all stored session ids in deterministic order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

func (s *Store) listLocked() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
