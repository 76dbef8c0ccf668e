package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/caseflow/playbook/pkg/domain"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.DecisionSession
	mu   sync.RWMutex
}

// NewStore creates a new in-memory session store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.DecisionSession),
	}
}

// Create inserts a new session. It enforces both uniqueness invariants:
// one record per session id and one Active session per (case, playbook).
func (s *Store) Create(ctx context.Context, sess *domain.DecisionSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sess.SessionID]; exists {
		return domain.ErrSessionExists
	}
	if sess.Active() {
		for _, other := range s.data {
			if other.Active() && other.CaseID == sess.CaseID && other.PlaybookID == sess.PlaybookID {
				return domain.ErrDuplicateActiveSession
			}
		}
	}
	s.data[sess.SessionID] = sess.Clone()
	return nil
}

// Get retrieves a session by id. The result is a copy so callers can't
// mutate stored state through the pointer.
func (s *Store) Get(ctx context.Context, sessionID string) (*domain.DecisionSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Put replaces the stored session when expectedVersion matches the stored
// version, and returns the new version.
func (s *Store) Put(ctx context.Context, sess *domain.DecisionSession, expectedVersion int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[sess.SessionID]
	if !ok {
		return 0, domain.ErrSessionNotFound
	}
	if current.Version != expectedVersion {
		return 0, domain.ErrVersionMismatch
	}

	updated := sess.Clone()
	updated.Version = expectedVersion + 1
	s.data[sess.SessionID] = updated
	return updated.Version, nil
}

// FindActive returns the Active session for the (case, playbook) pair.
func (s *Store) FindActive(ctx context.Context, caseID, playbookID string) (*domain.DecisionSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.data {
		if sess.Active() && sess.CaseID == caseID && sess.PlaybookID == playbookID {
			return sess.Clone(), nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[sessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.data, sessionID)
	return nil
}

// List returns all known session ids in deterministic order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
