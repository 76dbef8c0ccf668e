package ports

import (
	"context"

	"github.com/caseflow/playbook/pkg/domain"
)

// SessionStore defines the interface for persisting decision sessions.
// Writes are versioned: Put is a compare-and-swap on the stored version so
// concurrent submissions against the same session cannot interleave.
//
// Implementations must deep-copy on both read and write; callers never
// observe aliased store memory.
type SessionStore interface {
	// Create persists a brand-new session.
	// Returns domain.ErrSessionExists if the id is already taken and
	// domain.ErrDuplicateActiveSession if an Active session already exists
	// for the same (case, playbook) pair.
	Create(ctx context.Context, session *domain.DecisionSession) error

	// Get retrieves a session by id.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Get(ctx context.Context, sessionID string) (*domain.DecisionSession, error)

	// Put replaces the stored session if and only if the stored version
	// equals expectedVersion, then advances the version by one. The new
	// version is returned; the caller's session is not mutated.
	// Returns domain.ErrVersionMismatch when the swap loses the race and
	// domain.ErrSessionNotFound for unknown ids.
	Put(ctx context.Context, session *domain.DecisionSession, expectedVersion int64) (int64, error)

	// FindActive returns the Active session for a (case, playbook) pair.
	// Returns domain.ErrSessionNotFound when there is none.
	FindActive(ctx context.Context, caseID, playbookID string) (*domain.DecisionSession, error)

	// Delete removes a session. A storage-policy surface for retention
	// tooling; the engine itself never deletes.
	Delete(ctx context.Context, sessionID string) error

	// List returns all stored session ids, for ops tooling.
	List(ctx context.Context) ([]string, error)
}
