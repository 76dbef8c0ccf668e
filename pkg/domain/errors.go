package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Store-level sentinels. Adapters translate backend errors into these at the
// boundary so the engine and typed errors below can wrap them uniformly.
var (
	// ErrSessionNotFound is returned when a session id cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")
	// ErrVersionMismatch is returned when a compare-and-swap write loses the race.
	ErrVersionMismatch = errors.New("session version mismatch")
	// ErrDuplicateActiveSession is returned when an Active session already
	// exists for the same (case, playbook) pair.
	ErrDuplicateActiveSession = errors.New("active session already exists")
	// ErrSessionExists is returned on a session id collision at create time.
	ErrSessionExists = errors.New("session already exists")
	// ErrPlaybookNotFound is returned when a provider has no graph for the id.
	ErrPlaybookNotFound = errors.New("playbook not found")
)

// GraphIntegrityError reports a structural defect in a decision graph: a
// missing root, a dangling option target, or a traversal cycle. Fatal to the
// call; the session is left unmutated.
type GraphIntegrityError struct {
	PlaybookID string
	NodeID     string
	Reason     string
}

func (e *GraphIntegrityError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("graph integrity: playbook %q: %s", e.PlaybookID, e.Reason)
	}
	return fmt.Sprintf("graph integrity: playbook %q node %q: %s", e.PlaybookID, e.NodeID, e.Reason)
}

// InvalidOptionError reports a submitted option label that is not present on
// the current node. Recoverable; the caller should re-prompt.
type InvalidOptionError struct {
	NodeID string
	Option string
	Valid  []string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("invalid option %q on node %q (valid: %s)",
		e.Option, e.NodeID, strings.Join(e.Valid, ", "))
}

// SessionNotActiveError reports a decision submitted against a session that
// can no longer accept one. The caller should fetch the final
// recommendations instead.
type SessionNotActiveError struct {
	SessionID string
	Status    Status
}

func (e *SessionNotActiveError) Error() string {
	return fmt.Sprintf("session %q is not active (status %s)", e.SessionID, e.Status)
}

// SessionNotFoundError reports an unknown session id.
type SessionNotFoundError struct {
	SessionID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %q not found", e.SessionID)
}

func (e *SessionNotFoundError) Unwrap() error { return ErrSessionNotFound }

// StaleSessionError reports a concurrent modification detected through the
// version token. The caller must refetch and retry.
type StaleSessionError struct {
	SessionID string
	Expected  int64
	Actual    int64
}

func (e *StaleSessionError) Error() string {
	return fmt.Sprintf("session %q is stale: expected version %d, stored version %d",
		e.SessionID, e.Expected, e.Actual)
}

func (e *StaleSessionError) Unwrap() error { return ErrVersionMismatch }

// DuplicateActiveSessionError reports a start attempt while an Active session
// already exists for the same (case, playbook) pair.
type DuplicateActiveSessionError struct {
	CaseID     string
	PlaybookID string
	SessionID  string
}

func (e *DuplicateActiveSessionError) Error() string {
	return fmt.Sprintf("active session %q already exists for case %q playbook %q",
		e.SessionID, e.CaseID, e.PlaybookID)
}

func (e *DuplicateActiveSessionError) Unwrap() error { return ErrDuplicateActiveSession }

// ValidationError reports rejected caller input: confidence out of range,
// empty rationale, oversized or malformed values.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
