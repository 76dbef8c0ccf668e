package ports

import (
	"context"

	"github.com/caseflow/playbook/pkg/domain"
)

// SubmitDecisionCommand carries one decision against an active session.
type SubmitDecisionCommand struct {
	// SelectedOption must be a label on the session's current node.
	SelectedOption string
	// Rationale is the decision-maker's free-text justification. Required.
	Rationale string
	// Confidence expresses certainty in this decision, in [0, 1].
	Confidence float64
	// ExpectedVersion is the optimistic-concurrency token. Zero means
	// "whatever is current"; transports that expose concurrent writers
	// should always pass the version they last observed.
	ExpectedVersion int64
}

// DecisionEngine is the driving port consumed by transport adapters
// (HTTP, MCP, CLI). All operations return the full updated session so the
// caller can re-render from the returned value alone.
type DecisionEngine interface {
	// StartSession creates and persists a new Active session at the root
	// of the playbook's graph.
	StartSession(ctx context.Context, caseID, playbookID string) (*domain.DecisionSession, error)

	// SubmitDecision records one decision, advances the traversal, and on
	// reaching a terminal point synthesizes the final recommendations.
	SubmitDecision(ctx context.Context, sessionID string, cmd SubmitDecisionCommand) (*domain.DecisionSession, error)

	// GetSession is a read-only fetch.
	GetSession(ctx context.Context, sessionID string) (*domain.DecisionSession, error)

	// ResetSession discards history and recommendations and returns the
	// session to Active at the graph root, keeping its id.
	ResetSession(ctx context.Context, sessionID string) (*domain.DecisionSession, error)
}
