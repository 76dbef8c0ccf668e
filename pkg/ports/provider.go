package ports

import (
	"context"

	"github.com/caseflow/playbook/pkg/domain"
)

// GraphProvider defines how the engine retrieves decision graphs.
// Graphs are authored externally and versioned by playbook id; providers
// return them read-only and safe for concurrent sharing.
type GraphProvider interface {
	// Graph retrieves the decision graph for a playbook id.
	// Returns domain.ErrPlaybookNotFound if the id is unknown.
	Graph(ctx context.Context, playbookID string) (*domain.DecisionGraph, error)

	// Playbooks returns the ids of all available playbooks.
	// Used for introspection and visualization tools (e.g. 'playbook graph').
	Playbooks(ctx context.Context) ([]string, error)
}
