// Package tests holds the acceptance suite every GraphProvider adapter runs.
// The session-store counterpart lives in ports.RunSessionStoreContract.
package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/ports"
)

// GraphProviderContractTest verifies that a pre-seeded provider complies with
// ports.GraphProvider. wantRoots maps each expected playbook id to its root
// node id.
func GraphProviderContractTest(t *testing.T, provider ports.GraphProvider, wantRoots map[string]string) {
	t.Helper()
	ctx := context.Background()

	// 1. Test Graph (Success)
	t.Run("Graph_Success", func(t *testing.T) {
		for id, root := range wantRoots {
			graph, err := provider.Graph(ctx, id)
			if err != nil {
				t.Fatalf("unexpected error getting graph %s: %v", id, err)
			}
			if graph.PlaybookID != id {
				t.Errorf("graph id mismatch. got %q, want %q", graph.PlaybookID, id)
			}
			if graph.RootNodeID != root {
				t.Errorf("root mismatch for %s. got %q, want %q", id, graph.RootNodeID, root)
			}
			if _, ok := graph.Node(graph.RootNodeID); !ok {
				t.Errorf("graph %s is missing its root node %q", id, root)
			}
			if err := graph.Validate(); err != nil {
				t.Errorf("graph %s failed validation: %v", id, err)
			}
		}
	})

	// 2. Test Graph (NotFound)
	t.Run("Graph_NotFound", func(t *testing.T) {
		_, err := provider.Graph(ctx, "non-existent-playbook")
		if err == nil {
			t.Fatal("expected error for non-existent playbook, got nil")
		}
		if !errors.Is(err, domain.ErrPlaybookNotFound) {
			t.Errorf("expected ErrPlaybookNotFound, got %v", err)
		}
	})

	// 3. Test Playbooks
	t.Run("Playbooks", func(t *testing.T) {
		ids, err := provider.Playbooks(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing playbooks: %v", err)
		}

		if len(ids) != len(wantRoots) {
			t.Errorf("expected %d playbooks, got %d", len(wantRoots), len(ids))
		}

		// Verify all expected ids are present
		lookup := make(map[string]bool)
		for _, id := range ids {
			lookup[id] = true
		}

		for id := range wantRoots {
			if !lookup[id] {
				t.Errorf("playbook %s missing from list", id)
			}
		}
	})
}
