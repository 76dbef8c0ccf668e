// Package tests runs the engine through its full stack: schema parsing,
// validation, traversal, persistence, and synthesis, the way a deployment
// would exercise it.
package tests

import (
	"context"
	"fmt"
	"testing"

	"github.com/caseflow/playbook"
	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/ports"
)

// walkFirstOption advances the session along the first option of every node
// until it completes. The step bound catches graphs that fail to terminate.
func walkFirstOption(t *testing.T, engine *playbook.Engine, sess *domain.DecisionSession) *domain.DecisionSession {
	t.Helper()
	ctx := context.Background()

	graph, err := engine.Provider().Graph(ctx, sess.PlaybookID)
	if err != nil {
		t.Fatalf("Failed to load graph %q: %v", sess.PlaybookID, err)
	}

	for steps := 0; !sess.Completed(); steps++ {
		if steps > len(graph.Nodes) {
			t.Fatalf("Session did not terminate after %d steps", steps)
		}
		node, ok := graph.Node(sess.CurrentNodeID)
		if !ok {
			t.Fatalf("Session stranded on unknown node %q", sess.CurrentNodeID)
		}
		if len(node.Options) == 0 {
			t.Fatalf("Active session parked on terminal node %q", node.ID)
		}

		sess, err = engine.SubmitDecision(ctx, sess.SessionID, ports.SubmitDecisionCommand{
			SelectedOption: node.Options[0].Label,
			Rationale:      fmt.Sprintf("Chose %q at node %s.", node.Options[0].Label, node.ID),
			Confidence:     0.9,
		})
		if err != nil {
			t.Fatalf("SubmitDecision at %q failed: %v", node.ID, err)
		}
	}
	return sess
}
