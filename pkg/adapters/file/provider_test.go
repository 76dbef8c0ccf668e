package file_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/caseflow/playbook/pkg/adapters/file"
	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/ports/tests"
)

const disputeYAML = `playbook: contract-dispute
root: start
nodes:
  - id: start
    question: "What is the primary claim?"
    options:
      - label: "Contract Breach"
        next: end
  - id: end
    question: "Intake complete."
`

func writePlaybook(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	writePlaybook(t, dir, "contract-dispute.yaml", disputeYAML)
	writePlaybook(t, dir, "notes.txt", "not a playbook")

	provider := file.NewProvider(dir)
	ctx := context.Background()

	t.Run("Graph parses the document", func(t *testing.T) {
		graph, err := provider.Graph(ctx, "contract-dispute")
		if err != nil {
			t.Fatalf("Graph failed: %v", err)
		}
		if graph.RootNodeID != "start" || len(graph.Nodes) != 2 {
			t.Errorf("Unexpected graph: %+v", graph)
		}
	})

	t.Run("Graph is parsed once", func(t *testing.T) {
		first, err := provider.Graph(ctx, "contract-dispute")
		if err != nil {
			t.Fatalf("Graph failed: %v", err)
		}
		second, err := provider.Graph(ctx, "contract-dispute")
		if err != nil {
			t.Fatalf("Graph failed: %v", err)
		}
		if first != second {
			t.Error("Expected the same parsed graph instance on repeat access")
		}
	})

	t.Run("unknown playbook", func(t *testing.T) {
		_, err := provider.Graph(ctx, "ghost")
		if !errors.Is(err, domain.ErrPlaybookNotFound) {
			t.Errorf("Expected ErrPlaybookNotFound, got %v", err)
		}
	})

	t.Run("id mismatch rejected", func(t *testing.T) {
		writePlaybook(t, dir, "alias.yaml", disputeYAML)
		_, err := provider.Graph(ctx, "alias")
		if err == nil {
			t.Fatal("Expected mismatch error")
		}
	})

	t.Run("Playbooks lists yaml stems only", func(t *testing.T) {
		writePlaybook(t, dir, "adverse-media.yml", `playbook: adverse-media
root: start
nodes:
  - id: start
    question: "Credible outlet?"
`)
		ids, err := provider.Playbooks(ctx)
		if err != nil {
			t.Fatalf("Playbooks failed: %v", err)
		}
		want := map[string]bool{"adverse-media": true, "alias": true, "contract-dispute": true}
		if len(ids) != len(want) {
			t.Fatalf("Expected %d ids, got %v", len(want), ids)
		}
		for _, id := range ids {
			if !want[id] {
				t.Errorf("Unexpected id %q", id)
			}
		}
	})
}

func TestFileProviderContract(t *testing.T) {
	dir := t.TempDir()
	writePlaybook(t, dir, "contract-dispute.yaml", disputeYAML)
	writePlaybook(t, dir, "adverse-media.yml", `playbook: adverse-media
root: triage
nodes:
  - id: triage
    question: "Is the outlet credible?"
`)

	tests.GraphProviderContractTest(t, file.NewProvider(dir), map[string]string{
		"contract-dispute": "start",
		"adverse-media":    "triage",
	})
}
