package domain

import (
	"errors"
	"reflect"
	"testing"
)

func intakeGraph() *DecisionGraph {
	return &DecisionGraph{
		PlaybookID: "contract-dispute",
		RootNodeID: "start",
		Nodes: map[string]*DecisionNode{
			"start": {
				ID:       "start",
				Question: "What is the primary claim?",
				Options: []Option{
					{Label: "Contract Breach", Next: "contract_analysis"},
					{Label: "Tort Claim", Next: "tort_analysis"},
				},
			},
			"contract_analysis": {
				ID:       "contract_analysis",
				Question: "Is the agreement signed by both parties?",
				Options: []Option{
					{Label: "Breach confirmed", Next: ""},
				},
			},
			"tort_analysis": {
				ID:       "tort_analysis",
				Question: "Was a duty of care owed?",
			},
		},
	}
}

func TestGraphValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DecisionGraph)
		wantErr bool
		node    string
	}{
		{
			name:   "Valid Graph",
			mutate: func(g *DecisionGraph) {},
		},
		{
			name:    "Empty Root",
			mutate:  func(g *DecisionGraph) { g.RootNodeID = "" },
			wantErr: true,
		},
		{
			name:    "Missing Root Node",
			mutate:  func(g *DecisionGraph) { g.RootNodeID = "nonexistent" },
			wantErr: true,
			node:    "nonexistent",
		},
		{
			name: "Dangling Option Target",
			mutate: func(g *DecisionGraph) {
				g.Nodes["start"].Options[0].Next = "missing"
			},
			wantErr: true,
			node:    "start",
		},
		{
			name: "Empty Option Label",
			mutate: func(g *DecisionGraph) {
				g.Nodes["start"].Options[0].Label = ""
			},
			wantErr: true,
			node:    "start",
		},
		{
			name: "Cycle Reachable From Root",
			mutate: func(g *DecisionGraph) {
				g.Nodes["contract_analysis"].Options[0].Next = "start"
			},
			wantErr: true,
		},
		{
			name: "Cycle In Unreachable Island Is Ignored",
			mutate: func(g *DecisionGraph) {
				g.Nodes["island_a"] = &DecisionNode{
					ID: "island_a", Question: "?",
					Options: []Option{{Label: "loop", Next: "island_b"}},
				}
				g.Nodes["island_b"] = &DecisionNode{
					ID: "island_b", Question: "?",
					Options: []Option{{Label: "loop", Next: "island_a"}},
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := intakeGraph()
			tt.mutate(g)
			err := g.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() expected error, got nil")
				}
				var integrity *GraphIntegrityError
				if !errors.As(err, &integrity) {
					t.Fatalf("Validate() error type = %T, want *GraphIntegrityError", err)
				}
				if tt.node != "" && integrity.NodeID != tt.node {
					t.Errorf("Expected node %q in error, got %q", tt.node, integrity.NodeID)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestNodeHelpers(t *testing.T) {
	node := intakeGraph().Nodes["start"]

	if node.Terminal() {
		t.Error("start node should not be terminal")
	}

	next, ok := node.OptionNext("Contract Breach")
	if !ok || next != "contract_analysis" {
		t.Errorf("OptionNext() = (%q, %v), want (contract_analysis, true)", next, ok)
	}
	if _, ok := node.OptionNext("Nonexistent"); ok {
		t.Error("OptionNext() matched a label that is not on the node")
	}

	want := []string{"Contract Breach", "Tort Claim"}
	if got := node.Labels(); !reflect.DeepEqual(got, want) {
		t.Errorf("Labels() = %v, want %v", got, want)
	}

	terminal := intakeGraph().Nodes["tort_analysis"]
	if !terminal.Terminal() {
		t.Error("node without options should be terminal")
	}
	if labels := terminal.Labels(); labels != nil {
		t.Errorf("Labels() on terminal node = %v, want nil", labels)
	}
}

func TestNodeCloneIsolation(t *testing.T) {
	original := intakeGraph().Nodes["start"]
	original.ResearchContext = []string{"Restatement (Second) of Contracts"}

	cloned := original.Clone()
	cloned.Options[0].Next = "elsewhere"
	cloned.ResearchContext[0] = "changed"

	if original.Options[0].Next != "contract_analysis" {
		t.Error("mutating the clone changed the original options")
	}
	if original.ResearchContext[0] != "Restatement (Second) of Contracts" {
		t.Error("mutating the clone changed the original research context")
	}
}
