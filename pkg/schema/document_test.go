package schema_test

import (
	"strings"
	"testing"

	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/schema"
)

const intakeYAML = `
playbook: contract-dispute
title: Contract Dispute Intake
root: start
nodes:
  - id: start
    question: "What is the primary claim?"
    research:
      - "Restatement (Second) of Contracts 235"
    options:
      - label: "Contract Breach"
        next: contract_analysis
      - label: "Tort Claim"
        next: tort_analysis
  - id: contract_analysis
    question: "Is the agreement signed by both parties?"
    tags: [breach, high-stakes]
    options:
      - label: "Breach confirmed"
      - label: "No breach"
  - id: tort_analysis
    question: "Tort intake complete."
catalog:
  tags:
    breach:
      assessment: "Breach posture is strong."
      recommendations:
        - "Issue a demand letter."
      next_steps:
        - "Collect the signed agreement."
`

func TestParse(t *testing.T) {
	doc, err := schema.Parse([]byte(intakeYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if doc.Playbook != "contract-dispute" {
		t.Errorf("Expected playbook id, got %q", doc.Playbook)
	}
	if doc.Root != "start" {
		t.Errorf("Expected root 'start', got %q", doc.Root)
	}
	if len(doc.Nodes) != 3 {
		t.Fatalf("Expected 3 nodes, got %d", len(doc.Nodes))
	}

	// Authoring order must survive decoding.
	start := doc.Nodes[0]
	if start.ID != "start" || len(start.Options) != 2 {
		t.Fatalf("Unexpected first node: %+v", start)
	}
	if start.Options[0].Label != "Contract Breach" || start.Options[0].Next != "contract_analysis" {
		t.Errorf("Option order lost: %+v", start.Options)
	}

	if doc.Catalog == nil || doc.Catalog.Tags["breach"].Assessment != "Breach posture is strong." {
		t.Errorf("Catalog section not decoded: %+v", doc.Catalog)
	}
}

func TestParse_BadYAML(t *testing.T) {
	_, err := schema.Parse([]byte("playbook: [unclosed"))
	if err == nil {
		t.Fatal("Expected a parse error")
	}
}

func TestDocument_Graph(t *testing.T) {
	doc, err := schema.Parse([]byte(intakeYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	graph, err := doc.Graph()
	if err != nil {
		t.Fatalf("Graph failed: %v", err)
	}
	if graph.PlaybookID != "contract-dispute" || graph.RootNodeID != "start" {
		t.Errorf("Graph header wrong: %+v", graph)
	}

	node, ok := graph.Node("contract_analysis")
	if !ok {
		t.Fatal("contract_analysis missing from graph")
	}
	if !ok || len(node.Tags) != 2 || node.Tags[0] != "breach" {
		t.Errorf("Tags not carried over: %v", node.Tags)
	}
	if next, ok := node.OptionNext("Breach confirmed"); !ok || next != "" {
		t.Errorf("Expected path-ending option, got next=%q ok=%v", next, ok)
	}

	terminal, _ := graph.Node("tort_analysis")
	if !terminal.Terminal() {
		t.Error("tort_analysis should be terminal")
	}
}

func TestDocument_GraphRejectsCycles(t *testing.T) {
	// Structurally valid but cyclic; the domain check must catch it.
	cyclic := `
playbook: loop
root: a
nodes:
  - id: a
    options:
      - label: "Go"
        next: b
  - id: b
    options:
      - label: "Back"
        next: a
`
	doc, err := schema.Parse([]byte(cyclic))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := doc.Graph(); err == nil {
		t.Fatal("Expected cycle rejection")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	graph := &domain.DecisionGraph{
		PlaybookID: "adverse-media",
		Title:      "Adverse Media Review",
		RootNodeID: "triage",
		Nodes: map[string]*domain.DecisionNode{
			"triage": {
				ID:       "triage",
				Question: "Is the report from a credible outlet?",
				Options: []domain.Option{
					{Label: "Credible", Next: "assess"},
					{Label: "Not credible"},
				},
			},
			"assess": {
				ID:       "assess",
				Question: "Assessment recorded.",
				Tags:     []string{"media"},
			},
		},
	}

	data, err := schema.Marshal(graph)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	// Root is always serialized first.
	if !strings.Contains(strings.SplitN(string(data), "- id:", 2)[1], "triage") {
		t.Errorf("Expected root listed first:\n%s", data)
	}

	doc, err := schema.Parse(data)
	if err != nil {
		t.Fatalf("Parse of marshaled output failed: %v", err)
	}
	back, err := doc.Graph()
	if err != nil {
		t.Fatalf("Graph failed: %v", err)
	}
	if len(back.Nodes) != 2 || back.RootNodeID != "triage" {
		t.Errorf("Round trip lost structure: %+v", back)
	}
	node, _ := back.Node("triage")
	if len(node.Options) != 2 || node.Options[1].Label != "Not credible" {
		t.Errorf("Round trip lost options: %+v", node.Options)
	}
}

func TestDecodeCatalog(t *testing.T) {
	raw := map[string]any{
		"nodes": map[string]any{
			"settle": map[string]any{
				"assessment":      "Settle early.",
				"recommendations": []string{"Open negotiation."},
				"next_steps":      []string{"Draft memo."},
			},
		},
		"default": map[string]any{
			"assessment": "Escalate to counsel.",
		},
	}

	catalog, err := schema.DecodeCatalog(raw)
	if err != nil {
		t.Fatalf("DecodeCatalog failed: %v", err)
	}
	if catalog.Nodes["settle"].Assessment != "Settle early." {
		t.Errorf("Node entry not decoded: %+v", catalog.Nodes)
	}
	if catalog.Default == nil || catalog.Default.Assessment != "Escalate to counsel." {
		t.Errorf("Default entry not decoded: %+v", catalog.Default)
	}
}
