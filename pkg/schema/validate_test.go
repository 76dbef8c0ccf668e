package schema

import (
	"strings"
	"testing"
)

func validDoc() *Document {
	return &Document{
		Playbook: "contract-dispute",
		Root:     "start",
		Nodes: []NodeDocument{
			{
				ID:       "start",
				Question: "What is the primary claim?",
				Options: []OptionDocument{
					{Label: "Contract Breach", Next: "end"},
				},
			},
			{ID: "end", Question: "Done."},
		},
	}
}

func TestDocument_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Document)
		wantPath string
	}{
		{
			"missing playbook id",
			func(d *Document) { d.Playbook = "" },
			"playbook",
		},
		{
			"missing root",
			func(d *Document) { d.Root = "" },
			"root",
		},
		{
			"no nodes",
			func(d *Document) { d.Nodes = nil },
			"nodes",
		},
		{
			"node without id",
			func(d *Document) { d.Nodes[0].ID = "" },
			"nodes[0].id",
		},
		{
			"duplicate node id",
			func(d *Document) { d.Nodes[1].ID = "start" },
			"nodes[1].id",
		},
		{
			"option without label",
			func(d *Document) { d.Nodes[0].Options[0].Label = "" },
			"nodes[0].options[0].label",
		},
		{
			"duplicate option label",
			func(d *Document) {
				d.Nodes[0].Options = append(d.Nodes[0].Options,
					OptionDocument{Label: "Contract Breach"})
			},
			"nodes[0].options[1].label",
		},
		{
			"dangling next reference",
			func(d *Document) { d.Nodes[0].Options[0].Next = "ghost" },
			"nodes[0].options[0].next",
		},
		{
			"root not declared",
			func(d *Document) { d.Root = "ghost" },
			"root",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDoc()
			tt.mutate(doc)

			err := doc.Validate()
			if err == nil {
				t.Fatal("Expected validation failure")
			}
			if !strings.Contains(err.Error(), tt.wantPath) {
				t.Errorf("Expected path %q in error, got: %v", tt.wantPath, err)
			}
		})
	}

	t.Run("valid document passes", func(t *testing.T) {
		if err := validDoc().Validate(); err != nil {
			t.Errorf("Expected clean validation, got %v", err)
		}
	})
}

func TestDocument_ValidateAggregates(t *testing.T) {
	doc := validDoc()
	doc.Playbook = ""
	doc.Nodes[0].Options[0].Label = ""
	doc.Nodes[0].Options[0].Next = ""

	err := doc.Validate()
	if err == nil {
		t.Fatal("Expected validation failure")
	}

	errs := SchemaErrors(err)
	if len(errs) != 2 {
		t.Fatalf("Expected 2 collected errors, got %d: %v", len(errs), err)
	}
}

func TestSchemaErrors_NonAggregate(t *testing.T) {
	if SchemaErrors(&SchemaError{Path: "x", Reason: "y"}) != nil {
		t.Error("Expected nil for non-aggregate errors")
	}
}
