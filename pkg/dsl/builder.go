package dsl

import (
	"fmt"

	"github.com/caseflow/playbook/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	playbookID string
	title      string
	rootID     string
	nodes      map[string]*NodeBuilder
	order      []string
}

// New creates a builder for the given playbook id.
func New(playbookID string) *Builder {
	return &Builder{
		playbookID: playbookID,
		nodes:      make(map[string]*NodeBuilder),
	}
}

// Title sets the human-readable playbook title.
func (b *Builder) Title(title string) *Builder {
	b.title = title
	return b
}

// Root names the entry node. When Root is never called, the first node
// added becomes the root.
func (b *Builder) Root(id string) *Builder {
	b.rootID = id
	return b
}

// Node creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Node(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.DecisionNode{
			ID: id,
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Terminal creates (or fetches) a node and strips its options, marking it
// a terminal outcome.
func (b *Builder) Terminal(id string) *NodeBuilder {
	nb := b.Node(id)
	nb.node.Options = nil
	return nb
}

// Build compiles the graph and checks its structural integrity.
func (b *Builder) Build() (*domain.DecisionGraph, error) {
	if len(b.order) == 0 {
		return nil, fmt.Errorf("playbook %q has no nodes", b.playbookID)
	}
	rootID := b.rootID
	if rootID == "" {
		rootID = b.order[0]
	}

	nodes := make(map[string]*domain.DecisionNode, len(b.nodes))
	for id, nb := range b.nodes {
		node := nb.node.Clone()
		nodes[id] = node
	}

	graph := &domain.DecisionGraph{
		PlaybookID: b.playbookID,
		Title:      b.title,
		RootNodeID: rootID,
		Nodes:      nodes,
	}
	if err := graph.Validate(); err != nil {
		return nil, fmt.Errorf("failed to build graph %q: %w", b.playbookID, err)
	}
	return graph, nil
}
