package domain

import "fmt"

// Option is one selectable answer on a decision node.
// Next names the node the traversal moves to when the option is chosen.
// An empty Next ends the traversal at the node carrying the option.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Next  string `json:"next,omitempty" yaml:"next,omitempty"`
}

// DecisionNode is a single question point in a playbook graph.
type DecisionNode struct {
	ID       string `json:"id" yaml:"id"`
	Question string `json:"question" yaml:"question"`

	// Options is the ordered list of answers. Order is authoring order and
	// is preserved through rendering. A node with no options is terminal.
	Options []Option `json:"options,omitempty" yaml:"options,omitempty"`

	// ResearchContext lists supporting-material references shown alongside
	// the question. The engine snapshots it into the history but never
	// interprets it.
	ResearchContext []string `json:"researchContext,omitempty" yaml:"research,omitempty"`

	// Tags classify terminal outcomes for the action catalog.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Terminal reports whether the node offers no further options.
func (n *DecisionNode) Terminal() bool {
	return len(n.Options) == 0
}

// OptionNext resolves an option label to its next node id.
// The second return value is false when the label is not on the node.
func (n *DecisionNode) OptionNext(label string) (string, bool) {
	for _, opt := range n.Options {
		if opt.Label == label {
			return opt.Next, true
		}
	}
	return "", false
}

// Labels returns the option labels in authoring order.
func (n *DecisionNode) Labels() []string {
	if len(n.Options) == 0 {
		return nil
	}
	labels := make([]string, len(n.Options))
	for i, opt := range n.Options {
		labels[i] = opt.Label
	}
	return labels
}

// Clone returns a deep copy of the node.
func (n *DecisionNode) Clone() *DecisionNode {
	if n == nil {
		return nil
	}
	out := *n
	out.Options = append([]Option(nil), n.Options...)
	out.ResearchContext = append([]string(nil), n.ResearchContext...)
	out.Tags = append([]string(nil), n.Tags...)
	return &out
}

// DecisionGraph is an externally authored, rooted, directed acyclic graph of
// decision nodes. Graphs are immutable after load and may be shared across
// sessions without locking.
type DecisionGraph struct {
	PlaybookID string                   `json:"playbookId" yaml:"playbook"`
	Title      string                   `json:"title,omitempty" yaml:"title,omitempty"`
	RootNodeID string                   `json:"rootNodeId" yaml:"root"`
	Nodes      map[string]*DecisionNode `json:"nodes" yaml:"nodes"`
}

// Node looks up a node by id.
func (g *DecisionGraph) Node(id string) (*DecisionNode, bool) {
	n, ok := g.Nodes[id]
	return n, ok
}

// Root returns the entry node.
func (g *DecisionGraph) Root() (*DecisionNode, bool) {
	return g.Node(g.RootNodeID)
}

// Validate checks the structural invariants the engine relies on: the root
// exists, every non-empty option target resolves to a node, and no node
// reachable from the root lies on a cycle. The first violation is returned
// as a GraphIntegrityError.
func (g *DecisionGraph) Validate() error {
	if g.RootNodeID == "" {
		return &GraphIntegrityError{PlaybookID: g.PlaybookID, Reason: "root node id is empty"}
	}
	if _, ok := g.Nodes[g.RootNodeID]; !ok {
		return &GraphIntegrityError{
			PlaybookID: g.PlaybookID,
			NodeID:     g.RootNodeID,
			Reason:     "root node not present in graph",
		}
	}

	for id, node := range g.Nodes {
		if node == nil {
			return &GraphIntegrityError{PlaybookID: g.PlaybookID, NodeID: id, Reason: "node is nil"}
		}
		for _, opt := range node.Options {
			if opt.Label == "" {
				return &GraphIntegrityError{
					PlaybookID: g.PlaybookID,
					NodeID:     id,
					Reason:     "option with empty label",
				}
			}
			if opt.Next == "" {
				continue
			}
			if _, ok := g.Nodes[opt.Next]; !ok {
				return &GraphIntegrityError{
					PlaybookID: g.PlaybookID,
					NodeID:     id,
					Reason:     fmt.Sprintf("option %q references missing node %q", opt.Label, opt.Next),
				}
			}
		}
	}

	if cycle := g.findCycle(); cycle != "" {
		return &GraphIntegrityError{
			PlaybookID: g.PlaybookID,
			NodeID:     cycle,
			Reason:     "cycle reachable from root",
		}
	}
	return nil
}

// findCycle runs an iterative DFS from the root using three-color marking.
// It returns the id of a node on a cycle, or "" when the reachable subgraph
// is acyclic.
func (g *DecisionGraph) findCycle() string {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(g.Nodes))

	type frame struct {
		id   string
		next int
	}
	stack := []frame{{id: g.RootNodeID}}
	color[g.RootNodeID] = gray

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		node := g.Nodes[top.id]
		if node == nil || top.next >= len(node.Options) {
			color[top.id] = black
			stack = stack[:len(stack)-1]
			continue
		}
		target := node.Options[top.next].Next
		top.next++
		if target == "" {
			continue
		}
		switch color[target] {
		case gray:
			return target
		case white:
			color[target] = gray
			stack = append(stack, frame{id: target})
		}
	}
	return ""
}
