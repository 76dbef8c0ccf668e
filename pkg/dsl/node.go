package dsl

import "github.com/caseflow/playbook/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.DecisionNode
	builder *Builder
}

// Question sets the prompt text presented at the node.
func (n *NodeBuilder) Question(text string) *NodeBuilder {
	n.node.Question = text
	return n
}

// Research appends supporting-material references shown with the question.
func (n *NodeBuilder) Research(refs ...string) *NodeBuilder {
	n.node.ResearchContext = append(n.node.ResearchContext, refs...)
	return n
}

// Tags appends outcome tags used by the action catalog.
func (n *NodeBuilder) Tags(tags ...string) *NodeBuilder {
	n.node.Tags = append(n.node.Tags, tags...)
	return n
}

// Option adds a selectable answer transitioning to the target node.
// An empty target ends the traversal at this node when the option is chosen.
func (n *NodeBuilder) Option(label, target string) *NodeBuilder {
	n.node.Options = append(n.node.Options, domain.Option{
		Label: label,
		Next:  target,
	})
	return n
}

// Build returns the underlying domain.DecisionNode.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.DecisionNode {
	return *n.node.Clone()
}
