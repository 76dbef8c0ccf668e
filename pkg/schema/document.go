package schema

import (
	"sort"

	"github.com/caseflow/playbook/pkg/domain"
)

// Document is the on-disk form of one playbook.
type Document struct {
	Playbook string           `yaml:"playbook" json:"playbook"`
	Title    string           `yaml:"title,omitempty" json:"title,omitempty"`
	Root     string           `yaml:"root" json:"root"`
	Nodes    []NodeDocument   `yaml:"nodes" json:"nodes"`
	Catalog  *CatalogDocument `yaml:"catalog,omitempty" json:"catalog,omitempty"`
}

// NodeDocument is one authored decision node.
type NodeDocument struct {
	ID       string           `yaml:"id" json:"id"`
	Question string           `yaml:"question,omitempty" json:"question,omitempty"`
	Research []string         `yaml:"research,omitempty" json:"research,omitempty"`
	Tags     []string         `yaml:"tags,omitempty" json:"tags,omitempty"`
	Options  []OptionDocument `yaml:"options,omitempty" json:"options,omitempty"`
}

// OptionDocument is one selectable answer. An empty Next ends the path.
type OptionDocument struct {
	Label string `yaml:"label" json:"label"`
	Next  string `yaml:"next,omitempty" json:"next,omitempty"`
}

// CatalogDocument carries recommendation text keyed by terminal node id or
// tag. It also decodes from loosely typed configuration maps, hence the
// mapstructure tags.
type CatalogDocument struct {
	Nodes   map[string]ActionSetDocument `yaml:"nodes,omitempty" json:"nodes,omitempty" mapstructure:"nodes"`
	Tags    map[string]ActionSetDocument `yaml:"tags,omitempty" json:"tags,omitempty" mapstructure:"tags"`
	Default *ActionSetDocument           `yaml:"default,omitempty" json:"default,omitempty" mapstructure:"default"`
}

// ActionSetDocument is the authored guidance for one terminal outcome.
type ActionSetDocument struct {
	Assessment      string   `yaml:"assessment,omitempty" json:"assessment,omitempty" mapstructure:"assessment"`
	Recommendations []string `yaml:"recommendations,omitempty" json:"recommendations,omitempty" mapstructure:"recommendations"`
	NextSteps       []string `yaml:"next_steps,omitempty" json:"nextSteps,omitempty" mapstructure:"next_steps"`
}

// Graph converts the document into the runtime graph. Structural validation
// runs first so authoring mistakes surface with positional paths; graph-level
// invariants (root reachability, cycles) are then checked by the domain.
func (d *Document) Graph() (*domain.DecisionGraph, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	nodes := make(map[string]*domain.DecisionNode, len(d.Nodes))
	for _, nd := range d.Nodes {
		node := &domain.DecisionNode{
			ID:              nd.ID,
			Question:        nd.Question,
			ResearchContext: append([]string(nil), nd.Research...),
			Tags:            append([]string(nil), nd.Tags...),
		}
		for _, opt := range nd.Options {
			node.Options = append(node.Options, domain.Option{Label: opt.Label, Next: opt.Next})
		}
		nodes[nd.ID] = node
	}

	graph := &domain.DecisionGraph{
		PlaybookID: d.Playbook,
		Title:      d.Title,
		RootNodeID: d.Root,
		Nodes:      nodes,
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return graph, nil
}

// FromGraph builds a document from a runtime graph. The root node is listed
// first and the rest follow sorted by id, so output is deterministic even
// though the graph holds nodes in a map.
func FromGraph(graph *domain.DecisionGraph) *Document {
	doc := &Document{
		Playbook: graph.PlaybookID,
		Title:    graph.Title,
		Root:     graph.RootNodeID,
	}

	ids := make([]string, 0, len(graph.Nodes))
	for id := range graph.Nodes {
		if id == graph.RootNodeID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if _, ok := graph.Nodes[graph.RootNodeID]; ok {
		ids = append([]string{graph.RootNodeID}, ids...)
	}

	for _, id := range ids {
		node := graph.Nodes[id]
		nd := NodeDocument{
			ID:       node.ID,
			Question: node.Question,
			Research: append([]string(nil), node.ResearchContext...),
			Tags:     append([]string(nil), node.Tags...),
		}
		for _, opt := range node.Options {
			nd.Options = append(nd.Options, OptionDocument{Label: opt.Label, Next: opt.Next})
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	return doc
}
