package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/caseflow/playbook/pkg/domain"
)

// Provider implements ports.GraphProvider over an in-memory registry.
// Registered graphs are treated as immutable and returned by pointer.
type Provider struct {
	graphs map[string]*domain.DecisionGraph
	mu     sync.RWMutex
}

// NewProvider creates a provider pre-loaded with the given graphs.
func NewProvider(graphs ...*domain.DecisionGraph) *Provider {
	p := &Provider{
		graphs: make(map[string]*domain.DecisionGraph),
	}
	for _, g := range graphs {
		p.graphs[g.PlaybookID] = g
	}
	return p
}

// Register adds or replaces a graph under its playbook id.
func (p *Provider) Register(graph *domain.DecisionGraph) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.graphs[graph.PlaybookID] = graph
}

// Graph retrieves a registered graph by playbook id.
func (p *Provider) Graph(ctx context.Context, playbookID string) (*domain.DecisionGraph, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	graph, ok := p.graphs[playbookID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPlaybookNotFound, playbookID)
	}
	return graph, nil
}

// Playbooks returns all registered playbook ids in deterministic order.
func (p *Provider) Playbooks(ctx context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.graphs))
	for id := range p.graphs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
