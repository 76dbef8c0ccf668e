// Package cache decorates a GraphProvider with an in-memory LRU so that
// hot playbooks skip repeated parsing or remote lookups. Graphs are
// immutable after load, so cached pointers are safe to share.
package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/ports"
)

// DefaultSize is the cache capacity used when none is configured.
const DefaultSize = 128

// Provider wraps another GraphProvider and memoizes Graph lookups.
// Negative results (unknown playbooks) are not cached, so a playbook
// published after a miss becomes visible on the next call.
type Provider struct {
	next   ports.GraphProvider
	graphs *lru.Cache[string, *domain.DecisionGraph]
}

// NewProvider wraps next with an LRU of the given capacity.
// A size of zero or less falls back to DefaultSize.
func NewProvider(next ports.GraphProvider, size int) (*Provider, error) {
	if size <= 0 {
		size = DefaultSize
	}
	graphs, err := lru.New[string, *domain.DecisionGraph](size)
	if err != nil {
		return nil, err
	}
	return &Provider{next: next, graphs: graphs}, nil
}

// Graph returns the cached graph for the playbook id, consulting the
// wrapped provider on a miss.
func (p *Provider) Graph(ctx context.Context, playbookID string) (*domain.DecisionGraph, error) {
	if graph, ok := p.graphs.Get(playbookID); ok {
		return graph, nil
	}
	graph, err := p.next.Graph(ctx, playbookID)
	if err != nil {
		return nil, err
	}
	p.graphs.Add(playbookID, graph)
	return graph, nil
}

// Playbooks always delegates; listings must reflect the source of truth.
func (p *Provider) Playbooks(ctx context.Context) ([]string, error) {
	return p.next.Playbooks(ctx)
}

// Invalidate drops a playbook from the cache. Callers use it when a
// graph document is republished under the same id.
func (p *Provider) Invalidate(playbookID string) {
	p.graphs.Remove(playbookID)
}

// Purge empties the cache.
func (p *Provider) Purge() {
	p.graphs.Purge()
}
