package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/schema"
)

// Provider implements ports.GraphProvider over a directory of playbook
// documents. File names are playbook ids: "contract-dispute.yaml" serves
// playbook id "contract-dispute". Documents are parsed on first access and
// kept; deployment artifacts are immutable, so there is no re-stat.
type Provider struct {
	dir string

	mu     sync.RWMutex
	parsed map[string]*domain.DecisionGraph
}

// NewProvider creates a provider over dir.
func NewProvider(dir string) *Provider {
	return &Provider{
		dir:    dir,
		parsed: make(map[string]*domain.DecisionGraph),
	}
}

// Graph loads and parses the document for the playbook id.
func (p *Provider) Graph(ctx context.Context, playbookID string) (*domain.DecisionGraph, error) {
	p.mu.RLock()
	graph, ok := p.parsed[playbookID]
	p.mu.RUnlock()
	if ok {
		return graph, nil
	}

	path, err := p.resolve(playbookID)
	if err != nil {
		return nil, err
	}
	doc, err := schema.ParseFile(path)
	if err != nil {
		return nil, err
	}
	if doc.Playbook != playbookID {
		return nil, fmt.Errorf("playbook id mismatch in %s: document declares %q", path, doc.Playbook)
	}
	graph, err = doc.Graph()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.parsed[playbookID] = graph
	p.mu.Unlock()
	return graph, nil
}

// resolve finds the document file for a playbook id, trying .yaml then .yml.
func (p *Provider) resolve(playbookID string) (string, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(p.dir, playbookID+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrPlaybookNotFound, playbookID)
}

// Playbooks lists the playbook ids available in the directory.
func (p *Provider) Playbooks(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list playbooks: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	sort.Strings(ids)
	return ids, nil
}
