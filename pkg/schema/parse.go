package schema

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/caseflow/playbook/pkg/domain"
)

// Parse decodes a YAML playbook document and validates its structure.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse playbook document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseFile reads and parses a playbook document from disk.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read playbook file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Marshal serializes a runtime graph back into document YAML.
func Marshal(graph *domain.DecisionGraph) ([]byte, error) {
	data, err := yaml.Marshal(FromGraph(graph))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal playbook document: %w", err)
	}
	return data, nil
}

// DecodeCatalog decodes a loosely typed map (viper config sections, document
// frontmatter) into a catalog document.
func DecodeCatalog(raw map[string]any) (*CatalogDocument, error) {
	var catalog CatalogDocument
	if err := mapstructure.Decode(raw, &catalog); err != nil {
		return nil, fmt.Errorf("failed to decode action catalog: %w", err)
	}
	return &catalog, nil
}

// ParseCatalogFile reads a standalone catalog document from disk. Standalone
// catalogs carry guidance shared across playbooks; per-playbook catalogs
// live in the document itself.
func ParseCatalogFile(path string) (*CatalogDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var catalog CatalogDocument
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("%s: failed to parse action catalog: %w", path, err)
	}
	return &catalog, nil
}
