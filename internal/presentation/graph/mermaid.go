// Package graph renders decision graphs as Mermaid flowcharts for the CLI
// and the HTTP surface.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/caseflow/playbook/pkg/domain"
)

// closedID is the synthetic sink node options with no mapped next node
// point at, so closing answers stay visible on the chart.
const closedID = "_closed"

// Overlay contains session state to highlight on the chart.
type Overlay struct {
	VisitedNodes  []string
	CurrentNodeID string
}

// GenerateMermaid produces Mermaid flowchart syntax for a decision graph.
// It applies semantic styling:
//   - Root: ((Circle))
//   - Terminal outcome: [[Subroutine]]
//   - Decision point: [/Parallelogram/]
//
// Node order is root first, then lexicographic, so output is deterministic.
// Overlay styles (visited/current) are appended when provided.
func GenerateMermaid(g *domain.DecisionGraph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	hasClosed := false
	for _, node := range orderedNodes(g) {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[/", "/]"
		switch {
		case node.ID == g.RootNodeID:
			opener, closer = "((", "))"
		case node.Terminal():
			opener, closer = "[[", "]]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, escapeMermaidLabel(node.ID), closer))

		for _, opt := range node.Options {
			label := escapeMermaidLabel(opt.Label)
			if opt.Next == "" {
				hasClosed = true
				sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", safeID, label, closedID))
				continue
			}
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", safeID, label, sanitizeMermaidID(opt.Next)))
		}
	}
	if hasClosed {
		sb.WriteString(fmt.Sprintf("    %s((\"end\"))\n", closedID))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast regardless of the viewer theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if safeID == "" || visitedSet[safeID] {
				continue
			}
			visitedSet[safeID] = true
			sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
		}

		if overlay.CurrentNodeID != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentNodeID)))
		}
	}

	return sb.String()
}

// SessionOverlay builds the overlay for a session's traversal so far.
func SessionOverlay(session *domain.DecisionSession) *Overlay {
	if session == nil {
		return nil
	}
	overlay := &Overlay{CurrentNodeID: session.CurrentNodeID}
	for _, rec := range session.History {
		overlay.VisitedNodes = append(overlay.VisitedNodes, rec.NodeID)
	}
	return overlay
}

func orderedNodes(g *domain.DecisionGraph) []*domain.DecisionNode {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		if id != g.RootNodeID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if _, ok := g.Nodes[g.RootNodeID]; ok {
		ids = append([]string{g.RootNodeID}, ids...)
	}

	nodes := make([]*domain.DecisionNode, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, g.Nodes[id])
	}
	return nodes
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

func escapeMermaidLabel(label string) string {
	return strings.ReplaceAll(label, "\"", "'")
}
