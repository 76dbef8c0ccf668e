// Package validator runs deep diagnostics over a decision graph, beyond the
// structural checks the engine performs at session start. It reports dead
// option targets, unreachable nodes, cycles, and ambiguous authoring, and
// inventories the terminal outcomes so authors can see where paths end.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/caseflow/playbook/pkg/domain"
)

// Severity classifies a finding. Errors make the graph unusable; warnings
// flag authoring debt that the engine tolerates.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one diagnostic result tied to a node.
type Finding struct {
	Severity Severity `json:"severity"`
	NodeID   string   `json:"nodeId,omitempty"`
	Message  string   `json:"message"`
}

// Report aggregates every finding for one graph.
type Report struct {
	PlaybookID string    `json:"playbookId"`
	Errors     []Finding `json:"errors"`
	Warnings   []Finding `json:"warnings"`

	// Terminals lists the node ids where reachable paths end, in sorted
	// order: nodes with no options plus nodes carrying an end option.
	Terminals []string `json:"terminals"`
}

// Valid reports whether the graph can serve sessions.
func (r *Report) Valid() bool {
	return len(r.Errors) == 0
}

// String renders the report for the validate command.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Playbook %q: %d error(s), %d warning(s)\n",
		r.PlaybookID, len(r.Errors), len(r.Warnings))
	for _, f := range r.Errors {
		writeFinding(&b, f)
	}
	for _, f := range r.Warnings {
		writeFinding(&b, f)
	}
	if len(r.Terminals) > 0 {
		fmt.Fprintf(&b, "Terminal outcomes: %s\n", strings.Join(r.Terminals, ", "))
	} else {
		b.WriteString("Terminal outcomes: none reachable\n")
	}
	return b.String()
}

func writeFinding(b *strings.Builder, f Finding) {
	if f.NodeID != "" {
		fmt.Fprintf(b, "  [%s] %s: %s\n", f.Severity, f.NodeID, f.Message)
	} else {
		fmt.Fprintf(b, "  [%s] %s\n", f.Severity, f.Message)
	}
}

func (r *Report) addError(nodeID, format string, args ...any) {
	r.Errors = append(r.Errors, Finding{
		Severity: SeverityError,
		NodeID:   nodeID,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (r *Report) addWarning(nodeID, format string, args ...any) {
	r.Warnings = append(r.Warnings, Finding{
		Severity: SeverityWarning,
		NodeID:   nodeID,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Validate crawls the graph from its root and collects findings. Unlike
// domain.DecisionGraph.Validate it never stops at the first problem; the
// point is a complete authoring report.
func Validate(graph *domain.DecisionGraph) *Report {
	report := &Report{PlaybookID: graph.PlaybookID}

	if graph.RootNodeID == "" {
		report.addError("", "root node id is empty")
		return report
	}
	if _, ok := graph.Nodes[graph.RootNodeID]; !ok {
		report.addError(graph.RootNodeID, "root node not present in graph")
		return report
	}

	reachable := crawl(graph, report)
	checkUnreachable(graph, reachable, report)
	checkCycles(graph, report)
	inventoryTerminals(graph, reachable, report)

	return report
}

// crawl walks the graph breadth-first from the root, checking each visited
// node's options for dead targets and ambiguous labels. It returns the set
// of reachable node ids.
func crawl(graph *domain.DecisionGraph, report *Report) map[string]bool {
	visited := make(map[string]bool)
	queue := []string{graph.RootNodeID}

	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]

		if visited[currentID] {
			continue
		}
		visited[currentID] = true

		node := graph.Nodes[currentID]
		if node == nil {
			report.addError(currentID, "node entry is nil")
			continue
		}
		if strings.TrimSpace(node.Question) == "" && !node.Terminal() {
			report.addWarning(currentID, "node has no question text")
		}

		seenLabels := make(map[string]bool, len(node.Options))
		for _, opt := range node.Options {
			if opt.Label == "" {
				report.addError(currentID, "option with empty label")
			} else if seenLabels[opt.Label] {
				// Option resolution takes the first label match, so the
				// duplicate's target can never be selected.
				report.addError(currentID, "duplicate option label %q", opt.Label)
			}
			seenLabels[opt.Label] = true

			if opt.Next == "" {
				continue
			}
			if _, ok := graph.Nodes[opt.Next]; !ok {
				report.addError(currentID, "option %q references missing node %q", opt.Label, opt.Next)
				continue
			}
			if !visited[opt.Next] {
				queue = append(queue, opt.Next)
			}
		}
	}
	return visited
}

func checkUnreachable(graph *domain.DecisionGraph, reachable map[string]bool, report *Report) {
	var orphans []string
	for id := range graph.Nodes {
		if !reachable[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		report.addWarning(id, "node is unreachable from root %q", graph.RootNodeID)
	}
}

// checkCycles enumerates one representative cycle per back edge found by
// depth-first search, rendered as an id path so authors can follow it.
func checkCycles(graph *domain.DecisionGraph, report *Report) {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(graph.Nodes))
	var path []string

	var visit func(id string)
	visit = func(id string) {
		color[id] = gray
		path = append(path, id)

		if node := graph.Nodes[id]; node != nil {
			for _, opt := range node.Options {
				target := opt.Next
				if target == "" {
					continue
				}
				if _, ok := graph.Nodes[target]; !ok {
					continue // already reported by crawl
				}
				switch color[target] {
				case white:
					visit(target)
				case gray:
					report.addError(target, "cycle: %s", renderCycle(path, target))
				}
			}
		}

		color[id] = black
		path = path[:len(path)-1]
	}

	visit(graph.RootNodeID)
}

func renderCycle(path []string, target string) string {
	start := 0
	for i, id := range path {
		if id == target {
			start = i
			break
		}
	}
	cycle := append(append([]string{}, path[start:]...), target)
	return strings.Join(cycle, " -> ")
}

// inventoryTerminals records where reachable paths can end: nodes with no
// options at all, and nodes offering at least one option with an empty
// target.
func inventoryTerminals(graph *domain.DecisionGraph, reachable map[string]bool, report *Report) {
	var terminals []string
	for id := range graph.Nodes {
		if !reachable[id] {
			continue
		}
		node := graph.Nodes[id]
		if node == nil {
			continue
		}
		if node.Terminal() {
			terminals = append(terminals, id)
			continue
		}
		for _, opt := range node.Options {
			if opt.Next == "" {
				terminals = append(terminals, id)
				break
			}
		}
	}
	sort.Strings(terminals)
	report.Terminals = terminals

	if len(terminals) == 0 && len(report.Errors) == 0 {
		report.addError("", "no terminal outcome is reachable from the root")
	}
}
