package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jmhart/scout/internal/graph"
)

// lintCycles runs a DFS with an explicit recursion stack over the depends_on
// adjacency. On the first back-edge found from a traversal root it renders
// the cycle path from the reappearing ancestor back to itself.
func lintCycles(g *graph.ExecutionGraph) []Diagnostic {
	deps := make(map[string][]string, len(g.InformationNeeds))
	var roots []string
	for i := range g.InformationNeeds {
		n := &g.InformationNeeds[i]
		if _, dup := deps[n.ID]; !dup {
			roots = append(roots, n.ID)
		}
		deps[n.ID] = n.DependsOn
	}
	// Deterministic diagnostic order regardless of map iteration.
	sort.Strings(roots)

	visited := map[string]bool{}
	var diags []Diagnostic
	for _, root := range roots {
		if visited[root] {
			continue
		}
		if cycle := findCycle(root, deps, visited, map[string]bool{}, nil); cycle != nil {
			diags = append(diags, Diagnostic{
				Rule:     "dependency_acyclic",
				Severity: SeverityError,
				Message:  fmt.Sprintf("dependency cycle: %s", strings.Join(cycle, " -> ")),
				NodeID:   cycle[0],
			})
		}
	}
	return diags
}

// findCycle returns the first cycle reachable from id, as a node id path
// that starts and ends at the reappearing ancestor, or nil.
func findCycle(id string, deps map[string][]string, visited, onStack map[string]bool, path []string) []string {
	visited[id] = true
	onStack[id] = true
	path = append(path, id)

	for _, dep := range deps[id] {
		if _, exists := deps[dep]; !exists {
			continue // missing dependency is dependency_exists' problem
		}
		if onStack[dep] {
			// Trim the path to start where the ancestor reappears.
			start := 0
			for i, p := range path {
				if p == dep {
					start = i
					break
				}
			}
			cycle := append([]string{}, path[start:]...)
			return append(cycle, dep)
		}
		if !visited[dep] {
			if cycle := findCycle(dep, deps, visited, onStack, path); cycle != nil {
				return cycle
			}
		}
	}

	onStack[id] = false
	return nil
}
