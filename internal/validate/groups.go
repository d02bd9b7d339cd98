package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jmhart/scout/internal/graph"
)

// lintParallelGroups checks the stage partition for two suspicious shapes:
// same-stage nodes with differing dependency sets (suspicious but not
// necessarily wrong), and a stage number set that is not exactly 1..n.
// Both are warnings.
func lintParallelGroups(g *graph.ExecutionGraph) []Diagnostic {
	groups := map[int][]*graph.InformationNode{}
	for i := range g.InformationNeeds {
		n := &g.InformationNeeds[i]
		if n.ParallelGroup < 1 {
			continue // parallel_group_valid already errored
		}
		groups[n.ParallelGroup] = append(groups[n.ParallelGroup], n)
	}
	if len(groups) == 0 {
		return nil
	}

	var stages []int
	for s := range groups {
		stages = append(stages, s)
	}
	sort.Ints(stages)

	var diags []Diagnostic
	for _, s := range stages {
		members := groups[s]
		if len(members) < 2 {
			continue
		}
		base := depsKey(members[0].DependsOn)
		for _, m := range members[1:] {
			if depsKey(m.DependsOn) != base {
				diags = append(diags, Diagnostic{
					Rule:     "parallel_group_consistent",
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("nodes in parallel_group %d have differing depends_on sets", s),
					NodeID:   m.ID,
				})
				break
			}
		}
	}

	for i, s := range stages {
		if s != i+1 {
			diags = append(diags, Diagnostic{
				Rule:     "parallel_group_contiguous",
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("parallel_group values %v are not a contiguous sequence starting at 1", stages),
			})
			break
		}
	}
	return diags
}

// depsKey renders a depends_on set order-independently.
func depsKey(deps []string) string {
	sorted := append([]string{}, deps...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}
