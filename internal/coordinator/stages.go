package coordinator

import (
	"sort"

	"github.com/jmhart/scout/internal/graph"
)

// stage is one concurrently-dispatched batch of nodes.
type stage struct {
	number int
	nodes  []*graph.InformationNode
}

// groupStages partitions the graph's nodes by parallel_group into an ordered
// list of stages, ascending. Every node lands in exactly one stage; node
// order within a stage follows declaration order, which keeps abort
// selection and logs deterministic.
func groupStages(g *graph.ExecutionGraph) []stage {
	byGroup := map[int][]*graph.InformationNode{}
	for i := range g.InformationNeeds {
		n := &g.InformationNeeds[i]
		byGroup[n.ParallelGroup] = append(byGroup[n.ParallelGroup], n)
	}

	numbers := make([]int, 0, len(byGroup))
	for num := range byGroup {
		numbers = append(numbers, num)
	}
	sort.Ints(numbers)

	stages := make([]stage, 0, len(numbers))
	for _, num := range numbers {
		stages = append(stages, stage{number: num, nodes: byGroup[num]})
	}
	return stages
}
