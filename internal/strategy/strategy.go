// Package strategy defines the contract every task-type implementation must
// satisfy. Concrete strategies do the external-service work (mail search,
// ranking, classification) and are registered once at process startup; the
// execution core only ever sees this interface.
package strategy

import (
	"context"

	"github.com/jmhart/scout/internal/graph"
	"github.com/jmhart/scout/internal/runtime"
)

// Executor runs one node. Params arrive fully resolved (reference tokens
// already substituted) with the node id injected under "node_id". Executors
// should return errors rather than panic; the coordinator catches both at
// the dispatch boundary. TokensUsed must be 0 when no LLM call was made.
type Executor interface {
	Execute(ctx context.Context, params graph.Params, userID string) (*runtime.NodeResult, error)
}

// ResultAware is the optional variant for executors that need to see other
// nodes' raw results (e.g. a cross-referencing strategy) in addition to
// resolved scalar params. When an executor implements both, the coordinator
// calls ExecuteWithResults.
type ResultAware interface {
	ExecuteWithResults(ctx context.Context, params graph.Params, userID string, previous runtime.ResultSet) (*runtime.NodeResult, error)
}

// Func adapts a plain function to the Executor interface.
type Func func(ctx context.Context, params graph.Params, userID string) (*runtime.NodeResult, error)

func (f Func) Execute(ctx context.Context, params graph.Params, userID string) (*runtime.NodeResult, error) {
	return f(ctx, params, userID)
}
