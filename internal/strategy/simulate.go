package strategy

import (
	"context"
	"fmt"

	"github.com/jmhart/scout/internal/ctxlog"
	"github.com/jmhart/scout/internal/graph"
	"github.com/jmhart/scout/internal/runtime"
)

// Simulator is a canned-data executor used by the CLI and in development.
// It honors the full contract without touching any external service: the
// node's params script its behavior.
//
//	simulate:        value returned as NodeResult.Data
//	simulate_error:  non-empty string makes the node fail with that message
//	simulate_tokens: reported tokens_used (default 0, per the contract for
//	                 strategies that make no LLM call)
type Simulator struct {
	Type string
}

func (s *Simulator) Execute(ctx context.Context, params graph.Params, userID string) (*runtime.NodeResult, error) {
	nodeID, _ := params["node_id"].(string)
	logger := ctxlog.FromContext(ctx).With("strategy", s.Type, "node_id", nodeID, "user_id", userID)

	if msg, ok := params["simulate_error"].(string); ok && msg != "" {
		logger.Debug("simulator failing on request")
		return nil, fmt.Errorf("%s", msg)
	}

	tokens := 0
	if v, ok := params["simulate_tokens"].(float64); ok {
		tokens = int(v)
	}
	logger.Debug("simulator returning canned data", "tokens", tokens)
	return &runtime.NodeResult{
		Success:    true,
		NodeID:     nodeID,
		Data:       params["simulate"],
		TokensUsed: tokens,
	}, nil
}

// CrossReferenceSimulator exercises the ResultAware variant: it collects the
// data of the nodes named in params.sources from the accumulated result set.
type CrossReferenceSimulator struct{}

func (s *CrossReferenceSimulator) Execute(ctx context.Context, params graph.Params, userID string) (*runtime.NodeResult, error) {
	return s.ExecuteWithResults(ctx, params, userID, runtime.ResultSet{})
}

func (s *CrossReferenceSimulator) ExecuteWithResults(ctx context.Context, params graph.Params, userID string, previous runtime.ResultSet) (*runtime.NodeResult, error) {
	nodeID, _ := params["node_id"].(string)
	if msg, ok := params["simulate_error"].(string); ok && msg != "" {
		return nil, fmt.Errorf("%s", msg)
	}

	combined := map[string]any{}
	if sources, ok := params["sources"].([]any); ok {
		for _, src := range sources {
			id, ok := src.(string)
			if !ok {
				continue
			}
			if res := previous.Get(id); res != nil && res.Success {
				combined[id] = res.Data
			}
		}
	}
	ctxlog.FromContext(ctx).Debug("cross-reference combined sources",
		"node_id", nodeID, "sources", len(combined))
	return &runtime.NodeResult{
		Success: true,
		NodeID:  nodeID,
		Data:    combined,
	}, nil
}
