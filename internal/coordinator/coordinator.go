// Package coordinator executes a validated graph in dependency-respecting
// parallel stages. It owns the failure policy, inter-node parameter
// resolution, and completion telemetry. It never retries and never cancels
// in-flight work: retry policy belongs to the caller, and a strict-mode
// abort abandons still-running siblings rather than interrupting them.
package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/jmhart/scout/internal/ctxlog"
	"github.com/jmhart/scout/internal/graph"
	"github.com/jmhart/scout/internal/registry"
	"github.com/jmhart/scout/internal/runtime"
	"github.com/jmhart/scout/internal/strategy"
)

// AbortError rejects an Execute call under strict semantics. It wraps the
// failing node's error so callers can still reach the underlying message.
type AbortError struct {
	NodeID string
	Err    error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("execution aborted: node %q failed: %v", e.NodeID, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

type Coordinator struct {
	registry *registry.Registry
	policy   FailurePolicy
}

// New builds a coordinator over an explicit registry. The policy applies to
// every Execute call made through this coordinator.
func New(reg *registry.Registry, policy FailurePolicy) *Coordinator {
	if reg == nil {
		panic("coordinator: nil registry")
	}
	if policy == "" {
		policy = PolicyGraceful
	}
	return &Coordinator{registry: reg, policy: policy}
}

// Execute runs the graph for one user and returns the recorded node results
// plus telemetry. The graph is assumed already validated; Execute does not
// re-validate. On an abort (strict mode, or a critical failure under hybrid)
// the partial results are returned together with an *AbortError. A registry
// miss returns a *registry.NotFoundError: a missing strategy implementation
// is a deployment bug, never a condition to degrade around.
func (c *Coordinator) Execute(ctx context.Context, g *graph.ExecutionGraph, userID string) (*runtime.Results, error) {
	runID := ulid.Make().String()
	logger := ctxlog.FromContext(ctx).With("run_id", runID, "policy", string(c.policy))
	ctx = ctxlog.WithLogger(ctx, logger)

	results := &runtime.Results{
		RunID:            runID,
		GraphFingerprint: graph.Fingerprint(g),
		UserID:           userID,
		Nodes:            runtime.ResultSet{},
	}

	var (
		fallbacks int
		failures  = []runtime.NodeFailure{}
	)

	stages := groupStages(g)
	logger.Info("execution starting",
		"graph_fingerprint", results.GraphFingerprint,
		"total_nodes", len(g.InformationNeeds),
		"stages", len(stages))

	for _, st := range stages {
		logger.Info("stage starting", "stage", st.number, "nodes", len(st.nodes))
		if err := c.runStage(ctx, st, results, userID, &fallbacks, &failures); err != nil {
			finalize(results, g, fallbacks, failures)
			logger.Error("execution aborted", "stage", st.number, "error", err)
			return results, err
		}
	}

	finalize(results, g, fallbacks, failures)
	logger.Info("execution finished",
		"status", string(results.Telemetry.ExecutionStatus),
		"successful", results.Telemetry.SuccessfulNodes,
		"failed", results.Telemetry.FailedNodes,
		"fallbacks", results.Telemetry.FallbacksUsed)
	return results, nil
}

type outcome struct {
	node *graph.InformationNode
	res  *runtime.NodeResult
}

func (c *Coordinator) runStage(ctx context.Context, st stage, results *runtime.Results, userID string, fallbacks *int, failures *[]runtime.NodeFailure) error {
	// Resolve every executor before dispatching anything: an unregistered
	// type fails the whole call without running half a stage first.
	executors := make([]strategy.Executor, len(st.nodes))
	for i, n := range st.nodes {
		exec, err := c.registry.Get(n.Type)
		if err != nil {
			return err
		}
		executors[i] = exec
	}

	// Parameter resolution reads the live result set single-threaded, before
	// any of this stage's goroutines start. Strategies that receive the
	// accumulated results get a snapshot so the recorder below never shares
	// the live map with a running strategy.
	snapshot := results.Nodes.Clone()
	outcomes := make(chan outcome, len(st.nodes))
	for i, n := range st.nodes {
		params := resolveParams(n.Strategy.Params, results.Nodes)
		if params == nil {
			params = graph.Params{}
		}
		params["node_id"] = n.ID

		exec := executors[i]
		node := n
		go func() {
			outcomes <- outcome{node: node, res: c.dispatch(ctx, exec, node, params, userID, snapshot)}
		}()
	}

	if c.policy == PolicyStrict {
		// All-or-nothing race: the first failure aborts immediately. Sibling
		// executions still in flight are abandoned, not cancelled; their
		// results land in the buffered channel and are discarded.
		for range st.nodes {
			o := <-outcomes
			results.Nodes.Record(o.res)
			if !o.res.Success {
				return &AbortError{NodeID: o.node.ID, Err: errors.New(o.res.Error)}
			}
		}
		return nil
	}

	// Settle-all semantics: every outcome is recorded before any policy
	// decision is made.
	settled := make(map[string]*runtime.NodeResult, len(st.nodes))
	for range st.nodes {
		o := <-outcomes
		results.Nodes.Record(o.res)
		settled[o.node.ID] = o.res
	}

	var criticalAbort *AbortError
	for _, n := range st.nodes {
		res := settled[n.ID]
		if res.Success {
			continue
		}
		if c.policy == PolicyHybrid && n.EffectiveImportance() == graph.ImportanceCritical {
			if criticalAbort == nil {
				criticalAbort = &AbortError{NodeID: n.ID, Err: errors.New(res.Error)}
			}
			continue
		}
		*fallbacks++
		*failures = append(*failures, runtime.NodeFailure{
			NodeID:      n.ID,
			NodeType:    n.Type,
			Importance:  string(n.EffectiveImportance()),
			Reason:      res.Error,
			IsRetryable: IsRetryable(res.Error),
			Impact:      ImpactFor(n.Type),
		})
	}
	if criticalAbort != nil {
		return criticalAbort
	}
	return nil
}

// dispatch invokes one strategy and converts every failure mode — returned
// error, reported failure, nil result, panic — into a failed NodeResult.
// Nothing escapes this boundary.
func (c *Coordinator) dispatch(ctx context.Context, exec strategy.Executor, node *graph.InformationNode, params graph.Params, userID string, prev runtime.ResultSet) (res *runtime.NodeResult) {
	logger := ctxlog.FromContext(ctx).With("node_id", node.ID, "type", node.Type)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("strategy panicked", "panic", r)
			res = &runtime.NodeResult{
				Success: false,
				NodeID:  node.ID,
				Error:   fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	var (
		out *runtime.NodeResult
		err error
	)
	if ra, ok := exec.(strategy.ResultAware); ok {
		out, err = ra.ExecuteWithResults(ctx, params, userID, prev)
	} else {
		out, err = exec.Execute(ctx, params, userID)
	}

	switch {
	case err != nil:
		logger.Warn("node failed", "error", err.Error())
		return &runtime.NodeResult{Success: false, NodeID: node.ID, Error: err.Error()}
	case out == nil:
		logger.Warn("node failed", "error", "strategy returned no result")
		return &runtime.NodeResult{Success: false, NodeID: node.ID, Error: "strategy returned no result"}
	case !out.Success:
		reason := out.Error
		if reason == "" {
			reason = "strategy reported failure"
		}
		logger.Warn("node failed", "error", reason)
		return &runtime.NodeResult{Success: false, NodeID: node.ID, Error: reason, TokensUsed: out.TokensUsed}
	default:
		logger.Info("node succeeded", "tokens_used", out.TokensUsed)
		return &runtime.NodeResult{Success: true, NodeID: node.ID, Data: out.Data, TokensUsed: out.TokensUsed}
	}
}

func finalize(results *runtime.Results, g *graph.ExecutionGraph, fallbacks int, failures []runtime.NodeFailure) {
	total := len(g.InformationNeeds)
	successful := 0
	for _, r := range results.Nodes {
		if r.Success {
			successful++
		}
	}
	failed := total - successful
	results.Telemetry = runtime.Telemetry{
		TotalNodes:      total,
		SuccessfulNodes: successful,
		FailedNodes:     failed,
		FallbacksUsed:   fallbacks,
		ExecutionStatus: runtime.StatusFor(total, failed),
		Failures:        failures,
	}
}
