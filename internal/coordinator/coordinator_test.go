package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jmhart/scout/internal/graph"
	"github.com/jmhart/scout/internal/registry"
	"github.com/jmhart/scout/internal/runtime"
	"github.com/jmhart/scout/internal/strategy"
)

// dispatchLog records which node ids actually reached an executor.
type dispatchLog struct {
	mu  sync.Mutex
	ids map[string]bool
}

func newDispatchLog() *dispatchLog { return &dispatchLog{ids: map[string]bool{}} }

func (l *dispatchLog) mark(params graph.Params) {
	id, _ := params["node_id"].(string)
	l.mu.Lock()
	l.ids[id] = true
	l.mu.Unlock()
}

func (l *dispatchLog) saw(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ids[id]
}

func okExec(log *dispatchLog, data any) strategy.Executor {
	return strategy.Func(func(ctx context.Context, params graph.Params, userID string) (*runtime.NodeResult, error) {
		log.mark(params)
		id, _ := params["node_id"].(string)
		return &runtime.NodeResult{Success: true, NodeID: id, Data: data, TokensUsed: 10}, nil
	})
}

func failExec(log *dispatchLog, msg string) strategy.Executor {
	return strategy.Func(func(ctx context.Context, params graph.Params, userID string) (*runtime.NodeResult, error) {
		log.mark(params)
		return nil, errors.New(msg)
	})
}

func execNode(id, typ string, group int, importance graph.Importance, deps ...string) graph.InformationNode {
	return graph.InformationNode{
		ID:            id,
		Type:          typ,
		Strategy:      graph.NodeStrategy{Method: "run", Params: graph.Params{}},
		DependsOn:     deps,
		ParallelGroup: group,
		Importance:    importance,
		ExpectedCost:  "low",
	}
}

func execGraph(nodes ...graph.InformationNode) *graph.ExecutionGraph {
	return &graph.ExecutionGraph{
		QueryClassification:   "test",
		InformationNeeds:      nodes,
		SynthesisInstructions: "combine",
		ResourceEstimate:      &graph.ResourceEstimate{TotalItems: 10, EstimatedTokens: 100},
	}
}

func TestExecute_GracefulTolerantOfFailures(t *testing.T) {
	log := newDispatchLog()
	reg := registry.New()
	_ = reg.Register("ok", okExec(log, "data"))
	_ = reg.Register("bad", failExec(log, "rate limit exceeded"))

	g := execGraph(
		execNode("a", "ok", 1, ""),
		execNode("b", "bad", 1, graph.ImportanceCritical),
		execNode("c", "ok", 2, "", "a"),
	)

	results, err := New(reg, PolicyGraceful).Execute(context.Background(), g, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(results.Nodes) != 3 {
		t.Fatalf("expected all 3 nodes recorded, got %d", len(results.Nodes))
	}
	tel := results.Telemetry
	if tel.TotalNodes != 3 || tel.SuccessfulNodes != 2 || tel.FailedNodes != 1 || tel.FallbacksUsed != 1 {
		t.Fatalf("telemetry = %+v", tel)
	}
	if tel.ExecutionStatus != runtime.StatusPartial {
		t.Fatalf("status = %s, want partial", tel.ExecutionStatus)
	}
	if len(tel.Failures) != 1 {
		t.Fatalf("failures = %+v", tel.Failures)
	}
	f := tel.Failures[0]
	if f.NodeID != "b" || f.NodeType != "bad" || f.Importance != "critical" {
		t.Fatalf("failure record = %+v", f)
	}
	if !f.IsRetryable {
		t.Fatal("rate limit failure must classify as retryable")
	}
	if f.Impact != genericImpact {
		t.Fatalf("impact = %q", f.Impact)
	}
	if results.RunID == "" || results.GraphFingerprint == "" || results.UserID != "u1" {
		t.Fatalf("result envelope incomplete: %+v", results)
	}
}

func TestExecute_GracefulAllFailedStatus(t *testing.T) {
	log := newDispatchLog()
	reg := registry.New()
	_ = reg.Register("bad", failExec(log, "boom"))

	g := execGraph(execNode("a", "bad", 1, ""), execNode("b", "bad", 1, ""))
	results, err := New(reg, PolicyGraceful).Execute(context.Background(), g, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if results.Telemetry.ExecutionStatus != runtime.StatusFailed {
		t.Fatalf("status = %s, want failed", results.Telemetry.ExecutionStatus)
	}
	if results.Telemetry.FallbacksUsed != 2 {
		t.Fatalf("fallbacks = %d", results.Telemetry.FallbacksUsed)
	}
}

func TestExecute_StrictAbortsBeforeNextStage(t *testing.T) {
	log := newDispatchLog()
	reg := registry.New()
	_ = reg.Register("ok", okExec(log, "data"))
	_ = reg.Register("bad", failExec(log, "boom"))

	g := execGraph(
		execNode("a", "bad", 1, ""),
		execNode("b", "ok", 2, "", "a"),
	)

	results, err := New(reg, PolicyStrict).Execute(context.Background(), g, "u1")
	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("expected *AbortError, got %T: %v", err, err)
	}
	if abort.NodeID != "a" {
		t.Fatalf("abort node = %q", abort.NodeID)
	}
	if log.saw("b") {
		t.Fatal("stage 2 node dispatched after a stage 1 abort")
	}
	// Partial results still come back with the error.
	if results == nil || results.Nodes.Get("a") == nil || results.Nodes.Get("a").Success {
		t.Fatalf("failed node not recorded: %+v", results)
	}
	if results.Telemetry.FallbacksUsed != 0 {
		t.Fatal("strict mode never counts fallbacks")
	}
}

func TestExecute_StrictOptionalFailureStillAborts(t *testing.T) {
	log := newDispatchLog()
	reg := registry.New()
	_ = reg.Register("bad", failExec(log, "boom"))

	g := execGraph(execNode("a", "bad", 1, graph.ImportanceOptional))
	_, err := New(reg, PolicyStrict).Execute(context.Background(), g, "u1")
	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("strict must abort regardless of importance, got %v", err)
	}
}

func TestExecute_HybridAbortsOnCriticalFailure(t *testing.T) {
	log := newDispatchLog()
	reg := registry.New()
	_ = reg.Register("ok", okExec(log, "data"))
	_ = reg.Register("bad", failExec(log, "boom"))

	g := execGraph(
		execNode("a", "bad", 1, graph.ImportanceCritical),
		execNode("b", "bad", 1, graph.ImportanceOptional),
		execNode("c", "ok", 2, "", "a"),
	)

	results, err := New(reg, PolicyHybrid).Execute(context.Background(), g, "u1")
	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("expected *AbortError, got %v", err)
	}
	if abort.NodeID != "a" {
		t.Fatalf("abort node = %q", abort.NodeID)
	}
	if log.saw("c") {
		t.Fatal("stage 2 dispatched after a critical failure")
	}
	// The stage settles first: the sibling's failure is recorded and
	// tolerated even though the stage then aborts.
	if results.Nodes.Get("b") == nil {
		t.Fatal("sibling outcome not recorded before abort")
	}
	if results.Telemetry.FallbacksUsed != 1 {
		t.Fatalf("fallbacks = %d, want the tolerated optional failure", results.Telemetry.FallbacksUsed)
	}
}

func TestExecute_HybridToleratesNonCriticalFailures(t *testing.T) {
	log := newDispatchLog()
	reg := registry.New()
	_ = reg.Register("ok", okExec(log, "data"))
	_ = reg.Register("bad", failExec(log, "thread not found"))

	g := execGraph(
		execNode("a", "ok", 1, graph.ImportanceCritical),
		execNode("b", "bad", 1, graph.ImportanceOptional),
		execNode("c", "bad", 1, ""), // defaults to important
		execNode("d", "ok", 2, "", "a"),
	)

	results, err := New(reg, PolicyHybrid).Execute(context.Background(), g, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !log.saw("d") {
		t.Fatal("execution did not continue to stage 2")
	}
	tel := results.Telemetry
	if tel.FallbacksUsed != 2 || len(tel.Failures) != 2 {
		t.Fatalf("telemetry = %+v", tel)
	}
	for _, f := range tel.Failures {
		if f.IsRetryable {
			t.Errorf("%q must not classify as retryable", f.Reason)
		}
	}
	if tel.ExecutionStatus != runtime.StatusPartial {
		t.Fatalf("status = %s", tel.ExecutionStatus)
	}
}

func TestExecute_ResolvesReferencesAcrossStages(t *testing.T) {
	log := newDispatchLog()
	var (
		mu       sync.Mutex
		received graph.Params
	)
	reg := registry.New()
	_ = reg.Register("producer", okExec(log, map[string]any{"count": float64(5)}))
	_ = reg.Register("consumer", strategy.Func(func(ctx context.Context, params graph.Params, userID string) (*runtime.NodeResult, error) {
		log.mark(params)
		mu.Lock()
		received = params
		mu.Unlock()
		id, _ := params["node_id"].(string)
		return &runtime.NodeResult{Success: true, NodeID: id}, nil
	}))

	a := execNode("a", "producer", 1, "")
	b := execNode("b", "consumer", 2, "", "a")
	b.Strategy.Params = graph.Params{"limit": "{{a.count}}", "query": "invoice"}

	_, err := New(reg, PolicyStrict).Execute(context.Background(), execGraph(a, b), "u1")
	if err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	if received["limit"] != float64(5) {
		t.Fatalf("reference not resolved: %v", received["limit"])
	}
	if received["query"] != "invoice" {
		t.Fatalf("literal param mangled: %v", received["query"])
	}
	if received["node_id"] != "b" {
		t.Fatalf("node_id not injected: %v", received["node_id"])
	}
}

func TestExecute_ResultAwareReceivesPriorResults(t *testing.T) {
	log := newDispatchLog()
	reg := registry.New()
	_ = reg.Register("producer", okExec(log, "alpha"))
	_ = reg.Register("cross_reference", &strategy.CrossReferenceSimulator{})

	a := execNode("a", "producer", 1, "")
	x := execNode("x", "cross_reference", 2, "", "a")
	x.Strategy.Params = graph.Params{"sources": []any{"a"}}

	results, err := New(reg, PolicyStrict).Execute(context.Background(), execGraph(a, x), "u1")
	if err != nil {
		t.Fatal(err)
	}
	combined, ok := results.Nodes.Get("x").Data.(map[string]any)
	if !ok || combined["a"] != "alpha" {
		t.Fatalf("cross-reference did not see prior results: %+v", results.Nodes.Get("x"))
	}
}

func TestExecute_PanicBecomesFailedResult(t *testing.T) {
	log := newDispatchLog()
	reg := registry.New()
	_ = reg.Register("panicky", strategy.Func(func(ctx context.Context, params graph.Params, userID string) (*runtime.NodeResult, error) {
		log.mark(params)
		panic("nil map write")
	}))

	g := execGraph(execNode("a", "panicky", 1, ""))
	results, err := New(reg, PolicyGraceful).Execute(context.Background(), g, "u1")
	if err != nil {
		t.Fatal(err)
	}
	res := results.Nodes.Get("a")
	if res == nil || res.Success {
		t.Fatalf("panic not converted to failure: %+v", res)
	}
	if res.Error != fmt.Sprintf("panic: %v", "nil map write") {
		t.Fatalf("error = %q", res.Error)
	}
}

func TestExecute_NilStrategyResultBecomesFailure(t *testing.T) {
	log := newDispatchLog()
	reg := registry.New()
	_ = reg.Register("empty", strategy.Func(func(ctx context.Context, params graph.Params, userID string) (*runtime.NodeResult, error) {
		log.mark(params)
		return nil, nil
	}))

	g := execGraph(execNode("a", "empty", 1, ""))
	results, err := New(reg, PolicyGraceful).Execute(context.Background(), g, "u1")
	if err != nil {
		t.Fatal(err)
	}
	res := results.Nodes.Get("a")
	if res == nil || res.Success || res.Error == "" {
		t.Fatalf("nil result not converted to failure: %+v", res)
	}
}

func TestExecute_UnregisteredTypeIsFatal(t *testing.T) {
	log := newDispatchLog()
	reg := registry.New()
	_ = reg.Register("ok", okExec(log, "data"))

	g := execGraph(
		execNode("a", "ok", 1, ""),
		execNode("b", "mystery", 1, ""),
	)

	_, err := New(reg, PolicyGraceful).Execute(context.Background(), g, "u1")
	var nf *registry.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *registry.NotFoundError, got %T: %v", err, err)
	}
	// The whole stage is rejected before any dispatch.
	if log.saw("a") {
		t.Fatal("sibling dispatched despite the registry miss")
	}
}

func TestNew_PolicyDefaults(t *testing.T) {
	c := New(registry.New(), "")
	if c.policy != PolicyGraceful {
		t.Fatalf("default policy = %s", c.policy)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("nil registry must panic")
		}
	}()
	New(nil, PolicyStrict)
}
