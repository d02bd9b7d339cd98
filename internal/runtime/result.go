// Package runtime holds the shared result and telemetry types produced by
// one coordinator execution. Everything here is created fresh inside a
// single Execute call and discarded once the caller consumes the Results.
package runtime

import (
	"fmt"
	"strings"
)

type ExecutionStatus string

const (
	StatusComplete ExecutionStatus = "complete"
	StatusPartial  ExecutionStatus = "partial"
	StatusFailed   ExecutionStatus = "failed"
)

func ParseExecutionStatus(s string) (ExecutionStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "complete", "ok":
		return StatusComplete, nil
	case "partial", "partial_success":
		return StatusPartial, nil
	case "failed", "fail", "failure":
		return StatusFailed, nil
	default:
		return "", fmt.Errorf("invalid execution status: %q", s)
	}
}

// NodeResult is the outcome of one node. The coordinator creates exactly one
// per node, from the strategy's return value or from a caught failure, and
// never mutates it afterwards.
type NodeResult struct {
	Success    bool   `json:"success"`
	NodeID     string `json:"node_id"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	TokensUsed int    `json:"tokens_used"`
}

// NodeFailure is the reporting record for a node that failed. IsRetryable is
// a keyword heuristic over the error message, a reporting aid only; nothing
// in the core acts on it.
type NodeFailure struct {
	NodeID      string `json:"node_id"`
	NodeType    string `json:"node_type"`
	Importance  string `json:"importance"`
	Reason      string `json:"reason"`
	IsRetryable bool   `json:"is_retryable"`
	Impact      string `json:"impact"`
}

type Telemetry struct {
	TotalNodes      int             `json:"total_nodes"`
	SuccessfulNodes int             `json:"successful_nodes"`
	FailedNodes     int             `json:"failed_nodes"`
	FallbacksUsed   int             `json:"fallbacks_used"`
	ExecutionStatus ExecutionStatus `json:"execution_status"`
	Failures        []NodeFailure   `json:"failures"`
}

// ResultSet maps node id to its recorded result. It has exactly one writer
// (the coordinator) and each id is written at most once.
type ResultSet map[string]*NodeResult

// Record stores a result under its node id. Recording the same id twice is a
// coordinator bug and panics rather than silently overwriting telemetry input.
func (rs ResultSet) Record(r *NodeResult) {
	if r == nil || r.NodeID == "" {
		panic("runtime: recording empty node result")
	}
	if _, dup := rs[r.NodeID]; dup {
		panic(fmt.Sprintf("runtime: result for node %q recorded twice", r.NodeID))
	}
	rs[r.NodeID] = r
}

// Get returns the recorded result for a node id, or nil.
func (rs ResultSet) Get(nodeID string) *NodeResult {
	return rs[nodeID]
}

// Clone returns a shallow copy. The coordinator hands clones to concurrently
// running strategies so the live set only ever has single-threaded access;
// the shared *NodeResult values are immutable once recorded.
func (rs ResultSet) Clone() ResultSet {
	out := make(ResultSet, len(rs))
	for k, v := range rs {
		out[k] = v
	}
	return out
}

// Results is the full output of one coordinator execution.
type Results struct {
	RunID            string    `json:"run_id"`
	GraphFingerprint string    `json:"graph_fingerprint"`
	UserID           string    `json:"user_id,omitempty"`
	Nodes            ResultSet `json:"node_results"`
	Telemetry        Telemetry `json:"telemetry"`
}

// StatusFor derives the overall execution status from counts per the
// completion contract: failed only when every node failed, partial when some
// did, complete otherwise.
func StatusFor(total, failed int) ExecutionStatus {
	switch {
	case failed > 0 && failed == total:
		return StatusFailed
	case failed > 0:
		return StatusPartial
	default:
		return StatusComplete
	}
}
