// Package graph defines the execution graph produced by the upstream
// planner. The core treats a decoded graph as read-only input; validation
// and execution live in their own packages.
package graph

import (
	"fmt"
	"strings"
)

type Importance string

const (
	ImportanceCritical  Importance = "critical"
	ImportanceImportant Importance = "important"
	ImportanceOptional  Importance = "optional"
)

// ParseImportance accepts the planner's spelling variants. An empty value
// defaults to important; anything unrecognized is an error so a typo in a
// planner prompt cannot silently demote a critical node.
func ParseImportance(s string) (Importance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ImportanceImportant, nil
	case "critical":
		return ImportanceCritical, nil
	case "important":
		return ImportanceImportant, nil
	case "optional":
		return ImportanceOptional, nil
	default:
		return "", fmt.Errorf("invalid importance: %q", s)
	}
}

// Params is the arbitrary JSON-like parameter tree of a node strategy. String
// leaves may be whole-value reference tokens of the form {{nodeId.field}}.
type Params map[string]any

type NodeStrategy struct {
	Method string `json:"method" yaml:"method"`
	Params Params `json:"params" yaml:"params"`
}

type InformationNode struct {
	ID            string       `json:"id" yaml:"id"`
	Type          string       `json:"type" yaml:"type"`
	Strategy      NodeStrategy `json:"strategy" yaml:"strategy"`
	DependsOn     []string     `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	ParallelGroup int          `json:"parallel_group" yaml:"parallel_group"`
	Importance    Importance   `json:"importance,omitempty" yaml:"importance,omitempty"`
	ExpectedCost  string       `json:"expected_cost" yaml:"expected_cost"`
}

// EffectiveImportance normalizes the node's importance, defaulting to
// important when the planner omitted the field.
func (n *InformationNode) EffectiveImportance() Importance {
	imp, err := ParseImportance(string(n.Importance))
	if err != nil {
		return ImportanceImportant
	}
	return imp
}

// ResourceEstimate is the planner's own cost projection for the whole graph.
// The validator cross-checks it; the coordinator never reads it.
type ResourceEstimate struct {
	TotalItems           int     `json:"total_items" yaml:"total_items"`
	EstimatedTokens      int     `json:"estimated_tokens" yaml:"estimated_tokens"`
	EstimatedTimeSeconds float64 `json:"estimated_time_seconds" yaml:"estimated_time_seconds"`
	EstimatedCostUSD     float64 `json:"estimated_cost_usd" yaml:"estimated_cost_usd"`
	RequiresConfirmation bool    `json:"requires_confirmation,omitempty" yaml:"requires_confirmation,omitempty"`
}

type ExecutionGraph struct {
	QueryClassification   string            `json:"query_classification" yaml:"query_classification"`
	InformationNeeds      []InformationNode `json:"information_needs" yaml:"information_needs"`
	SynthesisInstructions string            `json:"synthesis_instructions" yaml:"synthesis_instructions"`
	ResourceEstimate      *ResourceEstimate `json:"resource_estimate" yaml:"resource_estimate"`
}

// Node returns the node with the given id, or nil.
func (g *ExecutionGraph) Node(id string) *InformationNode {
	for i := range g.InformationNeeds {
		if g.InformationNeeds[i].ID == id {
			return &g.InformationNeeds[i]
		}
	}
	return nil
}

// NodeIDs returns the set of declared node ids, including duplicates'
// first occurrence only.
func (g *ExecutionGraph) NodeIDs() map[string]bool {
	ids := make(map[string]bool, len(g.InformationNeeds))
	for i := range g.InformationNeeds {
		ids[g.InformationNeeds[i].ID] = true
	}
	return ids
}
