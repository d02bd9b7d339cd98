// Package validate is the last line of defense between the planner and the
// coordinator: it checks structure, semantics, and bounds of an execution
// graph before any task runs. All rules are collected into diagnostics;
// nothing short-circuits, and warnings never block execution.
package validate

import (
	"fmt"

	"github.com/jmhart/scout/internal/graph"
)

type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

type Diagnostic struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	NodeID   string   `json:"node_id,omitempty"`
	Fix      string   `json:"fix,omitempty"`
}

// Result is the caller-facing summary of a validation pass. Valid means no
// error-severity diagnostics; the caller decides whether to proceed on a
// warnings-only graph.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// AllowedTypes is the fixed allow-list of strategy type names the planner may
// emit. Registration at startup must cover exactly this set; an unknown type
// in a graph is a planner bug, not an extension point.
var AllowedTypes = map[string]bool{
	"metadata_filter":   true,
	"keyword_search":    true,
	"semantic_search":   true,
	"batch_thread_read": true,
	"cross_reference":   true,
	"urgency_detection": true,
	"contact_lookup":    true,
}

// Validate runs every rule against the graph and returns the collected
// diagnostics in rule order.
func Validate(g *graph.ExecutionGraph) []Diagnostic {
	if g == nil {
		return []Diagnostic{{Rule: "graph_nil", Severity: SeverityError, Message: "graph is nil"}}
	}
	var diags []Diagnostic
	diags = append(diags, lintRequiredFields(g)...)
	diags = append(diags, lintNodes(g)...)
	diags = append(diags, lintMetadataFilters(g)...)
	diags = append(diags, lintBounds(g)...)
	diags = append(diags, lintDependenciesExist(g)...)
	diags = append(diags, lintCycles(g)...)
	diags = append(diags, lintParallelGroups(g)...)
	diags = append(diags, lintResourceEstimate(g)...)
	return diags
}

// Summarize folds diagnostics into the valid/errors/warnings contract.
func Summarize(diags []Diagnostic) Result {
	res := Result{Errors: []string{}, Warnings: []string{}}
	for _, d := range diags {
		msg := d.Message
		if d.NodeID != "" {
			msg = fmt.Sprintf("%s (node %s)", d.Message, d.NodeID)
		}
		switch d.Severity {
		case SeverityError:
			res.Errors = append(res.Errors, d.Rule+": "+msg)
		default:
			res.Warnings = append(res.Warnings, d.Rule+": "+msg)
		}
	}
	res.Valid = len(res.Errors) == 0
	return res
}

func lintRequiredFields(g *graph.ExecutionGraph) []Diagnostic {
	var diags []Diagnostic
	if g.QueryClassification == "" {
		diags = append(diags, Diagnostic{
			Rule:     "query_classification_present",
			Severity: SeverityError,
			Message:  "graph is missing query_classification",
		})
	}
	if len(g.InformationNeeds) == 0 {
		diags = append(diags, Diagnostic{
			Rule:     "information_needs_present",
			Severity: SeverityError,
			Message:  "graph has no information_needs",
		})
	}
	if g.SynthesisInstructions == "" {
		diags = append(diags, Diagnostic{
			Rule:     "synthesis_instructions_present",
			Severity: SeverityError,
			Message:  "graph is missing synthesis_instructions",
		})
	}
	if g.ResourceEstimate == nil {
		diags = append(diags, Diagnostic{
			Rule:     "resource_estimate_present",
			Severity: SeverityError,
			Message:  "graph is missing resource_estimate",
		})
	}
	return diags
}

func lintNodes(g *graph.ExecutionGraph) []Diagnostic {
	var diags []Diagnostic
	seen := map[string]bool{}
	for i := range g.InformationNeeds {
		n := &g.InformationNeeds[i]
		if seen[n.ID] {
			diags = append(diags, Diagnostic{
				Rule:     "node_id_unique",
				Severity: SeverityError,
				Message:  fmt.Sprintf("duplicate node id %q", n.ID),
				NodeID:   n.ID,
			})
		}
		seen[n.ID] = true

		if n.Type == "" {
			diags = append(diags, Diagnostic{
				Rule:     "node_type_present",
				Severity: SeverityError,
				Message:  "node has no type",
				NodeID:   n.ID,
			})
		} else if !AllowedTypes[n.Type] {
			diags = append(diags, Diagnostic{
				Rule:     "node_type_known",
				Severity: SeverityError,
				Message:  fmt.Sprintf("unknown strategy type %q", n.Type),
				NodeID:   n.ID,
			})
		}

		if n.Strategy.Method == "" {
			diags = append(diags, Diagnostic{
				Rule:     "strategy_method_present",
				Severity: SeverityError,
				Message:  "node strategy has no method",
				NodeID:   n.ID,
			})
		}
		if n.Strategy.Params == nil {
			diags = append(diags, Diagnostic{
				Rule:     "strategy_params_present",
				Severity: SeverityError,
				Message:  "node strategy has no params",
				NodeID:   n.ID,
			})
		}
		if n.ParallelGroup < 1 {
			diags = append(diags, Diagnostic{
				Rule:     "parallel_group_valid",
				Severity: SeverityError,
				Message:  fmt.Sprintf("parallel_group must be >= 1 (got %d)", n.ParallelGroup),
				NodeID:   n.ID,
			})
		}
		if n.ExpectedCost == "" {
			diags = append(diags, Diagnostic{
				Rule:     "expected_cost_present",
				Severity: SeverityError,
				Message:  "node has no expected_cost",
				NodeID:   n.ID,
			})
		}
	}
	return diags
}

func lintDependenciesExist(g *graph.ExecutionGraph) []Diagnostic {
	ids := g.NodeIDs()
	var diags []Diagnostic
	for i := range g.InformationNeeds {
		n := &g.InformationNeeds[i]
		for _, dep := range n.DependsOn {
			if !ids[dep] {
				diags = append(diags, Diagnostic{
					Rule:     "dependency_exists",
					Severity: SeverityError,
					Message:  fmt.Sprintf("depends_on references missing node %q", dep),
					NodeID:   n.ID,
				})
			}
		}
	}
	return diags
}
