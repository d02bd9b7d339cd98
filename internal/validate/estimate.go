package validate

import (
	"fmt"
	"math"

	"github.com/jmhart/scout/internal/graph"
)

// Macro-bound thresholds for the planner's resource estimate. Exceeding one
// does not block execution; the warning asks the planner to reduce scope.
const (
	maxTotalItems           = 500
	maxEstimatedTokens      = 50_000
	maxEstimatedTimeSeconds = 30.0

	// confirmTokenThreshold is where a plan is expensive enough that the
	// user should explicitly approve it before execution.
	confirmTokenThreshold = 20_000

	// costPerThousandTokensUSD backs the cross-check of the planner's own
	// cost figure against its token estimate.
	costPerThousandTokensUSD = 0.003
	costTolerance            = 0.5
)

func lintResourceEstimate(g *graph.ExecutionGraph) []Diagnostic {
	est := g.ResourceEstimate
	if est == nil {
		return nil // resource_estimate_present already errored
	}

	var diags []Diagnostic
	if est.TotalItems > maxTotalItems {
		diags = append(diags, Diagnostic{
			Rule:     "estimate_items_bounded",
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("estimated %d items exceeds %d; consider reducing scope", est.TotalItems, maxTotalItems),
		})
	}
	if est.EstimatedTokens > maxEstimatedTokens {
		diags = append(diags, Diagnostic{
			Rule:     "estimate_tokens_bounded",
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("estimated %d tokens exceeds %d; consider reducing scope", est.EstimatedTokens, maxEstimatedTokens),
		})
	}
	if est.EstimatedTimeSeconds > maxEstimatedTimeSeconds {
		diags = append(diags, Diagnostic{
			Rule:     "estimate_time_bounded",
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("estimated %.0f seconds exceeds %.0f; consider reducing scope", est.EstimatedTimeSeconds, maxEstimatedTimeSeconds),
		})
	}

	if est.EstimatedTokens > 0 && est.EstimatedCostUSD > 0 {
		expected := float64(est.EstimatedTokens) / 1000 * costPerThousandTokensUSD
		if math.Abs(est.EstimatedCostUSD-expected) > expected*costTolerance {
			diags = append(diags, Diagnostic{
				Rule:     "estimate_cost_consistent",
				Severity: SeverityWarning,
				Message: fmt.Sprintf("estimated_cost_usd %.4f disagrees with token-derived cost %.4f (±%.0f%%)",
					est.EstimatedCostUSD, expected, costTolerance*100),
			})
		}
	}

	if est.EstimatedTokens > confirmTokenThreshold && !est.RequiresConfirmation {
		diags = append(diags, Diagnostic{
			Rule:     "estimate_confirmation_flagged",
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("plan estimates %d tokens but does not set requires_confirmation", est.EstimatedTokens),
			Fix:      "set resource_estimate.requires_confirmation",
		})
	}
	return diags
}
