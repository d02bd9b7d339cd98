package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jmhart/scout/internal/graph"
)

// Metadata filter policy. The planner sometimes emits filters in shapes the
// mail backend cannot evaluate: non-native spellings that have an exact
// native rewrite, and semantic predicates that need a dedicated strategy
// node. Rewritable forms are accepted (normalized at execution time);
// semantic predicates are hard errors pointing the planner at the right
// strategy type.

// filterNormalizations rewrites common non-native filter spellings into the
// accepted query syntax.
var filterNormalizations = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`^isRead=false$`), "is:unread"},
	{regexp.MustCompile(`^isRead=true$`), "is:read"},
	{regexp.MustCompile(`^unread$`), "is:unread"},
	{regexp.MustCompile(`^sender:(.+)$`), "from:$1"},
	{regexp.MustCompile(`^recipient:(.+)$`), "to:$1"},
	{regexp.MustCompile(`^date_range:(\d+)d$`), "newer_than:${1}d"},
	{regexp.MustCompile(`^last_(\d+)_days$`), "newer_than:${1}d"},
	{regexp.MustCompile(`^has_attachment$`), "has:attachment"},
}

// filterDenylist names semantic predicates that cannot be expressed as plain
// metadata filters. Each maps to the strategy type the planner should have
// used instead.
var filterDenylist = map[string]string{
	"isurgent":         "urgency_detection",
	"priority":         "urgency_detection",
	"requiresresponse": "urgency_detection",
	"sendertype":       "contact_lookup",
	"text_contains":    "keyword_search",
	"sort_by":          "cross_reference",
	"group_by":         "cross_reference",
}

// acceptedFilterPrefixes is the native query syntax allow-list.
var acceptedFilterPrefixes = []string{
	"from:", "to:", "subject:", "has:", "is:", "label:",
	"newer_than:", "older_than:", "in:", "after:", "before:",
}

// NormalizeFilter rewrites a non-native filter into accepted syntax. It
// returns the (possibly unchanged) filter and whether a rewrite applied.
func NormalizeFilter(filter string) (string, bool) {
	f := strings.TrimSpace(filter)
	for _, n := range filterNormalizations {
		if n.pattern.MatchString(f) {
			return n.pattern.ReplaceAllString(f, n.replace), true
		}
	}
	return f, false
}

// CheckFilter classifies one filter string under the metadata filter policy.
// A nil return means the filter is acceptable as-is or after normalization.
func CheckFilter(nodeID, filter string) *Diagnostic {
	f := strings.TrimSpace(filter)
	if f == "" {
		return nil
	}

	lower := strings.ToLower(f)
	for term, strategyType := range filterDenylist {
		if lower == term || strings.HasPrefix(lower, term+":") || strings.HasPrefix(lower, term+"=") {
			return &Diagnostic{
				Rule:     "filter_semantic_denied",
				Severity: SeverityError,
				Message:  fmt.Sprintf("filter %q is a semantic predicate that metadata filtering cannot express", f),
				NodeID:   nodeID,
				Fix:      fmt.Sprintf("use a dedicated %s node instead", strategyType),
			}
		}
	}

	if normalized, ok := NormalizeFilter(f); ok {
		f = normalized
	}
	for _, prefix := range acceptedFilterPrefixes {
		if strings.HasPrefix(f, prefix) {
			return nil
		}
	}
	return &Diagnostic{
		Rule:     "filter_syntax_unknown",
		Severity: SeverityError,
		Message:  fmt.Sprintf("filter %q is not in accepted query syntax and has no known normalization", filter),
		NodeID:   nodeID,
		Fix:      "use one of the accepted prefixes: " + strings.Join(acceptedFilterPrefixes, " "),
	}
}

func lintMetadataFilters(g *graph.ExecutionGraph) []Diagnostic {
	var diags []Diagnostic
	for i := range g.InformationNeeds {
		n := &g.InformationNeeds[i]
		if n.Type != "metadata_filter" || n.Strategy.Params == nil {
			continue
		}
		for _, f := range filterStrings(n.Strategy.Params) {
			if d := CheckFilter(n.ID, f); d != nil {
				diags = append(diags, *d)
			}
		}
	}
	return diags
}

// filterStrings collects filter values from both the singular "filter" key
// and the "filters" array form the planner uses interchangeably.
func filterStrings(params graph.Params) []string {
	var out []string
	if s, ok := params["filter"].(string); ok {
		out = append(out, s)
	}
	if arr, ok := params["filters"].([]any); ok {
		for _, v := range arr {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func lintBounds(g *graph.ExecutionGraph) []Diagnostic {
	var diags []Diagnostic
	for i := range g.InformationNeeds {
		n := &g.InformationNeeds[i]
		if n.Strategy.Params == nil {
			continue
		}
		has := func(key string) bool {
			_, ok := n.Strategy.Params[key]
			return ok
		}
		switch n.Type {
		case "metadata_filter", "keyword_search":
			if !has("max_results") {
				diags = append(diags, Diagnostic{
					Rule:     "bounded_results",
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("%s node has no max_results; the call is unbounded", n.Type),
					NodeID:   n.ID,
					Fix:      "set params.max_results",
				})
			}
		case "batch_thread_read":
			if !has("batch_size") {
				diags = append(diags, Diagnostic{
					Rule:     "bounded_batch",
					Severity: SeverityWarning,
					Message:  "batch_thread_read node has no batch_size",
					NodeID:   n.ID,
					Fix:      "set params.batch_size",
				})
			}
		case "cross_reference":
			if !has("take_top") && !has("max_results") {
				diags = append(diags, Diagnostic{
					Rule:     "bounded_results",
					Severity: SeverityWarning,
					Message:  "cross_reference node has neither take_top nor max_results",
					NodeID:   n.ID,
					Fix:      "set params.take_top or params.max_results",
				})
			}
		}
	}
	return diags
}
