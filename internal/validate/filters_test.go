package validate

import (
	"strings"
	"testing"

	"github.com/jmhart/scout/internal/graph"
)

func TestNormalizeFilter(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		rewrote bool
	}{
		{"isRead=false", "is:unread", true},
		{"isRead=true", "is:read", true},
		{"unread", "is:unread", true},
		{"sender:alice@example.com", "from:alice@example.com", true},
		{"recipient:bob@example.com", "to:bob@example.com", true},
		{"date_range:7d", "newer_than:7d", true},
		{"last_30_days", "newer_than:30d", true},
		{"has_attachment", "has:attachment", true},
		{"from:alice@example.com", "from:alice@example.com", false},
		{"is:unread", "is:unread", false},
	}
	for _, tc := range cases {
		got, rewrote := NormalizeFilter(tc.in)
		if got != tc.want || rewrote != tc.rewrote {
			t.Errorf("NormalizeFilter(%q) = %q, %v; want %q, %v", tc.in, got, rewrote, tc.want, tc.rewrote)
		}
	}
}

func TestCheckFilter_Denylist(t *testing.T) {
	for filter, wantStrategy := range map[string]string{
		"isUrgent":          "urgency_detection",
		"priority:high":     "urgency_detection",
		"requiresResponse":  "urgency_detection",
		"senderType=vendor": "contact_lookup",
		"text_contains:foo": "keyword_search",
		"sort_by:date":      "cross_reference",
		"group_by:sender":   "cross_reference",
	} {
		d := CheckFilter("n1", filter)
		if d == nil {
			t.Fatalf("CheckFilter(%q) = nil, want filter_semantic_denied", filter)
		}
		if d.Rule != "filter_semantic_denied" || d.Severity != SeverityError {
			t.Errorf("CheckFilter(%q) = %+v, want filter_semantic_denied error", filter, d)
		}
		if !strings.Contains(d.Fix, wantStrategy) {
			t.Errorf("CheckFilter(%q) fix %q does not name %s", filter, d.Fix, wantStrategy)
		}
	}
}

func TestCheckFilter_AcceptedAndNormalized(t *testing.T) {
	for _, filter := range []string{
		"", "  ",
		"from:alice@example.com",
		"newer_than:7d",
		"label:invoices",
		"isRead=false",      // normalizes to is:unread
		"last_7_days",       // normalizes to newer_than:7d
		"sender:x@corp.com", // normalizes to from:
	} {
		if d := CheckFilter("n1", filter); d != nil {
			t.Errorf("CheckFilter(%q) = %+v, want nil", filter, d)
		}
	}
}

func TestCheckFilter_UnknownSyntax(t *testing.T) {
	d := CheckFilter("n1", "starred_by:me")
	if d == nil || d.Rule != "filter_syntax_unknown" || d.Severity != SeverityError {
		t.Fatalf("CheckFilter unknown syntax = %+v", d)
	}
}

func TestLintMetadataFilters_BothParamShapes(t *testing.T) {
	single := node("a", "metadata_filter", 1)
	single.Strategy.Params = graph.Params{"filter": "isUrgent", "max_results": float64(10)}

	multi := node("b", "metadata_filter", 1)
	multi.Strategy.Params = graph.Params{
		"filters":     []any{"from:x@y.com", "sort_by:date"},
		"max_results": float64(10),
	}

	// Non-metadata nodes are exempt from the filter policy.
	other := node("c", "keyword_search", 1)
	other.Strategy.Params = graph.Params{"filter": "isUrgent", "max_results": float64(10)}

	diags := lintMetadataFilters(validGraph(single, multi, other))
	if len(diags) != 2 {
		t.Fatalf("expected 2 diagnostics, got %+v", diags)
	}
	if diags[0].NodeID != "a" || diags[1].NodeID != "b" {
		t.Fatalf("unexpected node attribution: %+v", diags)
	}
}

func TestLintBounds(t *testing.T) {
	unboundedSearch := node("a", "keyword_search", 1)
	unboundedSearch.Strategy.Params = graph.Params{"query": "invoice"}

	unboundedBatch := node("b", "batch_thread_read", 1)
	unboundedBatch.Strategy.Params = graph.Params{"thread_ids": []any{}}

	unboundedXref := node("c", "cross_reference", 2, "a")
	unboundedXref.Strategy.Params = graph.Params{"sources": []any{"a"}}

	boundedXref := node("d", "cross_reference", 2, "a")
	boundedXref.Strategy.Params = graph.Params{"sources": []any{"a"}, "take_top": float64(5)}

	diags := lintBounds(validGraph(unboundedSearch, unboundedBatch, unboundedXref, boundedXref))
	if len(diags) != 3 {
		t.Fatalf("expected 3 warnings, got %+v", diags)
	}
	for _, d := range diags {
		if d.Severity != SeverityWarning {
			t.Errorf("bounds diagnostics must be warnings, got %+v", d)
		}
	}
	assertHasRule(t, diags, "bounded_results", SeverityWarning)
	assertHasRule(t, diags, "bounded_batch", SeverityWarning)
}
