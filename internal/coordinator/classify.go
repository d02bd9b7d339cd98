package coordinator

import "strings"

// retryableHints classifies a failure as retryable when its message carries
// one of these markers. Deliberately crude: this is a reporting aid consumed
// by humans and by the synthesis layer's messaging, not a retry mechanism,
// and the observable telemetry depends on it staying exactly this.
var retryableHints = []string{"timeout", "rate limit", "503", "429"}

// IsRetryable reports whether an error message looks transient.
func IsRetryable(errMsg string) bool {
	lower := strings.ToLower(errMsg)
	for _, hint := range retryableHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// impactByType describes, per strategy type, what capability degrades when a
// node of that type fails.
var impactByType = map[string]string{
	"metadata_filter":   "Inbox filtering results may be incomplete",
	"keyword_search":    "Text search results may be incomplete",
	"semantic_search":   "Semantic matches may be missing",
	"batch_thread_read": "Full message content unavailable for some threads",
	"cross_reference":   "Combined ranking across sources unavailable",
	"urgency_detection": "Urgency assessment unavailable",
	"contact_lookup":    "Sender context unavailable",
}

const genericImpact = "Some functionality unavailable"

// ImpactFor returns the degradation description for a node type.
func ImpactFor(nodeType string) string {
	if s, ok := impactByType[nodeType]; ok {
		return s
	}
	return genericImpact
}
