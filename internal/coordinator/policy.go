package coordinator

import (
	"fmt"
	"strings"
)

// FailurePolicy selects, once per Execute call, how a stage treats node
// failures.
type FailurePolicy string

const (
	// PolicyStrict aborts the whole call on the first failure in a stage.
	// Development and testing use it to surface every bug immediately.
	PolicyStrict FailurePolicy = "strict"
	// PolicyHybrid aborts only on critical-node failures; everything else
	// is tolerated and reported.
	PolicyHybrid FailurePolicy = "hybrid"
	// PolicyGraceful tolerates every failure. Production default: maximize
	// the number of nodes that produce usable output.
	PolicyGraceful FailurePolicy = "graceful"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "graceful":
		return PolicyGraceful, nil
	case "hybrid":
		return PolicyHybrid, nil
	case "strict":
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("invalid failure policy: %q", s)
	}
}
