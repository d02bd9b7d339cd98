package coordinator

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jmhart/scout/internal/graph"
	"github.com/jmhart/scout/internal/runtime"
)

// referenceToken matches a whole-value inter-node reference like
// {{threads.count}} or {{search.items.0.id}}. Substitution is whole-value
// only: a token is never interpolated into a larger string, and a resolved
// object or array is passed through as-is rather than stringified.
var referenceToken = regexp.MustCompile(`^\{\{([^{}\s]+)\}\}$`)

// resolveParams walks the params tree and substitutes reference tokens from
// the recorded results. It returns a new tree; the input is never mutated.
// Resolution never fails: a reference to a missing node, a failed node, or
// an absent path segment resolves to nil.
func resolveParams(params graph.Params, prev runtime.ResultSet) graph.Params {
	if params == nil {
		return nil
	}
	out := make(graph.Params, len(params))
	for k, v := range params {
		out[k] = resolveValue(v, prev)
	}
	return out
}

func resolveValue(v any, prev runtime.ResultSet) any {
	switch t := v.(type) {
	case string:
		m := referenceToken.FindStringSubmatch(t)
		if m == nil {
			return t
		}
		return resolveReference(m[1], prev)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = resolveValue(val, prev)
		}
		return out
	case graph.Params:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = resolveValue(val, prev)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = resolveValue(val, prev)
		}
		return out
	default:
		return v
	}
}

// resolveReference navigates "nodeId.field.subfield" into the referenced
// node's result data.
func resolveReference(ref string, prev runtime.ResultSet) any {
	segs := strings.Split(ref, ".")
	res := prev.Get(segs[0])
	if res == nil || !res.Success {
		return nil
	}
	return navigate(res.Data, segs[1:])
}

func navigate(data any, segs []string) any {
	cur := data
	for _, seg := range segs {
		switch t := cur.(type) {
		case map[string]any:
			v, ok := t[seg]
			if !ok {
				return nil
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(t) {
				return nil
			}
			cur = t[idx]
		default:
			return nil
		}
	}
	return cur
}
