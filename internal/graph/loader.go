package graph

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func compiledDocumentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("graph.schema.json", strings.NewReader(documentSchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = c.Compile("graph.schema.json")
	})
	return compiledSchema, schemaErr
}

// Load reads a planner graph document from disk. Files ending in .yaml or
// .yml are decoded as YAML; everything else is treated as JSON.
func Load(path string) (*ExecutionGraph, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(b)
	default:
		return Decode(b)
	}
}

// Decode parses a JSON graph document, checking it against the embedded
// structural schema before unmarshaling into the typed model.
func Decode(b []byte) (*ExecutionGraph, error) {
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("graph document is not valid JSON: %w", err)
	}
	return decodeDocument(doc)
}

// DecodeYAML parses a YAML graph document through the same schema gate as
// JSON, so a planner emitting either format hits identical structural rules.
func DecodeYAML(b []byte) (*ExecutionGraph, error) {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("graph document is not valid YAML: %w", err)
	}
	return decodeDocument(normalizeYAML(doc))
}

func decodeDocument(doc any) (*ExecutionGraph, error) {
	s, err := compiledDocumentSchema()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(doc); err != nil {
		return nil, fmt.Errorf("graph document rejected by schema: %w", err)
	}
	// Round-trip through JSON so both input formats share one decode path.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var g ExecutionGraph
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// normalizeYAML rewrites map[any]any trees (yaml.v3 emits them for non-string
// keys) into map[string]any so the JSON round-trip cannot fail.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}

// Fingerprint returns the blake3 digest of the graph's canonical JSON
// encoding. Logs and results carry it so a run can be tied back to the exact
// planner output that produced it.
func Fingerprint(g *ExecutionGraph) string {
	b, err := json.Marshal(g)
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}
