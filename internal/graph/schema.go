package graph

// documentSchema is the structural contract for a planner graph document.
// It gates decoding only: semantic rules (type allow-list, filter policy,
// cycles, bounds) belong to the validate package, which reports them as
// collected diagnostics instead of a single decode error.
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["information_needs"],
  "properties": {
    "query_classification": {"type": "string"},
    "synthesis_instructions": {"type": "string"},
    "information_needs": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"type": "string"},
          "strategy": {
            "type": "object",
            "properties": {
              "method": {"type": "string"},
              "params": {"type": "object"}
            }
          },
          "depends_on": {"type": "array", "items": {"type": "string"}},
          "parallel_group": {"type": "integer"},
          "importance": {"type": "string"},
          "expected_cost": {"type": "string"}
        }
      }
    },
    "resource_estimate": {
      "type": "object",
      "properties": {
        "total_items": {"type": "integer", "minimum": 0},
        "estimated_tokens": {"type": "integer", "minimum": 0},
        "estimated_time_seconds": {"type": "number", "minimum": 0},
        "estimated_cost_usd": {"type": "number", "minimum": 0},
        "requires_confirmation": {"type": "boolean"}
      }
    }
  }
}`
