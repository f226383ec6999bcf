package rules

// ruleSchema is the structural contract for rule-configuration
// documents. Semantic invariants that JSON schema cannot express
// (weight sums, cross-field consistency) are enforced by validateRule.
const ruleSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "standard_version", "rules"],
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "last_updated": {"type": "string"},
    "standard_version": {"type": "string", "minLength": 1},
    "rules": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "object",
        "required": ["name", "required_metadata", "required_table_fields", "checks"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "required_metadata": {
            "type": "array",
            "items": {"type": "string", "minLength": 1}
          },
          "required_table_fields": {
            "type": "array",
            "items": {"type": "string", "minLength": 1}
          },
          "requires_image": {"type": "boolean"},
          "standard_references": {
            "type": "array",
            "minItems": 1,
            "items": {"type": "string", "minLength": 1}
          },
          "checks": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["kind", "weight"],
              "properties": {
                "kind": {"type": "string"},
                "weight": {"type": "number", "exclusiveMinimum": 0, "maximum": 1}
              },
              "additionalProperties": false
            }
          },
          "content_rules": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["field", "op"],
              "properties": {
                "field": {"type": "string", "minLength": 1},
                "op": {"type": "string", "enum": ["one_of", "non_empty", "matches"]},
                "values": {"type": "array", "items": {"type": "string"}},
                "pattern": {"type": "string"}
              },
              "additionalProperties": false
            }
          }
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`
