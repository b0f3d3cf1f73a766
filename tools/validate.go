package tools

import (
	"fmt"
	"math"
)

// ValidationIssue describes one problem found while checking arguments
// against a tool's input schema. Issues are returned to the reasoning loop
// inside a validation_error envelope so the agent can retry with corrected
// arguments.
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateArgs checks args against the schema produced by the helpers in
// schema.go: required fields, primitive types, enum membership, and numeric
// minimum/maximum bounds. Unknown extra fields are tolerated.
//
// This is deliberately the subset of JSON Schema the built-in tools use, not
// a general validator.
func ValidateArgs(schema map[string]interface{}, args map[string]interface{}) []ValidationIssue {
	var issues []ValidationIssue

	properties, _ := schema["properties"].(map[string]interface{})

	for _, name := range requiredFields(schema) {
		if _, ok := args[name]; !ok {
			issues = append(issues, ValidationIssue{Field: name, Message: "field is required"})
		}
	}

	for name, raw := range args {
		propRaw, ok := properties[name]
		if !ok {
			continue
		}
		prop, ok := propRaw.(map[string]interface{})
		if !ok {
			continue
		}
		issues = append(issues, checkProperty(name, prop, raw)...)
	}

	return issues
}

func requiredFields(schema map[string]interface{}) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []interface{}:
		out := make([]string, 0, len(req))
		for _, v := range req {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func checkProperty(name string, prop map[string]interface{}, value interface{}) []ValidationIssue {
	var issues []ValidationIssue

	typ, _ := prop["type"].(string)
	switch typ {
	case "string":
		s, ok := value.(string)
		if !ok {
			return []ValidationIssue{{Field: name, Message: "expected a string"}}
		}
		if enum, ok := prop["enum"].([]string); ok && !containsString(enum, s) {
			issues = append(issues, ValidationIssue{
				Field:   name,
				Message: fmt.Sprintf("must be one of %v", enum),
			})
		}

	case "number":
		n, ok := asFloat(value)
		if !ok {
			return []ValidationIssue{{Field: name, Message: "expected a number"}}
		}
		issues = append(issues, checkBounds(name, prop, n)...)

	case "integer":
		n, ok := asFloat(value)
		if !ok || n != math.Trunc(n) {
			return []ValidationIssue{{Field: name, Message: "expected an integer"}}
		}
		issues = append(issues, checkBounds(name, prop, n)...)

	case "boolean":
		if _, ok := value.(bool); !ok {
			return []ValidationIssue{{Field: name, Message: "expected a boolean"}}
		}

	case "array":
		if _, ok := value.([]interface{}); !ok {
			return []ValidationIssue{{Field: name, Message: "expected an array"}}
		}
	}

	return issues
}

func checkBounds(name string, prop map[string]interface{}, n float64) []ValidationIssue {
	var issues []ValidationIssue
	if min, ok := asFloat(prop["minimum"]); ok && n < min {
		issues = append(issues, ValidationIssue{
			Field:   name,
			Message: fmt.Sprintf("must be >= %v", min),
		})
	}
	if max, ok := asFloat(prop["maximum"]); ok && n > max {
		issues = append(issues, ValidationIssue{
			Field:   name,
			Message: fmt.Sprintf("must be <= %v", max),
		})
	}
	return issues
}

// asFloat accepts the numeric representations that show up in decoded JSON
// and in hand-built schema maps.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
