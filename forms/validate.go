package forms

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string
	Message string
}

// Result reports validation failures by count rather than by panic or
// thrown error, so a caller can disable submit reactively.
type Result struct {
	Fields []FieldError
}

// ErrorCount returns the number of invalid fields.
func (r *Result) ErrorCount() int {
	return len(r.Fields)
}

// Valid reports whether the form may be submitted.
func (r *Result) Valid() bool {
	return len(r.Fields) == 0
}

// First returns the first invalid field, or nil when the form is valid.
func (r *Result) First() *FieldError {
	if len(r.Fields) == 0 {
		return nil
	}
	return &r.Fields[0]
}

// Schema is a compiled validation rule set for one variable list.
type Schema struct {
	compiled *gojsonschema.Schema
}

// BuildValidation compiles a variable list into a validation schema. The
// overrides map lets a caller strengthen a declared rule per field without
// mutating the schema source; an override can only tighten a constraint.
func BuildValidation(variables []Variable, overrides map[string]Rule) (*Schema, error) {
	properties := make(map[string]interface{})
	var required []string

	for _, v := range variables {
		if v.ServerManaged {
			continue
		}

		rule := v.Rule
		if override, ok := overrides[v.Name]; ok {
			rule = tighten(rule, override)
		}

		prop := map[string]interface{}{"type": jsonType(v.Type)}
		switch v.Type {
		case TypeString, TypeText:
			minLen := rule.MinLength
			if v.Required && minLen < 1 {
				minLen = 1
			}
			if minLen > 0 {
				prop["minLength"] = minLen
			}
			if rule.MaxLength > 0 {
				prop["maxLength"] = rule.MaxLength
			}
			if rule.Pattern != "" {
				prop["pattern"] = rule.Pattern
			}
		case TypeInt, TypeFloat:
			if rule.Minimum != nil {
				prop["minimum"] = *rule.Minimum
			}
			if rule.Maximum != nil {
				prop["maximum"] = *rule.Maximum
			}
		}

		properties[v.Name] = prop
		if v.Required {
			required = append(required, v.Name)
		}
	}

	doc := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to compile validation schema: %w", err)
	}

	return &Schema{compiled: compiled}, nil
}

// Validate checks a value mapping against the schema and reports per-field
// errors.
func (s *Schema) Validate(values map[string]interface{}) (*Result, error) {
	outcome, err := s.compiled.Validate(gojsonschema.NewGoLoader(values))
	if err != nil {
		return nil, fmt.Errorf("failed to run validation: %w", err)
	}

	result := &Result{}
	for _, issue := range outcome.Errors() {
		field := issue.Field()
		if field == "(root)" {
			if prop, ok := issue.Details()["property"].(string); ok {
				field = prop
			}
		}
		result.Fields = append(result.Fields, FieldError{
			Field:   field,
			Message: issue.Description(),
		})
	}

	return result, nil
}

// tighten merges an override into a base rule, keeping the stricter side of
// every constraint.
func tighten(base, override Rule) Rule {
	merged := base
	if override.MaxLength > 0 && (merged.MaxLength == 0 || override.MaxLength < merged.MaxLength) {
		merged.MaxLength = override.MaxLength
	}
	if override.MinLength > merged.MinLength {
		merged.MinLength = override.MinLength
	}
	if override.Pattern != "" {
		merged.Pattern = override.Pattern
	}
	if override.Minimum != nil && (merged.Minimum == nil || *override.Minimum > *merged.Minimum) {
		merged.Minimum = override.Minimum
	}
	if override.Maximum != nil && (merged.Maximum == nil || *override.Maximum < *merged.Maximum) {
		merged.Maximum = override.Maximum
	}
	return merged
}

// jsonType maps a declared field type to its JSON Schema type.
func jsonType(t Type) string {
	switch t {
	case TypeBool:
		return "boolean"
	case TypeInt:
		return "integer"
	case TypeFloat:
		return "number"
	default:
		return "string"
	}
}
