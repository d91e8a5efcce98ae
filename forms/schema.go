package forms

// Type is the declared value type of a form field.
type Type string

const (
	TypeString Type = "string"
	TypeText   Type = "text"
	TypeBool   Type = "bool"
	TypeInt    Type = "int"
	TypeFloat  Type = "float"
)

// Rule constrains a field's value. Zero values mean "no constraint".
type Rule struct {
	MinLength int
	MaxLength int
	Pattern   string
	Minimum   *float64
	Maximum   *float64
}

// Variable describes one field of a dynamic form.
type Variable struct {
	Name  string
	Label string
	Type  Type
	// Required marks the field mandatory. For the document-source field this
	// is a baseline; DeriveRequired recomputes it from live context.
	Required bool
	Rule     Rule
	// DocumentSource marks the field whose required-ness depends on whether
	// attachments are present.
	DocumentSource bool
	// ServerManaged fields are stripped from outgoing payloads.
	ServerManaged bool
}

// Context is the live state that required-ness can depend on.
type Context struct {
	AttachmentCount int
}

// serverManagedFields are never client-writable, whatever the variable list
// says.
var serverManagedFields = map[string]bool{
	"id":                    true,
	"created_by":            true,
	"created_time":          true,
	"last_modified_by":      true,
	"last_modified_time":    true,
	"archived_at_timestamp": true,
	"archived_by":           true,
	"deleted_at_timestamp":  true,
	"deleted_by":            true,
}

// BuildInitialValues returns the default value mapping for a variable list:
// empty string, false or zero per declared type.
func BuildInitialValues(variables []Variable) map[string]interface{} {
	values := make(map[string]interface{}, len(variables))
	for _, v := range variables {
		switch v.Type {
		case TypeBool:
			values[v.Name] = false
		case TypeInt:
			values[v.Name] = 0
		case TypeFloat:
			values[v.Name] = 0.0
		default:
			values[v.Name] = ""
		}
	}
	return values
}

// MergeExisting deep-merges schema defaults with an existing resource's
// field values for edit mode. Existing values win; defaults fill gaps.
func MergeExisting(defaults, existing map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(defaults))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range existing {
		if sub, ok := v.(map[string]interface{}); ok {
			if base, ok := merged[k].(map[string]interface{}); ok {
				merged[k] = MergeExisting(base, sub)
				continue
			}
		}
		merged[k] = v
	}
	return merged
}

// DeriveRequired re-evaluates required flags against the given context and
// returns a fresh variable list. It must be called again on every context
// change; results are never cached.
func DeriveRequired(variables []Variable, ctx Context) []Variable {
	derived := make([]Variable, len(variables))
	copy(derived, variables)
	for i := range derived {
		if derived[i].DocumentSource {
			derived[i].Required = ctx.AttachmentCount == 0
		}
	}
	return derived
}

// StripServerManaged removes server-managed fields from an outgoing payload.
// Stripping twice yields the same result as stripping once.
func StripServerManaged(values map[string]interface{}) map[string]interface{} {
	stripped := make(map[string]interface{}, len(values))
	for k, v := range values {
		if serverManagedFields[k] {
			continue
		}
		stripped[k] = v
	}
	return stripped
}

// QueryEngineVariables is the field list for creating or editing a query
// engine resource.
func QueryEngineVariables() []Variable {
	return []Variable{
		{
			Name:     "name",
			Label:    "Name",
			Type:     TypeString,
			Required: true,
			Rule:     Rule{MaxLength: 32, Pattern: `^[A-Za-z0-9][A-Za-z0-9 _-]*$`},
		},
		{
			Name:  "description",
			Label: "Description",
			Type:  TypeText,
			Rule:  Rule{MaxLength: 256},
		},
		{
			Name:           "document_source",
			Label:          "Document source",
			Type:           TypeString,
			Required:       true,
			DocumentSource: true,
			Rule:           Rule{MaxLength: 512},
		},
		{
			Name:  "similarity_top_k",
			Label: "Similarity top K",
			Type:  TypeInt,
			Rule:  Rule{Minimum: floatPtr(0), Maximum: floatPtr(20)},
		},
		{Name: "id", Type: TypeString, ServerManaged: true},
		{Name: "created_by", Type: TypeString, ServerManaged: true},
		{Name: "created_time", Type: TypeString, ServerManaged: true},
		{Name: "last_modified_by", Type: TypeString, ServerManaged: true},
		{Name: "last_modified_time", Type: TypeString, ServerManaged: true},
	}
}

func floatPtr(f float64) *float64 {
	return &f
}
