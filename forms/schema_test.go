package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInitialValues(t *testing.T) {
	variables := []Variable{
		{Name: "name", Type: TypeString},
		{Name: "notes", Type: TypeText},
		{Name: "enabled", Type: TypeBool},
		{Name: "top_k", Type: TypeInt},
		{Name: "threshold", Type: TypeFloat},
	}

	values := BuildInitialValues(variables)
	assert.Equal(t, "", values["name"])
	assert.Equal(t, "", values["notes"])
	assert.Equal(t, false, values["enabled"])
	assert.Equal(t, 0, values["top_k"])
	assert.Equal(t, 0.0, values["threshold"])
}

func TestDeriveRequiredTracksAttachmentCount(t *testing.T) {
	variables := QueryEngineVariables()

	find := func(vars []Variable, name string) Variable {
		for _, v := range vars {
			if v.Name == name {
				return v
			}
		}
		t.Fatalf("variable %s not found", name)
		return Variable{}
	}

	// No attachments: the document source must be provided.
	derived := DeriveRequired(variables, Context{AttachmentCount: 0})
	assert.True(t, find(derived, "document_source").Required)

	// Attachments present: the document source becomes optional.
	derived = DeriveRequired(variables, Context{AttachmentCount: 2})
	assert.False(t, find(derived, "document_source").Required)

	// Recomputation flips it back; nothing is cached.
	derived = DeriveRequired(variables, Context{AttachmentCount: 0})
	assert.True(t, find(derived, "document_source").Required)

	// The source list is never mutated.
	assert.True(t, find(variables, "document_source").Required)
}

func TestStripServerManagedIsIdempotent(t *testing.T) {
	values := map[string]interface{}{
		"name":                  "claims-engine",
		"description":           "claims corpus",
		"id":                    "qe-123",
		"created_by":            "alice",
		"created_time":          "2024-01-01T00:00:00Z",
		"last_modified_by":      "bob",
		"last_modified_time":    "2024-02-01T00:00:00Z",
		"archived_at_timestamp": "2024-03-01T00:00:00Z",
		"archived_by":           "carol",
		"deleted_at_timestamp":  "2024-04-01T00:00:00Z",
		"deleted_by":            "dave",
	}

	once := StripServerManaged(values)
	assert.Equal(t, map[string]interface{}{
		"name":        "claims-engine",
		"description": "claims corpus",
	}, once)

	twice := StripServerManaged(once)
	assert.Equal(t, once, twice)
}

func TestMergeExisting(t *testing.T) {
	defaults := map[string]interface{}{
		"name":        "",
		"description": "",
		"retrieval": map[string]interface{}{
			"top_k": 4,
			"mode":  "hybrid",
		},
	}
	existing := map[string]interface{}{
		"name": "claims-engine",
		"retrieval": map[string]interface{}{
			"top_k": 10,
		},
	}

	merged := MergeExisting(defaults, existing)

	// Existing values win; defaults fill the gaps, including nested maps.
	assert.Equal(t, "claims-engine", merged["name"])
	assert.Equal(t, "", merged["description"])
	retrieval, ok := merged["retrieval"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 10, retrieval["top_k"])
	assert.Equal(t, "hybrid", retrieval["mode"])
}
