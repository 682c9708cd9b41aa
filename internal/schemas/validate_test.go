package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestValidate_ExperienceImport(t *testing.T) {
	tests := []struct {
		name      string
		document  string
		wantError bool
	}{
		{
			name:     "bare list",
			document: `[{"title": "Payments API", "content": "Built the ledger", "skills": ["Go"]}]`,
		},
		{
			name:     "wrapped list",
			document: `{"experiences": [{"id": "exp-1", "type": "work", "title": "Payments API", "content": "Built the ledger"}]}`,
		},
		{
			name:     "null date range",
			document: `[{"title": "Search", "content": "Tuned ranking", "date_range": null}]`,
		},
		{
			name:      "missing content",
			document:  `[{"title": "Payments API"}]`,
			wantError: true,
		},
		{
			name:      "skills not a list",
			document:  `[{"title": "Payments API", "content": "x", "skills": "Go"}]`,
			wantError: true,
		},
		{
			name:      "object without experiences",
			document:  `{"items": []}`,
			wantError: true,
		},
		{
			name:      "empty title",
			document:  `[{"title": "", "content": "x"}]`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(ExperienceImport, []byte(tt.document))
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.NotEmpty(t, validationErr.Errors)
		})
	}
}

func TestValidate_MalformedJSON(t *testing.T) {
	err := Validate(ExperienceImport, []byte("{ invalid json }"))
	require.Error(t, err)
	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("missing.schema.json", []byte(`{}`))
	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "missing.schema.json", loadErr.Path)
	assert.Contains(t, err.Error(), "no such embedded schema")
}

func TestValidateValue_YAMLDocument(t *testing.T) {
	doc := `
experiences:
  - title: Payments API
    content: Built the ledger
    skills: [Go, Postgres]
`
	var value any
	require.NoError(t, yaml.Unmarshal([]byte(doc), &value))
	assert.NoError(t, ValidateValue(ExperienceImport, value))

	require.NoError(t, yaml.Unmarshal([]byte("experiences:\n  - title: Missing content\n"), &value))
	assert.Error(t, ValidateValue(ExperienceImport, value))
}

func TestSchema_Embedded(t *testing.T) {
	content, err := Schema(ExperienceImport)
	require.NoError(t, err)
	assert.Contains(t, content, `"experiences"`)
}

func TestValidateJSONString_Valid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`

	assert.NoError(t, ValidateJSONString(schemaContent, `{"name": "test"}`))
}

func TestValidateJSONString_NestedField(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["person"],
		"properties": {
			"person": {
				"type": "object",
				"required": ["name"],
				"properties": {
					"name": {"type": "string"}
				}
			}
		}
	}`

	err := ValidateJSONString(schemaContent, `{"person": {}}`)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	require.Len(t, validationErr.Errors, 1)
	assert.Equal(t, "person", validationErr.Errors[0].Field)
}

func TestValidateJSONString_RootField(t *testing.T) {
	err := ValidateJSONString(`{"type": "array"}`, `{}`)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "(root)", validationErr.Errors[0].Field)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Errors: []FieldError{
			{Field: "name", Message: "is required"},
			{Field: "age", Message: "must be a number"},
		},
	}

	errorMsg := err.Error()
	assert.Contains(t, errorMsg, "validation failed")
	assert.Contains(t, errorMsg, "1. name: is required")
	assert.Contains(t, errorMsg, "2. age: must be a number")
}
