package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infererrors "github.com/newspulse/enrich/internal/infer/errors"
	"github.com/newspulse/enrich/internal/infer/schema"
)

func themeSchema() *schema.Schema {
	return schema.ListOf(schema.Record("Theme",
		schema.Field{Name: "rownum", Schema: schema.Integer()},
		schema.Field{Name: "kw", Schema: schema.String()},
	))
}

// TestValidate verifies structural validation across the shape union: every
// mismatch must surface as a fatal validation error, never a coercion.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		schema  *schema.Schema
		payload string
		wantErr bool
	}{
		{"string ok", schema.String(), `"hello"`, false},
		{"string got number", schema.String(), `42`, true},
		{"integer ok", schema.Integer(), `42`, false},
		{"integer got float", schema.Integer(), `4.5`, true},
		{"number accepts integer", schema.Number(), `42`, false},
		{"boolean ok", schema.Boolean(), `true`, false},
		{"boolean got string", schema.Boolean(), `"true"`, true},
		{"null fails", schema.String(), `null`, true},
		{"list of strings ok", schema.ListOf(schema.String()), `["a","b"]`, false},
		{"empty list ok", schema.ListOf(schema.String()), `[]`, false},
		{"list element mismatch", schema.ListOf(schema.String()), `["a",1]`, true},
		{"list got scalar", schema.ListOf(schema.String()), `"a"`, true},
		{"record list ok", themeSchema(), `[{"rownum":0,"kw":"PROTESTS"}]`, false},
		{"record missing field", themeSchema(), `[{"rownum":0}]`, true},
		{"record extra field tolerated", themeSchema(), `[{"rownum":0,"kw":"X","extra":true}]`, false},
		{"record field type mismatch", themeSchema(), `[{"rownum":"0","kw":"X"}]`, true},
		{"not json", schema.String(), `{"unterminated`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate(json.RawMessage(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				var valErr *infererrors.ValidationError
				require.ErrorAs(t, err, &valErr)
				assert.False(t, infererrors.IsRetryable(err), "validation errors must be fatal")
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestValidate_ErrorPath verifies the JSON path reported for nested failures.
func TestValidate_ErrorPath(t *testing.T) {
	err := themeSchema().Validate(json.RawMessage(`[{"rownum":0,"kw":"A"},{"rownum":1,"kw":2}]`))
	require.Error(t, err)

	var valErr *infererrors.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "$[1].kw", valErr.Path)
}

// TestDescribe verifies the compact rendering used in cache keys, which must
// distinguish any two schemas that validate differently.
func TestDescribe(t *testing.T) {
	assert.Equal(t, "string", schema.String().Describe())
	assert.Equal(t, "list<string>", schema.ListOf(schema.String()).Describe())
	assert.Equal(t, "Theme{rownum:integer,kw:string}", themeSchema().Elem().Describe())
}

// TestServiceSchema verifies the generateContent responseSchema rendering,
// including field ordering for records.
func TestServiceSchema(t *testing.T) {
	rendered := themeSchema().ServiceSchema()
	assert.Equal(t, "ARRAY", rendered["type"])

	items, ok := rendered["items"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "OBJECT", items["type"])
	assert.Equal(t, []string{"rownum", "kw"}, items["propertyOrdering"])
	assert.Equal(t, []string{"rownum", "kw"}, items["required"])

	props, ok := items["properties"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"type": "INTEGER"}, props["rownum"])
	assert.Equal(t, map[string]any{"type": "STRING"}, props["kw"])
}
