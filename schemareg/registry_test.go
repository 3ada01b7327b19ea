package schemareg

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saeedzareian/target-parquet/errors"
)

const userSchema = `{
	"type": "object",
	"properties": {
		"id": {"type": "integer"},
		"name": {"type": "string"}
	},
	"required": ["id"]
}`

func TestRegisterAndValidate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("users", json.RawMessage(userSchema), []string{"id"}))

	assert.True(t, reg.Has("users"))
	assert.False(t, reg.Has("orders"))
	assert.Equal(t, []string{"id"}, reg.KeyProperties("users"))

	err := reg.Validate("users", map[string]any{"id": 1, "name": "ada"})
	assert.NoError(t, err)
}

func TestValidateRejectsViolations(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("users", json.RawMessage(userSchema), nil))

	tests := []struct {
		name   string
		record map[string]any
	}{
		{"missing required field", map[string]any{"name": "ada"}},
		{"wrong type", map[string]any{"id": "not-a-number"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := reg.Validate("users", test.record)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err), "expected validation error, got: %v", err)
		})
	}
}

func TestValidateRecordBeforeSchema(t *testing.T) {
	reg := NewRegistry()

	err := reg.Validate("orders", map[string]any{"id": 1})
	require.Error(t, err)
	assert.True(t, errors.IsProtocol(err), "expected protocol error, got: %v", err)
}

func TestRegisterReplacesSchema(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("users", json.RawMessage(userSchema), []string{"id"}))

	// Looser replacement schema accepts what the first rejected.
	replacement := `{"type": "object", "properties": {"id": {"type": "string"}}}`
	require.NoError(t, reg.Register("users", json.RawMessage(replacement), nil))

	assert.NoError(t, reg.Validate("users", map[string]any{"id": "now-a-string"}))
}

func TestRegisterBadSchema(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register("users", json.RawMessage(`{"type": 42}`), nil)
	require.Error(t, err)
	assert.True(t, errors.IsParse(err))
}
