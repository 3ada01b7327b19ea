package flatten

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saeedzareian/target-parquet/errors"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &fields))
	return fields
}

func TestRecordNestedExample(t *testing.T) {
	fields := decode(t, `{
		"key_1": 1,
		"key_2": {
			"key_3": 2,
			"key_4": {
				"key_5": 3,
				"key_6": ["10", "11"]
			}
		}
	}`)

	row, err := Record(fields, DefaultSeparator)
	require.NoError(t, err)

	assert.Equal(t, Row{
		"key_1":               float64(1),
		"key_2__key_3":        float64(2),
		"key_2__key_4__key_5": float64(3),
		"key_2__key_4__key_6": "['10', '11']",
	}, row)
}

func TestRecordFlatIsIdentity(t *testing.T) {
	fields := decode(t, `{"a": 1, "b": "two", "c": true, "d": null}`)

	row, err := Record(fields, DefaultSeparator)
	require.NoError(t, err)

	assert.Equal(t, Row{
		"a": float64(1),
		"b": "two",
		"c": true,
		"d": nil,
	}, row)
}

func TestRecordArraysAreLeaves(t *testing.T) {
	fields := decode(t, `{
		"tags": ["a", "b"],
		"scores": [1, 2.5],
		"mixed": [["x"], {"k": 1}]
	}`)

	row, err := Record(fields, DefaultSeparator)
	require.NoError(t, err)

	assert.Equal(t, "['a', 'b']", row["tags"])
	assert.Equal(t, "[1, 2.5]", row["scores"])
	assert.Equal(t, `[['x'], {"k":1}]`, row["mixed"])
}

func TestRecordCustomSeparator(t *testing.T) {
	fields := decode(t, `{"outer": {"inner": 1}}`)

	row, err := Record(fields, ".")
	require.NoError(t, err)

	assert.Equal(t, Row{"outer.inner": float64(1)}, row)
}

func TestRecordCollisionLastWriteWins(t *testing.T) {
	// "a__b" the literal key sorts before "a" the nested map? Sorted key
	// order at the top level is ["a", "a__b"], so the nested path is written
	// first and the literal key overwrites it.
	fields := map[string]any{
		"a":    map[string]any{"b": "nested"},
		"a__b": "literal",
	}

	row, err := Record(fields, DefaultSeparator)
	require.NoError(t, err)

	assert.Equal(t, Row{"a__b": "literal"}, row)
}

func TestRecordDepthBound(t *testing.T) {
	fields := map[string]any{}
	cursor := fields
	for i := 0; i <= MaxDepth+1; i++ {
		next := map[string]any{}
		cursor["n"] = next
		cursor = next
	}
	cursor["leaf"] = 1

	_, err := Record(fields, DefaultSeparator)
	require.Error(t, err)
	assert.True(t, errors.IsParse(err))
}

func TestSchemaNestedExample(t *testing.T) {
	properties := decode(t, `{
		"key_1": {"type": ["null", "integer"]},
		"key_2": {
			"type": ["null", "object"],
			"properties": {
				"key_3": {"type": ["null", "string"]},
				"key_4": {
					"type": ["null", "object"],
					"properties": {
						"key_5": {"type": ["null", "integer"]},
						"key_6": {
							"type": ["null", "array"],
							"items": {
								"type": ["null", "object"],
								"properties": {
									"key_7": {"type": ["null", "number"]},
									"key_8": {"type": ["null", "string"]}
								}
							}
						}
					}
				}
			}
		}
	}`)

	keys, err := Schema(properties, DefaultSeparator)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"key_1",
		"key_2__key_3",
		"key_2__key_4__key_5",
		"key_2__key_4__key_6",
	}, keys)
}

func TestSchemaMissingTypeIsLeaf(t *testing.T) {
	properties := decode(t, `{
		"documented": {"type": ["null", "string"]},
		"mystery": {"description": "no type here"}
	}`)

	keys, err := Schema(properties, DefaultSeparator)
	require.NoError(t, err)

	assert.Equal(t, []string{"documented", "mystery"}, keys)
}

func TestSchemaScalarTypeString(t *testing.T) {
	properties := decode(t, `{
		"plain": {"type": "integer"},
		"nested": {"type": "object", "properties": {"leaf": {"type": "string"}}}
	}`)

	keys, err := Schema(properties, DefaultSeparator)
	require.NoError(t, err)

	assert.Equal(t, []string{"nested__leaf", "plain"}, keys)
}

// Record keys must always be a subset of the stream's flattened schema keys
// when the record conforms to the schema.
func TestRecordKeysSubsetOfSchemaKeys(t *testing.T) {
	properties := decode(t, `{
		"key_1": {"type": ["null", "integer"]},
		"key_2": {
			"type": ["null", "object"],
			"properties": {
				"key_3": {"type": ["null", "string"]},
				"key_4": {
					"type": ["null", "object"],
					"properties": {
						"key_5": {"type": ["null", "integer"]},
						"key_6": {"type": ["null", "array"]}
					}
				}
			}
		}
	}`)
	fields := decode(t, `{
		"key_1": 1,
		"key_2": {"key_3": "x", "key_4": {"key_5": 3, "key_6": ["10", "11"]}}
	}`)

	schemaKeys, err := Schema(properties, DefaultSeparator)
	require.NoError(t, err)
	row, err := Record(fields, DefaultSeparator)
	require.NoError(t, err)

	allowed := make(map[string]bool, len(schemaKeys))
	for _, key := range schemaKeys {
		allowed[key] = true
	}
	for key := range row {
		assert.True(t, allowed[key], "flattened record key %q not in schema key set %v", key, schemaKeys)
	}
}
