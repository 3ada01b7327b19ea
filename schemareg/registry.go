// Package schemareg keeps the per-stream JSON Schema validators used by the
// ingestion stage. Validation runs against the unflattened record shape,
// before flattening.
package schemareg

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/saeedzareian/target-parquet/errors"
)

// Registry binds stream names to compiled schema validators. It is owned by
// the single ingestion goroutine and is not safe for concurrent mutation.
type Registry struct {
	validators    map[string]*gojsonschema.Schema
	keyProperties map[string][]string
}

// NewRegistry creates an empty validator registry
func NewRegistry() *Registry {
	return &Registry{
		validators:    make(map[string]*gojsonschema.Schema),
		keyProperties: make(map[string][]string),
	}
}

// Register compiles and binds a schema for a stream. A later schema for the
// same stream replaces the earlier one.
func (r *Registry) Register(stream string, schemaDoc json.RawMessage, keyProperties []string) error {
	loader := gojsonschema.NewBytesLoader(schemaDoc)
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return errors.WrapParse(err, "Registry", "Register", fmt.Sprintf("compile schema for stream %s", stream))
	}
	r.validators[stream] = schema
	r.keyProperties[stream] = keyProperties
	return nil
}

// Has reports whether a schema has been registered for the stream
func (r *Registry) Has(stream string) bool {
	_, ok := r.validators[stream]
	return ok
}

// KeyProperties returns the key properties registered for the stream
func (r *Registry) KeyProperties(stream string) []string {
	return r.keyProperties[stream]
}

// Validate checks a record against its stream's registered schema. A record
// for a stream with no registered schema is a protocol error. A validation
// failure carries the record and a human-readable description of every
// violation; by policy it is fatal for the run.
func (r *Registry) Validate(stream string, record map[string]any) error {
	schema, ok := r.validators[stream]
	if !ok {
		return errors.WrapProtocol(
			fmt.Errorf("a record for stream %s was encountered before a corresponding schema: %w",
				stream, errors.ErrProtocol),
			"Registry", "Validate", "schema lookup")
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(record))
	if err != nil {
		return errors.WrapValidation(err, "Registry", "Validate", fmt.Sprintf("validate record for stream %s", stream))
	}
	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, violation := range result.Errors() {
			descriptions = append(descriptions, fmt.Sprintf("%s: %s", violation.Field(), violation.Description()))
		}
		return errors.WrapValidation(
			fmt.Errorf("record %v failed schema validation: %s: %w",
				record, strings.Join(descriptions, "; "), errors.ErrValidation),
			"Registry", "Validate", fmt.Sprintf("record for stream %s", stream))
	}
	return nil
}
