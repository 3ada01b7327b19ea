// Package message defines the Singer protocol message model and the line
// classifier that turns raw input lines into tagged messages.
package message

import (
	"encoding/json"
	"fmt"

	"github.com/saeedzareian/target-parquet/errors"
)

// Kind tags a classified message. KindEOF is internal only and never appears
// on the wire; it terminates the pipeline's hand-off channel.
type Kind int

const (
	// KindRecord is a data record for a stream
	KindRecord Kind = iota
	// KindState is an opaque checkpoint candidate from the tap
	KindState
	// KindSchema declares or replaces a stream's schema
	KindSchema
	// KindEOF is the internal end-of-input sentinel
	KindEOF
	// KindUnknown is any unrecognized wire type; logged and skipped
	KindUnknown
)

// String returns a human-readable representation of the message kind
func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "RECORD"
	case KindState:
		return "STATE"
	case KindSchema:
		return "SCHEMA"
	case KindEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Message is the decoded Singer envelope. Fields are populated according to
// the wire type: RECORD carries Stream+Record, SCHEMA carries
// Stream+Schema+KeyProperties, STATE carries Value.
type Message struct {
	Type          string          `json:"type"`
	Stream        string          `json:"stream,omitempty"`
	Record        map[string]any  `json:"record,omitempty"`
	Schema        json.RawMessage `json:"schema,omitempty"`
	Value         json.RawMessage `json:"value,omitempty"`
	KeyProperties []string        `json:"key_properties,omitempty"`
}

// Kind maps the wire type string to a Kind tag
func (m *Message) Kind() Kind {
	switch m.Type {
	case "RECORD":
		return KindRecord
	case "STATE":
		return KindState
	case "SCHEMA":
		return KindSchema
	default:
		return KindUnknown
	}
}

// SchemaProperties extracts the "properties" object from a SCHEMA message's
// schema document. A schema without properties yields an empty map.
func (m *Message) SchemaProperties() (map[string]any, error) {
	var doc struct {
		Properties map[string]any `json:"properties"`
	}
	if err := json.Unmarshal(m.Schema, &doc); err != nil {
		return nil, errors.WrapParse(err, "Message", "SchemaProperties", "decode schema document")
	}
	if doc.Properties == nil {
		return map[string]any{}, nil
	}
	return doc.Properties, nil
}

// Classify decodes one input line into a tagged Message. A line that is not
// a syntactically valid JSON object is a parse error, which is fatal for the
// run: partial or ambiguous input must not be silently dropped.
func Classify(line []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, errors.WrapParse(
			fmt.Errorf("%w: %w", errors.ErrParse, err),
			"Classifier", "Classify", "decode line")
	}
	switch msg.Kind() {
	case KindRecord:
		if msg.Stream == "" {
			return nil, errors.WrapParse(errors.ErrMissingStream, "Classifier", "Classify", "record message")
		}
		if msg.Record == nil {
			return nil, errors.WrapParse(errors.ErrMissingPayload, "Classifier", "Classify", "record message")
		}
	case KindSchema:
		if msg.Stream == "" {
			return nil, errors.WrapParse(errors.ErrMissingStream, "Classifier", "Classify", "schema message")
		}
		if len(msg.Schema) == 0 {
			return nil, errors.WrapParse(errors.ErrMissingPayload, "Classifier", "Classify", "schema message")
		}
	}
	return &msg, nil
}
