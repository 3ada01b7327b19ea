// Package flatten implements the record and schema flattening engine: the pure
// functions that normalize nested Singer structures into flat column mappings.
package flatten

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/saeedzareian/target-parquet/errors"
)

// DefaultSeparator joins parent and child keys in flattened names.
const DefaultSeparator = "__"

// MaxDepth bounds structural recursion so behavior does not depend on stack
// size for pathologically nested input.
const MaxDepth = 64

// Row is a flattened record: leaf field name to scalar-or-string value.
// Arrays are rendered to their canonical list string, never expanded.
type Row map[string]any

// Record flattens a record's fields by recursively descending into nested
// mappings, joining parent and child keys with sep. Sequences are converted
// to their canonical string form and treated as leaves. Keys are visited in
// sorted order, so when two nested paths collide on the same flattened key
// the later key in sort order wins (last-write-wins, deterministic).
func Record(fields map[string]any, sep string) (Row, error) {
	if sep == "" {
		sep = DefaultSeparator
	}
	row := make(Row, len(fields))
	if err := flattenInto(row, fields, "", sep, 0); err != nil {
		return nil, err
	}
	return row, nil
}

func flattenInto(row Row, fields map[string]any, parent, sep string, depth int) error {
	if depth > MaxDepth {
		return errors.WrapParse(
			fmt.Errorf("nesting exceeds %d levels", MaxDepth),
			"Flatten", "Record", "descend record")
	}
	for _, key := range sortedKeys(fields) {
		value := fields[key]
		name := key
		if parent != "" {
			name = parent + sep + key
		}
		switch v := value.(type) {
		case map[string]any:
			if err := flattenInto(row, v, name, sep, depth+1); err != nil {
				return err
			}
		case []any:
			row[name] = canonicalList(v)
		default:
			row[name] = value
		}
	}
	return nil
}

// Schema flattens a JSON Schema "properties" object into the sorted set of
// leaf field names. Nodes whose declared type includes "object" are descended
// into; all other nodes contribute their flattened key. A node missing a type
// descriptor gets a limited-support warning and is treated as a leaf.
func Schema(properties map[string]any, sep string) ([]string, error) {
	if sep == "" {
		sep = DefaultSeparator
	}
	var keys []string
	if err := flattenSchemaInto(&keys, properties, "", sep, 0); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func flattenSchemaInto(keys *[]string, properties map[string]any, parent, sep string, depth int) error {
	if depth > MaxDepth {
		return errors.WrapParse(
			fmt.Errorf("nesting exceeds %d levels", MaxDepth),
			"Flatten", "Schema", "descend schema")
	}
	for _, key := range sortedKeys(properties) {
		name := key
		if parent != "" {
			name = parent + sep + key
		}
		node, ok := properties[key].(map[string]any)
		if !ok {
			*keys = append(*keys, name)
			continue
		}
		types, declared := node["type"]
		if !declared {
			slog.Warn("schema field has limited support: no type descriptor, treating as leaf",
				"field", key, "node", node)
			*keys = append(*keys, name)
			continue
		}
		if typeIncludes(types, "object") {
			children, _ := node["properties"].(map[string]any)
			if err := flattenSchemaInto(keys, children, name, sep, depth+1); err != nil {
				return err
			}
			continue
		}
		*keys = append(*keys, name)
	}
	return nil
}

// typeIncludes reports whether a schema type descriptor (string or list of
// strings) names the given type.
func typeIncludes(types any, want string) bool {
	switch t := types.(type) {
	case string:
		return t == want
	case []any:
		for _, entry := range t {
			if s, ok := entry.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

// canonicalList renders a sequence to its canonical string form: elements
// joined by ", " inside brackets, strings single-quoted, everything else in
// its JSON representation. ["10","11"] renders as "['10', '11']".
func canonicalList(list []any) string {
	parts := make([]string, len(list))
	for i, elem := range list {
		parts[i] = canonicalValue(elem)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func canonicalValue(value any) string {
	switch v := value.(type) {
	case string:
		return "'" + v + "'"
	case []any:
		return canonicalList(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
