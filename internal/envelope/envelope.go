// Package envelope strips wrapper objects that some REST backends put around
// their payloads, e.g. {"result": [...]} or {"data": {...}}.
package envelope

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// DefaultField is the wrapper key used when none is configured.
const DefaultField = "result"

// Unwrap returns the JSON document stored under field. Bodies that are not
// objects, or objects without field, are returned unchanged. When the wrapped
// value is itself a JSON-encoded string (possibly quoted several times) the
// inner document is returned instead.
func Unwrap(body []byte, field string) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	if field == "" {
		field = DefaultField
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return append([]byte(nil), trimmed...)
	}
	inner, ok := wrapper[field]
	if !ok || inner == nil {
		return append([]byte(nil), trimmed...)
	}

	var asString string
	if err := json.Unmarshal(inner, &asString); err == nil {
		if doc, ok := decodeEmbedded(asString); ok {
			return doc
		}
	}
	return append([]byte(nil), inner...)
}

// Wrap places an encoded document under field.
func Wrap(doc []byte, field string) ([]byte, error) {
	if field == "" {
		field = DefaultField
	}
	if len(bytes.TrimSpace(doc)) == 0 {
		doc = []byte("null")
	}
	return json.Marshal(map[string]json.RawMessage{field: doc})
}

func decodeEmbedded(s string) ([]byte, bool) {
	decoded := s
	for i := 0; i < 4; i++ {
		unquoted, err := strconv.Unquote(decoded)
		if err != nil {
			break
		}
		decoded = unquoted
	}
	var doc json.RawMessage
	if err := json.Unmarshal([]byte(decoded), &doc); err != nil {
		return nil, false
	}
	// A plain word such as "hello" is not an embedded document.
	if len(doc) > 0 && doc[0] == '"' {
		return nil, false
	}
	return append([]byte(nil), doc...), true
}
