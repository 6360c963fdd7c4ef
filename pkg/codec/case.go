package codec

import (
	"github.com/iancoleman/strcase"
)

// KeyFunc rewrites a single object key.
type KeyFunc func(string) string

type caseConverting struct {
	inner    Codec
	toWire   KeyFunc
	fromWire KeyFunc
}

// CaseConverting wraps inner so that object keys are snake_case on the wire
// and lowerCamelCase in memory. Keys of nested objects are rewritten too.
func CaseConverting(inner Codec) Codec {
	return CaseConvertingWith(inner, strcase.ToSnake, strcase.ToLowerCamel)
}

// CaseConvertingWith is CaseConverting with explicit key functions.
func CaseConvertingWith(inner Codec, toWire, fromWire KeyFunc) Codec {
	if inner == nil {
		inner = Default
	}
	return &caseConverting{inner: inner, toWire: toWire, fromWire: fromWire}
}

func (c *caseConverting) Encode(v any) ([]byte, error) {
	return c.inner.Encode(rewriteKeys(v, c.toWire))
}

func (c *caseConverting) Decode(data []byte) (any, error) {
	v, err := c.inner.Decode(data)
	if err != nil {
		return nil, err
	}
	return rewriteKeys(v, c.fromWire), nil
}

func (c *caseConverting) ContentType() string { return c.inner.ContentType() }

func (c *caseConverting) Name() string { return "case+" + c.inner.Name() }

func rewriteKeys(v any, fn KeyFunc) any {
	if fn == nil {
		return v
	}
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fn(k)] = rewriteKeys(val, fn)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = rewriteKeys(val, fn)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = rewriteKeys(val, fn)
		}
		return out
	default:
		return v
	}
}
