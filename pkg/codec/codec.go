// Package codec converts response bodies into structured values and
// structured values into request bodies. A Store holds exactly one Codec and
// never catches failures beyond the decode tolerance described on Decode.
package codec

// Codec encodes request payloads and decodes response bodies.
type Codec interface {
	// Encode serializes v. It must succeed for any value built from maps,
	// slices, strings, numbers, booleans and nil.
	Encode(v any) ([]byte, error)
	// Decode parses data into a generic structure: map[string]any, []any,
	// string, float64, bool or nil. Callers treat a decode error as "no
	// payload", not as a failure of the exchange.
	Decode(data []byte) (any, error)
	// ContentType is sent with request bodies.
	ContentType() string
	// Name identifies the codec in diagnostics.
	Name() string
}

// Default is the codec used when none is configured.
var Default Codec = JSON{}
