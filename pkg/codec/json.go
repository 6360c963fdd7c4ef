package codec

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ContentTypeJSON is the media type sent with JSON request bodies.
const ContentTypeJSON = "application/json; charset=utf8"

// JSON is the default generic JSON codec.
type JSON struct{}

// Encode serializes v without HTML escaping and without a trailing newline.
func (JSON) Encode(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses data into generic JSON values.
func (JSON) Decode(data []byte) (any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("codec: empty document")
	}
	var out any
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (JSON) ContentType() string { return ContentTypeJSON }

func (JSON) Name() string { return "json" }
