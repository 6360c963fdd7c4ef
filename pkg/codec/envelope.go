package codec

import (
	"github.com/Ratio1/reststore_go/internal/envelope"
)

type enveloped struct {
	inner     Codec
	field     string
	wrapOnEnc bool
}

// EnvelopeOption configures Enveloped.
type EnvelopeOption func(*enveloped)

// WithEnvelopeField changes the wrapper key (default "result").
func WithEnvelopeField(field string) EnvelopeOption {
	return func(e *enveloped) {
		if field != "" {
			e.field = field
		}
	}
}

// WithWrappedRequests also wraps encoded request bodies.
func WithWrappedRequests() EnvelopeOption {
	return func(e *enveloped) { e.wrapOnEnc = true }
}

// Enveloped wraps inner so that responses shaped like {"result": payload}
// decode to payload. Unwrapped responses pass through untouched.
func Enveloped(inner Codec, opts ...EnvelopeOption) Codec {
	if inner == nil {
		inner = Default
	}
	e := &enveloped{inner: inner, field: envelope.DefaultField}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *enveloped) Encode(v any) ([]byte, error) {
	data, err := e.inner.Encode(v)
	if err != nil || !e.wrapOnEnc {
		return data, err
	}
	return envelope.Wrap(data, e.field)
}

func (e *enveloped) Decode(data []byte) (any, error) {
	return e.inner.Decode(envelope.Unwrap(data, e.field))
}

func (e *enveloped) ContentType() string { return e.inner.ContentType() }

func (e *enveloped) Name() string { return "envelope(" + e.field + ")+" + e.inner.Name() }
