package record

import (
	"sync"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// Document is a map-backed Record. Until it receives a primary key it is
// tracked by a client id of the form "cid-<uuid>".
type Document struct {
	mu         sync.RWMutex
	fields     map[string]any
	primaryKey string
	cid        string
}

// NewDocument copies data into a new Document keyed by primaryKey.
func NewDocument(primaryKey string, data map[string]any) *Document {
	fields := make(map[string]any, len(data))
	for k, v := range data {
		fields[k] = v
	}
	return &Document{
		fields:     fields,
		primaryKey: primaryKey,
		cid:        "cid-" + uuid.NewString(),
	}
}

// Get returns the value of field and whether it is set.
func (d *Document) Get(field string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.fields[field]
	return v, ok
}

// Set assigns field.
func (d *Document) Set(field string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fields[field] = value
}

// Merge assigns every entry of fields.
func (d *Document) Merge(fields map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range fields {
		d.fields[k] = v
	}
}

// Fields returns a shallow copy of the document fields.
func (d *Document) Fields() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]any, len(d.fields))
	for k, v := range d.fields {
		out[k] = v
	}
	return out
}

// IsNew reports whether the primary-key field is absent or empty.
func (d *Document) IsNew() bool {
	_, ok := KeyOf(d.ID())
	return !ok
}

// ID returns the primary-key value, or nil.
func (d *Document) ID() any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.fields[d.primaryKey]
}

// ClientID is stable for the lifetime of the document.
func (d *Document) ClientID() string {
	return d.cid
}

// PrimaryKey names the identity field.
func (d *Document) PrimaryKey() string {
	return d.primaryKey
}

// Decode copies the document into out, a pointer to a struct with json tags.
func (d *Document) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(d.Fields())
}
