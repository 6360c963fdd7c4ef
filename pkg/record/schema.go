package record

import (
	"strings"
	"sync"
)

// DefaultPrimaryKey is used by NewSchema when no key name is given.
const DefaultPrimaryKey = "id"

// SchemaOption configures a Schema.
type SchemaOption func(*Schema)

// WithDefaults fills missing fields of every new record.
func WithDefaults(defaults map[string]any) SchemaOption {
	return func(s *Schema) {
		for k, v := range defaults {
			s.defaults[k] = v
		}
	}
}

// WithAddObserver registers fn as an add observer.
func WithAddObserver(fn func(Record)) SchemaOption {
	return func(s *Schema) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}

// Schema is the stock Model: it builds Documents and fans add events out to
// registered observers.
type Schema struct {
	primaryKey string
	defaults   map[string]any

	mu        sync.RWMutex
	observers []func(Record)
}

// NewSchema returns a Model whose records are identified by primaryKey.
func NewSchema(primaryKey string, opts ...SchemaOption) *Schema {
	primaryKey = strings.TrimSpace(primaryKey)
	if primaryKey == "" {
		primaryKey = DefaultPrimaryKey
	}
	s := &Schema{primaryKey: primaryKey, defaults: map[string]any{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Schema) PrimaryKey() string {
	return s.primaryKey
}

// New builds a Document from data, applying defaults for missing fields.
func (s *Schema) New(data map[string]any) (Record, error) {
	doc := NewDocument(s.primaryKey, data)
	for k, v := range s.defaults {
		if _, ok := doc.Get(k); !ok {
			doc.Set(k, v)
		}
	}
	return doc, nil
}

// OnAdd registers fn to run for every record committed to a store cache.
func (s *Schema) OnAdd(fn func(Record)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *Schema) NotifyAdd(r Record) {
	s.mu.RLock()
	observers := append(([]func(Record))(nil), s.observers...)
	s.mu.RUnlock()
	for _, fn := range observers {
		fn(r)
	}
}
