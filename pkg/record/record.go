// Package record defines the entity abstraction a Store caches: a Record is
// an open set of fields with one designated primary-key field, and a Model
// builds Records from raw decoded data.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Record is one hydrated entity.
type Record interface {
	// Get returns the value of field and whether it is set.
	Get(field string) (any, bool)
	// Set assigns field.
	Set(field string, value any)
	// Fields returns a snapshot of every field, suitable for encoding.
	Fields() map[string]any
	// IsNew reports whether the record still lacks a durable identity.
	IsNew() bool
}

// Model builds Records and names their primary-key field.
type Model interface {
	PrimaryKey() string
	New(data map[string]any) (Record, error)
}

// AddNotifier is implemented by models that want to observe records entering
// a store's cache. NotifyAdd runs after the entry is committed and after the
// store has released its locks, so observers may call back into the store.
type AddNotifier interface {
	NotifyAdd(Record)
}

// ErrNilRecord is returned when hydrating a nil value.
var ErrNilRecord = errors.New("record: nil record")

// Hydrate normalizes v into a Record of model. Records pass through
// untouched, maps are handed to model.New, and structs (or pointers to
// structs) are flattened into a field map using their json tags.
func Hydrate(model Model, v any) (Record, error) {
	if model == nil {
		return nil, errors.New("record: model is nil")
	}
	if isNil(v) {
		return nil, ErrNilRecord
	}
	switch t := v.(type) {
	case Record:
		return t, nil
	case map[string]any:
		return model.New(t)
	}

	fields, err := ToMap(v)
	if err != nil {
		return nil, err
	}
	return model.New(fields)
}

// ToMap flattens a struct or map value into a generic field map.
func ToMap(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct && rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("record: cannot hydrate %T", v)
	}
	out := map[string]any{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &out,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(v); err != nil {
		return nil, fmt.Errorf("record: flatten %T: %w", v, err)
	}
	return out, nil
}

// KeyOf converts a primary-key value into its cache key. The boolean is false
// for absent or empty identities. Whole floats (the shape of decoded JSON
// numbers) format without a fractional part so that 7, 7.0 and "7" agree.
// Composite values such as structs, maps and pointers are never keys.
func KeyOf(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		if strings.TrimSpace(t) == "" {
			return "", false
		}
		return t, true
	case float64:
		return formatFloat(t), true
	case float32:
		return formatFloat(float64(t)), true
	case int:
		return strconv.FormatInt(int64(t), 10), true
	case int8:
		return strconv.FormatInt(int64(t), 10), true
	case int16:
		return strconv.FormatInt(int64(t), 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint:
		return strconv.FormatUint(uint64(t), 10), true
	case uint8:
		return strconv.FormatUint(uint64(t), 10), true
	case uint16:
		return strconv.FormatUint(uint64(t), 10), true
	case uint32:
		return strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return formatFloat(f), true
		}
		return t.String(), t.String() != ""
	case fmt.Stringer:
		s := t.String()
		return s, strings.TrimSpace(s) != ""
	default:
		switch reflect.ValueOf(v).Kind() {
		case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array, reflect.Ptr,
			reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer:
			return "", false
		}
		s := fmt.Sprint(v)
		return s, strings.TrimSpace(s) != ""
	}
}

// PrimaryKeyOf returns the cache key of r under model's primary key.
func PrimaryKeyOf(model Model, r Record) (string, bool) {
	if model == nil || isNil(r) {
		return "", false
	}
	v, _ := r.Get(model.PrimaryKey())
	return KeyOf(v)
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
