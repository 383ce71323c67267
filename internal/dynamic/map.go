package dynamic

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/axonops/protodyn/internal/schema"
)

// Map is a map-field instance bound to its key and value types. This
// engine encodes a map field as a single length-delimited sub-message
// whose field numbers are the map keys, so keys must be integer-typed.
type Map struct {
	def     *schema.MapType
	entries map[int64]any
}

// NewMap builds a map instance from any Go map value. Keys coerce to
// int64 (string keys are parsed, supporting JSON input); values coerce to
// the map's value type.
func NewMap(mt *schema.MapType, raw any) (*Map, error) {
	rv := reflect.ValueOf(raw)
	if !rv.IsValid() || rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("cannot use %T as map", raw)
	}
	m := &Map{def: mt, entries: make(map[int64]any, rv.Len())}
	iter := rv.MapRange()
	for iter.Next() {
		key, err := mapKey(iter.Key().Interface())
		if err != nil {
			return nil, err
		}
		value, err := coerceTyped(mt.Value, iter.Value().Interface())
		if err != nil {
			return nil, fmt.Errorf("map key %d: %w", key, err)
		}
		m.entries[key] = value
	}
	return m, nil
}

func mapKey(raw any) (int64, error) {
	if s, ok := raw.(string); ok {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("map keys must be integers, got %q", s)
		}
		return n, nil
	}
	n, err := toInt64(raw)
	if err != nil {
		return 0, fmt.Errorf("map keys must be integers: %w", err)
	}
	return n, nil
}

// Def returns the map's type.
func (m *Map) Def() *schema.MapType { return m.def }

// Get returns the value stored under key.
func (m *Map) Get(key int64) (any, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Len returns the entry count.
func (m *Map) Len() int { return len(m.entries) }

// Keys returns the map keys in ascending order.
func (m *Map) Keys() []int64 {
	keys := make([]int64, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Equal reports whether two maps hold equal values under the same keys.
func (m *Map) Equal(o *Map) bool {
	if m == nil || o == nil {
		return m == o
	}
	if len(m.entries) != len(o.entries) {
		return false
	}
	for k, v := range m.entries {
		ov, ok := o.entries[k]
		if !ok || !valuesEqual(v, ov) {
			return false
		}
	}
	return true
}

// ToMap renders the map with plain values, keyed by decimal strings so
// the result marshals to JSON.
func (m *Map) ToMap() map[string]any {
	out := make(map[string]any, len(m.entries))
	for k, v := range m.entries {
		out[strconv.FormatInt(k, 10)] = plainValue(v)
	}
	return out
}

func (m *Map) String() string {
	return fmt.Sprintf("map%v", m.ToMap())
}
