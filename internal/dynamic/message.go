// Package dynamic binds user-supplied field values to a parsed schema and
// drives the wire codec in both directions. A Message is a generic value
// carrying its MessageDef plus a field value map; there is no per-message
// code generation.
package dynamic

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/axonops/protodyn/internal/anypack"
	"github.com/axonops/protodyn/internal/schema"
)

const anyFullName = "google.protobuf.Any"

// Message is a schema-bound message instance. Reads of unset fields
// return the field's default; two instances are equal iff they share a
// definition and agree on every field value.
type Message struct {
	def    *schema.MessageDef
	values map[string]any
}

// New constructs a message instance from a field-name-to-value map.
//
// Construction applies the binding rules: strings convert to bytes for
// bytes fields, nested maps build sub-messages or map instances, setting
// one member of a oneof erases previously set siblings, a value equal to
// a field's declared default is dropped, and an Any instance receives its
// type URL from the enclosing message.
func New(def *schema.MessageDef, fields map[string]any) (*Message, error) {
	m := &Message{def: def, values: make(map[string]any)}
	for _, f := range def.Fields() {
		raw, ok := fields[f.Name]
		if !ok {
			continue
		}
		if err := m.Set(f.Name, raw); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Def returns the message definition.
func (m *Message) Def() *schema.MessageDef { return m.def }

// Set assigns one field, applying the same rules as New.
func (m *Message) Set(name string, raw any) error {
	f, ok := m.def.Field(name)
	if !ok {
		return fmt.Errorf("message %s has no field %q", m.def.Name, name)
	}
	value, err := coerceValue(f, raw)
	if err != nil {
		return fmt.Errorf("field %s: %w", name, err)
	}

	if a, ok := value.(*anypack.Any); ok {
		// The type URL names the enclosing message, determined here at
		// assignment time rather than at pack time.
		a.TypeURL = typeURL(m.def)
	}

	// Default-equipped fields drop values equal to the declared default,
	// preserving default-implies-absent wire semantics.
	if _, hasDefault := f.Option("default"); hasDefault {
		if valuesEqual(value, DefaultValue(f)) {
			delete(m.values, name)
			return nil
		}
	}

	if oneof, ok := m.def.OneofByField[name]; ok {
		for _, sibling := range m.def.Oneofs[oneof] {
			if sibling.Name != name {
				delete(m.values, sibling.Name)
			}
		}
	}

	m.values[name] = value
	return nil
}

// Get returns a field value, or the field's default when unset.
func (m *Message) Get(name string) (any, error) {
	f, ok := m.def.Field(name)
	if !ok {
		return nil, fmt.Errorf("message %s has no field %q", m.def.Name, name)
	}
	if v, ok := m.values[name]; ok {
		return v, nil
	}
	return DefaultValue(f), nil
}

// Has reports whether a field is explicitly set.
func (m *Message) Has(name string) bool {
	_, ok := m.values[name]
	return ok
}

// typeURL renders the Any type URL for an enclosing message:
// type.googleapis.com/{package}.{Name}, package omitted when empty.
func typeURL(def *schema.MessageDef) string {
	return "type.googleapis.com/" + def.FullName()
}

// DefaultValue returns the default for a field: its declared default
// option if any, the scalar zero otherwise, an empty instance for
// message-typed fields, and zero for enums.
func DefaultValue(f *schema.Field) any {
	if v, ok := f.Option("default"); ok {
		return v
	}
	if f.Label == schema.LabelRepeated {
		if _, isMap := f.Type.(*schema.MapType); !isMap {
			return []any(nil)
		}
	}
	switch t := f.Type.(type) {
	case schema.ScalarType:
		return t.Default()
	case *schema.EnumDef:
		return int64(0)
	case *schema.MessageDef:
		if t.FullName() == anyFullName {
			return &anypack.Any{}
		}
		return &Message{def: t, values: map[string]any{}}
	case *schema.MapType:
		return &Map{def: t, entries: map[int64]any{}}
	}
	return nil
}

// Equal reports message equality: identical definitions and equal values
// for every field, unset fields compared at their defaults.
func (m *Message) Equal(o *Message) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.def != o.def {
		return false
	}
	for _, f := range m.def.Fields() {
		mv, _ := m.Get(f.Name)
		ov, _ := o.Get(f.Name)
		if !valuesEqual(mv, ov) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	// An unset repeated field and an empty list compare equal.
	if a == nil || b == nil {
		if av, ok := a.([]any); ok {
			return len(av) == 0
		}
		if bv, ok := b.([]any); ok {
			return len(bv) == 0
		}
		return a == b
	}
	switch av := a.(type) {
	case *Message:
		bv, ok := b.(*Message)
		return ok && av.Equal(bv)
	case *Map:
		bv, ok := b.(*Map)
		return ok && av.Equal(bv)
	case *anypack.Any:
		bv, ok := b.(*anypack.Any)
		return ok && av.Equal(bv)
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

// String renders the set fields for debugging.
func (m *Message) String() string {
	var parts []string
	names := make([]string, 0, len(m.values))
	for name := range m.values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %v", name, m.values[name]))
	}
	return m.def.Name + "{" + strings.Join(parts, ", ") + "}"
}

// ToMap renders the message as a plain name-to-value map, recursing into
// sub-messages and maps. Unset fields are omitted.
func (m *Message) ToMap() map[string]any {
	out := make(map[string]any, len(m.values))
	for name, v := range m.values {
		out[name] = plainValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch tv := v.(type) {
	case *Message:
		return tv.ToMap()
	case *Map:
		return tv.ToMap()
	case *anypack.Any:
		return map[string]any{"type_url": tv.TypeURL, "value": tv.Value}
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = plainValue(e)
		}
		return out
	}
	return v
}
