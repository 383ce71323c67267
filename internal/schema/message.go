package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/axonops/protodyn/internal/wire"
)

// Field is a single field declaration inside a message.
type Field struct {
	Parent  *MessageDef
	Label   Label
	Type    Type // nil while the reference is unresolved
	Name    string
	Number  int
	Options map[string]any
	Comment string
}

// Option returns a field option by name.
func (f *Field) Option(name string) (any, bool) {
	v, ok := f.Options[name]
	return v, ok
}

// Packed reports whether the field carries [packed=true].
func (f *Field) Packed() bool {
	v, ok := f.Options["packed"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// String renders the field as a .proto declaration.
func (f *Field) String() string {
	typeName := "?"
	if f.Type != nil {
		typeName = f.Type.TypeName()
	}
	var opts string
	if len(f.Options) > 0 {
		keys := make([]string, 0, len(f.Options))
		for k := range f.Options {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s = %v", k, f.Options[k])
		}
		opts = " [" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprintf("%s %s %s = %d%s;", f.Label, typeName, f.Name, f.Number, opts)
}

// MessageDef is a message definition. Fields are tracked by name and by
// number; both maps are populated atomically through AddField so they
// always agree.
type MessageDef struct {
	Schema *Schema
	Name   string

	fields         []*Field // declaration order
	fieldsByName   map[string]*Field
	fieldsByNumber map[int]*Field

	// Oneofs maps a oneof name to its member fields; OneofByField is the
	// inverse, keyed by field name.
	Oneofs       map[string][]*Field
	OneofByField map[string]string

	reserved map[int]struct{}

	// Extensions records declared extension ranges as [lo, hi] pairs.
	Extensions [][2]int

	Comments []string
}

// NewMessageDef creates an empty message definition bound to a schema.
func NewMessageDef(s *Schema, name string) *MessageDef {
	return &MessageDef{
		Schema:         s,
		Name:           name,
		fieldsByName:   make(map[string]*Field),
		fieldsByNumber: make(map[int]*Field),
		Oneofs:         make(map[string][]*Field),
		OneofByField:   make(map[string]string),
		reserved:       make(map[int]struct{}),
	}
}

// AddField registers a field on the message. The field number must be
// unique within the message and disjoint from its reserved set.
func (m *MessageDef) AddField(f *Field) error {
	if f.Number <= 0 {
		return fmt.Errorf("message %s: field %s has non-positive number %d", m.Name, f.Name, f.Number)
	}
	if _, exists := m.fieldsByNumber[f.Number]; exists {
		return fmt.Errorf("message %s: duplicate field number %d", m.Name, f.Number)
	}
	if _, exists := m.fieldsByName[f.Name]; exists {
		return fmt.Errorf("message %s: duplicate field name %s", m.Name, f.Name)
	}
	if _, reserved := m.reserved[f.Number]; reserved {
		return fmt.Errorf("message %s: field %s uses reserved number %d", m.Name, f.Name, f.Number)
	}
	f.Parent = m
	m.fields = append(m.fields, f)
	m.fieldsByName[f.Name] = f
	m.fieldsByNumber[f.Number] = f
	return nil
}

// Field returns a field by name.
func (m *MessageDef) Field(name string) (*Field, bool) {
	f, ok := m.fieldsByName[name]
	return f, ok
}

// FieldByNumber returns a field by number.
func (m *MessageDef) FieldByNumber(number int) (*Field, bool) {
	f, ok := m.fieldsByNumber[number]
	return f, ok
}

// Fields returns the fields in declaration order.
func (m *MessageDef) Fields() []*Field {
	return m.fields
}

// FieldsByNumber returns the fields sorted by field number.
func (m *MessageDef) FieldsByNumber() []*Field {
	out := make([]*Field, len(m.fields))
	copy(out, m.fields)
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Len returns the field count.
func (m *MessageDef) Len() int { return len(m.fields) }

// Reserve marks a single field number as reserved.
func (m *MessageDef) Reserve(number int) {
	m.reserved[number] = struct{}{}
}

// ReserveRange marks the inclusive range [lo, hi] as reserved.
func (m *MessageDef) ReserveRange(lo, hi int) {
	for n := lo; n <= hi; n++ {
		m.reserved[n] = struct{}{}
	}
}

// IsReserved reports whether a field number is reserved.
func (m *MessageDef) IsReserved(number int) bool {
	_, ok := m.reserved[number]
	return ok
}

// ReservedNumbers returns the reserved set in ascending order.
func (m *MessageDef) ReservedNumbers() []int {
	out := make([]int, 0, len(m.reserved))
	for n := range m.reserved {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// FullName returns the package-qualified message name.
func (m *MessageDef) FullName() string {
	if m.Schema != nil && m.Schema.Package != "" {
		return m.Schema.Package + "." + m.Name
	}
	return m.Name
}

// TypeName returns the message name; MessageDef doubles as a field Type.
func (m *MessageDef) TypeName() string { return m.Name }

// String renders the message as .proto text.
func (m *MessageDef) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "message %s {\n", m.Name)
	for _, f := range m.FieldsByNumber() {
		sb.WriteString("\t" + f.String() + "\n")
	}
	sb.WriteString("}")
	return sb.String()
}

// DecoderDefinition derives wire decoding hints from the message: packed
// fields carry their inner wire type, map and message fields carry nested
// definitions. Recursive message types terminate with an unhinted nesting.
func (m *MessageDef) DecoderDefinition() wire.Definition {
	return m.decoderDefinition(map[*MessageDef]bool{})
}

func (m *MessageDef) decoderDefinition(seen map[*MessageDef]bool) wire.Definition {
	if seen[m] {
		return nil
	}
	seen[m] = true
	defer delete(seen, m)

	def := wire.Definition{}
	for _, f := range m.fields {
		switch t := f.Type.(type) {
		case ScalarType:
			if f.Packed() {
				def[f.Number] = wire.RepeatedPacked(t.WireType())
			} else if f.Label == LabelRepeated {
				def[f.Number] = wire.Repeated()
			}
		case *EnumDef:
			if f.Packed() {
				def[f.Number] = wire.RepeatedPacked(wire.Varint)
			} else if f.Label == LabelRepeated {
				def[f.Number] = wire.Repeated()
			}
		case *MessageDef:
			def[f.Number] = wire.Sub(t.decoderDefinition(seen))
		case *MapType:
			if vm, ok := t.Value.(*MessageDef); ok {
				def[f.Number] = wire.MapField(vm.decoderDefinition(seen))
			} else {
				def[f.Number] = wire.MapField(nil)
			}
		}
	}
	return def
}

// EnumDef is an enum definition holding both lookup directions.
type EnumDef struct {
	Schema *Schema
	Name   string

	numbersByName map[string]int64
	namesByNumber map[int64]string
}

// NewEnumDef creates an empty enum definition bound to a schema.
func NewEnumDef(s *Schema, name string) *EnumDef {
	return &EnumDef{
		Schema:        s,
		Name:          name,
		numbersByName: make(map[string]int64),
		namesByNumber: make(map[int64]string),
	}
}

// AddValue registers a named constant. Both directions are kept in step.
func (e *EnumDef) AddValue(name string, number int64) {
	e.numbersByName[name] = number
	e.namesByNumber[number] = name
}

// Number returns the numeric value of a constant name.
func (e *EnumDef) Number(name string) (int64, bool) {
	n, ok := e.numbersByName[name]
	return n, ok
}

// NameOf returns the constant name of a numeric value.
func (e *EnumDef) NameOf(number int64) (string, bool) {
	s, ok := e.namesByNumber[number]
	return s, ok
}

// Len returns the number of constants.
func (e *EnumDef) Len() int { return len(e.numbersByName) }

// TypeName returns the enum name; EnumDef doubles as a field Type.
func (e *EnumDef) TypeName() string { return e.Name }

// MethodDef is a single rpc declaration.
type MethodDef struct {
	Name       string
	InputName  string
	OutputName string

	// Resolved message references; nil when the referent is not part of
	// the schema (services are parsed, never invoked).
	Input  *MessageDef
	Output *MessageDef
}

// ServiceDef is a service with its rpc methods.
type ServiceDef struct {
	Schema  *Schema
	Name    string
	Methods map[string]*MethodDef
}
