// Package schema parses .proto source text into an in-memory schema:
// messages, fields, enums, oneofs, maps, services, reserved ranges,
// options and comments, with import resolution and a two-pass fixup for
// forward references.
package schema

import (
	"github.com/axonops/protodyn/internal/wire"
)

// Label is a field cardinality label. A declaration without a label
// (proto3 style) defaults to LabelRequired by this engine's convention.
type Label int

const (
	LabelOptional Label = iota
	LabelRequired
	LabelRepeated
)

// String returns the label keyword.
func (l Label) String() string {
	switch l {
	case LabelOptional:
		return "optional"
	case LabelRequired:
		return "required"
	case LabelRepeated:
		return "repeated"
	}
	return "unknown"
}

// ParseLabel maps a label keyword to its Label.
func ParseLabel(s string) (Label, bool) {
	switch s {
	case "optional":
		return LabelOptional, true
	case "required":
		return LabelRequired, true
	case "repeated":
		return LabelRepeated, true
	}
	return 0, false
}

// ScalarType is one of the built-in protobuf scalar types.
type ScalarType string

const (
	ScalarFloat    ScalarType = "float"
	ScalarInt32    ScalarType = "int32"
	ScalarInt64    ScalarType = "int64"
	ScalarUint32   ScalarType = "uint32"
	ScalarUint64   ScalarType = "uint64"
	ScalarSint32   ScalarType = "sint32"
	ScalarSint64   ScalarType = "sint64"
	ScalarFixed32  ScalarType = "fixed32"
	ScalarFixed64  ScalarType = "fixed64"
	ScalarSfixed32 ScalarType = "sfixed32"
	ScalarSfixed64 ScalarType = "sfixed64"
	ScalarBool     ScalarType = "bool"
	ScalarString   ScalarType = "string"
	ScalarBytes    ScalarType = "bytes"
)

var scalarWireTypes = map[ScalarType]wire.Type{
	ScalarFloat:    wire.Fixed32,
	ScalarInt32:    wire.Varint,
	ScalarInt64:    wire.Varint,
	ScalarUint32:   wire.Varint,
	ScalarUint64:   wire.Varint,
	ScalarSint32:   wire.Varint,
	ScalarSint64:   wire.Varint,
	ScalarFixed32:  wire.Fixed32,
	ScalarFixed64:  wire.Fixed64,
	ScalarSfixed32: wire.Fixed32,
	ScalarSfixed64: wire.Fixed64,
	ScalarBool:     wire.Varint,
	ScalarString:   wire.LengthDelimited,
	ScalarBytes:    wire.LengthDelimited,
}

// ParseScalar maps a scalar keyword to its ScalarType.
func ParseScalar(s string) (ScalarType, bool) {
	st := ScalarType(s)
	_, ok := scalarWireTypes[st]
	return st, ok
}

// WireType returns the wire type the scalar encodes under.
func (s ScalarType) WireType() wire.Type {
	return scalarWireTypes[s]
}

// Default returns the scalar's zero default: numeric zero, false, empty
// string or empty bytes.
func (s ScalarType) Default() any {
	switch s {
	case ScalarFloat, ScalarFixed32, ScalarFixed64, ScalarSfixed32, ScalarSfixed64:
		return float64(0)
	case ScalarBool:
		return false
	case ScalarString:
		return ""
	case ScalarBytes:
		return []byte{}
	}
	return int64(0)
}

// TypeName returns the .proto keyword for the scalar.
func (s ScalarType) TypeName() string { return string(s) }

// Type is the sum of field types: a scalar, a message reference, an enum
// reference, or a map. References may be nil while a parse is in flight;
// the resolve pass patches them from the unresolved side table.
type Type interface {
	// TypeName returns the .proto rendering of the type.
	TypeName() string
}

// MapType is a map<K, V> field type.
type MapType struct {
	Key   Type
	Value Type
}

// TypeName returns the .proto rendering of the map type.
func (m *MapType) TypeName() string {
	key, value := "?", "?"
	if m.Key != nil {
		key = m.Key.TypeName()
	}
	if m.Value != nil {
		value = m.Value.TypeName()
	}
	return "map<" + key + ", " + value + ">"
}
