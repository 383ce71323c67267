package wire

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Kind discriminates the variants of a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUint         // varint payload, two's-complement for negatives
	KindFloat        // fixed32/fixed64 payload
	KindBool
	KindString
	KindBytes
	KindDict   // nested message
	KindList   // non-packed repeated: one tagged field per element
	KindPacked // packed repeated: inner wire type + element list
)

// Dict is the intermediate form exchanged between the message layer and
// the wire codec: field number to value-or-list.
type Dict map[int]Value

// Value is one entry of the intermediate form. It is a tagged variant of:
// a primitive, a nested Dict, a repeated list, or a packed repeated pair.
// A Value may additionally carry an explicit wire type; without one the
// encoder infers the wire type from the kind when asked to.
type Value struct {
	kind  Kind
	wt    Type
	hasWT bool
	num   uint64
	f     float64
	s     string
	raw   []byte
	dict  Dict
	list  []Value
	inner Type
}

// Uint returns a varint value.
func Uint(v uint64) Value { return Value{kind: KindUint, num: v} }

// Int returns a varint value. Negative inputs are widened to 64 bits by
// two's-complement reinterpretation before encoding.
func Int(v int64) Value { return Value{kind: KindUint, num: uint64(v)} }

// Bool returns a varint value encoding as 0 or 1.
func Bool(v bool) Value {
	var n uint64
	if v {
		n = 1
	}
	return Value{kind: KindBool, num: n}
}

// Float returns a fixed-width float value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// String returns a length-delimited UTF-8 string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bytes returns a length-delimited raw byte value.
func Bytes(b []byte) Value { return Value{kind: KindBytes, raw: b} }

// Nested returns a length-delimited sub-message value.
func Nested(d Dict) Value { return Value{kind: KindDict, dict: d} }

// List returns a non-packed repeated value: the encoder emits one tagged
// field per element.
func List(elems ...Value) Value { return Value{kind: KindList, list: elems} }

// Packed returns a packed repeated value carried at the LENGTH_DELIMITED
// slot: one tag, then a length-prefixed concatenation of the elements
// encoded under the inner wire type.
func Packed(inner Type, elems ...Value) Value {
	return Value{kind: KindPacked, inner: inner, list: elems}
}

// Typed returns v with an explicit wire type attached.
func Typed(t Type, v Value) Value {
	v.wt = t
	v.hasWT = true
	return v
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// WireType returns the explicit wire type, if one was attached.
func (v Value) WireType() (Type, bool) { return v.wt, v.hasWT }

// Uint returns the varint payload.
func (v Value) Uint() uint64 { return v.num }

// Int64 returns the varint payload reinterpreted as a signed 64-bit value.
func (v Value) Int64() int64 { return int64(v.num) }

// Bool returns the varint payload as a boolean.
func (v Value) Bool() bool { return v.num != 0 }

// Float returns the fixed-width float payload.
func (v Value) Float() float64 { return v.f }

// Str returns the string payload. For KindBytes it returns the lowercase
// hex representation, which is how opaque bytes surface in the schema-less
// intermediate form.
func (v Value) Str() string {
	if v.kind == KindBytes {
		return hex.EncodeToString(v.raw)
	}
	return v.s
}

// Raw returns the raw byte payload.
func (v Value) Raw() []byte { return v.raw }

// Dict returns the nested sub-message payload.
func (v Value) Dict() Dict { return v.dict }

// List returns the element list of a repeated or packed value.
func (v Value) List() []Value { return v.list }

// Inner returns the inner wire type of a packed value.
func (v Value) Inner() Type { return v.inner }

// Equal reports whether two values are structurally equal. Explicit wire
// types do not participate: Typed(Varint, Uint(1)) equals Uint(1).
// KindUint and KindBool compare by numeric payload, so a decoded varint 1
// equals an encoded Bool(true).
func (v Value) Equal(o Value) bool {
	vk, ok := v.kind, o.kind
	if vk == KindBool {
		vk = KindUint
	}
	if ok == KindBool {
		ok = KindUint
	}
	if vk != ok {
		return false
	}
	switch vk {
	case KindUint:
		return v.num == o.num
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindBytes:
		return bytes.Equal(v.raw, o.raw)
	case KindDict:
		return v.dict.Equal(o.dict)
	case KindList:
		return equalLists(v.list, o.list)
	case KindPacked:
		return v.inner == o.inner && equalLists(v.list, o.list)
	}
	return true
}

func equalLists(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Equal reports whether two dicts hold equal values for the same fields.
func (d Dict) Equal(o Dict) bool {
	if len(d) != len(o) {
		return false
	}
	for n, v := range d {
		ov, ok := o[n]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Numbers returns the field numbers of d in ascending order.
func (d Dict) Numbers() []int {
	nums := make([]int, 0, len(d))
	for n := range d {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// String renders the dict for debugging, fields in number order.
func (d Dict) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, n := range d.Numbers() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d: %s", n, d[n])
	}
	sb.WriteByte('}')
	return sb.String()
}

// String renders the value for debugging.
func (v Value) String() string {
	switch v.kind {
	case KindUint:
		return fmt.Sprintf("%d", v.num)
	case KindBool:
		return fmt.Sprintf("%t", v.num != 0)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindBytes:
		return hex.EncodeToString(v.raw)
	case KindDict:
		return v.dict.String()
	case KindList:
		return listString(v.list)
	case KindPacked:
		return fmt.Sprintf("packed(%s, %s)", v.inner, listString(v.list))
	}
	return "<invalid>"
}

func listString(elems []Value) string {
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
