package anypack

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/axonops/protodyn/internal/wire"
)

// structuralBackend is the "pickle" form: the object's exported fields are
// walked in sorted name order and emitted as a wire-encoded message with
// one entry per attribute at field 1, each entry holding the attribute
// name at 1 and a typed value blob at 2. The blob is the decimal length
// of the type name, the type name, then the gob encoding of the value.
type structuralBackend struct{}

func (b *structuralBackend) Name() string { return "pickle" }

func (b *structuralBackend) Pack(obj any) ([]byte, error) {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil pointer", ErrUnpackable)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T has no inspectable attributes", ErrUnpackable, obj)
	}

	type attr struct {
		name  string
		value reflect.Value
	}
	var attrs []attr
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		if !rt.Field(i).IsExported() {
			continue
		}
		attrs = append(attrs, attr{name: rt.Field(i).Name, value: rv.Field(i)})
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].name < attrs[j].name })

	entries := make([]wire.Value, 0, len(attrs))
	for _, a := range attrs {
		blob, err := typedValueBlob(a.value)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", a.name, err)
		}
		entries = append(entries, wire.Nested(wire.Dict{
			1: wire.Typed(wire.LengthDelimited, wire.String(a.name)),
			2: wire.Typed(wire.LengthDelimited, wire.Bytes(blob)),
		}))
	}

	return wire.Encode(wire.Dict{
		1: wire.Typed(wire.LengthDelimited, wire.List(entries...)),
	}, true)
}

// typedValueBlob prefixes the gob encoding with the value's type name and
// the decimal length of that name.
func typedValueBlob(v reflect.Value) ([]byte, error) {
	typeName := v.Type().String()
	var buf bytes.Buffer
	buf.WriteString(strconv.Itoa(len(typeName)))
	buf.WriteString(typeName)
	enc := gob.NewEncoder(&buf)
	if err := enc.EncodeValue(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *structuralBackend) Unpack(data []byte, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: unpack target must be a non-nil pointer", ErrUnpackable)
	}
	elem := rv.Elem()
	if elem.Kind() != reflect.Struct {
		return fmt.Errorf("%w: unpack target must point at a struct", ErrUnpackable)
	}

	decoded, err := wire.Decode(data, nil)
	if err != nil {
		return err
	}
	for _, entry := range entryList(decoded[1]) {
		if entry.Kind() != wire.KindDict {
			return fmt.Errorf("malformed packed entry: %s", entry)
		}
		name := entry.Dict()[1].Str()
		blob, err := rawPayload(entry.Dict()[2])
		if err != nil {
			return err
		}
		if err := restoreAttribute(elem, name, blob); err != nil {
			return err
		}
	}
	return nil
}

// entryList tolerates both shapes the decoder produces: a list when the
// object had several attributes, a bare entry when it had one.
func entryList(v wire.Value) []wire.Value {
	if v.Kind() == wire.KindList {
		return v.List()
	}
	if v.Kind() == wire.KindInvalid {
		return nil
	}
	return []wire.Value{v}
}

// rawPayload recovers the exact bytes of a length-delimited payload the
// schema-less decoder interpreted best-effort.
func rawPayload(v wire.Value) ([]byte, error) {
	switch v.Kind() {
	case wire.KindBytes:
		return v.Raw(), nil
	case wire.KindString:
		return []byte(v.Str()), nil
	case wire.KindDict:
		// The payload happened to parse as a message; re-encoding yields
		// the original bytes.
		return wire.Encode(v.Dict(), true)
	}
	return nil, fmt.Errorf("unexpected payload value %s", v)
}

func restoreAttribute(target reflect.Value, name string, blob []byte) error {
	i := 0
	for i < len(blob) && blob[i] >= '0' && blob[i] <= '9' {
		i++
	}
	if i == 0 {
		return fmt.Errorf("attribute %s: missing type-name length", name)
	}
	nameLen, err := strconv.Atoi(string(blob[:i]))
	if err != nil || i+nameLen > len(blob) {
		return fmt.Errorf("attribute %s: malformed type prefix", name)
	}
	payload := blob[i+nameLen:]

	field := target.FieldByName(name)
	if !field.IsValid() || !field.CanSet() {
		// Attribute no longer exists on the target type; skip it.
		return nil
	}
	dec := gob.NewDecoder(bytes.NewReader(payload))
	return dec.DecodeValue(field)
}
