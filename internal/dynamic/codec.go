package dynamic

import (
	"fmt"

	"github.com/axonops/protodyn/internal/anypack"
	"github.com/axonops/protodyn/internal/schema"
	"github.com/axonops/protodyn/internal/wire"
)

// Encode projects the message onto the wire codec's intermediate form and
// serializes it.
func (m *Message) Encode() ([]byte, error) {
	d, err := m.protoDict()
	if err != nil {
		return nil, err
	}
	return wire.Encode(d, true)
}

// Decode parses wire bytes into an instance of def. When hints is nil a
// decoder definition is derived from the schema, so packed and map fields
// decode correctly without caller assistance; an explicit definition
// overrides the derived one.
func Decode(def *schema.MessageDef, data []byte, hints wire.Definition) (*Message, error) {
	if hints == nil {
		hints = def.DecoderDefinition()
	}
	decoded, err := wire.Decode(data, hints)
	if err != nil {
		return nil, err
	}
	fields, err := liftDict(def, decoded)
	if err != nil {
		return nil, err
	}
	return New(def, fields)
}

// protoDict builds the field-number-keyed intermediate form. Fields
// project in number order; zero values are treated as absent, and absent
// REQUIRED fields are filled with their defaults so they appear on the
// wire.
func (m *Message) protoDict() (wire.Dict, error) {
	d := wire.Dict{}
	for _, f := range m.def.FieldsByNumber() {
		value, present := m.values[f.Name]
		if present && isZeroValue(value) {
			present = false
		}
		if !present {
			if f.Label != schema.LabelRequired {
				continue
			}
			value = DefaultValue(f)
		}
		wv, err := fieldWireValue(f, value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		d[f.Number] = wv
	}
	return d, nil
}

// isZeroValue mirrors the engine's "zero means absent" projection rule:
// numeric zero, false, empty string/bytes and empty lists do not hit the
// wire unless the field is required.
func isZeroValue(v any) bool {
	switch tv := v.(type) {
	case int64:
		return tv == 0
	case float64:
		return tv == 0
	case bool:
		return !tv
	case string:
		return tv == ""
	case []byte:
		return len(tv) == 0
	case []any:
		return len(tv) == 0
	case nil:
		return true
	}
	return false
}

// fieldWireType determines the outer wire type of a field: sub-messages
// and maps are length-delimited, enums ride varints, scalars follow their
// fixed mapping.
func fieldWireType(f *schema.Field) (wire.Type, error) {
	switch t := f.Type.(type) {
	case schema.ScalarType:
		return t.WireType(), nil
	case *schema.EnumDef:
		return wire.Varint, nil
	case *schema.MessageDef, *schema.MapType:
		return wire.LengthDelimited, nil
	}
	return 0, fmt.Errorf("unresolved field type")
}

func fieldWireValue(f *schema.Field, value any) (wire.Value, error) {
	wt, err := fieldWireType(f)
	if err != nil {
		return wire.Value{}, err
	}

	if elems, ok := value.([]any); ok {
		if f.Packed() {
			// Packed repeated: the declared wire type moves inside the
			// length-delimited wrapper.
			packed := make([]wire.Value, len(elems))
			for i, e := range elems {
				packed[i], err = scalarWireValue(e)
				if err != nil {
					return wire.Value{}, err
				}
			}
			return wire.Packed(wt, packed...), nil
		}
		list := make([]wire.Value, len(elems))
		for i, e := range elems {
			list[i], err = singleWireValue(e)
			if err != nil {
				return wire.Value{}, err
			}
		}
		return wire.Typed(wt, wire.List(list...)), nil
	}

	wv, err := singleWireValue(value)
	if err != nil {
		return wire.Value{}, err
	}
	return wire.Typed(wt, wv), nil
}

func singleWireValue(value any) (wire.Value, error) {
	switch tv := value.(type) {
	case *Message:
		d, err := tv.protoDict()
		if err != nil {
			return wire.Value{}, err
		}
		return wire.Nested(d), nil
	case *Map:
		d, err := tv.protoDict()
		if err != nil {
			return wire.Value{}, err
		}
		return wire.Nested(d), nil
	case *anypack.Any:
		return wire.Nested(wire.Dict{
			1: wire.Typed(wire.LengthDelimited, wire.String(tv.TypeURL)),
			2: wire.Typed(wire.LengthDelimited, wire.Bytes(tv.Value)),
		}), nil
	}
	return scalarWireValue(value)
}

func scalarWireValue(value any) (wire.Value, error) {
	switch tv := value.(type) {
	case int64:
		return wire.Int(tv), nil
	case bool:
		return wire.Bool(tv), nil
	case float64:
		return wire.Float(tv), nil
	case string:
		return wire.String(tv), nil
	case []byte:
		return wire.Bytes(tv), nil
	}
	return wire.Value{}, fmt.Errorf("cannot project %T onto the wire", value)
}

// protoDict renders a map instance as one sub-message whose field numbers
// are the map keys.
func (m *Map) protoDict() (wire.Dict, error) {
	valueType, err := mapValueWireType(m.def.Value)
	if err != nil {
		return nil, err
	}
	d := wire.Dict{}
	for key, value := range m.entries {
		if key <= 0 {
			return nil, fmt.Errorf("map key %d cannot be a field number", key)
		}
		wv, err := singleWireValue(value)
		if err != nil {
			return nil, fmt.Errorf("map key %d: %w", key, err)
		}
		d[int(key)] = wire.Typed(valueType, wv)
	}
	return d, nil
}

func mapValueWireType(t schema.Type) (wire.Type, error) {
	switch tv := t.(type) {
	case schema.ScalarType:
		return tv.WireType(), nil
	case *schema.EnumDef:
		return wire.Varint, nil
	case *schema.MessageDef:
		return wire.LengthDelimited, nil
	}
	return 0, fmt.Errorf("unsupported map value type")
}

// liftDict lifts the decoded intermediate form to field names. Numbers
// without a matching field are dropped; decoding unknown fields is
// best-effort only.
func liftDict(def *schema.MessageDef, d wire.Dict) (map[string]any, error) {
	isAny := def.FullName() == anyFullName
	fields := make(map[string]any, len(d))
	for number, v := range d {
		f, ok := def.FieldByNumber(number)
		if !ok {
			continue
		}
		if isAny && f.Name == "value" {
			// Do not descend into Any payloads: the user sees the packed
			// bytes, reconstructed from whatever shape the schema-less
			// decoder produced.
			fields[f.Name] = rawBytesOf(v)
			continue
		}
		lifted, err := liftValue(f.Type, v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		fields[f.Name] = lifted
	}
	return fields, nil
}

func liftValue(t schema.Type, v wire.Value) (any, error) {
	if v.Kind() == wire.KindList {
		elems := make([]any, len(v.List()))
		for i, e := range v.List() {
			lifted, err := liftValue(t, e)
			if err != nil {
				return nil, err
			}
			elems[i] = lifted
		}
		return elems, nil
	}

	switch tt := t.(type) {
	case *schema.MapType:
		if v.Kind() != wire.KindDict {
			return nil, fmt.Errorf("map field decoded as %v", v.Kind())
		}
		entries := make(map[int64]any, len(v.Dict()))
		for key, ev := range v.Dict() {
			lifted, err := liftValue(tt.Value, ev)
			if err != nil {
				return nil, fmt.Errorf("map key %d: %w", key, err)
			}
			entries[int64(key)] = lifted
		}
		return entries, nil
	case *schema.MessageDef:
		if tt.FullName() == anyFullName {
			return liftAny(v)
		}
		if v.Kind() != wire.KindDict {
			return nil, fmt.Errorf("message field decoded as %v", v.Kind())
		}
		return liftDict(tt, v.Dict())
	case *schema.EnumDef:
		return v.Int64(), nil
	case schema.ScalarType:
		return liftScalar(tt, v)
	}
	return nil, fmt.Errorf("unresolved field type")
}

func liftAny(v wire.Value) (any, error) {
	if v.Kind() != wire.KindDict {
		return nil, fmt.Errorf("Any field decoded as %v", v.Kind())
	}
	d := v.Dict()
	return &anypack.Any{
		TypeURL: d[1].Str(),
		Value:   rawBytesOf(d[2]),
	}, nil
}

// rawBytesOf recovers the original bytes of a length-delimited payload
// the schema-less decoder interpreted best-effort.
func rawBytesOf(v wire.Value) []byte {
	switch v.Kind() {
	case wire.KindBytes:
		return v.Raw()
	case wire.KindString:
		return []byte(v.Str())
	case wire.KindDict:
		data, err := wire.Encode(v.Dict(), true)
		if err != nil {
			return nil
		}
		return data
	}
	return nil
}

func liftScalar(t schema.ScalarType, v wire.Value) (any, error) {
	switch t {
	case schema.ScalarBool:
		return v.Bool(), nil
	case schema.ScalarFloat, schema.ScalarFixed32, schema.ScalarFixed64,
		schema.ScalarSfixed32, schema.ScalarSfixed64:
		return v.Float(), nil
	case schema.ScalarString:
		switch v.Kind() {
		case wire.KindDict, wire.KindBytes:
			return string(rawBytesOf(v)), nil
		}
		return v.Str(), nil
	case schema.ScalarBytes:
		return rawBytesOf(v), nil
	}
	return v.Int64(), nil
}
