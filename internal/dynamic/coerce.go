package dynamic

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/axonops/protodyn/internal/anypack"
	"github.com/axonops/protodyn/internal/schema"
)

// coerceValue converts a user-supplied value into the engine's canonical
// representation for the field's type: int64 for varint scalars and
// enums, float64 for float and fixed-width scalars, bool, string, []byte,
// *Message, *Map, *Any,
// and []any for repeated fields.
func coerceValue(f *schema.Field, raw any) (any, error) {
	if f.Label == schema.LabelRepeated {
		if _, isMap := f.Type.(*schema.MapType); !isMap {
			elems, ok := toSlice(raw)
			if !ok {
				// A lone value on a repeated field becomes a single-element
				// list.
				single, err := coerceTyped(f.Type, raw)
				if err != nil {
					return nil, err
				}
				return []any{single}, nil
			}
			out := make([]any, len(elems))
			for i, e := range elems {
				v, err := coerceTyped(f.Type, e)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				out[i] = v
			}
			return out, nil
		}
	}
	return coerceTyped(f.Type, raw)
}

// coerceTyped converts a single value for a field type; map values and
// repeated elements share this path.
func coerceTyped(t schema.Type, raw any) (any, error) {
	switch t := t.(type) {
	case schema.ScalarType:
		return coerceScalar(t, raw)
	case *schema.EnumDef:
		if name, ok := raw.(string); ok {
			number, ok := t.Number(name)
			if !ok {
				return nil, fmt.Errorf("enum %s has no value %q", t.Name, name)
			}
			return number, nil
		}
		return toInt64(raw)
	case *schema.MessageDef:
		if t.FullName() == anyFullName {
			if a, ok := raw.(*anypack.Any); ok {
				return a, nil
			}
		}
		switch v := raw.(type) {
		case *Message:
			if v.def != t {
				return nil, fmt.Errorf("message value is %s, field wants %s", v.def.Name, t.Name)
			}
			return v, nil
		case map[string]any:
			return New(t, v)
		}
		return nil, fmt.Errorf("cannot use %T as message %s", raw, t.Name)
	case *schema.MapType:
		switch v := raw.(type) {
		case *Map:
			return v, nil
		default:
			return NewMap(t, raw)
		}
	}
	return nil, fmt.Errorf("field has unresolved type")
}

func coerceScalar(t schema.ScalarType, raw any) (any, error) {
	switch t {
	case schema.ScalarFloat:
		return toFloat64(raw)
	case schema.ScalarFixed32, schema.ScalarFixed64, schema.ScalarSfixed32, schema.ScalarSfixed64:
		return toFloat64(raw)
	case schema.ScalarBool:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("cannot use %T as bool", raw)
	case schema.ScalarString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("cannot use %T as string", raw)
	case schema.ScalarBytes:
		switch v := raw.(type) {
		case []byte:
			return v, nil
		case string:
			// Strings assigned to bytes fields are UTF-8 encoded.
			return []byte(v), nil
		}
		return nil, fmt.Errorf("cannot use %T as bytes", raw)
	}
	return toInt64(raw)
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		// JSON numbers arrive as float64; accept whole values.
		if v == float64(int64(v)) {
			return int64(v), nil
		}
		return 0, fmt.Errorf("cannot use fractional %v as integer", v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot use %q as integer", v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("cannot use %T as integer", raw)
}

func toFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("cannot use %T as float", raw)
}

// toSlice flattens any slice or array value into []any.
func toSlice(raw any) ([]any, bool) {
	if elems, ok := raw.([]any); ok {
		return elems, true
	}
	rv := reflect.ValueOf(raw)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	if _, isBytes := raw.([]byte); isBytes {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
