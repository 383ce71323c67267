package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode serializes a Dict to wire bytes. Fields are emitted in ascending
// field-number order.
//
// Each value either carries an explicit wire type (attached with Typed) or,
// when determineWireTypes is set, has one inferred from its kind:
// int/bool values encode as VARINT, floats as FIXED32 (callers holding
// 64-bit floats must attach FIXED64 explicitly), and strings, bytes,
// sub-messages and lists as LENGTH_DELIMITED. When neither applies the
// encoding fails with ErrWireTypeUndetermined.
func Encode(d Dict, determineWireTypes bool) ([]byte, error) {
	return Append(nil, d, determineWireTypes)
}

// Append is Encode appending to an existing buffer.
func Append(b []byte, d Dict, determineWireTypes bool) ([]byte, error) {
	var err error
	for _, number := range d.Numbers() {
		b, err = appendField(b, number, d[number], determineWireTypes)
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

func appendField(b []byte, number int, v Value, determine bool) ([]byte, error) {
	if v.kind == KindList {
		// Non-packed repeated: one tagged field per element. A wire type
		// attached at the list level applies to every element.
		for _, elem := range v.list {
			if v.hasWT && !elem.hasWT {
				elem = Typed(v.wt, elem)
			}
			var err error
			b, err = appendField(b, number, elem, determine)
			if err != nil {
				return nil, err
			}
		}
		return b, nil
	}

	if v.kind == KindPacked {
		b = AppendTag(b, number, LengthDelimited)
		var payload []byte
		for _, elem := range v.list {
			var err error
			payload, err = appendScalar(payload, elem, v.inner)
			if err != nil {
				return nil, fmt.Errorf("field %d: packed element: %w", number, err)
			}
		}
		b = AppendUvarint(b, uint64(len(payload)))
		return append(b, payload...), nil
	}

	wt, ok := v.WireType()
	if !ok {
		if !determine {
			return nil, fmt.Errorf("field %d: %w", number, ErrWireTypeUndetermined)
		}
		wt, ok = inferWireType(v)
		if !ok {
			return nil, fmt.Errorf("field %d: %w", number, ErrWireTypeUndetermined)
		}
	}

	b = AppendTag(b, number, wt)

	if wt == LengthDelimited {
		payload, err := lengthDelimitedPayload(v, determine)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", number, err)
		}
		b = AppendUvarint(b, uint64(len(payload)))
		return append(b, payload...), nil
	}

	var err error
	b, err = appendScalar(b, v, wt)
	if err != nil {
		return nil, fmt.Errorf("field %d: %w", number, err)
	}
	return b, nil
}

// appendScalar writes a raw (untagged) payload for the VARINT, FIXED32 and
// FIXED64 wire types. Packed repeated elements use the same path.
func appendScalar(b []byte, v Value, wt Type) ([]byte, error) {
	switch wt {
	case Varint:
		switch v.kind {
		case KindUint, KindBool:
			return AppendUvarint(b, v.num), nil
		}
		return nil, fmt.Errorf("cannot encode %v value as varint", v.kind)
	case Fixed32:
		bits := math.Float32bits(float32(v.asFloat()))
		return binary.LittleEndian.AppendUint32(b, bits), nil
	case Fixed64:
		bits := math.Float64bits(v.asFloat())
		return binary.LittleEndian.AppendUint64(b, bits), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedWireType, wt)
}

func lengthDelimitedPayload(v Value, determine bool) ([]byte, error) {
	switch v.kind {
	case KindDict:
		return Append(nil, v.dict, determine)
	case KindString:
		return []byte(v.s), nil
	case KindBytes:
		return v.raw, nil
	}
	return nil, fmt.Errorf("cannot encode %v value as length-delimited", v.kind)
}

// asFloat coerces the payload for a fixed-width slot. Integers are allowed
// so callers can place whole numbers at FIXED32/FIXED64 positions.
func (v Value) asFloat() float64 {
	if v.kind == KindUint || v.kind == KindBool {
		return float64(int64(v.num))
	}
	return v.f
}

func inferWireType(v Value) (Type, bool) {
	switch v.kind {
	case KindUint, KindBool:
		return Varint, true
	case KindFloat:
		return Fixed32, true
	case KindString, KindBytes, KindDict:
		return LengthDelimited, true
	}
	return 0, false
}
