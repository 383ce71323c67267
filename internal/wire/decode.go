package wire

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

const (
	// Rounding scales used to hide IEEE-754 display artifacts after
	// fixed-width decodes: 7 decimal digits for 32-bit floats, 15 for
	// 64-bit.
	sevenDecimals   = 1e7
	fifteenDecimals = 1e15
)

// Decode parses wire bytes into the intermediate form. The definition is
// optional; when present it guides packed repeated and map fields and
// supplies nested definitions for sub-messages.
//
// Length-delimited payloads without a packed hint are decoded best-effort:
// first as a sub-message, falling back to a UTF-8 string, falling back to
// raw bytes (rendered as lowercase hex by Value.Str). Truncation and
// unsupported wire types are never recovered from.
//
// A field number seen once maps to its value directly; a second occurrence
// promotes the entry to a list, and further occurrences append.
func Decode(data []byte, def Definition) (Dict, error) {
	return decode(data, def, nil)
}

// decode is Decode with an optional uniform hint applied to every field,
// used for map payloads where field numbers are map keys.
func decode(data []byte, def Definition, uniform *Hint) (Dict, error) {
	out := Dict{}
	i := 0
	for i < len(data) {
		tag, next, err := Uvarint(data, i)
		if err != nil {
			return nil, err
		}
		i = next
		number, wt, err := SplitTag(tag)
		if err != nil {
			return nil, fmt.Errorf("field tag at offset %d: %w", i, err)
		}

		hint := uniform
		if def != nil {
			if h, ok := def[number]; ok {
				hint = &h
			}
		}

		var v Value
		switch wt {
		case Varint:
			var u uint64
			u, i, err = Uvarint(data, i)
			if err != nil {
				return nil, err
			}
			v = Uint(u)
		case Fixed32:
			if i+4 > len(data) {
				return nil, ErrTruncated
			}
			f := float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i:])))
			i += 4
			v = Float(normalizeFloat(f, sevenDecimals))
		case Fixed64:
			if i+8 > len(data) {
				return nil, ErrTruncated
			}
			f := math.Float64frombits(binary.LittleEndian.Uint64(data[i:]))
			i += 8
			v = Float(normalizeFloat(f, fifteenDecimals))
		case LengthDelimited:
			var length uint64
			length, i, err = Uvarint(data, i)
			if err != nil {
				return nil, err
			}
			if uint64(len(data)-i) < length {
				return nil, ErrTruncated
			}
			payload := data[i : i+int(length)]
			i += int(length)
			v, err = decodeLengthDelimited(payload, hint)
			if err != nil {
				return nil, err
			}
		}

		assign(out, number, v)
	}
	return out, nil
}

func decodeLengthDelimited(payload []byte, hint *Hint) (Value, error) {
	if hint != nil && hint.Kind == HintRepeatedPacked {
		elems, err := decodePacked(payload, hint.Inner)
		if err != nil {
			return Value{}, err
		}
		return List(elems...), nil
	}

	if hint != nil && hint.Kind == HintMap {
		// A map field arrives as one sub-message keyed by the map keys;
		// the nested definition applies to every value.
		sub, err := decodeMapPayload(payload, hint.Nested)
		if err != nil {
			return Value{}, err
		}
		return Nested(sub), nil
	}

	var nested Definition
	if hint != nil {
		nested = hint.Nested
	}

	// Without a schema a length-delimited payload is ambiguous: it may be
	// a sub-message, a string, or opaque bytes. Try the message decode
	// first and degrade to a human-readable representation.
	if sub, err := Decode(payload, nested); err == nil {
		return Nested(sub), nil
	}
	if isText(payload) {
		return String(string(payload)), nil
	}
	return Bytes(payload), nil
}

// decodeMapPayload decodes a map field's payload. Field numbers inside are
// the map keys, so the value definition applies to every field rather than
// being looked up by number.
func decodeMapPayload(payload []byte, valueDef Definition) (Dict, error) {
	if valueDef == nil {
		return Decode(payload, nil)
	}
	h := Sub(valueDef)
	return decode(payload, nil, &h)
}

// decodePacked parses a packed repeated payload: raw values under the
// inner wire type, no per-element tags.
func decodePacked(payload []byte, inner Type) ([]Value, error) {
	var elems []Value
	i := 0
	for i < len(payload) {
		switch inner {
		case Varint:
			u, next, err := Uvarint(payload, i)
			if err != nil {
				return nil, err
			}
			elems = append(elems, Uint(u))
			i = next
		case Fixed32:
			if i+4 > len(payload) {
				return nil, ErrTruncated
			}
			f := float64(math.Float32frombits(binary.LittleEndian.Uint32(payload[i:])))
			elems = append(elems, Float(normalizeFloat(f, sevenDecimals)))
			i += 4
		case Fixed64:
			if i+8 > len(payload) {
				return nil, ErrTruncated
			}
			f := math.Float64frombits(binary.LittleEndian.Uint64(payload[i:]))
			elems = append(elems, Float(normalizeFloat(f, fifteenDecimals)))
			i += 8
		default:
			return nil, fmt.Errorf("packed repeated: %w: %s", ErrUnsupportedWireType, inner)
		}
	}
	return elems, nil
}

func assign(d Dict, number int, v Value) {
	existing, ok := d[number]
	if !ok {
		d[number] = v
		return
	}
	if existing.kind == KindList {
		existing.list = append(existing.list, v)
		d[number] = existing
		return
	}
	d[number] = List(existing, v)
}

// normalizeFloat rounds away IEEE-754 display artifacts. The last decimal
// digit at the given precision decides: 0 rounds down, 9 rounds up, and
// anything else (including the "already exact" marker -1) leaves the value
// untouched. NaN passes through verbatim.
func normalizeFloat(v float64, scale float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	m := math.Mod(v*scale, 10)
	if m < 0 {
		m += 10
	}
	switch math.Ceil(m) - 1 {
	case 0:
		return math.Floor(v*scale) / scale
	case 9:
		return math.Ceil(v*scale) / scale
	}
	return v
}

// isText reports whether the payload reads as printable UTF-8 text, which
// is how the schema-less decoder distinguishes strings from opaque bytes.
func isText(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, c := range b {
		if c < 0x20 && c != '\t' && c != '\n' && c != '\r' {
			return false
		}
		if c == 0x7f {
			return false
		}
	}
	return true
}
