package wire

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_VarintBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		number int
		value  uint64
	}{
		{"single byte payload", []byte{0x08, 0x96, 0x01}, 1, 150},
		{"field number 33", []byte{0x88, 0x02, 0x7b}, 33, 123},
		{"max field number", []byte{0xf8, 0xff, 0xff, 0xff, 0x0f, 0x7b}, 536870911, 123},
		{"field number 262144", []byte{0x80, 0x80, 0x80, 0x01, 0x7b}, 262144, 123},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.data, nil)
			require.NoError(t, err)
			require.Len(t, got, 1)
			v, ok := got[tt.number]
			require.True(t, ok, "field %d missing: %s", tt.number, got)
			assert.Equal(t, tt.value, v.Uint())
		})
	}
}

func TestDecode_Fixed32(t *testing.T) {
	data, err := Encode(Dict{1: Typed(Fixed32, Float(1.1))}, false)
	require.NoError(t, err)
	got, err := Decode(data, nil)
	require.NoError(t, err)
	// float32(1.1) widens to 1.100000023841858; normalization trims the
	// artifact back to 1.1.
	assert.Equal(t, 1.1, got[1].Float())
}

func TestDecode_Fixed64(t *testing.T) {
	data := []byte{0x09, 0xf0, 0x89, 0x67, 0x54, 0x34, 0x6f, 0x9d, 0x41}
	got, err := Decode(data, nil)
	require.NoError(t, err)
	assert.InDelta(t, 123456789.1011121314, got[1].Float(), 1e-6)
}

func TestDecode_NaN(t *testing.T) {
	data, err := Encode(Dict{1: Typed(Fixed32, Float(math.NaN()))}, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0d, 0x00, 0x00, 0xc0, 0x7f}, data)

	got, err := Decode(data, nil)
	require.NoError(t, err)
	v := got[1].Float()
	assert.True(t, v != v, "NaN must be preserved verbatim")
}

func TestDecode_SubMessage(t *testing.T) {
	// {2: {13: 3, 14: 1}}
	data, err := Encode(Dict{
		2: Typed(LengthDelimited, Nested(Dict{
			13: Typed(Varint, Uint(3)),
			14: Typed(Varint, Uint(1)),
		})),
	}, false)
	require.NoError(t, err)

	got, err := Decode(data, nil)
	require.NoError(t, err)
	sub := got[2]
	require.Equal(t, KindDict, sub.Kind())
	assert.Equal(t, uint64(3), sub.Dict()[13].Uint())
	assert.Equal(t, uint64(1), sub.Dict()[14].Uint())
}

func TestDecode_StringFallback(t *testing.T) {
	data, err := Encode(Dict{1: Typed(LengthDelimited, String("test"))}, false)
	require.NoError(t, err)
	got, err := Decode(data, nil)
	require.NoError(t, err)
	require.Equal(t, KindString, got[1].Kind())
	assert.Equal(t, "test", got[1].Str())
}

func TestDecode_OpaqueBytesFallback(t *testing.T) {
	raw := []byte{0xde, 0xad, 0xbe, 0xef}
	data, err := Encode(Dict{1: Typed(LengthDelimited, Bytes(raw))}, false)
	require.NoError(t, err)
	got, err := Decode(data, nil)
	require.NoError(t, err)
	require.Equal(t, KindBytes, got[1].Kind())
	assert.Equal(t, raw, got[1].Raw())
	assert.Equal(t, "deadbeef", got[1].Str())
}

func TestDecode_RepeatedPromotion(t *testing.T) {
	data, err := Encode(Dict{1: Typed(Varint, List(Uint(1), Uint(2), Uint(3)))}, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x08, 0x01, 0x08, 0x02, 0x08, 0x03}, data)

	got, err := Decode(data, nil)
	require.NoError(t, err)
	v := got[1]
	require.Equal(t, KindList, v.Kind())
	require.Len(t, v.List(), 3)
	for i, want := range []uint64{1, 2, 3} {
		assert.Equal(t, want, v.List()[i].Uint())
	}
}

func TestDecode_RepeatedPacked(t *testing.T) {
	data, err := Encode(Dict{1: Packed(Varint, Uint(1), Uint(2), Uint(3))}, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x03, 0x01, 0x02, 0x03}, data)

	got, err := Decode(data, Definition{1: RepeatedPacked(Varint)})
	require.NoError(t, err)
	v := got[1]
	require.Equal(t, KindList, v.Kind())
	require.Len(t, v.List(), 3)
	for i, want := range []uint64{1, 2, 3} {
		assert.Equal(t, want, v.List()[i].Uint())
	}
}

func TestDecode_Truncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"varint payload cut", []byte{0x08, 0x96}},
		{"fixed32 cut", []byte{0x0d, 0x00, 0x00}},
		{"fixed64 cut", []byte{0x09, 0x00}},
		{"length exceeds buffer", []byte{0x0a, 0x05, 0x01}},
		{"tag cut", []byte{0x80}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data, nil)
			assert.ErrorIs(t, err, ErrTruncated)
		})
	}
}

func TestDecode_UnsupportedWireType(t *testing.T) {
	// Wire types 3 (group start) and 4 (group end) are rejected.
	for _, tag := range []byte{0x0b, 0x0c} {
		_, err := Decode([]byte{tag, 0x01}, nil)
		assert.ErrorIs(t, err, ErrUnsupportedWireType)
	}
}

func TestDecode_RoundTripLaw(t *testing.T) {
	// decode(encode(d)) == d when every LENGTH_DELIMITED sub-value is a
	// sub-message.
	d := Dict{
		1: Typed(Varint, Uint(150)),
		2: Typed(LengthDelimited, Nested(Dict{
			13: Typed(Varint, Uint(3)),
			14: Typed(Varint, Uint(1)),
		})),
		3: Typed(Varint, List(Uint(7), Uint(8))),
	}
	data, err := Encode(d, false)
	require.NoError(t, err)
	got, err := Decode(data, nil)
	require.NoError(t, err)
	assert.True(t, got.Equal(d), "round trip mismatch: %s != %s", got, d)
}

func TestNormalizeFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{float64(float32(1.1)), 1.1},
		{float64(float32(5.9)), 5.9},
		{float64(float32(1.15)), 1.15},
		{1.0, 1.0},
		{0.0, 0.0},
		{float64(float32(-1.1)), -1.1},
	}
	for _, tt := range tests {
		if got := normalizeFloat(tt.in, sevenDecimals); got != tt.want {
			t.Errorf("normalizeFloat(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
