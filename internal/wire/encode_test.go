package wire

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_Varint(t *testing.T) {
	data, err := Encode(Dict{1: Typed(Varint, Uint(150))}, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x08, 0x96, 0x01}, data)
}

func TestEncode_Bool(t *testing.T) {
	data, err := Encode(Dict{1: Typed(Varint, Bool(true)), 2: Typed(Varint, Bool(false))}, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x08, 0x01, 0x10, 0x00}, data)
}

func TestEncode_Fixed64(t *testing.T) {
	data, err := Encode(Dict{1: Typed(Fixed64, Float(123456789.1011121314))}, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x09, 0xf0, 0x89, 0x67, 0x54, 0x34, 0x6f, 0x9d, 0x41}, data)
}

func TestEncode_NaNFixed32(t *testing.T) {
	data, err := Encode(Dict{1: Typed(Fixed32, Float(math.NaN()))}, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0d, 0x00, 0x00, 0xc0, 0x7f}, data)
}

func TestEncode_String(t *testing.T) {
	data, err := Encode(Dict{2: Typed(LengthDelimited, String("testing"))}, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x12, 0x07, 0x74, 0x65, 0x73, 0x74, 0x69, 0x6e, 0x67}, data)
}

func TestEncode_NestedMessage(t *testing.T) {
	data, err := Encode(Dict{
		3: Typed(LengthDelimited, Nested(Dict{1: Typed(Varint, Uint(150))})),
	}, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1a, 0x03, 0x08, 0x96, 0x01}, data)
}

func TestEncode_RepeatedNonPacked(t *testing.T) {
	data, err := Encode(Dict{1: Typed(Varint, List(Uint(1), Uint(2), Uint(3)))}, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x08, 0x01, 0x08, 0x02, 0x08, 0x03}, data)
}

func TestEncode_RepeatedPacked(t *testing.T) {
	data, err := Encode(Dict{1: Packed(Varint, Uint(1), Uint(2), Uint(3))}, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x03, 0x01, 0x02, 0x03}, data)
}

func TestEncode_InferredWireTypes(t *testing.T) {
	data, err := Encode(Dict{
		1: Uint(150),
		2: String("ok"),
		3: Nested(Dict{13: Uint(3)}),
	}, true)
	require.NoError(t, err)

	decoded, err := Decode(data, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(150), decoded[1].Uint())
	assert.Equal(t, "ok", decoded[2].Str())
	assert.Equal(t, uint64(3), decoded[3].Dict()[13].Uint())
}

func TestEncode_WireTypeUndetermined(t *testing.T) {
	_, err := Encode(Dict{1: Uint(1)}, false)
	assert.ErrorIs(t, err, ErrWireTypeUndetermined)
}

func TestEncode_NegativeInt(t *testing.T) {
	data, err := Encode(Dict{1: Typed(Varint, Int(-2))}, false)
	require.NoError(t, err)
	// Ten-byte varint after two's-complement widening.
	assert.Len(t, data, 11)

	decoded, err := Decode(data, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), decoded[1].Int64())
}

func TestEncode_FieldNumberOrder(t *testing.T) {
	data, err := Encode(Dict{
		5: Typed(Varint, Uint(5)),
		1: Typed(Varint, Uint(1)),
		3: Typed(Varint, Uint(3)),
	}, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x08, 0x01, 0x18, 0x03, 0x28, 0x05}, data)
}
