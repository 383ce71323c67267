package wire

import (
	"bytes"
	"testing"
)

func TestAppendUvarint(t *testing.T) {
	tests := []struct {
		value uint64
		want  []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{150, []byte{0x96, 0x01}},
		{300, []byte{0xac, 0x02}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}
	for _, tt := range tests {
		got := AppendUvarint(nil, tt.value)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("AppendUvarint(%d) = %x, want %x", tt.value, got, tt.want)
		}
	}
}

func TestAppendVarint_Negative(t *testing.T) {
	// Negative ints widen to 64 bits, producing the ten-byte encoding.
	got := AppendVarint(nil, -1)
	want := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("AppendVarint(-1) = %x, want %x", got, want)
	}
}

func TestUvarint_RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 150, 300, 1 << 20, 1<<63 - 1, 1 << 63, ^uint64(0)}
	for _, v := range values {
		b := AppendUvarint(nil, v)
		got, next, err := Uvarint(b, 0)
		if err != nil {
			t.Fatalf("Uvarint(%x): %v", b, err)
		}
		if got != v {
			t.Errorf("Uvarint(%x) = %d, want %d", b, got, v)
		}
		if next != len(b) {
			t.Errorf("Uvarint(%x) consumed %d bytes, want %d", b, next, len(b))
		}
	}
}

func TestUvarint_Truncated(t *testing.T) {
	if _, _, err := Uvarint([]byte{0x96}, 0); err != ErrTruncated {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
	if _, _, err := Uvarint(nil, 0); err != ErrTruncated {
		t.Errorf("expected ErrTruncated on empty input, got %v", err)
	}
}

func TestSplitTag(t *testing.T) {
	tests := []struct {
		tag    uint64
		number int
		wt     Type
	}{
		{0x08, 1, Varint},
		{0x0a, 1, LengthDelimited},
		{0x108, 33, Varint},
		{0x09, 1, Fixed64},
		{0x0d, 1, Fixed32},
	}
	for _, tt := range tests {
		number, wt, err := SplitTag(tt.tag)
		if err != nil {
			t.Fatalf("SplitTag(%#x): %v", tt.tag, err)
		}
		if number != tt.number || wt != tt.wt {
			t.Errorf("SplitTag(%#x) = (%d, %s), want (%d, %s)", tt.tag, number, wt, tt.number, tt.wt)
		}
	}
}

func TestSplitTag_GroupsRejected(t *testing.T) {
	for _, tag := range []uint64{0x0b, 0x0c} { // wire types 3 and 4
		if _, _, err := SplitTag(tag); err != ErrUnsupportedWireType {
			t.Errorf("SplitTag(%#x): expected ErrUnsupportedWireType, got %v", tag, err)
		}
	}
}

func TestAppendTag_LargeFieldNumbers(t *testing.T) {
	// Field numbers spanning multiple varint bytes must survive the
	// pack/unpack round trip.
	for _, number := range []int{1, 15, 16, 2047, 2048, 262144, 536870911} {
		b := AppendTag(nil, number, Varint)
		tag, _, err := Uvarint(b, 0)
		if err != nil {
			t.Fatalf("Uvarint: %v", err)
		}
		got, wt, err := SplitTag(tag)
		if err != nil {
			t.Fatalf("SplitTag: %v", err)
		}
		if got != number || wt != Varint {
			t.Errorf("tag round trip for %d: got %d/%s", number, got, wt)
		}
	}
}
