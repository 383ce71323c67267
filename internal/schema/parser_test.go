package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axonops/protodyn/internal/wire"
)

func TestParse_BasicCase(t *testing.T) {
	source := `syntax = "proto2";
message Example {
    optional float example_float = 1;
    optional ExampleSubMessage example_sub_message = 2;
}

message ExampleSubMessage {
    optional int32 example_int_1 = 13;
    required int32 example_int_2 = 14;
}
`
	s, err := Parse(source)
	require.NoError(t, err)
	assert.Equal(t, "proto2", s.Syntax)

	example, ok := s.Message("Example")
	require.True(t, ok)

	f, ok := example.Field("example_float")
	require.True(t, ok)
	assert.Equal(t, LabelOptional, f.Label)
	assert.Equal(t, ScalarFloat, f.Type)
	assert.Equal(t, 1, f.Number)

	sub, ok := s.Message("ExampleSubMessage")
	require.True(t, ok)

	ref, ok := example.Field("example_sub_message")
	require.True(t, ok)
	assert.Equal(t, LabelOptional, ref.Label)
	assert.Same(t, sub, ref.Type, "forward reference must resolve to the sub-message definition")

	int1, ok := sub.Field("example_int_1")
	require.True(t, ok)
	assert.Equal(t, LabelOptional, int1.Label)
	assert.Equal(t, ScalarInt32, int1.Type)
	assert.Equal(t, 13, int1.Number)

	int2, ok := sub.Field("example_int_2")
	require.True(t, ok)
	assert.Equal(t, LabelRequired, int2.Label)
	assert.Equal(t, 14, int2.Number)

	assert.Empty(t, s.UnresolvedReferences())
	assert.Empty(t, s.UnresolvedOptions())
}

func TestParse_CompactSource(t *testing.T) {
	source := `syntax="proto2";message Example{optional float example_float=1;optional ExampleSubMessage example_sub_message=2;}message ExampleSubMessage{optional int32 example_int_1=13;required int32 example_int_2=14;}`

	s, err := Parse(source)
	require.NoError(t, err)
	assert.Equal(t, "proto2", s.Syntax)

	example, ok := s.Message("Example")
	require.True(t, ok)
	assert.Equal(t, 2, example.Len())

	sub, ok := s.Message("ExampleSubMessage")
	require.True(t, ok)
	ref, _ := example.Field("example_sub_message")
	assert.Same(t, sub, ref.Type)
}

func TestParse_NestedMessage(t *testing.T) {
	source := `syntax = "proto2";
message Example {
    optional float example_float = 1;
    optional ExampleSubMessage example_sub_message = 2;

    message ExampleSubMessage {
        optional int32 example_int_1 = 13;
        required int32 example_int_2 = 14;
    }
}
`
	s, err := Parse(source)
	require.NoError(t, err)

	// Nested messages register at schema level by simple name.
	sub, ok := s.Message("ExampleSubMessage")
	require.True(t, ok)
	assert.Equal(t, 2, sub.Len())

	example, _ := s.Message("Example")
	ref, _ := example.Field("example_sub_message")
	assert.Same(t, sub, ref.Type)
}

func TestParse_Enum(t *testing.T) {
	source := `syntax = "proto2";
message Example {
    optional float example_float = 1;
    optional ExampleEnum enum_value = 2;
}

enum ExampleEnum {
    EXAMPLE_ENUM_1 = 1;
    EXAMPLE_ENUM_2 = 2;
    EXAMPLE_ENUM_3 = 3;
}
`
	s, err := Parse(source)
	require.NoError(t, err)

	e, ok := s.Enum("ExampleEnum")
	require.True(t, ok)
	for name, want := range map[string]int64{
		"EXAMPLE_ENUM_1": 1,
		"EXAMPLE_ENUM_2": 2,
		"EXAMPLE_ENUM_3": 3,
	} {
		got, ok := e.Number(name)
		require.True(t, ok, "missing constant %s", name)
		assert.Equal(t, want, got)
		back, ok := e.NameOf(want)
		require.True(t, ok)
		assert.Equal(t, name, back)
	}

	example, _ := s.Message("Example")
	f, _ := example.Field("enum_value")
	assert.Same(t, e, f.Type)
}

func TestParse_Repeated(t *testing.T) {
	source := `syntax = "proto2";
message Example {
    repeated int32 example_repeated = 2;
}
`
	s, err := Parse(source)
	require.NoError(t, err)
	example, _ := s.Message("Example")
	f, _ := example.Field("example_repeated")
	assert.Equal(t, LabelRepeated, f.Label)
	assert.Equal(t, ScalarInt32, f.Type)
}

func TestParse_RepeatedPackedOption(t *testing.T) {
	source := `syntax = "proto2";
message Example {
    repeated int32 example_repeated = 2 [packed=true];
}
`
	s, err := Parse(source)
	require.NoError(t, err)
	example, _ := s.Message("Example")
	f, _ := example.Field("example_repeated")
	assert.True(t, f.Packed())

	def := example.DecoderDefinition()
	assert.Equal(t, wire.HintRepeatedPacked, def[2].Kind)
	assert.Equal(t, wire.Varint, def[2].Inner)
}

func TestParse_DefaultOptions(t *testing.T) {
	source := `syntax = "proto2";
message Example {
    required float a = 1 [default=1.5];
    required int32 b = 2 [default=7];
    required bool c = 3 [default=true];
    required string d = 4 [default="hello"];
}
`
	s, err := Parse(source)
	require.NoError(t, err)
	example, _ := s.Message("Example")

	a, _ := example.Field("a")
	assert.Equal(t, 1.5, a.Options["default"])
	b, _ := example.Field("b")
	assert.Equal(t, int64(7), b.Options["default"])
	c, _ := example.Field("c")
	assert.Equal(t, true, c.Options["default"])
	d, _ := example.Field("d")
	assert.Equal(t, "hello", d.Options["default"])
}

func TestParse_EnumDefault(t *testing.T) {
	source := `syntax = "proto2";
message Example {
    optional Mode mode = 1 [default=MODE_SLOW];
}
enum Mode {
    MODE_FAST = 1;
    MODE_SLOW = 2;
}
`
	s, err := Parse(source)
	require.NoError(t, err)
	example, _ := s.Message("Example")
	f, _ := example.Field("mode")
	assert.Equal(t, int64(2), f.Options["default"], "enum default resolves by constant name after all enums are known")
	assert.Empty(t, s.UnresolvedOptions())
}

func TestParse_UnresolvedEnumDefault(t *testing.T) {
	source := `syntax = "proto2";
message Example {
    optional Mode mode = 1 [default=MODE_MISSING];
}
enum Mode {
    MODE_FAST = 1;
}
`
	_, err := Parse(source)
	assert.ErrorIs(t, err, ErrUnresolvedOptions)
}

func TestParse_UnknownOptionPassThrough(t *testing.T) {
	source := `syntax = "proto2";
message Example {
    optional int32 a = 1 [deprecated=true, weight=3, ratio=0.5, tag="x"];
}
`
	s, err := Parse(source)
	require.NoError(t, err)
	example, _ := s.Message("Example")
	f, _ := example.Field("a")
	assert.Equal(t, true, f.Options["deprecated"])
	assert.Equal(t, int64(3), f.Options["weight"])
	assert.Equal(t, 0.5, f.Options["ratio"])
	assert.Equal(t, "x", f.Options["tag"])
}

func TestParse_Oneof(t *testing.T) {
	source := `syntax = "proto2";
message Example {
    oneof test_oneof {
        int32 example_int_1 = 13;
        int32 example_int_2 = 14;
    }
}
`
	s, err := Parse(source)
	require.NoError(t, err)
	example, _ := s.Message("Example")

	require.Len(t, example.Oneofs["test_oneof"], 2)
	assert.Equal(t, "test_oneof", example.OneofByField["example_int_1"])
	assert.Equal(t, "test_oneof", example.OneofByField["example_int_2"])

	// Oneof members are regular fields on the enclosing message.
	f, ok := example.Field("example_int_1")
	require.True(t, ok)
	assert.Equal(t, 13, f.Number)
}

func TestParse_Reserved(t *testing.T) {
	source := `syntax = "proto2";
message Example {
    reserved 2, 15, 9 to 11;
    optional int32 a = 1;
}
`
	s, err := Parse(source)
	require.NoError(t, err)
	example, _ := s.Message("Example")

	for _, n := range []int{2, 9, 10, 11, 15} {
		assert.True(t, example.IsReserved(n), "number %d must be reserved", n)
	}
	assert.False(t, example.IsReserved(1))
}

func TestParse_FieldOnReservedNumber(t *testing.T) {
	source := `syntax = "proto2";
message Example {
    reserved 3;
    optional int32 a = 3;
}
`
	_, err := Parse(source)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved")
}

func TestParse_InvalidReserved(t *testing.T) {
	source := `syntax = "proto2";
message Example {
    reserved 11 to 9;
}
`
	_, err := Parse(source)
	assert.ErrorIs(t, err, ErrInvalidReserved)
}

func TestParse_DuplicateFieldNumber(t *testing.T) {
	source := `syntax = "proto2";
message Example {
    optional int32 a = 1;
    optional int32 b = 1;
}
`
	_, err := Parse(source)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate field number")
}

func TestParse_Comments(t *testing.T) {
	source := `syntax = "proto2";
// A leading file comment.
message Example {
    // Explains the message.
    optional int32 a = 1; // trailing field comment
    /* block comment */
    optional int32 b = 2;
}
`
	s, err := Parse(source)
	require.NoError(t, err)
	assert.Contains(t, s.Comments, "A leading file comment.")

	example, _ := s.Message("Example")
	assert.Contains(t, example.Comments, "Explains the message.")
	assert.Contains(t, example.Comments, "block comment")

	a, _ := example.Field("a")
	assert.Equal(t, "trailing field comment", a.Comment)
}

func TestParse_Map(t *testing.T) {
	source := `syntax = "proto2";
message Example {
    optional map<int32, ExampleSubMessage> m = 2;
}
message ExampleSubMessage {
    optional int32 x = 13;
    required int32 y = 14;
}
`
	s, err := Parse(source)
	require.NoError(t, err)
	example, _ := s.Message("Example")
	f, _ := example.Field("m")

	mt, ok := f.Type.(*MapType)
	require.True(t, ok)
	assert.Equal(t, ScalarInt32, mt.Key)
	sub, _ := s.Message("ExampleSubMessage")
	assert.Same(t, sub, mt.Value)
}

func TestParse_Service(t *testing.T) {
	source := `syntax = "proto2";
message Request { optional int32 id = 1; }
message Response { optional int32 id = 1; }
service Lookup {
    rpc Get(Request) returns (Response);
    rpc Put(Request) returns (Response) {}
}
`
	s, err := Parse(source)
	require.NoError(t, err)
	svc, ok := s.Service("Lookup")
	require.True(t, ok)
	require.Len(t, svc.Methods, 2)

	get := svc.Methods["Get"]
	require.NotNil(t, get)
	assert.Equal(t, "Request", get.InputName)
	assert.Equal(t, "Response", get.OutputName)
	req, _ := s.Message("Request")
	assert.Same(t, req, get.Input)
}

func TestParse_Extend(t *testing.T) {
	source := `syntax = "proto2";
message Example {
    optional int32 a = 1;
    extensions 100 to 199;
}
extend Example {
    optional int32 extra = 100;
}
`
	s, err := Parse(source)
	require.NoError(t, err)
	example, _ := s.Message("Example")
	f, ok := example.Field("extra")
	require.True(t, ok, "extend must add fields to the target message")
	assert.Equal(t, 100, f.Number)
	require.Len(t, example.Extensions, 1)
	assert.Equal(t, [2]int{100, 199}, example.Extensions[0])
}

func TestParse_ExtendUnknownTarget(t *testing.T) {
	source := `syntax = "proto2";
extend Missing {
    optional int32 extra = 100;
}
`
	_, err := Parse(source)
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestParse_UnknownKeyword(t *testing.T) {
	_, err := Parse(`syntax = "proto2"; banana Example;`)
	assert.ErrorIs(t, err, ErrUnknownKeyword)
}

func TestParse_UnresolvedReference(t *testing.T) {
	source := `syntax = "proto2";
message Example {
    optional MissingMessage m = 1;
}
`
	_, err := Parse(source)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedReferences)
	assert.Contains(t, err.Error(), "MissingMessage")
}

func TestParse_LabelFreeFieldDefaultsToRequired(t *testing.T) {
	source := `syntax = "proto3";
message Example {
    int32 a = 1;
}
`
	s, err := Parse(source)
	require.NoError(t, err)
	example, _ := s.Message("Example")
	f, _ := example.Field("a")
	assert.Equal(t, LabelRequired, f.Label)
}

func TestParse_FieldMapsAgree(t *testing.T) {
	source := `syntax = "proto2";
message Example {
    optional int32 a = 1;
    optional string b = 4;
    repeated float c = 9;
}
`
	s, err := Parse(source)
	require.NoError(t, err)
	example, _ := s.Message("Example")

	byNumber := example.FieldsByNumber()
	assert.Len(t, byNumber, example.Len())
	for _, f := range byNumber {
		named, ok := example.Field(f.Name)
		require.True(t, ok)
		assert.Same(t, f, named, "fields_by_name and fields_by_number must agree")
	}
}

func TestSchema_String(t *testing.T) {
	source := `syntax = "proto2";
message Example {
    optional float a = 1;
    required int32 b = 2;
}
`
	s, err := Parse(source)
	require.NoError(t, err)
	text := s.String()
	assert.True(t, strings.Contains(text, `syntax = "proto2";`))
	assert.True(t, strings.Contains(text, "message Example {"))
	assert.True(t, strings.Contains(text, "optional float a = 1;"))
	assert.True(t, strings.Contains(text, "required int32 b = 2;"))
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("message A {}")
	b := Fingerprint("message B {}")
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64)
	assert.Equal(t, a, Fingerprint("message A {}"))
}
