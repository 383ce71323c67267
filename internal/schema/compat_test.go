package schema

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/bufbuild/protocompile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// compileReference compiles a schema with the reference protobuf compiler
// so our parser's view of the source can be checked against it.
func compileReference(t *testing.T, source string) protoreflect.FileDescriptor {
	t.Helper()
	compiler := protocompile.Compiler{
		Resolver: &protocompile.SourceResolver{
			Accessor: func(path string) (io.ReadCloser, error) {
				if path == "schema.proto" {
					return io.NopCloser(strings.NewReader(source)), nil
				}
				return nil, fmt.Errorf("file not found: %s", path)
			},
		},
	}
	files, err := compiler.Compile(context.Background(), "schema.proto")
	require.NoError(t, err)
	require.Len(t, files, 1)
	return files[0]
}

func TestParse_AgreesWithProtocompile(t *testing.T) {
	source := `syntax = "proto2";

message Example {
    optional float example_float = 1;
    optional Sub example_sub = 2;
    repeated int32 example_repeated = 3 [packed=true];
}

message Sub {
    optional int32 x = 13;
    required int32 y = 14;
}

enum Mode {
    MODE_FAST = 1;
    MODE_SLOW = 2;
}
`
	fd := compileReference(t, source)

	s, err := Parse(source)
	require.NoError(t, err)

	for i := 0; i < fd.Messages().Len(); i++ {
		want := fd.Messages().Get(i)
		got, ok := s.Message(string(want.Name()))
		require.True(t, ok, "message %s missing from our schema", want.Name())

		require.Equal(t, want.Fields().Len(), got.Len(), "field count of %s", want.Name())
		for j := 0; j < want.Fields().Len(); j++ {
			wf := want.Fields().Get(j)
			gf, ok := got.Field(string(wf.Name()))
			require.True(t, ok, "field %s.%s", want.Name(), wf.Name())
			assert.Equal(t, int(wf.Number()), gf.Number, "number of %s.%s", want.Name(), wf.Name())

			switch wf.Cardinality() {
			case protoreflect.Repeated:
				assert.Equal(t, LabelRepeated, gf.Label)
			case protoreflect.Required:
				assert.Equal(t, LabelRequired, gf.Label)
			case protoreflect.Optional:
				assert.Equal(t, LabelOptional, gf.Label)
			}
		}
	}

	for i := 0; i < fd.Enums().Len(); i++ {
		want := fd.Enums().Get(i)
		got, ok := s.Enum(string(want.Name()))
		require.True(t, ok, "enum %s missing", want.Name())
		require.Equal(t, want.Values().Len(), got.Len())
		for j := 0; j < want.Values().Len(); j++ {
			wv := want.Values().Get(j)
			number, ok := got.Number(string(wv.Name()))
			require.True(t, ok)
			assert.Equal(t, int64(wv.Number()), number)
		}
	}
}
