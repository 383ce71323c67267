package schema

// wellKnownImports carries embedded sources for the well-known types so
// the common imports resolve without touching the network. Anything not
// listed here still goes through the remote fallback.
var wellKnownImports = map[string]string{
	"google/protobuf/any.proto": `
syntax = "proto3";
package google.protobuf;
message Any {
  string type_url = 1;
  bytes value = 2;
}`,
	"google/protobuf/timestamp.proto": `
syntax = "proto3";
package google.protobuf;
message Timestamp {
  int64 seconds = 1;
  int32 nanos = 2;
}`,
	"google/protobuf/duration.proto": `
syntax = "proto3";
package google.protobuf;
message Duration {
  int64 seconds = 1;
  int32 nanos = 2;
}`,
	"google/protobuf/empty.proto": `
syntax = "proto3";
package google.protobuf;
message Empty {}`,
	"google/protobuf/field_mask.proto": `
syntax = "proto3";
package google.protobuf;
message FieldMask {
  repeated string paths = 1;
}`,
}
