package admin

import (
	"encoding/json"
	"fmt"

	grpcEncoding "google.golang.org/grpc/encoding"
	_ "google.golang.org/grpc/encoding/proto" // ensure default proto codec is registered first
	"google.golang.org/protobuf/proto"
)

func init() {
	// Replace the default proto codec with a thin wrapper that JSON-encodes
	// admin types and delegates all other (protobuf) messages to proto.Marshal.
	grpcEncoding.RegisterCodec(adminCodec{})
}

// adminCodec handles admin messages via JSON and everything else via proto.
type adminCodec struct{}

func (adminCodec) Name() string { return "proto" }

func (adminCodec) Marshal(v any) ([]byte, error) {
	if _, ok := v.(adminMsg); ok {
		return json.Marshal(v)
	}
	if m, ok := v.(proto.Message); ok {
		return proto.Marshal(m)
	}
	return nil, fmt.Errorf("admin codec: unsupported message type %T", v)
}

func (adminCodec) Unmarshal(data []byte, v any) error {
	if _, ok := v.(adminMsg); ok {
		return json.Unmarshal(data, v)
	}
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}
	return fmt.Errorf("admin codec: unsupported message type %T", v)
}
