package admin

import "encoding/json"

// jsonCodec replaces grpc's default proto codec: there is no protoc in
// this build, so admin messages cross the wire as JSON rather than
// protobuf. Installed server-wide via grpc.ForceServerCodec /
// grpc.WithDefaultCallOptions(grpc.ForceCodec(...)).
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
func (jsonCodec) Name() string { return "json" }

// Codec is the jsonCodec instance the host wires into its grpc.Server.
var Codec = jsonCodec{}
