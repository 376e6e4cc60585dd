package service

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// JSONCodec replaces connect's protobuf-only JSON codec so plain Go structs
// can be used as request and response messages.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}
