// Package connect provides Connect RPC service implementations.
package connect

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// JSONCodec marshals plain Go messages as JSON. It replaces connect's
// protobuf-only "json" codec on both handlers and clients.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

// Name returns the codec name.
func (JSONCodec) Name() string {
	return "json"
}

// Marshal encodes message.
func (JSONCodec) Marshal(message any) ([]byte, error) {
	return json.Marshal(message)
}

// Unmarshal decodes data into message. Empty payloads leave message as is.
func (JSONCodec) Unmarshal(data []byte, message any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, message)
}

// WithJSON returns the option selecting JSONCodec.
func WithJSON() connect.Option {
	return connect.WithCodec(JSONCodec{})
}
