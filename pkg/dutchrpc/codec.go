// Package dutchrpc defines the Dutch RPC surface: message types, Connect
// handlers and clients for GroupService and AuthService.
//
// Messages are plain Go structs carried as JSON. Monetary values are decimal
// strings ("12.50"), never floats.
package dutchrpc

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// Codec marshals messages with encoding/json. It is registered under the name
// "json", so requests use Content-Type application/json.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}
