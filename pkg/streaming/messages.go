// Package streaming defines the JSON envelope exchanged with WebSocket
// observers.
package streaming

import (
	"encoding/json"
	"fmt"
)

// Message type constants matching the streaming protocol.
const (
	// server to client
	TypeTelemetry = "telemetry"
	TypeFireData  = "fire_data"
	TypePong      = "pong"
	TypeError     = "error"

	// client to server
	TypeGetState = "get_state"
	TypeGetFire  = "get_fire"
	TypePing     = "ping"
)

// Envelope wraps all messages sent over the WebSocket. Seq is set on
// telemetry pushes and omitted elsewhere.
type Envelope struct {
	Type    string          `json:"type"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ErrorPayload is the payload of a TypeError envelope.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Encode marshals payload into an envelope of the given type and returns the
// wire bytes.
func Encode(msgType string, seq uint64, payload any) ([]byte, error) {
	var raw json.RawMessage
	switch p := payload.(type) {
	case nil:
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		raw = b
	}
	return json.Marshal(Envelope{Type: msgType, Seq: seq, Payload: raw})
}

// EncodeError builds a TypeError envelope.
func EncodeError(msg string) []byte {
	b, _ := Encode(TypeError, 0, ErrorPayload{Message: msg})
	return b
}

// Decode parses wire bytes into an envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing type")
	}
	return env, nil
}
