package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Codec errors. Concrete failures wrap one of these.
var (
	ErrEncode = errors.New("encode error")
	ErrDecode = errors.New("decode error")
)

// Encoder converts packets to transport messages and back.
// Implementations must be safe for concurrent use.
type Encoder interface {
	// Name identifies the encoding (used in logs and config).
	Name() string

	// Binary reports whether encoded messages are binary rather than text.
	Binary() bool

	// Encode serialises a packet.
	Encode(p Packet) ([]byte, error)

	// Decode parses a message. Unknown packet types decode to *Unknown.
	Decode(data []byte) (Packet, error)
}

// Compile-time interface satisfaction checks.
var (
	_ Encoder = JSONEncoder{}
	_ Encoder = CBOREncoder{}
)

// EncoderByName returns the encoder registered under name.
func EncoderByName(name string) (Encoder, error) {
	switch name {
	case "", "json":
		return JSONEncoder{}, nil
	case "cbor":
		return CBOREncoder{}, nil
	default:
		return nil, fmt.Errorf("unknown encoder %q (use: json, cbor)", name)
	}
}

// JSONEncoder is the default text encoding.
type JSONEncoder struct{}

// Name implements Encoder.
func (JSONEncoder) Name() string { return "json" }

// Binary implements Encoder.
func (JSONEncoder) Binary() bool { return false }

// Encode implements Encoder.
func (JSONEncoder) Encode(p Packet) ([]byte, error) {
	if err := Validate(p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	data, err := json.Marshal(struct {
		T PacketType `json:"t"`
		D Packet     `json:"d"`
	}{p.Type(), p})
	if err != nil {
		return nil, fmt.Errorf("%w: %s packet: %w", ErrEncode, p.Type(), err)
	}
	return data, nil
}

// Decode implements Encoder.
func (JSONEncoder) Decode(data []byte) (Packet, error) {
	var env struct {
		T *PacketType     `json:"t"`
		D json.RawMessage `json:"d"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if env.T == nil {
		return nil, fmt.Errorf("%w: missing packet type", ErrDecode)
	}

	if !env.T.IsValid() {
		return &Unknown{Code: *env.T, Payload: env.D}, nil
	}
	p := newPayload(*env.T)
	if len(env.D) == 0 || bytes.Equal(env.D, []byte("null")) {
		return p, nil
	}
	if err := json.Unmarshal(env.D, p); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %w", ErrDecode, *env.T, err)
	}
	return p, nil
}
