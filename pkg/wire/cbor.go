package wire

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder mode for packets.
// Configured for deterministic encoding.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for packets.
var decMode cbor.DecMode

// cborNull is the single-byte CBOR encoding of null.
const cborNull = 0xf6

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Lenient for forward compatibility; string-keyed maps so event data
	// looks the same as with the JSON encoder.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
		DefaultMapType:    reflect.TypeOf(map[string]any(nil)),
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// CBOREncoder is a binary encoding using canonical CBOR.
type CBOREncoder struct{}

// Name implements Encoder.
func (CBOREncoder) Name() string { return "cbor" }

// Binary implements Encoder.
func (CBOREncoder) Binary() bool { return true }

// Encode implements Encoder.
func (CBOREncoder) Encode(p Packet) ([]byte, error) {
	if err := Validate(p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	data, err := encMode.Marshal(struct {
		T PacketType `cbor:"t"`
		D Packet     `cbor:"d"`
	}{p.Type(), p})
	if err != nil {
		return nil, fmt.Errorf("%w: %s packet: %w", ErrEncode, p.Type(), err)
	}
	return data, nil
}

// Decode implements Encoder.
func (CBOREncoder) Decode(data []byte) (Packet, error) {
	var env struct {
		T *PacketType     `cbor:"t"`
		D cbor.RawMessage `cbor:"d"`
	}
	if err := decMode.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if env.T == nil {
		return nil, fmt.Errorf("%w: missing packet type", ErrDecode)
	}

	if !env.T.IsValid() {
		return &Unknown{Code: *env.T, Payload: env.D}, nil
	}
	p := newPayload(*env.T)
	if len(env.D) == 0 || (len(env.D) == 1 && env.D[0] == cborNull) {
		return p, nil
	}
	if err := decMode.Unmarshal(env.D, p); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %w", ErrDecode, *env.T, err)
	}
	return p, nil
}
