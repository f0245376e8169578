package log

import (
	"time"

	"github.com/topicmux/topicmux-go/pkg/wire"
)

// Event represents a protocol log event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the client connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	Direction Direction `cbor:"3,keyasint"`
	Layer     Layer     `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// URL is the endpoint the connection dials (set on state events).
	URL string `cbor:"6,keyasint,omitempty"`

	// Topic the event relates to, if any.
	Topic string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Packet      *PacketEvent      `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the raw message layer.
	LayerTransport Layer = 0
	// LayerWire is the packet encoding layer.
	LayerWire Layer = 1
	// LayerClient is the connection/subscription layer.
	LayerClient Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerClient:
		return "CLIENT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event.
type Category uint8

const (
	// CategoryPacket indicates a topic packet (join/leave/event and acks).
	CategoryPacket Category = 0
	// CategoryHeartbeat indicates a ping or pong.
	CategoryHeartbeat Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error or a dropped packet.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryPacket:
		return "PACKET"
	case CategoryHeartbeat:
		return "HEARTBEAT"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// CategoryOf returns the category a packet type is logged under.
func CategoryOf(t wire.PacketType) Category {
	if t == wire.TypePing || t == wire.TypePong {
		return CategoryHeartbeat
	}
	return CategoryPacket
}

// FrameEvent captures raw message bytes at the transport layer.
type FrameEvent struct {
	// Size is the message size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw message (may be truncated for large messages).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MaxFrameData is the number of raw bytes kept in a FrameEvent.
const MaxFrameData = 256

// NewFrameEvent captures data, truncating it to MaxFrameData bytes.
func NewFrameEvent(data []byte) *FrameEvent {
	f := &FrameEvent{Size: len(data)}
	if len(data) > MaxFrameData {
		f.Data = append([]byte(nil), data[:MaxFrameData]...)
		f.Truncated = true
	} else {
		f.Data = append([]byte(nil), data...)
	}
	return f
}

// PacketEvent captures a decoded packet at the wire layer.
type PacketEvent struct {
	Type wire.PacketType `cbor:"1,keyasint"`

	// Event is the application event name (Event packets only).
	Event string `cbor:"2,keyasint,omitempty"`

	// Message is the server rejection text (JoinError/LeaveError only).
	Message string `cbor:"3,keyasint,omitempty"`

	// Payload is the event data (Event packets only).
	Payload any `cbor:"4,keyasint,omitempty"`

	// Size is the encoded size in bytes.
	Size int `cbor:"5,keyasint,omitempty"`

	// Interval is the negotiated heartbeat interval (Open packets only).
	Interval time.Duration `cbor:"6,keyasint,omitempty"`
}

// NewPacketEvent describes p. size is the encoded length, if known.
func NewPacketEvent(p wire.Packet, size int) *PacketEvent {
	pe := &PacketEvent{Type: p.Type(), Size: size}
	switch v := p.(type) {
	case *wire.Event:
		pe.Event = v.Event
		pe.Payload = v.Data
	case *wire.JoinError:
		pe.Message = v.Message
	case *wire.LeaveError:
		pe.Message = v.Message
	case *wire.Open:
		pe.Interval = v.HeartbeatInterval()
	case *wire.Unknown:
		pe.Type = v.Code
	}
	return pe
}

// StateChangeEvent captures connection and subscription lifecycle events.
type StateChangeEvent struct {
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	NewState string `cbor:"3,keyasint"`

	// Reason for the change, if available.
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	// StateEntityConnection indicates a connection state change.
	StateEntityConnection StateEntity = 0
	// StateEntitySubscription indicates a subscription state change.
	StateEntitySubscription StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntitySubscription:
		return "SUBSCRIPTION"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what was being done (e.g. "encode", "send", "decode").
	Context string `cbor:"3,keyasint,omitempty"`
}
