package wire

import (
	"errors"
	"fmt"
	"time"
)

// PacketType is the wire discriminant of a packet.
type PacketType uint8

// Packet type codes. The values are fixed by the protocol.
const (
	TypeOpen       PacketType = 0
	TypeJoin       PacketType = 1
	TypeLeave      PacketType = 2
	TypeJoinAck    PacketType = 3
	TypeJoinError  PacketType = 4
	TypeLeaveAck   PacketType = 5
	TypeLeaveError PacketType = 6
	TypeEvent      PacketType = 7
	TypePing       PacketType = 8
	TypePong       PacketType = 9
)

// String returns the packet type name.
func (t PacketType) String() string {
	switch t {
	case TypeOpen:
		return "OPEN"
	case TypeJoin:
		return "JOIN"
	case TypeLeave:
		return "LEAVE"
	case TypeJoinAck:
		return "JOIN_ACK"
	case TypeJoinError:
		return "JOIN_ERROR"
	case TypeLeaveAck:
		return "LEAVE_ACK"
	case TypeLeaveError:
		return "LEAVE_ERROR"
	case TypeEvent:
		return "EVENT"
	case TypePing:
		return "PING"
	case TypePong:
		return "PONG"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// IsValid returns true if t is a known packet type.
func (t PacketType) IsValid() bool {
	return t <= TypePong
}

// Packet validation errors.
var (
	ErrEmptyTopic = errors.New("topic is required")
	ErrEmptyEvent = errors.New("event name is required")
)

// Packet is a protocol message. The set of implementations is closed to
// this package.
type Packet interface {
	// Type returns the wire discriminant.
	Type() PacketType

	packet()
}

// Open is sent by the server once the transport is established.
type Open struct {
	ConnID         string `json:"connId,omitempty" cbor:"connId,omitempty"`
	ServerInterval int64  `json:"serverInterval,omitempty" cbor:"serverInterval,omitempty"`
	ServerAttempts int    `json:"serverAttempts,omitempty" cbor:"serverAttempts,omitempty"`

	// ClientInterval is the heartbeat period the client must honour, in milliseconds.
	ClientInterval int64 `json:"clientInterval" cbor:"clientInterval"`
	ClientAttempts int   `json:"clientAttempts,omitempty" cbor:"clientAttempts,omitempty"`
}

// HeartbeatInterval returns ClientInterval as a duration.
func (p *Open) HeartbeatInterval() time.Duration {
	return time.Duration(p.ClientInterval) * time.Millisecond
}

// Join asks the server to subscribe to a topic.
type Join struct {
	Topic string `json:"topic" cbor:"topic"`
}

// JoinAck confirms a Join.
type JoinAck struct {
	Topic string `json:"topic" cbor:"topic"`
}

// JoinError rejects a Join.
type JoinError struct {
	Topic   string `json:"topic" cbor:"topic"`
	Message string `json:"message" cbor:"message"`
}

// Leave asks to unsubscribe from a topic. The server may also send it to
// end a subscription on its own.
type Leave struct {
	Topic string `json:"topic" cbor:"topic"`
}

// LeaveAck confirms a Leave.
type LeaveAck struct {
	Topic string `json:"topic" cbor:"topic"`
}

// LeaveError rejects a Leave.
type LeaveError struct {
	Topic   string `json:"topic" cbor:"topic"`
	Message string `json:"message" cbor:"message"`
}

// Event carries an application event on a topic.
type Event struct {
	Topic string `json:"topic" cbor:"topic"`
	Event string `json:"event" cbor:"event"`
	Data  any    `json:"data" cbor:"data"`
}

// Ping is the client heartbeat.
type Ping struct{}

// Pong answers a Ping.
type Pong struct{}

// Unknown is produced when decoding an envelope whose type is not part of
// the protocol. It is never encoded.
type Unknown struct {
	Code    PacketType
	Payload []byte
}

func (*Open) Type() PacketType       { return TypeOpen }
func (*Join) Type() PacketType       { return TypeJoin }
func (*JoinAck) Type() PacketType    { return TypeJoinAck }
func (*JoinError) Type() PacketType  { return TypeJoinError }
func (*Leave) Type() PacketType      { return TypeLeave }
func (*LeaveAck) Type() PacketType   { return TypeLeaveAck }
func (*LeaveError) Type() PacketType { return TypeLeaveError }
func (*Event) Type() PacketType      { return TypeEvent }
func (*Ping) Type() PacketType       { return TypePing }
func (*Pong) Type() PacketType       { return TypePong }
func (p *Unknown) Type() PacketType  { return p.Code }

func (*Open) packet()       {}
func (*Join) packet()       {}
func (*JoinAck) packet()    {}
func (*JoinError) packet()  {}
func (*Leave) packet()      {}
func (*LeaveAck) packet()   {}
func (*LeaveError) packet() {}
func (*Event) packet()      {}
func (*Ping) packet()       {}
func (*Pong) packet()       {}
func (*Unknown) packet()    {}

// NewJoin returns a Join packet for topic.
func NewJoin(topic string) *Join {
	return &Join{Topic: topic}
}

// NewLeave returns a Leave packet for topic.
func NewLeave(topic string) *Leave {
	return &Leave{Topic: topic}
}

// NewEvent returns an Event packet.
func NewEvent(topic, event string, data any) *Event {
	return &Event{Topic: topic, Event: event, Data: data}
}

// NewPing returns a Ping packet.
func NewPing() *Ping {
	return &Ping{}
}

// TopicOf returns the topic carried by p, or "" for packets without one.
func TopicOf(p Packet) string {
	switch v := p.(type) {
	case *Join:
		return v.Topic
	case *JoinAck:
		return v.Topic
	case *JoinError:
		return v.Topic
	case *Leave:
		return v.Topic
	case *LeaveAck:
		return v.Topic
	case *LeaveError:
		return v.Topic
	case *Event:
		return v.Topic
	default:
		return ""
	}
}

// Validate checks that p carries the fields its type requires.
func Validate(p Packet) error {
	switch v := p.(type) {
	case nil:
		return errors.New("nil packet")
	case *Unknown:
		return fmt.Errorf("unknown packet type %d", uint8(v.Code))
	case *Open, *Ping, *Pong:
		return nil
	case *Event:
		if v.Topic == "" {
			return ErrEmptyTopic
		}
		if v.Event == "" {
			return ErrEmptyEvent
		}
		return nil
	default:
		if TopicOf(p) == "" {
			return ErrEmptyTopic
		}
		return nil
	}
}

// newPayload returns an empty packet value for t, or nil if t is unknown.
func newPayload(t PacketType) Packet {
	switch t {
	case TypeOpen:
		return &Open{}
	case TypeJoin:
		return &Join{}
	case TypeLeave:
		return &Leave{}
	case TypeJoinAck:
		return &JoinAck{}
	case TypeJoinError:
		return &JoinError{}
	case TypeLeaveAck:
		return &LeaveAck{}
	case TypeLeaveError:
		return &LeaveError{}
	case TypeEvent:
		return &Event{}
	case TypePing:
		return &Ping{}
	case TypePong:
		return &Pong{}
	default:
		return nil
	}
}
