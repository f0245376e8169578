// Package wire defines the packet types of the topicmux protocol and the
// encoders that turn them into transport messages.
//
// Every packet travels as an envelope with a numeric type discriminant and a
// type-specific payload:
//
//	{"t": 7, "d": {"topic": "chat", "event": "message", "data": "hi"}}
//
// # Packet Types
//
// The set of packet types is closed:
//   - Open: server greeting carrying the heartbeat interval
//   - Join, JoinAck, JoinError: topic subscription handshake
//   - Leave, LeaveAck, LeaveError: topic unsubscription handshake
//   - Event: application event on a topic (both directions)
//   - Ping, Pong: client heartbeat
//
// Decoding an envelope with an unrecognised type yields an *Unknown packet
// rather than an error, so the receiver can drop and report it without
// tearing down the connection.
//
// # Encoders
//
// JSONEncoder is the default and produces text messages. CBOREncoder uses
// canonical CBOR and produces binary messages. Both wrap failures with
// ErrEncode or ErrDecode.
package wire
