// Package transport defines the message transport a topicmux connection runs
// over, and provides a WebSocket implementation.
//
// A Transport carries whole messages in both directions over one physical
// connection. It reports lifecycle changes to a Handler:
//
//   - OnOpen once the connection is established
//   - OnMessage for every inbound message, serially, in arrival order
//   - OnError when the connection fails
//   - OnClose exactly once when the connection is gone, whatever the cause
//
// Transports are created through a Factory so the client can build a fresh
// one for every (re)connection attempt without global state.
package transport
