package transport

//go:generate go run github.com/vektra/mockery/v2 --config ../../.mockery.yaml

import (
	"context"
	"errors"
)

// Transport errors. Concrete failures wrap ErrTransport.
var (
	ErrTransport   = errors.New("transport error")
	ErrNotReady    = errors.New("transport not ready")
	ErrAlreadyOpen = errors.New("transport already opened")
	ErrClosed      = errors.New("transport closed")
)

// Handler receives transport lifecycle callbacks.
type Handler interface {
	// OnOpen is called once the connection is established.
	OnOpen()

	// OnClose is called exactly once when the connection is gone.
	// err is nil for a locally requested close.
	OnClose(err error)

	// OnError is called when the connection fails. It is followed by OnClose.
	OnError(err error)

	// OnMessage is called for every inbound message, never concurrently.
	OnMessage(data []byte)
}

// Transport is one physical full-duplex message connection.
type Transport interface {
	// Open establishes the connection. A failed Open reports OnError and
	// OnClose before returning the error.
	Open(ctx context.Context, url string) error

	// Send writes one message.
	Send(data []byte) error

	// Close closes the connection. OnClose follows asynchronously.
	Close() error

	// Ready reports whether Send can currently succeed.
	Ready() bool
}

// Factory creates a Transport bound to a Handler.
type Factory interface {
	New(h Handler) Transport
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(h Handler) Transport

// New implements Factory.
func (f FactoryFunc) New(h Handler) Transport {
	return f(h)
}

// Compile-time interface satisfaction checks.
var (
	_ Transport = (*WebSocket)(nil)
	_ Factory   = (*WebSocketFactory)(nil)
	_ Factory   = FactoryFunc(nil)
)
