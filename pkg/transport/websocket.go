package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Default WebSocket settings.
const (
	DefaultHandshakeTimeout = 30 * time.Second
	DefaultCloseTimeout     = time.Second
)

// WebSocketConfig configures WebSocket transports.
type WebSocketConfig struct {
	// Dialer is used to open connections (default: a copy of websocket.DefaultDialer).
	Dialer *websocket.Dialer

	// Header is sent with the opening handshake.
	Header http.Header

	// Binary sends binary frames instead of text frames.
	Binary bool

	// HandshakeTimeout bounds Open when the context has no deadline (default: 30s).
	HandshakeTimeout time.Duration

	// WriteTimeout bounds every Send (0 = no timeout).
	WriteTimeout time.Duration

	// CloseTimeout bounds the close handshake (default: 1s).
	CloseTimeout time.Duration
}

// WebSocketFactory creates WebSocket transports sharing one config.
type WebSocketFactory struct {
	config WebSocketConfig
}

// NewWebSocketFactory creates a factory for WebSocket transports.
func NewWebSocketFactory(config WebSocketConfig) *WebSocketFactory {
	if config.Dialer == nil {
		d := *websocket.DefaultDialer
		config.Dialer = &d
	}
	if config.HandshakeTimeout == 0 {
		config.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if config.CloseTimeout == 0 {
		config.CloseTimeout = DefaultCloseTimeout
	}
	return &WebSocketFactory{config: config}
}

// New implements Factory.
func (f *WebSocketFactory) New(h Handler) Transport {
	return NewWebSocket(f.config, h)
}

// WebSocket is a Transport over a gorilla/websocket connection.
type WebSocket struct {
	config  WebSocketConfig
	handler Handler

	mu     sync.Mutex
	conn   *websocket.Conn
	opened bool

	ready     atomic.Bool
	closing   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}

	writeMu sync.Mutex
}

// NewWebSocket creates an unopened WebSocket transport.
func NewWebSocket(config WebSocketConfig, h Handler) *WebSocket {
	if config.Dialer == nil {
		config.Dialer = websocket.DefaultDialer
	}
	return &WebSocket{
		config:  config,
		handler: h,
		done:    make(chan struct{}),
	}
}

// Open dials url and starts the read loop.
func (w *WebSocket) Open(ctx context.Context, url string) error {
	w.mu.Lock()
	if w.opened {
		w.mu.Unlock()
		return ErrAlreadyOpen
	}
	w.opened = true
	w.mu.Unlock()

	if w.closing.Load() {
		err := fmt.Errorf("%w: %w", ErrTransport, ErrClosed)
		w.finish(err)
		return err
	}

	// Apply timeout from config if context doesn't have one
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && w.config.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.HandshakeTimeout)
		defer cancel()
	}

	conn, _, err := w.config.Dialer.DialContext(ctx, url, w.config.Header)
	if err != nil {
		err = fmt.Errorf("%w: dial failed: %w", ErrTransport, err)
		w.handler.OnError(err)
		w.finish(err)
		return err
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	// Close raced with the dial.
	if w.closing.Load() {
		conn.Close()
		w.finish(nil)
		return fmt.Errorf("%w: %w", ErrTransport, ErrClosed)
	}

	w.ready.Store(true)
	w.handler.OnOpen()

	go w.readLoop(conn)

	return nil
}

// Send writes one message as a text or binary frame.
func (w *WebSocket) Send(data []byte) error {
	if !w.ready.Load() {
		return fmt.Errorf("%w: %w", ErrTransport, ErrNotReady)
	}

	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if w.config.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
		defer conn.SetWriteDeadline(time.Time{})
	}

	messageType := websocket.TextMessage
	if w.config.Binary {
		messageType = websocket.BinaryMessage
	}
	if err := conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("%w: write failed: %w", ErrTransport, err)
	}
	return nil
}

// Close sends a close frame and closes the socket.
// OnClose is reported by the read loop once it exits.
func (w *WebSocket) Close() error {
	if !w.closing.CompareAndSwap(false, true) {
		return nil
	}
	w.ready.Store(false)

	w.mu.Lock()
	conn := w.conn
	opened := w.opened
	w.mu.Unlock()

	if conn == nil {
		if !opened {
			w.finish(nil)
		}
		return nil
	}

	w.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(w.config.CloseTimeout))
	w.writeMu.Unlock()

	return conn.Close()
}

// Ready implements Transport.
func (w *WebSocket) Ready() bool {
	return w.ready.Load()
}

// Done is closed after OnClose has been delivered.
func (w *WebSocket) Done() <-chan struct{} {
	return w.done
}

// readLoop delivers inbound messages until the socket fails or is closed.
func (w *WebSocket) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			w.ready.Store(false)
			if w.closing.Load() {
				w.finish(nil)
				return
			}
			err = fmt.Errorf("%w: read failed: %w", ErrTransport, err)
			w.handler.OnError(err)
			conn.Close()
			w.finish(err)
			return
		}
		w.handler.OnMessage(data)
	}
}

// finish reports OnClose exactly once.
func (w *WebSocket) finish(err error) {
	w.closeOnce.Do(func() {
		w.handler.OnClose(err)
		close(w.done)
	})
}
