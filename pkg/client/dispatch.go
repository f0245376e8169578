package client

import (
	"fmt"
	"log/slog"

	"github.com/topicmux/topicmux-go/pkg/log"
	"github.com/topicmux/topicmux-go/pkg/metrics"
	"github.com/topicmux/topicmux-go/pkg/transport"
	"github.com/topicmux/topicmux-go/pkg/wire"
)

// transportHandler binds transport callbacks to one connection attempt.
// Callbacks from a superseded transport are ignored.
type transportHandler struct {
	c   *Connection
	gen uint64
}

var _ transport.Handler = (*transportHandler)(nil)

func (h *transportHandler) OnOpen()               { h.c.handleTransportOpen(h.gen) }
func (h *transportHandler) OnClose(err error)     { h.c.handleTransportClose(h.gen, err) }
func (h *transportHandler) OnError(err error)     { h.c.handleTransportError(h.gen, err) }
func (h *transportHandler) OnMessage(data []byte) { h.c.handleMessage(h.gen, data) }

// current reports whether gen belongs to the live transport.
func (c *Connection) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.generation
}

func (c *Connection) handleTransportOpen(gen uint64) {
	if !c.current(gen) {
		return
	}
	c.backoff.Reset()
	c.logger.Debug("transport open")
}

// handleTransportError reports err on the connection and, as a liveness
// signal, on every subscription. Reconnection waits for the close that
// follows.
func (c *Connection) handleTransportError(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	subs := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Warn("transport error", slog.Any("error", err))
	c.logError(log.LayerTransport, "transport", err)

	for _, s := range subs {
		s.serverError(err)
	}
	c.events.Emit(EventError, err)
}

// handleMessage decodes and dispatches one inbound message. Messages are
// dispatched one at a time in arrival order.
func (c *Connection) handleMessage(gen uint64, data []byte) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	if !c.current(gen) {
		return
	}

	p, err := c.config.Encoder.Decode(data)
	if err != nil {
		c.drop(log.DirectionIn, nil, data, metrics.DropDecode, err)
		return
	}

	c.metrics.PacketReceived(p.Type())
	c.logPacket(log.DirectionIn, p, len(data))
	c.dispatch(p)
}

func (c *Connection) dispatch(p wire.Packet) {
	switch v := p.(type) {
	case *wire.Open:
		c.handleOpen(v)
	case *wire.JoinAck:
		if s := c.route(p); s != nil {
			s.joinAck()
		}
	case *wire.JoinError:
		if s := c.route(p); s != nil {
			s.joinError(v.Message)
		}
	case *wire.LeaveAck:
		if s := c.route(p); s != nil {
			s.leaveAck("leave ack")
		}
	case *wire.Leave:
		// Server-initiated leave is handled like an acknowledged one.
		if s := c.route(p); s != nil {
			s.leaveAck("server leave")
		}
	case *wire.LeaveError:
		if s := c.route(p); s != nil {
			s.leaveError(v.Message)
		}
	case *wire.Event:
		if s := c.route(p); s != nil {
			s.serverEvent(v.Event, v.Data)
		}
	case *wire.Pong:
		c.mu.Lock()
		c.lastPong = c.now()
		c.mu.Unlock()
	default:
		c.drop(log.DirectionIn, p, nil, metrics.DropUnknownType,
			fmt.Errorf("%w: unexpected %s packet", ErrProtocol, p.Type()))
	}
}

// route returns the subscription a packet is addressed to. Packets for
// topics without a subscription are late or duplicate and dropped quietly.
func (c *Connection) route(p wire.Packet) *Subscription {
	if s := c.Subscription(wire.TopicOf(p)); s != nil {
		return s
	}
	c.drop(log.DirectionIn, p, nil, metrics.DropStale, nil)
	return nil
}

// handleOpen marks the session open, starts the heartbeat and (re)joins
// every tracked topic.
func (c *Connection) handleOpen(p *wire.Open) {
	c.mu.Lock()
	if c.state == StateTerminated {
		c.mu.Unlock()
		return
	}
	old := c.state
	c.state = StateOpen
	if c.heartbeat != nil {
		c.heartbeat.stop()
	}
	c.heartbeat = startHeartbeat(p.HeartbeatInterval(), c.ping)
	subs := c.snapshotLocked()
	c.mu.Unlock()

	c.logConnectionState(old, StateOpen, "open packet")
	c.events.Emit(EventOpen, p)

	for _, s := range subs {
		// Closed during the gap: the new session never had the topic.
		if s.State() == SubscriptionClosing {
			s.terminate("closed while reconnecting")
			continue
		}
		c.SendPacket(wire.NewJoin(s.topic))
	}
}

func (c *Connection) ping() {
	c.SendPacket(wire.NewPing())
}
