package client

import (
	"log/slog"

	"github.com/topicmux/topicmux-go/pkg/log"
	"github.com/topicmux/topicmux-go/pkg/metrics"
	"github.com/topicmux/topicmux-go/pkg/wire"
)

// SendPacket appends p to the outbound queue and drains it.
//
// The queue has a single drainer: the caller that finds it idle writes
// packets until it is empty, while concurrent callers only append. Packets
// therefore reach the transport in SendPacket call order, one at a time.
// Packets that cannot be encoded, or that find the transport not ready, are
// dropped and logged.
func (c *Connection) SendPacket(p wire.Packet) {
	c.queueMu.Lock()
	if c.queueClosed {
		c.queueMu.Unlock()
		c.drop(log.DirectionOut, p, nil, metrics.DropTerminated, ErrTerminated)
		return
	}
	c.queue = append(c.queue, p)
	if c.draining {
		c.queueMu.Unlock()
		return
	}
	c.draining = true
	c.queueMu.Unlock()

	c.drain()
}

func (c *Connection) drain() {
	for {
		c.queueMu.Lock()
		if len(c.queue) == 0 {
			c.draining = false
			c.queueMu.Unlock()
			return
		}
		p := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		c.queueMu.Unlock()

		c.write(p)
	}
}

// write encodes and sends one packet.
func (c *Connection) write(p wire.Packet) {
	data, err := c.config.Encoder.Encode(p)
	if err != nil {
		c.drop(log.DirectionOut, p, nil, metrics.DropEncode, err)
		return
	}

	c.mu.Lock()
	tr := c.transport
	c.mu.Unlock()

	if tr == nil || !tr.Ready() {
		c.drop(log.DirectionOut, p, data, metrics.DropNotReady, nil)
		return
	}
	if err := tr.Send(data); err != nil {
		c.drop(log.DirectionOut, p, data, metrics.DropSend, err)
		return
	}

	c.metrics.PacketSent(p.Type())
	c.logPacket(log.DirectionOut, p, len(data))
}

// QueueLen returns the number of packets waiting to be written.
func (c *Connection) QueueLen() int {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	return len(c.queue)
}

func packetAttrs(p wire.Packet) []any {
	attrs := []any{slog.String("packet", p.Type().String())}
	if topic := wire.TopicOf(p); topic != "" {
		attrs = append(attrs, slog.String("topic", topic))
	}
	return attrs
}
