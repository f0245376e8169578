package client

import (
	"log/slog"

	"github.com/topicmux/topicmux-go/pkg/log"
	"github.com/topicmux/topicmux-go/pkg/metrics"
	"github.com/topicmux/topicmux-go/pkg/wire"
)

func (c *Connection) event(dir log.Direction, layer log.Layer, cat log.Category) log.Event {
	return log.Event{
		Timestamp:    c.now(),
		ConnectionID: c.id,
		Direction:    dir,
		Layer:        layer,
		Category:     cat,
	}
}

func (c *Connection) logPacket(dir log.Direction, p wire.Packet, size int) {
	e := c.event(dir, log.LayerWire, log.CategoryOf(p.Type()))
	e.Topic = wire.TopicOf(p)
	e.Packet = log.NewPacketEvent(p, size)
	c.plog.Log(e)
}

// drop records a packet that was not delivered. p may be nil when the
// message could not be decoded, in which case data is captured instead.
func (c *Connection) drop(dir log.Direction, p wire.Packet, data []byte, reason string, err error) {
	c.metrics.PacketDropped(reason)

	layer := log.LayerClient
	switch reason {
	case metrics.DropEncode, metrics.DropDecode:
		layer = log.LayerWire
	case metrics.DropSend, metrics.DropNotReady:
		layer = log.LayerTransport
	}

	e := c.event(dir, layer, log.CategoryError)
	e.Error = &log.ErrorEventData{Layer: layer, Context: reason}
	if err != nil {
		e.Error.Message = err.Error()
	}

	attrs := []any{slog.String("reason", reason), slog.String("direction", dir.String())}
	if p != nil {
		e.Topic = wire.TopicOf(p)
		e.Packet = log.NewPacketEvent(p, len(data))
		attrs = append(attrs, packetAttrs(p)...)
	} else if data != nil {
		e.Frame = log.NewFrameEvent(data)
		attrs = append(attrs, slog.Int("size", len(data)))
	}
	c.plog.Log(e)

	switch reason {
	case metrics.DropNotReady, metrics.DropStale, metrics.DropTerminated:
		c.logger.Debug("packet dropped", attrs...)
	default:
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
		}
		c.logger.Warn("packet dropped", attrs...)
	}
}

func (c *Connection) logConnectionState(old, next ConnectionState, reason string) {
	c.logger.Debug("connection state",
		slog.String("old", old.String()),
		slog.String("new", next.String()),
		slog.String("reason", reason))

	e := c.event(log.DirectionIn, log.LayerClient, log.CategoryState)
	e.URL = c.URL()
	e.StateChange = &log.StateChangeEvent{
		Entity:   log.StateEntityConnection,
		OldState: old.String(),
		NewState: next.String(),
		Reason:   reason,
	}
	c.plog.Log(e)
}

// logSubscriptionState records a subscription transition. old is empty for
// a new subscription.
func (c *Connection) logSubscriptionState(topic string, old string, next SubscriptionState, reason string) {
	c.logger.Debug("subscription state",
		slog.String("topic", topic),
		slog.String("old", old),
		slog.String("new", next.String()),
		slog.String("reason", reason))

	e := c.event(log.DirectionIn, log.LayerClient, log.CategoryState)
	e.Topic = topic
	e.StateChange = &log.StateChangeEvent{
		Entity:   log.StateEntitySubscription,
		OldState: old,
		NewState: next.String(),
		Reason:   reason,
	}
	c.plog.Log(e)
}

func (c *Connection) logError(layer log.Layer, context string, err error) {
	e := c.event(log.DirectionIn, layer, log.CategoryError)
	e.Error = &log.ErrorEventData{Layer: layer, Message: err.Error(), Context: context}
	c.plog.Log(e)
}
