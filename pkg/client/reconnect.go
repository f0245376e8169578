package client

import (
	"log/slog"
)

// handleTransportClose runs when the live transport is gone. Unless the
// connection was closed locally it schedules a reconnect with linear
// backoff, or terminates once attempts are exhausted.
func (c *Connection) handleTransportClose(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.active = false
	c.transport = nil
	if c.heartbeat != nil {
		c.heartbeat.stop()
		c.heartbeat = nil
	}
	if c.state == StateTerminated {
		c.mu.Unlock()
		return
	}

	old := c.state
	subs := c.snapshotLocked()

	reconnect := c.config.Reconnection && !c.backoff.Exhausted()
	var (
		attempt int
		delay   = c.backoff.Peek()
		reason  = "transport closed"
	)
	if reconnect {
		delay = c.backoff.Next()
		attempt = c.backoff.Attempts()
		c.state = StateReconnecting
		c.reconnectTimer = c.afterFunc(delay, c.reconnect)
	} else {
		c.state = StateTerminated
		if c.config.Reconnection {
			reason = "reconnection attempts exhausted"
		} else {
			reason = "reconnection disabled"
		}
	}
	next := c.state
	c.mu.Unlock()

	attrs := []any{slog.String("state", old.String())}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}
	c.logger.Info("transport closed", attrs...)
	c.logConnectionState(old, next, reason)

	// A fresh server session has no membership to leave.
	for _, s := range subs {
		if s.State() == SubscriptionClosing {
			s.terminate("transport closed while leaving")
		}
	}

	c.events.Emit(EventClose, c)

	if !reconnect {
		c.finalize(reason)
		return
	}

	c.metrics.Reconnect()
	c.logger.Info("reconnect scheduled",
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay))
	c.events.Emit(EventReconnect, attempt)
}

// reconnect is run by the reconnect timer.
func (c *Connection) reconnect() {
	c.mu.Lock()
	if c.state != StateReconnecting {
		c.mu.Unlock()
		return
	}
	c.reconnectTimer = nil
	c.mu.Unlock()

	if err := c.Connect(c.ctx); err != nil {
		c.logger.Debug("reconnect failed", slog.Any("error", err))
	}
}
