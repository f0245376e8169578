package client

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/topicmux/topicmux-go/pkg/emitter"
	"github.com/topicmux/topicmux-go/pkg/log"
	"github.com/topicmux/topicmux-go/pkg/metrics"
	"github.com/topicmux/topicmux-go/pkg/transport"
	"github.com/topicmux/topicmux-go/pkg/wire"
)

// timer is the part of *time.Timer the reconnection logic needs.
type timer interface {
	Stop() bool
}

// Connection multiplexes topic subscriptions over one transport.
type Connection struct {
	id      string
	baseURL string
	config  Config
	logger  *slog.Logger
	plog    log.Logger
	metrics *metrics.Collector
	events  emitter.Emitter

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	state          ConnectionState
	auth           map[string]string
	subs           map[string]*Subscription
	transport      transport.Transport
	generation     uint64 // identifies the current transport's callbacks
	active         bool   // a transport is opening or open
	backoff        *Backoff
	reconnectTimer timer
	heartbeat      *heartbeat
	lastPong       time.Time

	// Outbound queue; see queue.go.
	queueMu     sync.Mutex
	queue       []wire.Packet
	draining    bool
	queueClosed bool

	// Serialises inbound dispatch.
	dispatchMu sync.Mutex

	finalizeOnce sync.Once
	done         chan struct{}

	afterFunc func(d time.Duration, f func()) timer
	now       func() time.Time
}

// New creates an idle connection to baseURL. Nothing is dialled until
// Connect.
func New(baseURL string, cfg Config) (*Connection, error) {
	base, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		id:      uuid.NewString(),
		baseURL: base,
		config:  cfg,
		plog:    cfg.ProtocolLogger,
		metrics: cfg.Metrics,
		ctx:     ctx,
		cancel:  cancel,
		state:   StateIdle,
		auth:    make(map[string]string),
		subs:    make(map[string]*Subscription),
		backoff: NewBackoff(cfg.ReconnectionDelay, cfg.ReconnectionAttempts),
		done:    make(chan struct{}),
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
		now: time.Now,
	}
	c.logger = cfg.Logger.With(slog.String("conn_id", c.id))
	return c, nil
}

// ID returns the connection's unique identifier, used in protocol logs.
func (c *Connection) ID() string {
	return c.id
}

// State returns the current connection state.
func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ReconnectAttempts returns the number of reconnects since the last
// successful transport open.
func (c *Connection) ReconnectAttempts() int {
	return c.backoff.Attempts()
}

// LastPong returns when the server last answered a ping.
func (c *Connection) LastPong() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPong
}

// Done is closed once the connection has terminated and every subscription
// has been closed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// On registers a connection event listener.
func (c *Connection) On(event string, fn emitter.Listener) emitter.ListenerID {
	return c.events.On(event, fn)
}

// Once registers a listener that fires at most once.
func (c *Connection) Once(event string, fn emitter.Listener) emitter.ListenerID {
	return c.events.Once(event, fn)
}

// Off removes listeners. Without ids every listener of event is removed.
func (c *Connection) Off(event string, ids ...emitter.ListenerID) {
	c.events.Off(event, ids...)
}

// Connect opens a transport. It is a no-op while a transport is opening or
// open. A dial failure goes through the normal close handling, so it
// schedules a reconnect when allowed; the error is still returned.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateTerminated {
		c.mu.Unlock()
		return ErrTerminated
	}
	if c.active {
		c.mu.Unlock()
		return nil
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}

	c.active = true
	c.generation++
	tr := c.config.Transport.New(&transportHandler{c: c, gen: c.generation})
	c.transport = tr
	url := c.urlLocked()
	c.mu.Unlock()

	c.logger.Debug("connecting", slog.String("url", url))

	start := c.now()
	if err := tr.Open(ctx, url); err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	c.metrics.ObserveConnect(c.now().Sub(start))
	return nil
}

// Subscribe creates a pending subscription for topic. The join is sent now
// if the server has already opened the session, otherwise once it does.
func (c *Connection) Subscribe(topic string) (*Subscription, error) {
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidArgument)
	}

	c.mu.Lock()
	if c.state == StateTerminated {
		c.mu.Unlock()
		return nil, ErrTerminated
	}
	if _, ok := c.subs[topic]; ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSubscription, topic)
	}
	s := newSubscription(topic, c)
	c.subs[topic] = s
	open := c.state == StateOpen
	c.mu.Unlock()

	c.metrics.SubscriptionAdded()
	c.logSubscriptionState(topic, "", SubscriptionPending, "subscribe")

	if open {
		c.SendPacket(wire.NewJoin(topic))
	}
	return s, nil
}

// SendEvent queues an event for an open subscription.
func (c *Connection) SendEvent(topic, event string, data any) error {
	if topic == "" || event == "" {
		return fmt.Errorf("%w: topic and event name are required", ErrInvalidArgument)
	}

	s := c.Subscription(topic)
	if s == nil {
		return fmt.Errorf("%w: %s", ErrNoActiveSubscription, topic)
	}
	if st := s.State(); st != SubscriptionOpen {
		return fmt.Errorf("%w: %s is %s", ErrInvalidSubscriptionState, topic, st)
	}

	c.SendPacket(wire.NewEvent(topic, event, data))
	return nil
}

// Subscription returns the live subscription for topic, or nil.
func (c *Connection) Subscription(topic string) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs[topic]
}

// HasSubscription reports whether topic has a live subscription.
func (c *Connection) HasSubscription(topic string) bool {
	return c.Subscription(topic) != nil
}

// Subscriptions returns the topics of all live subscriptions, sorted.
func (c *Connection) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	topics := make([]string, 0, len(c.subs))
	for t := range c.subs {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// snapshotLocked returns the live subscriptions ordered by topic.
// Caller must hold c.mu.
func (c *Connection) snapshotLocked() []*Subscription {
	subs := make([]*Subscription, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].topic < subs[j].topic })
	return subs
}

// removeSubscription drops s from the map if it is still the entry for its
// topic.
func (c *Connection) removeSubscription(s *Subscription) {
	c.mu.Lock()
	current, ok := c.subs[s.topic]
	if ok && current == s {
		delete(c.subs, s.topic)
	}
	c.mu.Unlock()

	if ok && current == s {
		c.metrics.SubscriptionRemoved()
	}
}

// Close terminates the connection immediately. Queued packets are
// discarded, a pending reconnect is cancelled, the transport is closed and
// every subscription is driven to closed before Close returns.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.state == StateTerminated {
		c.mu.Unlock()
		return nil
	}
	old := c.state
	c.state = StateTerminated
	c.generation++ // callbacks from the current transport are now stale
	c.active = false
	tr := c.transport
	c.transport = nil
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.heartbeat != nil {
		c.heartbeat.stop()
		c.heartbeat = nil
	}
	c.mu.Unlock()

	c.queueMu.Lock()
	dropped := len(c.queue)
	c.queue = nil
	c.queueClosed = true
	c.queueMu.Unlock()

	if dropped > 0 {
		c.logger.Debug("discarded queued packets", slog.Int("count", dropped))
	}

	var err error
	if tr != nil {
		if cerr := tr.Close(); cerr != nil {
			err = fmt.Errorf("close transport: %w", cerr)
		}
	}

	c.logConnectionState(old, StateTerminated, "closed by application")
	c.events.Emit(EventClose, c)
	c.finalize("connection closed")
	return err
}

// finalize closes every subscription and clears listeners. It runs once,
// after the connection reached StateTerminated.
func (c *Connection) finalize(reason string) {
	c.finalizeOnce.Do(func() {
		c.mu.Lock()
		subs := c.snapshotLocked()
		if c.heartbeat != nil {
			c.heartbeat.stop()
			c.heartbeat = nil
		}
		c.mu.Unlock()

		for _, s := range subs {
			s.terminate(reason)
		}

		c.events.Clear()
		c.cancel()
		close(c.done)

		c.logger.Debug("connection finalized", slog.String("reason", reason), slog.Int("subscriptions", len(subs)))
	})
}
