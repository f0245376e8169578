package client

import (
	"errors"
	"fmt"
	"sync"

	"github.com/topicmux/topicmux-go/pkg/emitter"
	"github.com/topicmux/topicmux-go/pkg/wire"
)

type bufferedEvent struct {
	event string
	data  any
}

// Subscription is the client side of one topic.
//
// State changes are driven by packets the Connection routes to it; the
// application only emits events and requests the leave.
type Subscription struct {
	topic  string
	conn   *Connection
	events emitter.Emitter

	// sendMu orders Emit against the buffer flush on join.
	sendMu sync.Mutex

	mu     sync.Mutex
	state  SubscriptionState
	buffer []bufferedEvent
}

func newSubscription(topic string, conn *Connection) *Subscription {
	return &Subscription{
		topic: topic,
		conn:  conn,
		state: SubscriptionPending,
	}
}

// Topic returns the subscription's topic.
func (s *Subscription) Topic() string {
	return s.topic
}

// State returns the current state.
func (s *Subscription) State() SubscriptionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Buffered returns the number of events waiting for the join.
func (s *Subscription) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

// On registers a listener for a lifecycle event ("ready", "error",
// "leaveError", "close") or a server event name.
func (s *Subscription) On(event string, fn emitter.Listener) emitter.ListenerID {
	return s.events.On(event, fn)
}

// Once registers a listener that fires at most once.
func (s *Subscription) Once(event string, fn emitter.Listener) emitter.ListenerID {
	return s.events.Once(event, fn)
}

// Off removes listeners. Without ids every listener of event is removed.
func (s *Subscription) Off(event string, ids ...emitter.ListenerID) {
	s.events.Off(event, ids...)
}

// Emit sends an event on the topic. While pending, events are buffered in
// order and sent once the join is acknowledged. After the subscription
// starts closing, Emit does nothing.
func (s *Subscription) Emit(event string, data any) error {
	if event == "" {
		return fmt.Errorf("%w: event name is required", ErrInvalidArgument)
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	switch s.state {
	case SubscriptionPending:
		s.buffer = append(s.buffer, bufferedEvent{event: event, data: data})
		s.mu.Unlock()
		return nil
	case SubscriptionOpen:
		s.mu.Unlock()
	default:
		s.mu.Unlock()
		return nil
	}

	err := s.conn.SendEvent(s.topic, event, data)
	if errors.Is(err, ErrNoActiveSubscription) || errors.Is(err, ErrInvalidSubscriptionState) {
		// Closed between the state check and the send.
		return nil
	}
	return err
}

// Close asks the server to leave the topic. Only an open subscription can
// be closed; the leave cannot be taken back.
func (s *Subscription) Close() error {
	s.mu.Lock()
	if s.state != SubscriptionOpen {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot close %s subscription %s", ErrInvalidSubscriptionState, st, s.topic)
	}
	s.state = SubscriptionClosing
	s.mu.Unlock()

	s.conn.logSubscriptionState(s.topic, SubscriptionOpen.String(), SubscriptionClosing, "close")
	s.conn.SendPacket(wire.NewLeave(s.topic))
	return nil
}

// joinAck opens the subscription and flushes the buffer before "ready".
func (s *Subscription) joinAck() {
	s.sendMu.Lock()
	s.mu.Lock()
	if s.state != SubscriptionPending {
		st := s.state
		s.mu.Unlock()
		s.sendMu.Unlock()
		// Rejoin after reconnect acknowledges an already open topic.
		s.conn.logger.Debug("join ack ignored", "topic", s.topic, "state", st.String())
		return
	}
	s.state = SubscriptionOpen
	buffered := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	for _, e := range buffered {
		s.conn.SendPacket(wire.NewEvent(s.topic, e.event, e.data))
	}
	s.sendMu.Unlock()

	s.conn.logSubscriptionState(s.topic, SubscriptionPending.String(), SubscriptionOpen, "join ack")
	s.events.Emit(EventReady, s)
}

// joinError reports the rejection and closes the subscription. Joins are
// never retried. A refused rejoin after reconnect closes an open
// subscription the same way.
func (s *Subscription) joinError(message string) {
	s.mu.Lock()
	old := s.state
	if old != SubscriptionPending && old != SubscriptionOpen {
		s.mu.Unlock()
		s.conn.logger.Debug("join error ignored", "topic", s.topic, "state", old.String())
		return
	}
	s.state = SubscriptionError
	s.buffer = nil
	s.mu.Unlock()

	s.conn.logSubscriptionState(s.topic, old.String(), SubscriptionError, message)
	s.events.Emit(EventError, &JoinError{Topic: s.topic, Message: message})
	s.finish("join error")
}

// leaveAck closes the subscription. It also handles a server-initiated
// leave, which can arrive in any state.
func (s *Subscription) leaveAck(reason string) {
	s.finish(reason)
}

// leaveError surfaces a refused leave. The subscription stays closing.
func (s *Subscription) leaveError(message string) {
	if s.State() != SubscriptionClosing {
		s.conn.logger.Debug("leave error ignored", "topic", s.topic)
		return
	}
	s.events.Emit(EventLeaveError, &LeaveError{Topic: s.topic, Message: message})
}

// serverEvent delivers a server-pushed event to its listeners.
func (s *Subscription) serverEvent(event string, data any) {
	if s.State() == SubscriptionClosed {
		return
	}
	s.events.Emit(event, data)
}

// serverError forwards a transport error as a liveness signal. State is
// unchanged; the connection decides what happens on close.
func (s *Subscription) serverError(err error) {
	if s.State() == SubscriptionClosed {
		return
	}
	s.events.Emit(EventError, err)
}

// terminate closes the subscription locally, without a server round trip.
func (s *Subscription) terminate(reason string) {
	s.finish(reason)
}

// finish moves to closed, detaches from the connection and fires "close"
// exactly once. Listeners are cleared afterwards.
func (s *Subscription) finish(reason string) {
	s.mu.Lock()
	if s.state == SubscriptionClosed {
		s.mu.Unlock()
		return
	}
	old := s.state
	s.state = SubscriptionClosed
	s.buffer = nil
	s.mu.Unlock()

	s.conn.removeSubscription(s)
	s.conn.logSubscriptionState(s.topic, old.String(), SubscriptionClosed, reason)
	s.events.Emit(EventClose, s)
	s.events.Clear()
}
