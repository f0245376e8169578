package client

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topicmux/topicmux-go/pkg/wire"
)

func TestBufferedEventsFlushInOrder(t *testing.T) {
	h := newHarness(t)
	s, err := h.conn.Subscribe("chat")
	require.NoError(t, err)

	for _, ev := range []string{"first", "second", "third"} {
		require.NoError(t, s.Emit(ev, ev+"-data"))
	}
	assert.Equal(t, 3, s.Buffered())

	ft := h.open(t)

	var sentAtReady int
	s.On(EventReady, func(data any) {
		assert.Same(t, s, data)
		sentAtReady = len(ft.packets(t))
	})

	ft.deliver(t, &wire.JoinAck{Topic: "chat"})

	assert.Equal(t, SubscriptionOpen, s.State())
	assert.Zero(t, s.Buffered())
	assert.Equal(t, []wire.Packet{
		&wire.Join{Topic: "chat"},
		&wire.Event{Topic: "chat", Event: "first", Data: "first-data"},
		&wire.Event{Topic: "chat", Event: "second", Data: "second-data"},
		&wire.Event{Topic: "chat", Event: "third", Data: "third-data"},
	}, ft.packets(t))
	assert.Equal(t, 4, sentAtReady, "buffer is flushed before ready fires")
}

func TestEmitValidation(t *testing.T) {
	h := newHarness(t)
	s, err := h.conn.Subscribe("chat")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Emit("", "x"), ErrInvalidArgument)
	assert.Zero(t, s.Buffered())
}

func TestChatEcho(t *testing.T) {
	h := newHarness(t)
	ft := h.open(t)
	s := h.joined(t, ft, "chat")

	var got []any
	s.On("hello", func(data any) { got = append(got, data) })

	require.NoError(t, s.Emit("hello", "world"))
	assert.Equal(t, &wire.Event{Topic: "chat", Event: "hello", Data: "world"}, ft.packets(t)[1])

	// Server echo.
	ft.deliver(t, &wire.Event{Topic: "chat", Event: "hello", Data: "world"})
	assert.Equal(t, []any{"world"}, got)
}

func TestJoinError(t *testing.T) {
	h := newHarness(t)
	ft := h.open(t)
	s, err := h.conn.Subscribe("badjoin")
	require.NoError(t, err)
	require.NoError(t, s.Emit("queued", nil))

	var joinErr *JoinError
	closes := 0
	s.On(EventError, func(data any) {
		require.True(t, errors.As(data.(error), &joinErr))
	})
	s.On(EventClose, func(data any) {
		closes++
		assert.False(t, h.conn.HasSubscription("badjoin"), "removed before close listeners run")
	})

	ft.deliver(t, &wire.JoinError{Topic: "badjoin", Message: "Cannot subscribe"})

	require.NotNil(t, joinErr)
	assert.Equal(t, "Cannot subscribe", joinErr.Message)
	assert.Equal(t, "badjoin", joinErr.Topic)
	assert.Equal(t, 1, closes)
	assert.Equal(t, SubscriptionClosed, s.State())
	assert.False(t, h.conn.HasSubscription("badjoin"))
	assert.Equal(t, []string{"pending", "error", "closed"}, h.plog.subscriptionStates("badjoin"))

	// Buffered events were discarded, nothing but the join went out.
	assert.Equal(t, []wire.PacketType{wire.TypeJoin}, packetTypes(ft.packets(t)))

	// A repeated error for the same topic is stale.
	ft.deliver(t, &wire.JoinError{Topic: "badjoin", Message: "again"})
	assert.Equal(t, 1, closes)
}

func TestServerLeave(t *testing.T) {
	h := newHarness(t)
	ft := h.open(t)
	s := h.joined(t, ft, "serverleave")

	closed := 0
	s.On(EventClose, func(any) { closed++ })

	ft.deliver(t, &wire.Leave{Topic: "serverleave"})

	assert.Equal(t, SubscriptionClosed, s.State())
	assert.Equal(t, 1, closed)
	assert.False(t, h.conn.HasSubscription("serverleave"))
	for _, p := range ft.packets(t) {
		assert.NotEqual(t, wire.TypeLeave, p.Type(), "client never sent a leave")
	}
}

func TestSubscriptionClose(t *testing.T) {
	h := newHarness(t)
	ft := h.open(t)
	s := h.joined(t, ft, "chat")

	require.NoError(t, s.Close())
	assert.Equal(t, SubscriptionClosing, s.State())
	assert.Equal(t, &wire.Leave{Topic: "chat"}, ft.packets(t)[1])

	t.Run("EmitWhileClosingIsNoop", func(t *testing.T) {
		before := len(ft.packets(t))
		require.NoError(t, s.Emit("late", nil))
		assert.Len(t, ft.packets(t), before)
	})

	t.Run("CloseTwice", func(t *testing.T) {
		assert.ErrorIs(t, s.Close(), ErrInvalidSubscriptionState)
	})

	t.Run("LeaveError", func(t *testing.T) {
		var leaveErr *LeaveError
		s.On(EventLeaveError, func(data any) { leaveErr = data.(*LeaveError) })

		ft.deliver(t, &wire.LeaveError{Topic: "chat", Message: "not allowed"})

		require.NotNil(t, leaveErr)
		assert.Equal(t, "not allowed", leaveErr.Message)
		assert.Equal(t, SubscriptionClosing, s.State())
		assert.True(t, h.conn.HasSubscription("chat"))
	})

	t.Run("LeaveAck", func(t *testing.T) {
		closed := 0
		s.On(EventClose, func(any) { closed++ })

		ft.deliver(t, &wire.LeaveAck{Topic: "chat"})
		ft.deliver(t, &wire.LeaveAck{Topic: "chat"})

		assert.Equal(t, SubscriptionClosed, s.State())
		assert.Equal(t, 1, closed)
		assert.False(t, h.conn.HasSubscription("chat"))
	})

	assert.Equal(t, []string{"pending", "open", "closing", "closed"}, h.plog.subscriptionStates("chat"))
}

func TestSubscriptionCloseRequiresOpen(t *testing.T) {
	h := newHarness(t)
	s, err := h.conn.Subscribe("chat")
	require.NoError(t, err)

	assert.ErrorIs(t, s.Close(), ErrInvalidSubscriptionState)
	assert.Equal(t, SubscriptionPending, s.State())
}

func TestLeaveErrorIgnoredWhenOpen(t *testing.T) {
	h := newHarness(t)
	ft := h.open(t)
	s := h.joined(t, ft, "chat")

	fired := false
	s.On(EventLeaveError, func(any) { fired = true })
	ft.deliver(t, &wire.LeaveError{Topic: "chat", Message: "?"})

	assert.False(t, fired)
	assert.Equal(t, SubscriptionOpen, s.State())
}

func TestListenersClearedAfterClose(t *testing.T) {
	h := newHarness(t)
	ft := h.open(t)
	s := h.joined(t, ft, "chat")

	id := s.On("msg", func(any) {})
	s.Off("msg", id)
	s.On("msg", func(any) {})
	s.Once("msg", func(any) {})
	assert.Equal(t, 2, s.events.ListenerCount("msg"))

	ft.deliver(t, &wire.Leave{Topic: "chat"})
	assert.Zero(t, s.events.ListenerCount("msg"))
}
