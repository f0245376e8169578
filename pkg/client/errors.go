package client

import (
	"errors"
	"fmt"
)

// Client errors. Returned errors wrap one of these.
var (
	// ErrInvalidArgument indicates an empty topic, event name or URL.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicateSubscription indicates the topic already has a live subscription.
	ErrDuplicateSubscription = errors.New("duplicate subscription")

	// ErrNoActiveSubscription indicates no subscription exists for the topic.
	ErrNoActiveSubscription = errors.New("no active subscription")

	// ErrInvalidSubscriptionState indicates the subscription is not in a
	// state that allows the operation.
	ErrInvalidSubscriptionState = errors.New("invalid subscription state")

	// ErrTerminated indicates the connection has been terminated.
	ErrTerminated = errors.New("connection terminated")

	// ErrProtocol indicates an unexpected packet from the server.
	ErrProtocol = errors.New("protocol error")
)

// JoinError is the server's rejection of a join. It is delivered to the
// subscription's "error" listeners.
type JoinError struct {
	Topic   string
	Message string
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join %q rejected: %s", e.Topic, e.Message)
}

// LeaveError is the server's rejection of a leave. It is delivered to the
// subscription's "leaveError" listeners; the subscription stays closing.
type LeaveError struct {
	Topic   string
	Message string
}

func (e *LeaveError) Error() string {
	return fmt.Sprintf("leave %q rejected: %s", e.Topic, e.Message)
}
