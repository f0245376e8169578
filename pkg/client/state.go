package client

// ConnectionState is the lifecycle state of a Connection.
type ConnectionState uint8

const (
	// StateIdle is the initial state before the server's Open packet.
	StateIdle ConnectionState = iota

	// StateOpen indicates the server has sent its Open packet.
	StateOpen

	// StateReconnecting indicates the transport dropped and a new attempt
	// is scheduled or in progress.
	StateReconnecting

	// StateTerminated is terminal. No further reconnection happens.
	StateTerminated
)

// String returns the state name.
func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// SubscriptionState is the lifecycle state of a Subscription.
type SubscriptionState uint8

const (
	// SubscriptionPending waits for the server to acknowledge the join.
	SubscriptionPending SubscriptionState = iota

	// SubscriptionOpen forwards events to the server.
	SubscriptionOpen

	// SubscriptionClosing waits for the server to acknowledge the leave.
	SubscriptionClosing

	// SubscriptionClosed is terminal.
	SubscriptionClosed

	// SubscriptionError is entered on a join error and immediately
	// followed by SubscriptionClosed.
	SubscriptionError
)

// String returns the state name.
func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionPending:
		return "pending"
	case SubscriptionOpen:
		return "open"
	case SubscriptionClosing:
		return "closing"
	case SubscriptionClosed:
		return "closed"
	case SubscriptionError:
		return "error"
	default:
		return "unknown"
	}
}

// Event names emitted by Connection and Subscription.
const (
	// EventOpen fires on Connection with the server's *wire.Open packet.
	EventOpen = "open"

	// EventClose fires on Connection (with *Connection) each time the
	// transport goes away, and on Subscription (with *Subscription) once
	// when it reaches the closed state.
	EventClose = "close"

	// EventError fires on Connection with a transport error. On
	// Subscription it carries a *JoinError or the transport error.
	EventError = "error"

	// EventReconnect fires on Connection with the attempt number (int).
	EventReconnect = "reconnect"

	// EventReady fires on Subscription (with *Subscription) when the join
	// is acknowledged, after buffered events are flushed.
	EventReady = "ready"

	// EventLeaveError fires on Subscription with a *LeaveError.
	EventLeaveError = "leaveError"
)
