package client

import (
	"io"
	"log/slog"
	"time"

	"github.com/topicmux/topicmux-go/pkg/log"
	"github.com/topicmux/topicmux-go/pkg/metrics"
	"github.com/topicmux/topicmux-go/pkg/transport"
	"github.com/topicmux/topicmux-go/pkg/wire"
)

// Default connection settings.
const (
	DefaultPath                 = "adonis-ws"
	DefaultReconnectionAttempts = 10
	DefaultReconnectionDelay    = time.Second
)

// Config configures a Connection. Start from DefaultConfig.
type Config struct {
	// Path is appended to the base URL (default: "adonis-ws").
	Path string

	// Reconnection enables reconnecting after the transport drops.
	Reconnection bool

	// ReconnectionAttempts is the number of consecutive reconnects allowed
	// before the connection terminates (default: 10). Zero terminates on
	// the first transport loss.
	ReconnectionAttempts int

	// ReconnectionDelay is the base delay. Attempt n waits n times this
	// value (default: 1s).
	ReconnectionDelay time.Duration

	// Query is added to the connection URL. Auth parameters override
	// entries of the same name.
	Query map[string]string

	// Encoder serialises packets (default: wire.JSONEncoder).
	Encoder wire.Encoder

	// Transport creates the transport for each connection attempt
	// (default: WebSocket, binary frames when the encoder is binary).
	Transport transport.Factory

	// Logger receives operational logs (default: discard).
	Logger *slog.Logger

	// ProtocolLogger receives protocol events (default: none).
	ProtocolLogger log.Logger

	// Metrics records client metrics (default: none).
	Metrics *metrics.Collector
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Path:                 DefaultPath,
		Reconnection:         true,
		ReconnectionAttempts: DefaultReconnectionAttempts,
		ReconnectionDelay:    DefaultReconnectionDelay,
		Encoder:              wire.JSONEncoder{},
	}
}

// withDefaults fills zero fields. Reconnection and ReconnectionAttempts
// are taken as given.
func (c Config) withDefaults() Config {
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.ReconnectionAttempts < 0 {
		c.ReconnectionAttempts = 0
	}
	if c.ReconnectionDelay <= 0 {
		c.ReconnectionDelay = DefaultReconnectionDelay
	}
	if c.Encoder == nil {
		c.Encoder = wire.JSONEncoder{}
	}
	if c.Transport == nil {
		c.Transport = transport.NewWebSocketFactory(transport.WebSocketConfig{
			Binary: c.Encoder.Binary(),
		})
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.ProtocolLogger == nil {
		c.ProtocolLogger = log.NoopLogger{}
	}
	return c
}
