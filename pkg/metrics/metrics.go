// Package metrics exposes Prometheus collectors for topicmux connections.
//
// A nil *Collector is valid and records nothing, so the client can call it
// unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/topicmux/topicmux-go/pkg/wire"
)

// Drop reasons used as the "reason" label of packets_dropped_total.
const (
	DropEncode      = "encode"
	DropNotReady    = "not_ready"
	DropSend        = "send"
	DropDecode      = "decode"
	DropUnknownType = "unknown_type"
	DropStale       = "stale"
	DropTerminated  = "terminated"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "topicmux").
	Namespace string

	// Subsystem is the metrics subsystem (default: "client").
	Subsystem string

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels

	// Buckets are the connect duration histogram buckets.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the registerer to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) { c.Subsystem = subsystem }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = labels }
}

// WithBuckets sets the connect duration buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) { c.Buckets = buckets }
}

// WithRegistry sets the registerer.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = registry }
}

func defaultConfig() Config {
	return Config{
		Namespace: "topicmux",
		Subsystem: "client",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector holds the client metrics.
type Collector struct {
	packetsSent         *prometheus.CounterVec
	packetsReceived     *prometheus.CounterVec
	packetsDropped      *prometheus.CounterVec
	reconnectsTotal     prometheus.Counter
	subscriptionsActive prometheus.Gauge
	connectDuration     prometheus.Histogram
}

// New registers the client metrics and returns a Collector.
// Registering twice on the same registry panics, as with promauto.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		packetsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "packets_sent_total",
			Help:        "Packets written to the transport, by packet type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		packetsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "packets_received_total",
			Help:        "Packets decoded from the transport, by packet type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		packetsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "packets_dropped_total",
			Help:        "Inbound or outbound packets dropped, by reason",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),

		reconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reconnects_total",
			Help:        "Reconnection attempts scheduled",
			ConstLabels: config.ConstLabels,
		}),

		subscriptionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscriptions_active",
			Help:        "Subscriptions currently tracked by the connection",
			ConstLabels: config.ConstLabels,
		}),

		connectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connect_duration_seconds",
			Help:        "Time taken to open the transport",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}

// PacketSent counts a packet written to the transport.
func (c *Collector) PacketSent(t wire.PacketType) {
	if c == nil {
		return
	}
	c.packetsSent.WithLabelValues(t.String()).Inc()
}

// PacketReceived counts a decoded inbound packet.
func (c *Collector) PacketReceived(t wire.PacketType) {
	if c == nil {
		return
	}
	c.packetsReceived.WithLabelValues(t.String()).Inc()
}

// PacketDropped counts a dropped packet.
func (c *Collector) PacketDropped(reason string) {
	if c == nil {
		return
	}
	c.packetsDropped.WithLabelValues(reason).Inc()
}

// Reconnect counts a scheduled reconnection.
func (c *Collector) Reconnect() {
	if c == nil {
		return
	}
	c.reconnectsTotal.Inc()
}

// SubscriptionAdded increments the active subscription gauge.
func (c *Collector) SubscriptionAdded() {
	if c == nil {
		return
	}
	c.subscriptionsActive.Inc()
}

// SubscriptionRemoved decrements the active subscription gauge.
func (c *Collector) SubscriptionRemoved() {
	if c == nil {
		return
	}
	c.subscriptionsActive.Dec()
}

// ObserveConnect records how long a transport open took.
func (c *Collector) ObserveConnect(d time.Duration) {
	if c == nil {
		return
	}
	c.connectDuration.Observe(d.Seconds())
}
