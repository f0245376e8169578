package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/topicmux/topicmux-go/pkg/wire"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg))

	c.PacketSent(wire.TypeJoin)
	c.PacketSent(wire.TypeJoin)
	c.PacketSent(wire.TypeEvent)
	c.PacketReceived(wire.TypeJoinAck)
	c.PacketDropped(DropNotReady)
	c.Reconnect()
	c.SubscriptionAdded()
	c.SubscriptionAdded()
	c.SubscriptionRemoved()
	c.ObserveConnect(20 * time.Millisecond)

	if got := counterValue(t, c.packetsSent.WithLabelValues("JOIN")); got != 2 {
		t.Errorf("packets_sent_total{JOIN} = %v, want 2", got)
	}
	if got := counterValue(t, c.packetsSent.WithLabelValues("EVENT")); got != 1 {
		t.Errorf("packets_sent_total{EVENT} = %v, want 1", got)
	}
	if got := counterValue(t, c.packetsReceived.WithLabelValues("JOIN_ACK")); got != 1 {
		t.Errorf("packets_received_total{JOIN_ACK} = %v, want 1", got)
	}
	if got := counterValue(t, c.packetsDropped.WithLabelValues(DropNotReady)); got != 1 {
		t.Errorf("packets_dropped_total{not_ready} = %v, want 1", got)
	}
	if got := counterValue(t, c.reconnectsTotal); got != 1 {
		t.Errorf("reconnects_total = %v, want 1", got)
	}
	if got := gaugeValue(t, c.subscriptionsActive); got != 1 {
		t.Errorf("subscriptions_active = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"topicmux_client_packets_sent_total",
		"topicmux_client_packets_received_total",
		"topicmux_client_packets_dropped_total",
		"topicmux_client_reconnects_total",
		"topicmux_client_subscriptions_active",
		"topicmux_client_connect_duration_seconds",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestCollectorOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(
		WithRegistry(reg),
		WithNamespace("app"),
		WithSubsystem("ws"),
		WithConstLabels(prometheus.Labels{"instance": "a"}),
		WithBuckets([]float64{0.1, 1}),
	)
	c.Reconnect()

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "app_ws_reconnects_total" {
			found = true
			if l := f.GetMetric()[0].GetLabel(); len(l) != 1 || l[0].GetValue() != "a" {
				t.Errorf("const labels = %v", l)
			}
		}
	}
	if !found {
		t.Error("app_ws_reconnects_total not registered")
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.PacketSent(wire.TypePing)
	c.PacketReceived(wire.TypePong)
	c.PacketDropped(DropDecode)
	c.Reconnect()
	c.SubscriptionAdded()
	c.SubscriptionRemoved()
	c.ObserveConnect(time.Second)
}
