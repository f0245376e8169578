package log

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/topicmux/topicmux-go/pkg/wire"
)

func createTestLogFile(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.tlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create test log: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func readAll(t *testing.T, path string, filter Filter) []Event {
	t.Helper()
	r, err := NewFilteredReader(path, filter)
	if err != nil {
		t.Fatalf("NewFilteredReader: %v", err)
	}
	defer r.Close()

	var out []Event
	for {
		e, err := r.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, e)
	}
}

func TestReaderFilters(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	join := wire.TypeJoin
	ev := wire.TypeEvent

	events := []Event{
		{Timestamp: base, ConnectionID: "c1", Direction: DirectionOut, Layer: LayerWire, Category: CategoryPacket, Topic: "chat",
			Packet: &PacketEvent{Type: wire.TypeJoin}},
		{Timestamp: base.Add(time.Second), ConnectionID: "c1", Direction: DirectionIn, Layer: LayerWire, Category: CategoryPacket, Topic: "chat",
			Packet: &PacketEvent{Type: wire.TypeJoinAck}},
		{Timestamp: base.Add(2 * time.Second), ConnectionID: "c1", Direction: DirectionOut, Layer: LayerWire, Category: CategoryHeartbeat,
			Packet: &PacketEvent{Type: wire.TypePing}},
		{Timestamp: base.Add(3 * time.Second), ConnectionID: "c2", Direction: DirectionIn, Layer: LayerWire, Category: CategoryPacket, Topic: "news",
			Packet: &PacketEvent{Type: wire.TypeEvent, Event: "headline"}},
		{Timestamp: base.Add(4 * time.Second), ConnectionID: "c2", Layer: LayerClient, Category: CategoryState,
			StateChange: &StateChangeEvent{Entity: StateEntityConnection, NewState: "terminated"}},
	}
	path := createTestLogFile(t, events)

	out := DirectionOut
	client := LayerClient
	hb := CategoryHeartbeat
	start := base.Add(time.Second)
	end := base.Add(3 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"All", Filter{}, 5},
		{"ConnectionID", Filter{ConnectionID: "c2"}, 2},
		{"Topic", Filter{Topic: "chat"}, 2},
		{"Direction", Filter{Direction: &out}, 2},
		{"Layer", Filter{Layer: &client}, 1},
		{"Category", Filter{Category: &hb}, 1},
		{"PacketType", Filter{PacketType: &join}, 1},
		{"PacketTypeEvent", Filter{PacketType: &ev}, 1},
		{"TimeRange", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"Combined", Filter{ConnectionID: "c1", Topic: "chat", Direction: &out}, 1},
		{"NoMatch", Filter{ConnectionID: "zzz"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := readAll(t, path, tt.filter); len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestReaderHandlesEmptyFile(t *testing.T) {
	path := createTestLogFile(t, nil)
	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "nope.tlog")); err == nil {
		t.Error("expected error for missing file")
	}
}
