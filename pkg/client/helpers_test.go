package client

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/topicmux/topicmux-go/pkg/log"
	"github.com/topicmux/topicmux-go/pkg/transport"
	"github.com/topicmux/topicmux-go/pkg/wire"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeTransport is an in-memory transport driven by the test.
type fakeTransport struct {
	h transport.Handler

	mu       sync.Mutex
	url      string
	ready    bool
	openErr  error
	sent     [][]byte
	closes   int
	closeErr error
	closed   bool
}

func (f *fakeTransport) Open(_ context.Context, url string) error {
	f.mu.Lock()
	f.url = url
	err := f.openErr
	f.mu.Unlock()

	if err != nil {
		f.h.OnError(err)
		f.h.OnClose(err)
		return err
	}

	f.mu.Lock()
	f.ready = true
	f.mu.Unlock()
	f.h.OnOpen()
	return nil
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.ready {
		return transport.ErrNotReady
	}
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closes++
	f.ready = false
	already := f.closed
	f.closed = true
	err := f.closeErr
	f.mu.Unlock()

	if !already {
		f.h.OnClose(nil)
	}
	return err
}

func (f *fakeTransport) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

// deliver sends p to the client as if it came from the server.
func (f *fakeTransport) deliver(t *testing.T, p wire.Packet) {
	t.Helper()
	data, err := wire.JSONEncoder{}.Encode(p)
	require.NoError(t, err)
	f.h.OnMessage(data)
}

// deliverRaw sends raw bytes to the client.
func (f *fakeTransport) deliverRaw(data string) {
	f.h.OnMessage([]byte(data))
}

// lose simulates the server dropping the connection.
func (f *fakeTransport) lose(err error) {
	f.mu.Lock()
	f.ready = false
	already := f.closed
	f.closed = true
	f.mu.Unlock()

	if !already {
		f.h.OnError(err)
		f.h.OnClose(err)
	}
}

// packets decodes everything the client sent.
func (f *fakeTransport) packets(t *testing.T) []wire.Packet {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]wire.Packet, 0, len(f.sent))
	for _, data := range f.sent {
		p, err := wire.JSONEncoder{}.Decode(data)
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func (f *fakeTransport) dialled() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

// fakeFactory records every transport it creates.
type fakeFactory struct {
	mu         sync.Mutex
	transports []*fakeTransport
	openErr    error
}

func (ff *fakeFactory) New(h transport.Handler) transport.Transport {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	ft := &fakeTransport{h: h, openErr: ff.openErr}
	ff.transports = append(ff.transports, ft)
	return ft
}

func (ff *fakeFactory) setOpenErr(err error) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	ff.openErr = err
}

func (ff *fakeFactory) count() int {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return len(ff.transports)
}

func (ff *fakeFactory) last() *fakeTransport {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	if len(ff.transports) == 0 {
		return nil
	}
	return ff.transports[len(ff.transports)-1]
}

// fakeTimer records a scheduled reconnect instead of waiting for it.
type fakeTimer struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (t *fakeTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fire runs the timer function unless the timer was stopped.
func (t *fakeTimer) fire() {
	t.mu.Lock()
	if t.stopped || t.fired {
		t.mu.Unlock()
		return
	}
	t.fired = true
	t.mu.Unlock()
	t.fn()
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{delay: d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

func (c *fakeClock) delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.timers))
	for i, t := range c.timers {
		out[i] = t.delay
	}
	return out
}

// recordingLogger captures protocol events.
type recordingLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *recordingLogger) Log(e log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// subscriptionStates returns the state sequence logged for topic.
func (r *recordingLogger) subscriptionStates(topic string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.StateChange != nil && e.StateChange.Entity == log.StateEntitySubscription && e.Topic == topic {
			out = append(out, e.StateChange.NewState)
		}
	}
	return out
}

type harness struct {
	conn    *Connection
	factory *fakeFactory
	clock   *fakeClock
	plog    *recordingLogger
}

const testBaseURL = "ws://example.test"

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()
	h := &harness{
		factory: &fakeFactory{},
		clock:   &fakeClock{},
		plog:    &recordingLogger{},
	}

	cfg := DefaultConfig()
	cfg.Transport = h.factory
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg.ProtocolLogger = h.plog
	for _, m := range mutate {
		m(&cfg)
	}

	conn, err := New(testBaseURL, cfg)
	require.NoError(t, err)
	conn.afterFunc = h.clock.AfterFunc
	h.conn = conn

	t.Cleanup(func() { _ = conn.Close() })
	return h
}

// open connects and delivers the server's Open packet.
func (h *harness) open(t *testing.T) *fakeTransport {
	t.Helper()
	require.NoError(t, h.conn.Connect(context.Background()))
	ft := h.factory.last()
	ft.deliver(t, &wire.Open{ConnID: "srv-1", ClientInterval: 0})
	require.Equal(t, StateOpen, h.conn.State())
	return ft
}

// joined subscribes to topic and acknowledges the join.
func (h *harness) joined(t *testing.T, ft *fakeTransport, topic string) *Subscription {
	t.Helper()
	s, err := h.conn.Subscribe(topic)
	require.NoError(t, err)
	ft.deliver(t, &wire.JoinAck{Topic: topic})
	require.Equal(t, SubscriptionOpen, s.State())
	return s
}

func packetTypes(ps []wire.Packet) []wire.PacketType {
	out := make([]wire.PacketType, len(ps))
	for i, p := range ps {
		out[i] = p.Type()
	}
	return out
}
