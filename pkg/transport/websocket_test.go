package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/topicmux/topicmux-go/pkg/transport"
	"github.com/topicmux/topicmux-go/pkg/transport/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder is a Handler that forwards callbacks to channels.
type recorder struct {
	opened   chan struct{}
	messages chan []byte
	errs     chan error
	closed   chan error
}

func newRecorder() *recorder {
	return &recorder{
		opened:   make(chan struct{}, 1),
		messages: make(chan []byte, 16),
		errs:     make(chan error, 4),
		closed:   make(chan error, 4),
	}
}

func (r *recorder) OnOpen()               { r.opened <- struct{}{} }
func (r *recorder) OnClose(err error)     { r.closed <- err }
func (r *recorder) OnError(err error)     { r.errs <- err }
func (r *recorder) OnMessage(data []byte) { r.messages <- data }

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// echoServer upgrades every request and echoes each frame with its type.
func echoServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitClosed(t *testing.T, r *recorder) error {
	t.Helper()
	select {
	case err := <-r.closed:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for OnClose")
		return nil
	}
}

func TestWebSocketSendReceive(t *testing.T) {
	srv, url := echoServer(t)
	defer srv.Close()

	rec := newRecorder()
	ws := transport.NewWebSocket(transport.WebSocketConfig{}, rec)

	require.NoError(t, ws.Open(context.Background(), url))
	assert.True(t, ws.Ready())

	select {
	case <-rec.opened:
	default:
		t.Fatal("OnOpen not called before Open returned")
	}

	require.NoError(t, ws.Send([]byte(`{"t":8,"d":{}}`)))
	require.NoError(t, ws.Send([]byte(`{"t":1,"d":{"topic":"chat"}}`)))

	for _, want := range []string{`{"t":8,"d":{}}`, `{"t":1,"d":{"topic":"chat"}}`} {
		select {
		case got := <-rec.messages:
			assert.Equal(t, want, string(got))
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for %s", want)
		}
	}

	require.NoError(t, ws.Close())
	assert.False(t, ws.Ready())
	assert.NoError(t, waitClosed(t, rec))
	<-ws.Done()

	assert.Empty(t, rec.errs, "local close must not report an error")
	assert.NoError(t, ws.Close(), "second close is a no-op")
}

func TestWebSocketBinaryFrames(t *testing.T) {
	types := make(chan int, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		types <- mt
		_ = conn.WriteMessage(mt, data)
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	rec := newRecorder()
	ws := transport.NewWebSocketFactory(transport.WebSocketConfig{Binary: true}).New(rec)

	require.NoError(t, ws.Open(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http")))
	require.NoError(t, ws.Send([]byte{0xa2, 0x61, 0x74, 0x08}))

	assert.Equal(t, websocket.BinaryMessage, <-types)
	assert.Equal(t, []byte{0xa2, 0x61, 0x74, 0x08}, <-rec.messages)

	require.NoError(t, ws.Close())
	waitClosed(t, rec)
}

func TestWebSocketServerClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "restart")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
	}))
	defer srv.Close()

	rec := newRecorder()
	ws := transport.NewWebSocket(transport.WebSocketConfig{}, rec)
	require.NoError(t, ws.Open(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http")))

	err := waitClosed(t, rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrTransport)
	assert.Len(t, rec.errs, 1)
	assert.False(t, ws.Ready())

	err = ws.Send([]byte("late"))
	assert.ErrorIs(t, err, transport.ErrNotReady)
}

func TestWebSocketDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	h := mocks.NewMockHandler(t)
	h.EXPECT().OnError(mock.Anything).Once()
	h.EXPECT().OnClose(mock.Anything).Once()

	ws := transport.NewWebSocket(transport.WebSocketConfig{}, h)
	err := ws.Open(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))

	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrTransport)
	assert.False(t, ws.Ready())
	<-ws.Done()
}

func TestWebSocketLifecycleErrors(t *testing.T) {
	t.Run("SendBeforeOpen", func(t *testing.T) {
		ws := transport.NewWebSocket(transport.WebSocketConfig{}, newRecorder())
		assert.ErrorIs(t, ws.Send([]byte("x")), transport.ErrNotReady)
	})

	t.Run("OpenTwice", func(t *testing.T) {
		srv, url := echoServer(t)
		defer srv.Close()

		rec := newRecorder()
		ws := transport.NewWebSocket(transport.WebSocketConfig{}, rec)
		require.NoError(t, ws.Open(context.Background(), url))
		assert.ErrorIs(t, ws.Open(context.Background(), url), transport.ErrAlreadyOpen)

		require.NoError(t, ws.Close())
		waitClosed(t, rec)
	})

	t.Run("CloseBeforeOpen", func(t *testing.T) {
		rec := newRecorder()
		ws := transport.NewWebSocket(transport.WebSocketConfig{}, rec)
		require.NoError(t, ws.Close())
		assert.NoError(t, waitClosed(t, rec))

		err := ws.Open(context.Background(), "ws://127.0.0.1:1")
		assert.ErrorIs(t, err, transport.ErrClosed)
	})
}

func TestFactoryFunc(t *testing.T) {
	var got transport.Handler
	f := transport.FactoryFunc(func(h transport.Handler) transport.Transport {
		got = h
		return mocks.NewMockTransport(t)
	})

	rec := newRecorder()
	tr := f.New(rec)
	assert.NotNil(t, tr)
	assert.Same(t, rec, got)
}
