package ws

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T, cfg Config) (*Hub, string) {
	t.Helper()
	hub := NewHub(testLogger())
	srv := httptest.NewServer(Handler(hub, cfg, testLogger()))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func exchange(t *testing.T, conn *websocket.Conn, msg string) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))

	msgType, reply, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, msgType)
	return string(reply)
}

func TestStatusChannel_Echo(t *testing.T) {
	_, url := startServer(t, Config{})
	conn := dial(t, url)

	assert.Equal(t, "Order status updated: Test order update", exchange(t, conn, "Test order update"))
	assert.Equal(t, "Order status updated: ", exchange(t, conn, ""))
}

func TestStatusChannel_InOrder(t *testing.T) {
	_, url := startServer(t, Config{})
	conn := dial(t, url)

	msgs := []string{"first", "second", "third"}
	for _, m := range msgs {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(m)))
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for _, m := range msgs {
		_, reply, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, statusPrefix+m, string(reply))
	}
}

func TestStatusChannel_ConnectionsIndependent(t *testing.T) {
	hub, url := startServer(t, Config{})
	idle := dial(t, url)
	active := dial(t, url)

	assert.Equal(t, statusPrefix+"a", exchange(t, active, "a"))
	assert.Eventually(t, func() bool { return hub.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, active.Close())
	assert.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, statusPrefix+"still here", exchange(t, idle, "still here"))
}

func TestStatusChannel_RejectsBinary(t *testing.T) {
	hub, url := startServer(t, Config{})
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x01}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseUnsupportedData), "got %v", err)
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStatusChannel_MessageTooLarge(t *testing.T) {
	hub, url := startServer(t, Config{MaxMessageBytes: 8})
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("this is longer than eight bytes")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CloseAll(t *testing.T) {
	hub, url := startServer(t, Config{CloseGracePeriod: time.Second})
	conns := []*websocket.Conn{dial(t, url), dial(t, url)}
	for _, c := range conns {
		assert.Equal(t, statusPrefix+"hi", exchange(t, c, "hi"))
	}

	closed := make(chan error, len(conns))
	for _, c := range conns {
		go func(c *websocket.Conn) {
			_, _, err := c.ReadMessage()
			closed <- err
		}(c)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, hub.CloseAll(ctx))
	assert.Equal(t, 0, hub.Len())

	for range conns {
		err := <-closed
		assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	}
}

func TestHub_RefusesSessionsAfterCloseAll(t *testing.T) {
	hub, url := startServer(t, Config{CloseGracePeriod: 100 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, hub.CloseAll(ctx))

	conn := dial(t, url)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.Equal(t, 0, hub.Len())

	// a second CloseAll has nothing left to wait for
	require.NoError(t, hub.CloseAll(ctx))
}

func TestHub_RegisterAfterCloseAll(t *testing.T) {
	hub := NewHub(testLogger())
	require.NoError(t, hub.CloseAll(context.Background()))

	s := &Session{id: "late"}
	assert.False(t, hub.register(s))
	assert.Equal(t, 0, hub.Len())
}

func TestSession_StateMachine(t *testing.T) {
	hub := NewHub(testLogger())
	sessions := make(chan *Session, 1)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		s := newSession("test", conn, testLogger(), time.Second)
		assert.Equal(t, StateOpen, s.State())
		sessions <- s

		require.True(t, hub.register(s))
		defer hub.unregister(s)
		s.serve()
	}))
	defer srv.Close()

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	s := <-sessions

	assert.Equal(t, statusPrefix+"x", exchange(t, conn, "x"))
	assert.Equal(t, StateReceiving, s.State())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return s.State() == StateClosed }, 2*time.Second, 10*time.Millisecond)

	// terminal: serving again is a no-op and Close does nothing
	s.serve()
	s.Close(websocket.CloseNormalClosure, "")
	assert.Equal(t, StateClosed, s.State())
}

func TestCheckOrigin(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	all := checkOrigin(nil)
	assert.True(t, all(req("http://evil.example")))

	some := checkOrigin([]string{"http://localhost:3000"})
	assert.True(t, some(req("http://localhost:3000")))
	assert.True(t, some(req("")))
	assert.False(t, some(req("http://evil.example")))

	star := checkOrigin([]string{"*"})
	assert.True(t, star(req("http://evil.example")))
}
