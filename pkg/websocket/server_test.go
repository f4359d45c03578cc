package websocket

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandler 回显收到的文本消息
type echoHandler struct {
	BaseHandler

	mu        sync.Mutex
	connected []string
}

func (h *echoHandler) OnConnect(conn *Connection) error {
	h.mu.Lock()
	h.connected = append(h.connected, conn.ID())
	h.mu.Unlock()
	return nil
}

func (h *echoHandler) OnMessage(conn *Connection, msg *Message) error {
	return conn.SendAsync(msg)
}

func newTestServer(t *testing.T, cfg *ServerConfig, h MessageHandler) (*Server, *httptest.Server) {
	t.Helper()

	srv, err := NewServer(cfg, WithHandler(h))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})

	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestServerEcho(t *testing.T) {
	_, ts := newTestServer(t, nil, &echoHandler{})

	conn := dial(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestServerConnectionCount(t *testing.T) {
	srv, ts := newTestServer(t, nil, &echoHandler{})

	c1 := dial(t, ts)
	dial(t, ts)

	require.Eventually(t, func() bool {
		return srv.GetConnectionCount() == 2
	}, 2*time.Second, 10*time.Millisecond)

	c1.Close()

	require.Eventually(t, func() bool {
		return srv.GetConnectionCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServerPoolLimit(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Pool.MaxConnections = 1
	cfg.Pool.MaxConnectionsPerIP = 0

	srv, ts := newTestServer(t, cfg, &echoHandler{})

	dial(t, ts)
	require.Eventually(t, func() bool {
		return srv.GetConnectionCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// 超出连接池上限的握手被拒绝
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestServerBroadcast(t *testing.T) {
	srv, ts := newTestServer(t, nil, &echoHandler{})

	c1 := dial(t, ts)
	c2 := dial(t, ts)

	require.Eventually(t, func() bool {
		return srv.GetConnectionCount() == 2
	}, 2*time.Second, 10*time.Millisecond)

	srv.Broadcast(NewTextMessage([]byte("to-all")))

	for _, c := range []*websocket.Conn{c1, c2} {
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := c.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, "to-all", string(data))
	}
}

func TestConnectionSendAfterClose(t *testing.T) {
	srv, ts := newTestServer(t, nil, &echoHandler{})

	dial(t, ts)
	require.Eventually(t, func() bool {
		return srv.GetConnectionCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	var conn *Connection
	srv.pool.Range(func(c *Connection) bool {
		conn = c
		return false
	})
	require.NotNil(t, conn)

	conn.Close()
	assert.ErrorIs(t, conn.SendAsync(NewTextMessage([]byte("x"))), ErrConnectionClosed)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr bool
	}{
		{name: "default", mutate: func(c *ServerConfig) {}, wantErr: false},
		{name: "zero send queue", mutate: func(c *ServerConfig) { c.SendQueueSize = 0 }, wantErr: true},
		{name: "negative max message size", mutate: func(c *ServerConfig) { c.MaxMessageSize = -1 }, wantErr: true},
		{name: "negative pool size", mutate: func(c *ServerConfig) { c.Pool.MaxConnections = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultServerConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
