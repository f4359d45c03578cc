package session

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport 记录发送与关闭调用的测试传输
type fakeTransport struct {
	mu       sync.Mutex
	sent     []interface{}
	closed   bool
	sendErr  error
	closeErr error
}

func (t *fakeTransport) SendJSON(v interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sent = append(t.sent, v)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return t.closeErr
}

func (t *fakeTransport) CloseWithReason(code int, reason string) error {
	return t.Close()
}

func (t *fakeTransport) sentCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sent)
}

func TestSessionLifecycle(t *testing.T) {
	s := New("sess-1", &fakeTransport{})

	assert.Equal(t, StatusConnecting, s.Status())
	assert.Empty(t, s.UserID())
	assert.False(t, s.IsAuthenticated())

	s.SetStatus(StatusConnected)
	s.SetUserID("user-1")
	s.SetStatus(StatusAuthenticated)
	assert.True(t, s.IsAuthenticated())

	s.SetError("boom", "transport")
	assert.Equal(t, StatusError, s.Status())
	require.NotNil(t, s.LastError())
	assert.Equal(t, "boom", s.LastError().Message)
}

func TestManagerAddRemove(t *testing.T) {
	m := NewManager(nil, nil)
	s := New("sess-1", &fakeTransport{})

	require.NoError(t, m.Add(s))
	assert.ErrorIs(t, m.Add(s), ErrSessionExists)
	assert.Equal(t, 1, m.Count())

	got, ok := m.Get("sess-1")
	require.True(t, ok)
	assert.Same(t, s, got)

	assert.True(t, m.Remove("sess-1"))
	assert.False(t, m.Remove("sess-1"))
	assert.Equal(t, 0, m.Count())

	_, ok = m.Get("sess-1")
	assert.False(t, ok)
}

func TestBindUserLastWriterWins(t *testing.T) {
	m := NewManager(nil, nil)
	s1 := New("sess-1", &fakeTransport{})
	s2 := New("sess-2", &fakeTransport{})
	require.NoError(t, m.Add(s1))
	require.NoError(t, m.Add(s2))

	m.BindUser("sess-1", "user-1")
	got, ok := m.SessionByUser("user-1")
	require.True(t, ok)
	assert.Equal(t, "sess-1", got.ID())

	// 同一用户在新会话重新认证，旧映射被覆盖
	m.BindUser("sess-2", "user-1")
	got, ok = m.SessionByUser("user-1")
	require.True(t, ok)
	assert.Equal(t, "sess-2", got.ID())

	_, ok = m.UserBySession("sess-1")
	assert.False(t, ok)

	// 覆盖不会主动关闭旧会话
	_, stillThere := m.Get("sess-1")
	assert.True(t, stillThere)
}

func TestRemovePurgesUserIndex(t *testing.T) {
	m := NewManager(nil, nil)
	s := New("sess-1", &fakeTransport{})
	require.NoError(t, m.Add(s))
	m.BindUser("sess-1", "user-1")

	m.Remove("sess-1")

	_, ok := m.SessionByUser("user-1")
	assert.False(t, ok)
	_, ok = m.UserBySession("sess-1")
	assert.False(t, ok)
}

func TestRemoveKeepsNewerMapping(t *testing.T) {
	m := NewManager(nil, nil)
	s1 := New("sess-1", &fakeTransport{})
	s2 := New("sess-2", &fakeTransport{})
	require.NoError(t, m.Add(s1))
	require.NoError(t, m.Add(s2))

	m.BindUser("sess-1", "user-1")
	m.BindUser("sess-2", "user-1")

	// 旧会话关闭不得误删新会话的映射
	m.Remove("sess-1")
	got, ok := m.SessionByUser("user-1")
	require.True(t, ok)
	assert.Equal(t, "sess-2", got.ID())
}

func TestBroadcast(t *testing.T) {
	m := NewManager(nil, nil)
	t1 := &fakeTransport{}
	t2 := &fakeTransport{sendErr: errors.New("closed")}
	require.NoError(t, m.Add(New("sess-1", t1)))
	require.NoError(t, m.Add(New("sess-2", t2)))

	delivered := m.Broadcast(json.RawMessage(`{"type":"news"}`))

	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, t1.sentCount())
}

func TestDeliverToUser(t *testing.T) {
	m := NewManager(nil, nil)
	tr := &fakeTransport{}
	require.NoError(t, m.Add(New("sess-1", tr)))
	m.BindUser("sess-1", "user-1")

	// 无映射用户：不投递、不报错
	assert.False(t, m.DeliverToUser("ghost", "hi"))

	// 有映射用户：恰好投递一次
	assert.True(t, m.DeliverToUser("user-1", "hi"))
	assert.Equal(t, 1, tr.sentCount())
}

func TestSweepEvictsStaleSessions(t *testing.T) {
	cfg := &SweepConfig{Interval: time.Hour, Timeout: time.Minute}
	m := NewManager(cfg, nil)

	// 关闭失败的传输也必须被驱逐
	stale := &fakeTransport{closeErr: errors.New("stuck")}
	s1 := New("stale", stale)
	s2 := New("fresh", &fakeTransport{})
	require.NoError(t, m.Add(s1))
	require.NoError(t, m.Add(s2))
	m.BindUser("stale", "user-1")

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	m.sweep()

	_, ok := m.Get("stale")
	assert.False(t, ok, "stale session must be removed even when close fails")
	assert.Equal(t, StatusTimeout, s1.Status())
	assert.True(t, stale.closed)

	_, ok = m.SessionByUser("user-1")
	assert.False(t, ok)

	_, ok = m.Get("fresh")
	assert.True(t, ok, "fresh session must survive the sweep")
}

func TestSweepSparesRecentHeartbeat(t *testing.T) {
	cfg := &SweepConfig{Interval: time.Hour, Timeout: time.Minute}
	m := NewManager(cfg, nil)
	s := New("sess-1", &fakeTransport{})
	require.NoError(t, m.Add(s))

	// 刚建立的会话心跳在阈值之内
	m.sweep()
	_, ok := m.Get("sess-1")
	assert.True(t, ok)
}

func TestManagerClose(t *testing.T) {
	m := NewManager(nil, nil)
	tr := &fakeTransport{}
	require.NoError(t, m.Add(New("sess-1", tr)))

	require.NoError(t, m.Close())
	assert.Equal(t, 0, m.Count())
	assert.True(t, tr.closed)
}
