package guard

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmitValidation(t *testing.T) {
	g := New(DefaultConfig(), nil)

	tests := []struct {
		name    string
		raw     []byte
		wantMsg string
	}{
		{
			name:    "not json",
			raw:     []byte("not-json"),
			wantMsg: "malformed message",
		},
		{
			name:    "missing type",
			raw:     []byte(`{"token":"t"}`),
			wantMsg: "missing field: type",
		},
		{
			name:    "auth without token",
			raw:     []byte(`{"type":"auth","userId":"u"}`),
			wantMsg: "token",
		},
		{
			name:    "auth with empty token",
			raw:     []byte(`{"type":"auth","token":"","userId":"u"}`),
			wantMsg: "token",
		},
		{
			name:    "subscribe without event type",
			raw:     []byte(`{"type":"subscribe"}`),
			wantMsg: "eventType",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := g.Admit("sess-1", tt.raw)
			assert.Nil(t, env)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Message, tt.wantMsg)
		})
	}
}

func TestAdmitAcceptsValidMessages(t *testing.T) {
	g := New(DefaultConfig(), nil)

	env, err := g.Admit("sess-1", []byte(`{"type":"ping"}`))
	require.NoError(t, err)
	assert.Equal(t, "ping", env.Type)

	env, err = g.Admit("sess-1", []byte(`{"type":"auth","token":"t","userId":"u"}`))
	require.NoError(t, err)
	token, _ := env.StringField("token")
	assert.Equal(t, "t", token)

	// 未识别类型结构上可接受，由上层回复 unknown_message_error
	env, err = g.Admit("sess-1", []byte(`{"type":"nonsense"}`))
	require.NoError(t, err)
	assert.Equal(t, "nonsense", env.Type)
}

func TestAdmitSizeLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxMessageSize = 64
	g := New(cfg, nil)

	big := fmt.Sprintf(`{"type":"ping","pad":%q}`, bytes.Repeat([]byte("x"), 128))
	_, err := g.Admit("sess-1", []byte(big))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Message, "too large")
}

func TestRateLimitWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = 3
	cfg.RateWindow = time.Minute
	g := New(cfg, nil)

	now := time.Now()
	g.now = func() time.Time { return now }

	msg := []byte(`{"type":"ping"}`)
	for i := 0; i < 3; i++ {
		_, err := g.Admit("sess-1", msg)
		require.NoError(t, err, "message %d within the window must pass", i+1)
	}

	// 超限那条携带正的 retryAfter
	_, err := g.Admit("sess-1", msg)
	var rerr *RateLimitError
	require.True(t, errors.As(err, &rerr))
	assert.Positive(t, rerr.RetryAfter)
	assert.LessOrEqual(t, rerr.RetryAfter, int64(60))

	// 其他会话不受影响
	_, err = g.Admit("sess-2", msg)
	assert.NoError(t, err)

	// 窗口过期后惰性重置
	now = now.Add(cfg.RateWindow + time.Second)
	_, err = g.Admit("sess-1", msg)
	assert.NoError(t, err)
}

func TestRemoveResetsWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = 1
	g := New(cfg, nil)

	msg := []byte(`{"type":"ping"}`)
	_, err := g.Admit("sess-1", msg)
	require.NoError(t, err)
	_, err = g.Admit("sess-1", msg)
	require.Error(t, err)

	g.Remove("sess-1")
	_, err = g.Admit("sess-1", msg)
	assert.NoError(t, err)
}
