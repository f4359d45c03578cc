package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env := NewEnvelope(TypeAuth, map[string]any{
		"token":  "abc",
		"userId": "user-1",
	})

	data, err := json.Marshal(env)
	require.NoError(t, err)

	// 业务字段必须与 type/timestamp 平铺在同一层
	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, "auth", flat["type"])
	assert.Equal(t, "abc", flat["token"])
	assert.Contains(t, flat, "timestamp")

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, env.Type, decoded.Type)
	assert.Equal(t, env.Timestamp, decoded.Timestamp)

	token, ok := decoded.StringField("token")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)
}

func TestEnvelopeHasField(t *testing.T) {
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(`{"type":"auth","token":"","userId":"u"}`), &env))

	assert.False(t, env.HasField("token"))
	assert.True(t, env.HasField("userId"))
	assert.False(t, env.HasField("missing"))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		msgType string
		want    Kind
	}{
		{"auth", KindAuth},
		{"ping", KindPing},
		{"heartbeat", KindHeartbeat},
		{"subscribe", KindSubscribe},
		{"unsubscribe", KindUnsubscribe},
		{"nonsense", KindUnknown},
		{"", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.msgType, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.msgType))
		})
	}
}

func TestKindRequiredFields(t *testing.T) {
	assert.Equal(t, []string{"token", "userId"}, KindAuth.RequiredFields())
	assert.Equal(t, []string{"eventType"}, KindSubscribe.RequiredFields())
	assert.Equal(t, []string{"eventType"}, KindUnsubscribe.RequiredFields())
	assert.Nil(t, KindPing.RequiredFields())
	assert.Nil(t, KindUnknown.RequiredFields())
}

func TestOutboundEnvelopes(t *testing.T) {
	w := Welcome("sess-1")
	assert.Equal(t, TypeWelcome, w.Type)
	id, _ := w.StringField("sessionId")
	assert.Equal(t, "sess-1", id)

	r := RateLimitError("rate limit exceeded", 60)
	assert.Equal(t, TypeRateLimitError, r.Type)
	assert.Equal(t, int64(60), r.Fields["retryAfter"])

	p := Pong()
	assert.Equal(t, p.Timestamp, p.Fields["timestamp"])
}
