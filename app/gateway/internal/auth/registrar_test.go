package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumehome/lumelink/app/gateway/internal/session"
	"github.com/lumehome/lumelink/pkg/security"
)

type fakeValidator struct {
	userID string
	err    error
}

func (v *fakeValidator) Validate(_ context.Context, token string) (string, error) {
	return v.userID, v.err
}

type nopTransport struct{}

func (nopTransport) SendJSON(v interface{}) error                 { return nil }
func (nopTransport) Close() error                                 { return nil }
func (nopTransport) CloseWithReason(code int, reason string) error { return nil }

func newTestSession(t *testing.T, m *session.Manager, id string) *session.Session {
	t.Helper()
	s := session.New(id, nopTransport{})
	s.SetStatus(session.StatusConnected)
	require.NoError(t, m.Add(s))
	return s
}

func TestAuthenticateSuccess(t *testing.T) {
	m := session.NewManager(nil, nil)
	s := newTestSession(t, m, "sess-1")
	r := NewRegistrar(&fakeValidator{userID: "user-1"}, m, nil)

	result := r.Authenticate(t.Context(), "sess-1", "token", "user-1")

	assert.True(t, result.Success)
	assert.Equal(t, "user-1", result.UserID)
	assert.Equal(t, session.StatusAuthenticated, s.Status())
	assert.Equal(t, "user-1", s.UserID())

	got, ok := m.SessionByUser("user-1")
	require.True(t, ok)
	assert.Equal(t, "sess-1", got.ID())
}

func TestAuthenticateInvalidToken(t *testing.T) {
	m := session.NewManager(nil, nil)
	s := newTestSession(t, m, "sess-1")
	r := NewRegistrar(&fakeValidator{err: errors.New("provider down")}, m, nil)

	result := r.Authenticate(t.Context(), "sess-1", "token", "user-1")

	// 失败关闭：提供方错误一律按无效令牌处理，会话状态不变
	assert.False(t, result.Success)
	assert.Equal(t, "invalid token", result.Message)
	assert.Equal(t, session.StatusConnected, s.Status())
	assert.Empty(t, s.UserID())
}

func TestAuthenticateUserIDMismatch(t *testing.T) {
	m := session.NewManager(nil, nil)
	s := newTestSession(t, m, "sess-1")
	r := NewRegistrar(&fakeValidator{userID: "user-a"}, m, nil)

	result := r.Authenticate(t.Context(), "sess-1", "token", "user-b")

	assert.False(t, result.Success)
	assert.Equal(t, "user id mismatch", result.Message)
	assert.Equal(t, session.StatusConnected, s.Status())

	_, ok := m.SessionByUser("user-a")
	assert.False(t, ok)
}

func TestAuthenticateUnknownSession(t *testing.T) {
	m := session.NewManager(nil, nil)
	r := NewRegistrar(&fakeValidator{userID: "user-1"}, m, nil)

	result := r.Authenticate(t.Context(), "ghost", "token", "user-1")

	assert.False(t, result.Success)
	assert.Equal(t, "session not found", result.Message)
}

func TestReauthenticationOverwritesMapping(t *testing.T) {
	m := session.NewManager(nil, nil)
	newTestSession(t, m, "sess-1")
	newTestSession(t, m, "sess-2")
	r := NewRegistrar(&fakeValidator{userID: "user-1"}, m, nil)

	require.True(t, r.Authenticate(t.Context(), "sess-1", "token", "user-1").Success)
	require.True(t, r.Authenticate(t.Context(), "sess-2", "token", "user-1").Success)

	got, ok := m.SessionByUser("user-1")
	require.True(t, ok)
	assert.Equal(t, "sess-2", got.ID())
}

func TestJWTValidator(t *testing.T) {
	cfg := security.DefaultJWTConfig()
	cfg.SecretKey = "test-secret"
	mgr, err := security.NewJWTManager(cfg)
	require.NoError(t, err)

	token, err := mgr.GenerateToken(&security.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)

	v := NewJWTValidator(mgr)
	userID, err := v.Validate(t.Context(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	_, err = v.Validate(t.Context(), "garbage")
	assert.Error(t, err)
}
