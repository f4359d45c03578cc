package auth

import (
	"context"

	"github.com/lumehome/lumelink/app/gateway/internal/session"
	"github.com/lumehome/lumelink/pkg/logger"
	"github.com/lumehome/lumelink/pkg/security"
)

// TokenValidator 身份提供方契约。
// 校验令牌并返回其中携带的用户 ID，任何错误都视为令牌无效。
type TokenValidator interface {
	Validate(ctx context.Context, token string) (userID string, err error)
}

// JWTValidator 基于 pkg/security 的 TokenValidator 实现，
// 用户 ID 取自令牌的 Subject。
type JWTValidator struct {
	manager *security.JWTManager
}

// NewJWTValidator 创建 JWT 校验器
func NewJWTValidator(manager *security.JWTManager) *JWTValidator {
	return &JWTValidator{manager: manager}
}

// Validate 实现 TokenValidator
func (v *JWTValidator) Validate(_ context.Context, token string) (string, error) {
	claims, err := v.manager.ValidateToken(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Result 认证结果
type Result struct {
	Success bool
	UserID  string
	Message string
}

// Registrar 认证登记器。
// 校验 token 与声称身份是否一致，成功后写入用户索引并将会话
// 置为 AUTHENTICATED；失败不改变会话状态，客户端可重试。
type Registrar struct {
	validator TokenValidator
	sessions  *session.Manager
	logger    logger.Logger
}

// NewRegistrar 创建登记器
func NewRegistrar(validator TokenValidator, sessions *session.Manager, log logger.Logger) *Registrar {
	if log == nil {
		log = logger.Noop()
	}
	return &Registrar{
		validator: validator,
		sessions:  sessions,
		logger:    log.Named("auth"),
	}
}

// Authenticate 认证指定会话。
// 失败关闭：身份提供方的任何错误都按无效令牌处理。
// 已认证会话允许重复认证，简单覆盖旧映射。
func (r *Registrar) Authenticate(ctx context.Context, sessionID, token, claimedUserID string) Result {
	userID, err := r.validator.Validate(ctx, token)
	if err != nil {
		r.logger.Warn("token validation failed", "session_id", sessionID, "error", err)
		return Result{Success: false, Message: "invalid token"}
	}

	// 阻止用 A 的有效令牌冒领 B 的身份
	if userID != claimedUserID {
		r.logger.Warn("user id mismatch",
			"session_id", sessionID, "token_user", userID, "claimed_user", claimedUserID)
		return Result{Success: false, Message: "user id mismatch"}
	}

	s, ok := r.sessions.Get(sessionID)
	if !ok {
		return Result{Success: false, Message: "session not found"}
	}

	r.sessions.BindUser(sessionID, userID)
	s.SetUserID(userID)
	s.SetStatus(session.StatusAuthenticated)

	r.logger.Info("session authenticated", "session_id", sessionID, "user_id", userID)
	return Result{Success: true, UserID: userID}
}
