package protocol

// 出站消息类型
const (
	TypeWelcome               = "welcome"
	TypePong                  = "pong"
	TypeAuthSuccess           = "auth_success"
	TypeConnectionError       = "connection_error"
	TypeValidationError       = "validation_error"
	TypeUnknownMessageError   = "unknown_message_error"
	TypeSubscriptionSuccess   = "subscription_success"
	TypeUnsubscriptionSuccess = "unsubscription_success"
	TypeAuthenticationError   = "AUTHENTICATION_ERROR"
	TypeRateLimitError        = "RATE_LIMIT_ERROR"
)

// Welcome 连接建立应答
func Welcome(sessionID string) *Envelope {
	return NewEnvelope(TypeWelcome, map[string]any{
		"sessionId": sessionID,
	})
}

// Pong ping 应答，携带当前服务器时间。
func Pong() *Envelope {
	e := NewEnvelope(TypePong, nil)
	e.Fields = map[string]any{"timestamp": e.Timestamp}
	return e
}

// AuthSuccess 认证成功应答
func AuthSuccess(userID, sessionID string) *Envelope {
	return NewEnvelope(TypeAuthSuccess, map[string]any{
		"userId":    userID,
		"sessionId": sessionID,
	})
}

// ConnectionError 连接级错误通知
func ConnectionError(errMsg, details string) *Envelope {
	return NewEnvelope(TypeConnectionError, map[string]any{
		"error":   errMsg,
		"details": details,
	})
}

// ValidationError 消息校验失败应答
func ValidationError(message string) *Envelope {
	return NewEnvelope(TypeValidationError, map[string]any{
		"message": message,
	})
}

// UnknownMessageError 未识别消息类型应答
func UnknownMessageError(message string) *Envelope {
	return NewEnvelope(TypeUnknownMessageError, map[string]any{
		"message": message,
	})
}

// SubscriptionSuccess 订阅成功应答
func SubscriptionSuccess(eventType string) *Envelope {
	return NewEnvelope(TypeSubscriptionSuccess, map[string]any{
		"eventType": eventType,
	})
}

// UnsubscriptionSuccess 退订成功应答
func UnsubscriptionSuccess(eventType string) *Envelope {
	return NewEnvelope(TypeUnsubscriptionSuccess, map[string]any{
		"eventType": eventType,
	})
}

// AuthenticationError 认证失败应答
func AuthenticationError(errMsg, details string) *Envelope {
	return NewEnvelope(TypeAuthenticationError, map[string]any{
		"error":   errMsg,
		"details": details,
	})
}

// RateLimitError 限流应答，retryAfter 单位为秒。
func RateLimitError(message string, retryAfter int64) *Envelope {
	return NewEnvelope(TypeRateLimitError, map[string]any{
		"message":    message,
		"retryAfter": retryAfter,
	})
}
