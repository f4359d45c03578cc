package guard

// ValidationError 结构、大小或必需字段校验失败。
// 仅作用于当前消息，客户端可立即重试。
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "guard: " + e.Message
}

// RateLimitError 会话超出当前窗口配额。
type RateLimitError struct {
	Message string

	// RetryAfter 距窗口重置的秒数，恒为正。
	RetryAfter int64
}

func (e *RateLimitError) Error() string {
	return "guard: " + e.Message
}
