package session

import (
	"sync"
	"time"
)

// Status 会话状态
type Status string

const (
	StatusConnecting    Status = "CONNECTING"
	StatusConnected     Status = "CONNECTED"
	StatusAuthenticated Status = "AUTHENTICATED"
	StatusError         Status = "ERROR"
	StatusTimeout       Status = "TIMEOUT"
	StatusClosed        Status = "CLOSED"
)

// ErrorInfo 会话最近一次错误记录
type ErrorInfo struct {
	Message    string
	Kind       string
	OccurredAt time.Time
}

// Transport 会话底层传输通道。
// 由持有该会话的连接独占写入，实现方负责出站序列化。
type Transport interface {
	SendJSON(v interface{}) error
	Close() error
	CloseWithReason(code int, reason string) error
}

// Session 单个客户端连接的会话状态。
// sessionId 在连接建立时分配且不可变，其余字段由网关在
// 入站/出站事件中更新。
type Session struct {
	id        string
	transport Transport

	mu              sync.RWMutex
	status          Status
	userID          string
	createdAt       time.Time
	lastActivityAt  time.Time
	lastHeartbeatAt time.Time
	lastError       *ErrorInfo
}

// New 创建会话，初始状态为 CONNECTING。
func New(id string, transport Transport) *Session {
	now := time.Now()
	return &Session{
		id:              id,
		transport:       transport,
		status:          StatusConnecting,
		createdAt:       now,
		lastActivityAt:  now,
		lastHeartbeatAt: now,
	}
}

// ID 返回会话 ID
func (s *Session) ID() string {
	return s.id
}

// Status 返回当前状态
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetStatus 更新状态
func (s *Session) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// UserID 返回认证后的用户 ID，未认证时为空。
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// SetUserID 写入用户 ID
func (s *Session) SetUserID(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
}

// IsAuthenticated 会话是否已认证
func (s *Session) IsAuthenticated() bool {
	return s.Status() == StatusAuthenticated
}

// Touch 更新活跃时间
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivityAt = time.Now()
}

// Heartbeat 更新心跳与活跃时间
func (s *Session) Heartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.lastHeartbeatAt = now
	s.lastActivityAt = now
}

// CreatedAt 返回创建时间
func (s *Session) CreatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.createdAt
}

// LastActivityAt 返回最近活跃时间
func (s *Session) LastActivityAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivityAt
}

// LastHeartbeatAt 返回最近心跳时间
func (s *Session) LastHeartbeatAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastHeartbeatAt
}

// SetError 记录错误并转入 ERROR 状态
func (s *Session) SetError(message, kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusError
	s.lastError = &ErrorInfo{
		Message:    message,
		Kind:       kind,
		OccurredAt: time.Now(),
	}
}

// LastError 返回最近一次错误，无错误时为 nil。
func (s *Session) LastError() *ErrorInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// Send 向会话发送出站消息
func (s *Session) Send(v interface{}) error {
	return s.transport.SendJSON(v)
}

// Close 关闭底层传输
func (s *Session) Close() error {
	return s.transport.Close()
}

// CloseWithReason 携带关闭帧关闭底层传输
func (s *Session) CloseWithReason(code int, reason string) error {
	return s.transport.CloseWithReason(code, reason)
}
