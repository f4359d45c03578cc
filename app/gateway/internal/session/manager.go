package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lumehome/lumelink/pkg/logger"
)

// SweepConfig 心跳清理配置
type SweepConfig struct {
	// Interval 清理周期
	Interval time.Duration `mapstructure:"interval" json:"interval"`

	// Timeout 心跳超时阈值，超过后会话被强制驱逐。
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

// DefaultSweepConfig 返回默认清理配置
func DefaultSweepConfig() *SweepConfig {
	return &SweepConfig{
		Interval: 30 * time.Second,
		Timeout:  60 * time.Second,
	}
}

// Manager 会话表与用户索引的持有者。
// 会话表与用户索引是两张独立的并发安全结构，单键操作原子，
// 跨键不保证事务性。热路径（准入、分发、投递）不持全局锁，
// 只有心跳清理遍历全表。
type Manager struct {
	sessions sync.Map // sessionID -> *Session
	count    atomic.Int64

	// 用户双向索引，认证成功后写入，last-writer-wins。
	userMu        sync.Mutex
	userToSession map[string]string
	sessionToUser map[string]string

	config  *SweepConfig
	logger  logger.Logger
	now     func() time.Time
	cancel  context.CancelFunc
	done    chan struct{}
	started atomic.Bool
}

// NewManager 创建会话管理器
func NewManager(cfg *SweepConfig, log logger.Logger) *Manager {
	if cfg == nil {
		cfg = DefaultSweepConfig()
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Manager{
		userToSession: make(map[string]string),
		sessionToUser: make(map[string]string),
		config:        cfg,
		logger:        log.Named("session"),
		now:           time.Now,
	}
}

// Add 登记新会话
func (m *Manager) Add(s *Session) error {
	if _, loaded := m.sessions.LoadOrStore(s.ID(), s); loaded {
		return ErrSessionExists
	}
	m.count.Add(1)
	m.logger.Debug("session added", "session_id", s.ID(), "total", m.count.Load())
	return nil
}

// Get 按会话 ID 查找
func (m *Manager) Get(sessionID string) (*Session, bool) {
	v, ok := m.sessions.Load(sessionID)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Remove 移除会话并清理用户索引。
// 幂等，重复移除返回 false。
func (m *Manager) Remove(sessionID string) bool {
	_, loaded := m.sessions.LoadAndDelete(sessionID)
	if !loaded {
		return false
	}
	m.count.Add(-1)
	m.unbindSession(sessionID)
	m.logger.Debug("session removed", "session_id", sessionID, "total", m.count.Load())
	return true
}

// BindUser 写入 userId↔sessionId 双向映射。
// 同一用户再次认证时覆盖旧映射（不主动关闭旧会话），
// 同一会话换用户认证时先解除旧用户映射。
func (m *Manager) BindUser(sessionID, userID string) {
	m.userMu.Lock()
	defer m.userMu.Unlock()

	if oldUser, ok := m.sessionToUser[sessionID]; ok && oldUser != userID {
		delete(m.userToSession, oldUser)
	}
	if oldSession, ok := m.userToSession[userID]; ok && oldSession != sessionID {
		delete(m.sessionToUser, oldSession)
	}

	m.userToSession[userID] = sessionID
	m.sessionToUser[sessionID] = userID
}

// SessionByUser 按用户 ID 查找本地会话
func (m *Manager) SessionByUser(userID string) (*Session, bool) {
	m.userMu.Lock()
	sessionID, ok := m.userToSession[userID]
	m.userMu.Unlock()
	if !ok {
		return nil, false
	}
	return m.Get(sessionID)
}

// UserBySession 返回会话当前映射的用户 ID
func (m *Manager) UserBySession(sessionID string) (string, bool) {
	m.userMu.Lock()
	defer m.userMu.Unlock()
	userID, ok := m.sessionToUser[sessionID]
	return userID, ok
}

func (m *Manager) unbindSession(sessionID string) {
	m.userMu.Lock()
	defer m.userMu.Unlock()

	if userID, ok := m.sessionToUser[sessionID]; ok {
		delete(m.sessionToUser, sessionID)
		// 仅当该用户仍指向此会话时才解除，避免误删新映射
		if m.userToSession[userID] == sessionID {
			delete(m.userToSession, userID)
		}
	}
}

// Count 当前会话数
func (m *Manager) Count() int {
	return int(m.count.Load())
}

// Range 遍历所有会话，fn 返回 false 时停止。
func (m *Manager) Range(fn func(s *Session) bool) {
	m.sessions.Range(func(_, v any) bool {
		return fn(v.(*Session))
	})
}

// Broadcast 向所有本地会话投递消息，返回成功数。
// 单会话投递失败只记录日志，不影响其他会话。
func (m *Manager) Broadcast(v interface{}) int {
	delivered := 0
	m.Range(func(s *Session) bool {
		if err := s.Send(v); err != nil {
			m.logger.Warn("broadcast delivery failed", "session_id", s.ID(), "error", err)
			return true
		}
		delivered++
		return true
	})
	return delivered
}

// DeliverToUser 向指定用户的本地会话投递消息。
// 无映射时静默跳过（用户可能连在其他实例），投递失败不重试。
func (m *Manager) DeliverToUser(userID string, v interface{}) bool {
	s, ok := m.SessionByUser(userID)
	if !ok {
		return false
	}
	if err := s.Send(v); err != nil {
		m.logger.Warn("user delivery failed", "session_id", s.ID(), "user_id", userID, "error", err)
		return false
	}
	return true
}

// StartSweep 启动心跳清理任务，非阻塞。
func (m *Manager) StartSweep(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return ErrSweepRunning
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
	return nil
}

// sweep 驱逐心跳超时的会话。
// 移除不依赖关闭是否成功，否则卡死的连接会永久泄漏。
func (m *Manager) sweep() {
	deadline := m.now().Add(-m.config.Timeout)

	m.Range(func(s *Session) bool {
		if s.LastHeartbeatAt().After(deadline) {
			return true
		}

		s.SetStatus(StatusTimeout)
		if err := s.CloseWithReason(websocket.CloseGoingAway, "heartbeat timeout"); err != nil {
			m.logger.Warn("close on heartbeat timeout failed", "session_id", s.ID(), "error", err)
		}
		m.Remove(s.ID())
		m.logger.Info("session evicted on heartbeat timeout",
			"session_id", s.ID(), "last_heartbeat", s.LastHeartbeatAt())
		return true
	})
}

// StopSweep 停止清理任务并等待退出
func (m *Manager) StopSweep() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
}

// Close 关闭所有会话并停止清理任务
func (m *Manager) Close() error {
	if m.started.Load() {
		m.StopSweep()
	}
	m.Range(func(s *Session) bool {
		s.SetStatus(StatusClosed)
		_ = s.CloseWithReason(websocket.CloseGoingAway, "server shutting down")
		m.Remove(s.ID())
		return true
	})
	return nil
}
