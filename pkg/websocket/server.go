package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/lumehome/lumelink/pkg/logger"
)

// Server WebSocket 服务端
type Server struct {
	config   *ServerConfig
	upgrader *websocket.Upgrader
	logger   logger.Logger

	// 连接池
	pool *ConnectionPool

	// 消息处理
	handler MessageHandler

	// 升级限流（按来源 IP）
	limiters sync.Map // map[ip]*rate.Limiter

	// 工作池
	workerPool *ants.Pool

	// 指标
	metrics *ServerMetrics

	// 状态
	mu      sync.RWMutex
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// ServerOption 服务端选项
type ServerOption func(*Server)

// WithServerLogger 设置日志
func WithServerLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHandler 设置消息处理器
func WithHandler(h MessageHandler) ServerOption {
	return func(s *Server) {
		s.handler = h
	}
}

// WithMetrics 启用 Prometheus 指标
func WithMetrics(registerer prometheus.Registerer) ServerOption {
	return func(s *Server) {
		if registerer != nil {
			s.metrics = NewServerMetrics(registerer)
		}
	}
}

// NewServer 创建服务端
func NewServer(cfg *ServerConfig, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		config:  cfg,
		logger:  logger.Noop(),
		closeCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.upgrader = &websocket.Upgrader{
		ReadBufferSize:    cfg.ReadBufferSize,
		WriteBufferSize:   cfg.WriteBufferSize,
		HandshakeTimeout:  cfg.HandshakeTimeout,
		EnableCompression: cfg.EnableCompression,
		CheckOrigin:       cfg.CheckOrigin,
	}

	// 未设置 CheckOrigin 时放行（网关面向移动端/多来源 Web 客户端）
	if s.upgrader.CheckOrigin == nil {
		s.upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}

	s.pool = NewConnectionPool(&cfg.Pool)

	poolSize := cfg.Pool.MaxConnections / 10
	if poolSize < 10 {
		poolSize = 10
	}
	workerPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	s.workerPool = workerPool

	return s, nil
}

// Handler 返回 http.Handler
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.ServeHTTP)
}

// ServeHTTP 实现 http.Handler 接口
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.Upgrade(w, r)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		if s.metrics != nil {
			s.metrics.OnUpgradeError()
		}
		return
	}

	s.handleConnection(conn)
}

// Upgrade 升级 HTTP 连接为 WebSocket
func (s *Server) Upgrade(w http.ResponseWriter, r *http.Request) (*Connection, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrPoolClosed
	}
	s.mu.RUnlock()

	remoteIP := extractIP(r.RemoteAddr)

	// 升级限流
	if !s.allowUpgrade(remoteIP) {
		http.Error(w, "too many connection attempts", http.StatusTooManyRequests)
		return nil, ErrUpgradeRateLimited
	}

	// 连接池检查
	if s.pool.IsFull() {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return nil, ErrPoolFull
	}
	if s.pool.IsIPLimitReached(remoteIP) {
		http.Error(w, "too many connections from this IP", http.StatusTooManyRequests)
		return nil, ErrMaxConnectionsPerIP
	}

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	conn := NewConnection(wsConn,
		WithConnectionLogger(s.logger),
		WithConnectionTimeouts(s.config.ReadTimeout, s.config.WriteTimeout),
		WithSendQueueSize(s.config.SendQueueSize),
	)

	if s.config.MaxMessageSize > 0 {
		conn.SetReadLimit(s.config.MaxMessageSize)
	}

	if err := s.pool.Add(conn); err != nil {
		conn.Close()
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OnConnectionOpened()
	}

	return conn, nil
}

// allowUpgrade 检查来源 IP 的升级速率
func (s *Server) allowUpgrade(ip string) bool {
	if s.config.UpgradeRate.PerSecond <= 0 {
		return true
	}

	val, ok := s.limiters.Load(ip)
	if !ok {
		burst := s.config.UpgradeRate.Burst
		if burst <= 0 {
			burst = s.config.UpgradeRate.PerSecond
		}
		val, _ = s.limiters.LoadOrStore(ip,
			rate.NewLimiter(rate.Limit(s.config.UpgradeRate.PerSecond), burst))
	}
	return val.(*rate.Limiter).Allow()
}

// handleConnection 处理连接（阻塞直到连接关闭）
func (s *Server) handleConnection(conn *Connection) {
	s.wg.Add(1)
	defer s.wg.Done()

	if s.handler != nil {
		if err := s.handler.OnConnect(conn); err != nil {
			s.logger.Warn("websocket OnConnect error", "error", err, "conn_id", conn.ID())
			s.removeConnection(conn, err)
			return
		}
	}

	conn.SetPongHandler(func(appData string) error {
		if s.config.PongTimeout > 0 {
			conn.conn.SetReadDeadline(time.Now().Add(s.config.PongTimeout))
		}
		return nil
	})

	// 写入循环
	s.submit(conn.WriteLoop)

	// 传输层 Ping 循环
	if s.config.PingInterval > 0 {
		s.submit(func() { s.pingLoop(conn) })
	}

	// 读取循环（阻塞）
	conn.ReadLoop(func(c *Connection, msg *Message) error {
		if s.metrics != nil {
			s.metrics.OnMessageReceived(msg.Type, int64(msg.Len()))
		}
		if s.handler != nil {
			return s.handler.OnMessage(c, msg)
		}
		return nil
	})

	// 异常关闭先走错误回调，再统一清理
	if err := conn.CloseError(); err != nil && s.handler != nil {
		s.handler.OnError(conn, err)
	}
	s.removeConnection(conn, conn.CloseError())
}

// submit 提交任务到工作池，池满时退化为独立 goroutine
func (s *Server) submit(task func()) {
	if err := s.workerPool.Submit(task); err != nil {
		go task()
	}
}

// pingLoop 传输层 Ping 循环
func (s *Server) pingLoop(conn *Connection) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if conn.IsClosed() {
				return
			}
			if err := conn.Ping(); err != nil {
				s.logger.Debug("websocket ping error", "error", err, "conn_id", conn.ID())
				conn.Close()
				return
			}
		case <-conn.closeChan:
			return
		case <-s.closeCh:
			return
		}
	}
}

// removeConnection 移除连接
func (s *Server) removeConnection(conn *Connection, err error) {
	s.pool.Remove(conn.ID())

	if s.handler != nil {
		s.handler.OnDisconnect(conn, err)
	}

	if s.metrics != nil {
		s.metrics.OnConnectionClosed()
	}
}

// Broadcast 向所有连接广播消息
func (s *Server) Broadcast(msg *Message) {
	s.pool.Range(func(conn *Connection) bool {
		if err := conn.SendAsync(msg); err != nil {
			s.logger.Debug("broadcast send error", "error", err, "conn_id", conn.ID())
		}
		return true
	})

	if s.metrics != nil {
		s.metrics.OnMessageSent(msg.Type, int64(msg.Len()))
	}
}

// GetConnection 获取指定连接
func (s *Server) GetConnection(connID string) (*Connection, bool) {
	return s.pool.Get(connID)
}

// GetConnectionCount 获取连接数
func (s *Server) GetConnectionCount() int {
	return s.pool.Count()
}

// Metrics 返回服务端指标（未启用时为 nil）
func (s *Server) Metrics() *ServerMetrics {
	return s.metrics
}

// Close 关闭服务端
func (s *Server) Close() error {
	return s.CloseWithContext(context.Background())
}

// CloseWithContext 带上下文关闭服务端
func (s *Server) CloseWithContext(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.closeCh)
	s.mu.Unlock()

	s.pool.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.workerPool.Release()

	return nil
}
