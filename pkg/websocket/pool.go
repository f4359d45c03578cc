package websocket

import (
	"sync"
	"sync/atomic"
)

// ConnectionPool 连接池
// 以 sync.Map 存储连接，热路径（查找、增删）不持有全局锁。
type ConnectionPool struct {
	config *PoolConfig

	connections sync.Map // map[connID]*Connection
	ipCount     sync.Map // map[ip]*atomic.Int64

	totalCount  atomic.Int64
	activeCount atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewConnectionPool 创建连接池
func NewConnectionPool(cfg *PoolConfig) *ConnectionPool {
	if cfg == nil {
		cfg = &PoolConfig{}
	}
	return &ConnectionPool{config: cfg}
}

// Add 添加连接
func (p *ConnectionPool) Add(conn *Connection) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	p.mu.RUnlock()

	if p.config.MaxConnections > 0 && p.activeCount.Load() >= int64(p.config.MaxConnections) {
		return ErrPoolFull
	}

	remoteIP := extractIP(conn.RemoteAddr())
	if p.config.MaxConnectionsPerIP > 0 && p.getIPCount(remoteIP) >= int64(p.config.MaxConnectionsPerIP) {
		return ErrMaxConnectionsPerIP
	}

	p.connections.Store(conn.ID(), conn)
	p.activeCount.Add(1)
	p.totalCount.Add(1)
	p.incrementIPCount(remoteIP)

	return nil
}

// Remove 移除并关闭连接
func (p *ConnectionPool) Remove(connID string) {
	if val, ok := p.connections.LoadAndDelete(connID); ok {
		conn := val.(*Connection)
		p.activeCount.Add(-1)
		p.decrementIPCount(extractIP(conn.RemoteAddr()))
		conn.Close()
	}
}

// Get 获取连接
func (p *ConnectionPool) Get(connID string) (*Connection, bool) {
	if val, ok := p.connections.Load(connID); ok {
		return val.(*Connection), true
	}
	return nil, false
}

// Range 遍历连接，f 返回 false 时停止
func (p *ConnectionPool) Range(fn func(conn *Connection) bool) {
	p.connections.Range(func(key, value interface{}) bool {
		return fn(value.(*Connection))
	})
}

// Count 获取当前连接数
func (p *ConnectionPool) Count() int {
	return int(p.activeCount.Load())
}

// TotalCount 获取累计连接数
func (p *ConnectionPool) TotalCount() int64 {
	return p.totalCount.Load()
}

// IsFull 检查连接池是否已满
func (p *ConnectionPool) IsFull() bool {
	if p.config.MaxConnections <= 0 {
		return false
	}
	return p.activeCount.Load() >= int64(p.config.MaxConnections)
}

// IsIPLimitReached 检查 IP 是否达到连接限制
func (p *ConnectionPool) IsIPLimitReached(ip string) bool {
	if p.config.MaxConnectionsPerIP <= 0 {
		return false
	}
	return p.getIPCount(ip) >= int64(p.config.MaxConnectionsPerIP)
}

// Close 关闭连接池，断开所有连接
func (p *ConnectionPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.connections.Range(func(key, value interface{}) bool {
		value.(*Connection).Close()
		p.connections.Delete(key)
		return true
	})
	p.activeCount.Store(0)
}

// getIPCount 获取 IP 连接数
func (p *ConnectionPool) getIPCount(ip string) int64 {
	if val, ok := p.ipCount.Load(ip); ok {
		return val.(*atomic.Int64).Load()
	}
	return 0
}

// incrementIPCount 增加 IP 计数
func (p *ConnectionPool) incrementIPCount(ip string) {
	val, _ := p.ipCount.LoadOrStore(ip, &atomic.Int64{})
	val.(*atomic.Int64).Add(1)
}

// decrementIPCount 减少 IP 计数，归零时清理
func (p *ConnectionPool) decrementIPCount(ip string) {
	if val, ok := p.ipCount.Load(ip); ok {
		if val.(*atomic.Int64).Add(-1) <= 0 {
			p.ipCount.Delete(ip)
		}
	}
}

// extractIP 从地址中提取 IP
func extractIP(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}
