package websocket

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lumehome/lumelink/pkg/logger"
	"github.com/lumehome/lumelink/pkg/serializer"
)

// Connection WebSocket 连接封装
// 所有出站写入都经由 sendChan 由 WriteLoop 串行执行，
// 调用方不允许直接并发写底层连接。
type Connection struct {
	id   string
	conn *websocket.Conn

	// 配置
	readTimeout  time.Duration
	writeTimeout time.Duration

	// 发送队列
	sendChan chan *Message

	logger     logger.Logger
	serializer serializer.Serializer

	// 状态
	mu         sync.RWMutex
	state      ConnectionState
	closed     atomic.Bool
	closeChan  chan struct{}
	closeOnce  sync.Once
	closeError error

	// 连接信息
	remoteAddr  string
	connectedAt time.Time
}

// ConnectionOption 连接选项
type ConnectionOption func(*Connection)

// WithConnectionLogger 设置日志
func WithConnectionLogger(l logger.Logger) ConnectionOption {
	return func(c *Connection) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithConnectionTimeouts 设置读写超时
func WithConnectionTimeouts(read, write time.Duration) ConnectionOption {
	return func(c *Connection) {
		if read > 0 {
			c.readTimeout = read
		}
		if write > 0 {
			c.writeTimeout = write
		}
	}
}

// WithSendQueueSize 设置发送队列长度
func WithSendQueueSize(size int) ConnectionOption {
	return func(c *Connection) {
		if size > 0 {
			c.sendChan = make(chan *Message, size)
		}
	}
}

// NewConnection 创建连接
func NewConnection(conn *websocket.Conn, opts ...ConnectionOption) *Connection {
	c := &Connection{
		id:           uuid.New().String(),
		conn:         conn,
		readTimeout:  120 * time.Second,
		writeTimeout: 10 * time.Second,
		sendChan:     make(chan *Message, 256),
		closeChan:    make(chan struct{}),
		state:        StateConnected,
		remoteAddr:   conn.RemoteAddr().String(),
		connectedAt:  time.Now(),
		logger:       logger.Noop(),
		serializer:   serializer.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ID 返回连接 ID
func (c *Connection) ID() string {
	return c.id
}

// State 返回连接状态
func (c *Connection) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// RemoteAddr 返回远程地址
func (c *Connection) RemoteAddr() string {
	return c.remoteAddr
}

// ConnectedAt 返回连接建立时间
func (c *Connection) ConnectedAt() time.Time {
	return c.connectedAt
}

// IsClosed 检查连接是否已关闭
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// Info 返回连接信息
func (c *Connection) Info() ConnectionInfo {
	return ConnectionInfo{
		ID:          c.id,
		RemoteAddr:  c.remoteAddr,
		State:       c.State(),
		ConnectedAt: c.connectedAt,
	}
}

// Send 发送消息（阻塞直到入队或 ctx 取消）
func (c *Connection) Send(ctx context.Context, msg *Message) error {
	if c.IsClosed() {
		return ErrConnectionClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case c.sendChan <- msg:
		return nil
	case <-c.closeChan:
		return ErrConnectionClosed
	}
}

// SendAsync 发送消息（非阻塞，队列满时返回错误）
func (c *Connection) SendAsync(msg *Message) error {
	if c.IsClosed() {
		return ErrConnectionClosed
	}

	select {
	case c.sendChan <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// SendJSON 序列化后异步发送文本消息
func (c *Connection) SendJSON(v interface{}) error {
	data, err := c.serializer.Serialize(v)
	if err != nil {
		return err
	}
	return c.SendAsync(NewTextMessage(data))
}

// ReadLoop 读取循环（阻塞，连接关闭时返回）
func (c *Connection) ReadLoop(handler HandlerFunc) {
	defer c.Close()

	for {
		if c.IsClosed() {
			return
		}

		if c.readTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		}

		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.IsClosed() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			if err == io.EOF {
				return
			}
			c.logger.Debug("websocket read error", "error", err, "conn_id", c.id)
			c.closeError = err
			return
		}

		msg := &Message{
			Type:      MessageType(msgType),
			Data:      data,
			Timestamp: time.Now(),
		}

		if handler != nil {
			if err := handler(c, msg); err != nil {
				c.logger.Warn("websocket handler error", "error", err, "conn_id", c.id)
			}
		}
	}
}

// WriteLoop 写入循环（阻塞，连接关闭时返回）
func (c *Connection) WriteLoop() {
	defer c.Close()

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}

			if c.writeTimeout > 0 {
				c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			}

			if err := c.conn.WriteMessage(int(msg.Type), msg.Data); err != nil {
				c.logger.Debug("websocket write error", "error", err, "conn_id", c.id)
				c.closeError = err
				return
			}

		case <-c.closeChan:
			return
		}
	}
}

// Close 关闭连接
func (c *Connection) Close() error {
	return c.CloseWithReason(websocket.CloseNormalClosure, "")
}

// CloseWithReason 以指定关闭码和原因关闭连接
// 关闭帧为尽力发送，失败不影响底层连接关闭。
func (c *Connection) CloseWithReason(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()

		close(c.closeChan)

		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(time.Second),
		)

		c.conn.Close()
	})
	return nil
}

// CloseError 返回导致关闭的错误（正常关闭为 nil）
func (c *Connection) CloseError() error {
	return c.closeError
}

// Ping 发送传输层 Ping 帧
func (c *Connection) Ping() error {
	if c.IsClosed() {
		return ErrConnectionClosed
	}
	return c.conn.WriteControl(
		websocket.PingMessage,
		[]byte{},
		time.Now().Add(c.writeTimeout),
	)
}

// SetPongHandler 设置 Pong 处理器
func (c *Connection) SetPongHandler(h func(appData string) error) {
	c.conn.SetPongHandler(h)
}

// SetReadLimit 设置单条消息读取上限
func (c *Connection) SetReadLimit(limit int64) {
	c.conn.SetReadLimit(limit)
}

// Done 返回关闭通知 channel
func (c *Connection) Done() <-chan struct{} {
	return c.closeChan
}
