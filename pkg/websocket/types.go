package websocket

import "time"

// MessageType 消息类型（与 RFC 6455 帧类型对应）
type MessageType int

const (
	// MessageTypeText 文本消息
	MessageTypeText MessageType = 1
	// MessageTypeBinary 二进制消息
	MessageTypeBinary MessageType = 2
)

// String 返回消息类型的字符串表示
func (t MessageType) String() string {
	switch t {
	case MessageTypeText:
		return "text"
	case MessageTypeBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// ConnectionState 连接状态
type ConnectionState int

const (
	// StateConnected 已连接
	StateConnected ConnectionState = iota
	// StateClosed 已关闭
	StateClosed
)

// String 返回连接状态的字符串表示
func (s ConnectionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectionInfo 连接信息
type ConnectionInfo struct {
	ID          string          `json:"id"`
	RemoteAddr  string          `json:"remote_addr"`
	State       ConnectionState `json:"state"`
	ConnectedAt time.Time       `json:"connected_at"`
}
