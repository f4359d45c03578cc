package websocket

import (
	"net/http"
	"time"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	// MaxConnections 最大连接数（0 表示不限制）
	MaxConnections int `mapstructure:"max_connections" json:"max_connections"`

	// MaxConnectionsPerIP 每 IP 最大连接数（0 表示不限制）
	MaxConnectionsPerIP int `mapstructure:"max_connections_per_ip" json:"max_connections_per_ip"`
}

// UpgradeRateConfig 升级限流配置（按来源 IP 的令牌桶）
type UpgradeRateConfig struct {
	// PerSecond 每秒允许的升级次数（0 表示不限流）
	PerSecond int `mapstructure:"per_second" json:"per_second"`

	// Burst 突发容量
	Burst int `mapstructure:"burst" json:"burst"`
}

// ServerConfig 服务端配置
type ServerConfig struct {
	// HandshakeTimeout 握手超时
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" json:"handshake_timeout"`

	// ReadBufferSize 读缓冲大小
	ReadBufferSize int `mapstructure:"read_buffer_size" json:"read_buffer_size"`

	// WriteBufferSize 写缓冲大小
	WriteBufferSize int `mapstructure:"write_buffer_size" json:"write_buffer_size"`

	// MaxMessageSize 单条消息最大字节数（0 表示不限制）
	MaxMessageSize int64 `mapstructure:"max_message_size" json:"max_message_size"`

	// ReadTimeout 读超时（每次读取前刷新）
	ReadTimeout time.Duration `mapstructure:"read_timeout" json:"read_timeout"`

	// WriteTimeout 写超时
	WriteTimeout time.Duration `mapstructure:"write_timeout" json:"write_timeout"`

	// SendQueueSize 每连接发送队列长度
	SendQueueSize int `mapstructure:"send_queue_size" json:"send_queue_size"`

	// PingInterval 传输层 Ping 间隔（0 表示关闭）
	PingInterval time.Duration `mapstructure:"ping_interval" json:"ping_interval"`

	// PongTimeout 收到 Pong 后的读截止时间延长量
	PongTimeout time.Duration `mapstructure:"pong_timeout" json:"pong_timeout"`

	// EnableCompression 是否启用压缩
	EnableCompression bool `mapstructure:"enable_compression" json:"enable_compression"`

	// Pool 连接池配置
	Pool PoolConfig `mapstructure:"pool" json:"pool"`

	// UpgradeRate 升级限流配置
	UpgradeRate UpgradeRateConfig `mapstructure:"upgrade_rate" json:"upgrade_rate"`

	// CheckOrigin 跨域检查函数（nil 时放行所有 Origin）
	CheckOrigin func(r *http.Request) bool `mapstructure:"-" json:"-"`
}

// DefaultServerConfig 返回默认服务端配置
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
		// 传输层上限需高于应用层准入上限，超大消息才能到达应用层被软拒绝
		MaxMessageSize: 64 * 1024,
		ReadTimeout:    120 * time.Second,
		WriteTimeout:   10 * time.Second,
		SendQueueSize:  256,
		PingInterval:   25 * time.Second,
		PongTimeout:    60 * time.Second,
		Pool: PoolConfig{
			MaxConnections:      10000,
			MaxConnectionsPerIP: 64,
		},
	}
}

// Validate 校验配置
func (c *ServerConfig) Validate() error {
	if c.SendQueueSize <= 0 {
		return ErrInvalidConfig
	}
	if c.MaxMessageSize < 0 {
		return ErrInvalidConfig
	}
	if c.Pool.MaxConnections < 0 || c.Pool.MaxConnectionsPerIP < 0 {
		return ErrInvalidConfig
	}
	return nil
}
