package kafka

import "time"

// ProducerConfig 生产者配置
type ProducerConfig struct {
	// BatchSize 批量大小
	BatchSize int `mapstructure:"batch_size" json:"batch_size"`

	// BatchTimeout 批量等待时间
	BatchTimeout time.Duration `mapstructure:"batch_timeout" json:"batch_timeout"`

	// MaxRetries 最大重试次数
	MaxRetries int `mapstructure:"max_retries" json:"max_retries"`

	// WriteTimeout 写超时
	WriteTimeout time.Duration `mapstructure:"write_timeout" json:"write_timeout"`

	// RequiredAcks 确认模式（-1=all, 0=none, 1=leader）
	RequiredAcks int `mapstructure:"required_acks" json:"required_acks"`

	// Compression 压缩算法（none/gzip/snappy/lz4/zstd）
	Compression string `mapstructure:"compression" json:"compression"`
}

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	// GroupID 消费者组 ID
	GroupID string `mapstructure:"group_id" json:"group_id"`

	// MinBytes 单次拉取最小字节数
	MinBytes int `mapstructure:"min_bytes" json:"min_bytes"`

	// MaxBytes 单次拉取最大字节数
	MaxBytes int `mapstructure:"max_bytes" json:"max_bytes"`

	// MaxWait 拉取最长等待时间
	MaxWait time.Duration `mapstructure:"max_wait" json:"max_wait"`

	// StartOffset 起始偏移（-1=Latest, -2=Earliest）
	StartOffset int64 `mapstructure:"start_offset" json:"start_offset"`

	// CommitInterval 自动提交间隔（0 表示同步手动提交）
	CommitInterval time.Duration `mapstructure:"commit_interval" json:"commit_interval"`

	// HeartbeatInterval 组心跳间隔
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" json:"heartbeat_interval"`

	// SessionTimeout 组会话超时
	SessionTimeout time.Duration `mapstructure:"session_timeout" json:"session_timeout"`

	// Concurrency 并发消费数
	Concurrency int `mapstructure:"concurrency" json:"concurrency"`
}

// Config Kafka 客户端配置
type Config struct {
	// Brokers broker 地址列表
	Brokers []string `mapstructure:"brokers" json:"brokers"`

	// Producer 生产者配置
	Producer ProducerConfig `mapstructure:"producer" json:"producer"`

	// Consumer 消费者配置
	Consumer ConsumerConfig `mapstructure:"consumer" json:"consumer"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Brokers: []string{"localhost:9092"},
		Producer: ProducerConfig{
			BatchSize:    100,
			BatchTimeout: 1 * time.Second,
			MaxRetries:   3,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: -1,
			Compression:  "snappy",
		},
		Consumer: ConsumerConfig{
			GroupID:           "default-group",
			MinBytes:          10 * 1024,
			MaxBytes:          10 * 1024 * 1024,
			MaxWait:           1 * time.Second,
			StartOffset:       -1,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
			Concurrency:       1,
		},
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrNoBrokers
	}
	if c.Consumer.GroupID == "" {
		return ErrEmptyGroupID
	}
	if c.Consumer.Concurrency < 0 {
		return ErrInvalidConcurrency
	}
	return nil
}
