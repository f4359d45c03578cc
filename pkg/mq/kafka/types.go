package kafka

import (
	"context"
	"time"
)

// Message 消息载体，生产与消费共用。
type Message struct {
	// Topic 所属主题
	Topic string

	// Key 分区键，相同 Key 落到同一分区
	Key []byte

	// Value 消息体
	Value []byte

	// Headers 消息头
	Headers map[string]string

	// Partition 所属分区（消费侧填充）
	Partition int

	// Offset 偏移量（消费侧填充）
	Offset int64

	// Timestamp 消息时间戳
	Timestamp time.Time
}

// Handler 消息处理函数。返回错误时不提交该消息的偏移。
type Handler func(ctx context.Context, msg *Message) error

// CompletionFunc 异步发送完成回调。err 为 nil 表示投递成功。
type CompletionFunc func(err error)
