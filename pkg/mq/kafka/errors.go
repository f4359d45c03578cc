package kafka

import "errors"

var (
	// ErrNoBrokers 未配置 broker 地址
	ErrNoBrokers = errors.New("kafka: no brokers configured")

	// ErrEmptyGroupID 消费者组 ID 为空
	ErrEmptyGroupID = errors.New("kafka: consumer group id is empty")

	// ErrInvalidConcurrency 无效的并发数
	ErrInvalidConcurrency = errors.New("kafka: invalid consumer concurrency")

	// ErrEmptyTopic topic 为空
	ErrEmptyTopic = errors.New("kafka: topic is empty")

	// ErrNilMessage 消息为空
	ErrNilMessage = errors.New("kafka: message is nil")

	// ErrClientClosed 客户端已关闭
	ErrClientClosed = errors.New("kafka: client is closed")

	// ErrProducerClosed 生产者已关闭
	ErrProducerClosed = errors.New("kafka: producer is closed")

	// ErrConsumerRunning 消费者已在运行
	ErrConsumerRunning = errors.New("kafka: consumer group already running")

	// ErrConsumerClosed 消费者已关闭
	ErrConsumerClosed = errors.New("kafka: consumer group is closed")
)
