package kafka

import (
	"context"
	"sync/atomic"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/lumehome/lumelink/pkg/logger"
)

// Producer 单 topic 生产者，封装 kafka-go Writer。
type Producer struct {
	topic  string
	writer *kafkago.Writer
	logger logger.Logger
	closed atomic.Bool
}

// NewProducer 创建生产者
func NewProducer(cfg *Config, topic string, log logger.Logger) (*Producer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	if log == nil {
		log = logger.Noop()
	}

	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		BatchSize:    cfg.Producer.BatchSize,
		BatchTimeout: cfg.Producer.BatchTimeout,
		MaxAttempts:  cfg.Producer.MaxRetries + 1,
		WriteTimeout: cfg.Producer.WriteTimeout,
		RequiredAcks: kafkago.RequiredAcks(cfg.Producer.RequiredAcks),
		Compression:  toCompression(cfg.Producer.Compression),
	}

	return &Producer{
		topic:  topic,
		writer: writer,
		logger: log.Named("kafka.producer"),
	}, nil
}

// Topic 返回生产者绑定的 topic
func (p *Producer) Topic() string {
	return p.topic
}

// Publish 同步发送消息，等待 broker 确认。
func (p *Producer) Publish(ctx context.Context, msg *Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	if p.closed.Load() {
		return ErrProducerClosed
	}

	if err := p.writer.WriteMessages(ctx, toKafkaMessage(msg)); err != nil {
		p.logger.Error("publish failed", "topic", p.topic, "error", err)
		return err
	}
	return nil
}

// PublishAsync 异步发送消息，立即返回。
// 投递结果通过 completion 回调通知，回调在独立 goroutine 中执行，
// 允许为 nil 表示不关心结果。
func (p *Producer) PublishAsync(ctx context.Context, msg *Message, completion CompletionFunc) error {
	if msg == nil {
		return ErrNilMessage
	}
	if p.closed.Load() {
		return ErrProducerClosed
	}

	go func() {
		err := p.writer.WriteMessages(ctx, toKafkaMessage(msg))
		if err != nil {
			p.logger.Error("async publish failed", "topic", p.topic, "error", err)
		}
		if completion != nil {
			completion(err)
		}
	}()
	return nil
}

// Close 关闭生产者，刷出未发送的批次。
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}

func toKafkaMessage(msg *Message) kafkago.Message {
	km := kafkago.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Time:  msg.Timestamp,
	}
	for k, v := range msg.Headers {
		km.Headers = append(km.Headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return km
}

func toCompression(name string) kafkago.Compression {
	switch name {
	case "gzip":
		return kafkago.Gzip
	case "snappy":
		return kafkago.Snappy
	case "lz4":
		return kafkago.Lz4
	case "zstd":
		return kafkago.Zstd
	default:
		return 0
	}
}
