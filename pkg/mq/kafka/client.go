package kafka

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/lumehome/lumelink/pkg/logger"
)

// Client Kafka 客户端，按 topic 缓存生产者并管理消费者组生命周期。
type Client struct {
	config *Config
	logger logger.Logger

	mu        sync.Mutex
	producers map[string]*Producer
	consumers []*ConsumerGroup
	closed    atomic.Bool
}

// NewClient 创建客户端
func NewClient(cfg *Config, log logger.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Noop()
	}

	return &Client{
		config:    cfg,
		logger:    log.Named("kafka"),
		producers: make(map[string]*Producer),
	}, nil
}

// Producer 返回指定 topic 的生产者，不存在时创建并缓存。
func (c *Client) Producer(topic string) (*Producer, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.producers[topic]; ok {
		return p, nil
	}

	p, err := NewProducer(c.config, topic, c.logger)
	if err != nil {
		return nil, err
	}
	c.producers[topic] = p
	return p, nil
}

// Publish 向指定 topic 同步发送消息
func (c *Client) Publish(ctx context.Context, topic string, msg *Message) error {
	p, err := c.Producer(topic)
	if err != nil {
		return err
	}
	return p.Publish(ctx, msg)
}

// PublishAsync 向指定 topic 异步发送消息，结果通过 completion 回调通知。
func (c *Client) PublishAsync(ctx context.Context, topic string, msg *Message, completion CompletionFunc) error {
	p, err := c.Producer(topic)
	if err != nil {
		return err
	}
	return p.PublishAsync(ctx, msg, completion)
}

// Subscribe 创建消费者组并启动消费
func (c *Client) Subscribe(ctx context.Context, topics []string, handler Handler) (*ConsumerGroup, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	group, err := NewConsumerGroup(c.config, topics, handler, c.logger)
	if err != nil {
		return nil, err
	}
	if err := group.Start(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.consumers = append(c.consumers, group)
	c.mu.Unlock()
	return group, nil
}

// Close 关闭所有生产者与消费者组
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, group := range c.consumers {
		if err := group.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for topic, p := range c.producers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.producers, topic)
	}
	return firstErr
}

// IsClosed 客户端是否已关闭
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}
