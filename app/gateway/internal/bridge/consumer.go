package bridge

import (
	"context"

	"github.com/lumehome/lumelink/pkg/mq/kafka"
)

// Subscriber 队列订阅契约，*kafka.Client 是生产实现。
type Subscriber interface {
	Subscribe(ctx context.Context, topics []string, handler kafka.Handler) (*kafka.ConsumerGroup, error)
}

// Start 订阅入站主题并开始消费。
// broadcast/user/events 共用一个消费者组，按主题路由到对应处理器。
func (b *Bridge) Start(ctx context.Context, subscriber Subscriber) error {
	topics := []string{b.topics.Broadcast, b.topics.User, b.topics.Events}
	_, err := subscriber.Subscribe(ctx, topics, b.route)
	if err != nil {
		return err
	}
	b.logger.Info("bridge consumers started", "topics", topics)
	return nil
}

func (b *Bridge) route(ctx context.Context, msg *kafka.Message) error {
	switch msg.Topic {
	case b.topics.Broadcast:
		return b.HandleBroadcast(ctx, msg)
	case b.topics.User:
		return b.HandleUser(ctx, msg)
	case b.topics.Events:
		return b.HandleEvent(ctx, msg)
	default:
		b.logger.Warn("message on unexpected topic", "topic", msg.Topic)
		return nil
	}
}
