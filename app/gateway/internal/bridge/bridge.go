package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lumehome/lumelink/app/gateway/internal/session"
	"github.com/lumehome/lumelink/pkg/logger"
	"github.com/lumehome/lumelink/pkg/mq/kafka"
)

// Topics 网关使用的主题名，属于对外契约。
type Topics struct {
	Events     string `mapstructure:"events" json:"events"`
	Broadcast  string `mapstructure:"broadcast" json:"broadcast"`
	User       string `mapstructure:"user" json:"user"`
	DeadLetter string `mapstructure:"dead_letter" json:"dead_letter"`
}

// DefaultTopics 返回默认主题名
func DefaultTopics() *Topics {
	return &Topics{
		Events:     "events",
		Broadcast:  "broadcast",
		User:       "user",
		DeadLetter: "dead-letter",
	}
}

// Event 网关外发的遥测事件
type Event struct {
	EventType string         `json:"eventType"`
	SessionID string         `json:"sessionId,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// DeadLetterRecord 发布失败的落档记录
type DeadLetterRecord struct {
	MessageType  string          `json:"messageType"`
	UserID       string          `json:"userId,omitempty"`
	ErrorMessage string          `json:"errorMessage"`
	Timestamp    int64           `json:"timestamp"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// Publisher 队列发布契约，*kafka.Client 是生产实现。
type Publisher interface {
	Publish(ctx context.Context, topic string, msg *kafka.Message) error
	PublishAsync(ctx context.Context, topic string, msg *kafka.Message, completion kafka.CompletionFunc) error
}

// Bridge 队列扇出桥。
// 出站方向把网关观测到的事件异步发布到 events 主题，失败转投
// 死信主题；入站方向消费 broadcast/user 主题并投递给本地会话。
type Bridge struct {
	publisher Publisher
	sessions  *session.Manager
	topics    *Topics
	logger    logger.Logger
	metrics   *Metrics
}

// Option 扇出桥配置函数
type Option func(*Bridge)

// WithMetrics 启用指标采集
func WithMetrics(m *Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// New 创建扇出桥
func New(publisher Publisher, sessions *session.Manager, topics *Topics, log logger.Logger, opts ...Option) *Bridge {
	if topics == nil {
		topics = DefaultTopics()
	}
	if log == nil {
		log = logger.Noop()
	}
	b := &Bridge{
		publisher: publisher,
		sessions:  sessions,
		topics:    topics,
		logger:    log.Named("bridge"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// PublishEvent 异步发布网关事件。
// 调用立即返回；发布失败在回调中转投死信主题，绝不上抛给调用方。
func (b *Bridge) PublishEvent(ctx context.Context, eventType, sessionID, userID string, payload map[string]any) {
	event := &Event{
		EventType: eventType,
		SessionID: sessionID,
		UserID:    userID,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		b.deadLetter(eventType, userID, nil, err)
		return
	}

	msg := &kafka.Message{
		Key:   []byte(sessionID),
		Value: data,
	}
	err = b.publisher.PublishAsync(ctx, b.topics.Events, msg, func(err error) {
		if err != nil {
			b.deadLetter(eventType, userID, data, err)
			return
		}
		if b.metrics != nil {
			b.metrics.eventsPublished.Inc()
		}
	})
	if err != nil {
		b.deadLetter(eventType, userID, data, err)
	}
}

// deadLetter 将失败的事件写入死信主题。
// 死信写入自身失败只记录日志后丢弃，此路径不允许阻塞或上抛。
func (b *Bridge) deadLetter(messageType, userID string, payload []byte, cause error) {
	if b.metrics != nil {
		b.metrics.publishFailures.Inc()
	}

	record := &DeadLetterRecord{
		MessageType:  messageType,
		UserID:       userID,
		ErrorMessage: cause.Error(),
		Timestamp:    time.Now().UnixMilli(),
		Payload:      payload,
	}

	data, err := json.Marshal(record)
	if err != nil {
		b.logger.Error("dead-letter record marshal failed", "message_type", messageType, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.publisher.Publish(ctx, b.topics.DeadLetter, &kafka.Message{Value: data}); err != nil {
		b.logger.Error("dead-letter write failed, dropping event",
			"message_type", messageType, "cause", cause, "error", err)
		if b.metrics != nil {
			b.metrics.deadLetterDropped.Inc()
		}
		return
	}
	if b.metrics != nil {
		b.metrics.deadLetters.Inc()
	}
}

// HandleBroadcast 处理 broadcast 主题消息：投递给所有本地会话。
func (b *Bridge) HandleBroadcast(_ context.Context, msg *kafka.Message) error {
	if b.metrics != nil {
		b.metrics.broadcastsIn.Inc()
	}
	delivered := b.sessions.Broadcast(json.RawMessage(msg.Value))
	b.logger.Debug("broadcast delivered", "recipients", delivered, "offset", msg.Offset)
	return nil
}

// HandleUser 处理 user 主题消息：仅投递给映射到目标用户的本地会话。
// 无本地映射不是错误，用户可能连在其他实例。
func (b *Bridge) HandleUser(_ context.Context, msg *kafka.Message) error {
	var target struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(msg.Value, &target); err != nil || target.UserID == "" {
		b.logger.Warn("user message without userId, skipping", "offset", msg.Offset)
		return nil
	}

	if b.sessions.DeliverToUser(target.UserID, json.RawMessage(msg.Value)) {
		if b.metrics != nil {
			b.metrics.userDelivered.Inc()
		}
		b.logger.Debug("user message delivered", "user_id", target.UserID, "offset", msg.Offset)
	} else if b.metrics != nil {
		b.metrics.userMisses.Inc()
	}
	return nil
}

// HandleEvent 处理 events 主题消息，仅用于观测，不回投会话。
func (b *Bridge) HandleEvent(_ context.Context, msg *kafka.Message) error {
	b.logger.Debug("event observed", "offset", msg.Offset, "bytes", len(msg.Value))
	return nil
}
