package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/lumehome/lumelink/pkg/logger"
)

const (
	stateIdle int32 = iota
	stateRunning
	stateClosed
)

// ConsumerGroup 消费者组，按组内分区分配消费一组 topic。
type ConsumerGroup struct {
	reader  *kafkago.Reader
	handler Handler
	logger  logger.Logger

	concurrency int
	state       atomic.Int32
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewConsumerGroup 创建消费者组
func NewConsumerGroup(cfg *Config, topics []string, handler Handler, log logger.Logger) (*ConsumerGroup, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return nil, ErrEmptyTopic
	}
	if log == nil {
		log = logger.Noop()
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.Consumer.GroupID,
		GroupTopics:       topics,
		MinBytes:          cfg.Consumer.MinBytes,
		MaxBytes:          cfg.Consumer.MaxBytes,
		MaxWait:           cfg.Consumer.MaxWait,
		StartOffset:       cfg.Consumer.StartOffset,
		CommitInterval:    cfg.Consumer.CommitInterval,
		HeartbeatInterval: cfg.Consumer.HeartbeatInterval,
		SessionTimeout:    cfg.Consumer.SessionTimeout,
	})

	concurrency := cfg.Consumer.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &ConsumerGroup{
		reader:      reader,
		handler:     handler,
		logger:      log.Named("kafka.consumer"),
		concurrency: concurrency,
	}, nil
}

// Start 启动消费循环，非阻塞。重复调用返回 ErrConsumerRunning。
func (g *ConsumerGroup) Start(ctx context.Context) error {
	if !g.state.CompareAndSwap(stateIdle, stateRunning) {
		if g.state.Load() == stateClosed {
			return ErrConsumerClosed
		}
		return ErrConsumerRunning
	}

	ctx, g.cancel = context.WithCancel(ctx)
	for i := 0; i < g.concurrency; i++ {
		g.wg.Add(1)
		go g.consumeLoop(ctx)
	}
	return nil
}

func (g *ConsumerGroup) consumeLoop(ctx context.Context) {
	defer g.wg.Done()

	for {
		km, err := g.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			g.logger.Error("fetch message failed", "error", err)
			continue
		}

		msg := &Message{
			Topic:     km.Topic,
			Key:       km.Key,
			Value:     km.Value,
			Partition: km.Partition,
			Offset:    km.Offset,
			Timestamp: km.Time,
		}
		for _, h := range km.Headers {
			if msg.Headers == nil {
				msg.Headers = make(map[string]string, len(km.Headers))
			}
			msg.Headers[h.Key] = string(h.Value)
		}

		handleCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = g.handler(handleCtx, msg)
		cancel()
		if err != nil {
			// 处理失败不提交，等待重新投递
			g.logger.Warn("handle message failed",
				"topic", km.Topic, "partition", km.Partition, "offset", km.Offset, "error", err)
			continue
		}

		if err := g.reader.CommitMessages(ctx, km); err != nil && ctx.Err() == nil {
			g.logger.Error("commit offset failed",
				"topic", km.Topic, "partition", km.Partition, "offset", km.Offset, "error", err)
		}
	}
}

// Stop 停止消费并等待在途消息处理完成
func (g *ConsumerGroup) Stop() error {
	if !g.state.CompareAndSwap(stateRunning, stateClosed) {
		if g.state.CompareAndSwap(stateIdle, stateClosed) {
			return g.reader.Close()
		}
		return ErrConsumerClosed
	}

	g.cancel()
	g.wg.Wait()
	return g.reader.Close()
}
