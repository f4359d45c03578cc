package bridge

import "github.com/prometheus/client_golang/prometheus"

// Metrics 扇出桥指标
type Metrics struct {
	eventsPublished   prometheus.Counter
	publishFailures   prometheus.Counter
	deadLetters       prometheus.Counter
	deadLetterDropped prometheus.Counter
	broadcastsIn      prometheus.Counter
	userDelivered     prometheus.Counter
	userMisses        prometheus.Counter
}

// NewMetrics 创建并注册扇出桥指标
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		eventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "bridge",
			Name:      "events_published_total",
			Help:      "成功发布到 events 主题的事件数",
		}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "bridge",
			Name:      "publish_failures_total",
			Help:      "发布失败并转投死信的事件数",
		}),
		deadLetters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "bridge",
			Name:      "dead_letters_total",
			Help:      "成功写入死信主题的记录数",
		}),
		deadLetterDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "bridge",
			Name:      "dead_letters_dropped_total",
			Help:      "死信写入失败后被丢弃的记录数",
		}),
		broadcastsIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "bridge",
			Name:      "broadcast_messages_total",
			Help:      "消费到的广播消息数",
		}),
		userDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "bridge",
			Name:      "user_messages_delivered_total",
			Help:      "投递到本地会话的定向消息数",
		}),
		userMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "bridge",
			Name:      "user_messages_unrouted_total",
			Help:      "无本地映射会话的定向消息数",
		}),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.eventsPublished,
			m.publishFailures,
			m.deadLetters,
			m.deadLetterDropped,
			m.broadcastsIn,
			m.userDelivered,
			m.userMisses,
		)
	}
	return m
}
