package handler

import (
	"context"
	"errors"

	"github.com/lumehome/lumelink/app/gateway/internal/auth"
	"github.com/lumehome/lumelink/app/gateway/internal/bridge"
	"github.com/lumehome/lumelink/app/gateway/internal/guard"
	"github.com/lumehome/lumelink/app/gateway/internal/protocol"
	"github.com/lumehome/lumelink/app/gateway/internal/session"
	"github.com/lumehome/lumelink/pkg/logger"
	"github.com/lumehome/lumelink/pkg/websocket"
)

// 网关外发的遥测事件类型
const (
	EventConnectionOpened = "connection_opened"
	EventConnectionClosed = "connection_closed"
	EventMessageReceived  = "message_received"
	EventSessionError     = "session_error"
)

// EventPublisher 事件外发契约，*bridge.Bridge 是生产实现。
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType, sessionID, userID string, payload map[string]any)
}

var _ EventPublisher = (*bridge.Bridge)(nil)

// noopPublisher 不外发事件，用于未接入队列的场景。
type noopPublisher struct{}

func (noopPublisher) PublishEvent(context.Context, string, string, string, map[string]any) {}

// Gateway 网关消息处理器，实现 websocket.MessageHandler。
// 入站消息先过准入检查，再按类型分发；所有拒绝与错误只回告
// 当前会话，绝不影响其他会话。
type Gateway struct {
	sessions  *session.Manager
	guard     *guard.Guard
	registrar *auth.Registrar
	events    EventPublisher
	logger    logger.Logger
}

// NewGateway 创建网关处理器
func NewGateway(sessions *session.Manager, g *guard.Guard, registrar *auth.Registrar, events EventPublisher, log logger.Logger) *Gateway {
	if events == nil {
		events = noopPublisher{}
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Gateway{
		sessions:  sessions,
		guard:     g,
		registrar: registrar,
		events:    events,
		logger:    log.Named("gateway"),
	}
}

// OnConnect 连接建立：创建会话、发送 welcome、外发连接事件。
func (h *Gateway) OnConnect(conn *websocket.Connection) error {
	s := session.New(conn.ID(), conn)
	if err := h.sessions.Add(s); err != nil {
		return err
	}
	s.SetStatus(session.StatusConnected)

	if err := s.Send(protocol.Welcome(s.ID())); err != nil {
		h.logger.Warn("welcome send failed", "session_id", s.ID(), "error", err)
	}

	h.logger.Info("session connected", "session_id", s.ID(), "remote_addr", conn.RemoteAddr())
	h.events.PublishEvent(context.Background(), EventConnectionOpened, s.ID(), "", map[string]any{
		"remoteAddr": conn.RemoteAddr(),
	})
	return nil
}

// OnMessage 入站消息：准入检查后按类型分发。
func (h *Gateway) OnMessage(conn *websocket.Connection, msg *websocket.Message) error {
	s, ok := h.sessions.Get(conn.ID())
	if !ok {
		h.logger.Warn("message for unknown session", "session_id", conn.ID())
		return nil
	}
	s.Touch()

	env, err := h.guard.Admit(s.ID(), msg.Data)
	if err != nil {
		h.sendRejection(s, err)
		return nil
	}

	h.dispatch(s, env)
	h.events.PublishEvent(context.Background(), EventMessageReceived, s.ID(), s.UserID(), map[string]any{
		"messageType": env.Type,
	})
	return nil
}

// sendRejection 将准入拒绝回告客户端。
// 拒绝只作用于当前消息，不改变会话状态。
func (h *Gateway) sendRejection(s *session.Session, err error) {
	var verr *guard.ValidationError
	var rerr *guard.RateLimitError

	switch {
	case errors.As(err, &rerr):
		h.send(s, protocol.RateLimitError(rerr.Message, rerr.RetryAfter))
	case errors.As(err, &verr):
		h.send(s, protocol.ValidationError(verr.Message))
	default:
		h.send(s, protocol.ValidationError("message rejected"))
	}
}

func (h *Gateway) dispatch(s *session.Session, env *protocol.Envelope) {
	switch protocol.KindOf(env.Type) {
	case protocol.KindAuth:
		h.handleAuth(s, env)
	case protocol.KindPing:
		h.send(s, protocol.Pong())
	case protocol.KindHeartbeat:
		s.Heartbeat()
	case protocol.KindSubscribe:
		h.handleSubscription(s, env, true)
	case protocol.KindUnsubscribe:
		h.handleSubscription(s, env, false)
	default:
		// 未识别类型软失败，永不关闭会话
		h.send(s, protocol.UnknownMessageError("unknown message type: "+env.Type))
	}
}

func (h *Gateway) handleAuth(s *session.Session, env *protocol.Envelope) {
	token, _ := env.StringField("token")
	userID, _ := env.StringField("userId")

	result := h.registrar.Authenticate(context.Background(), s.ID(), token, userID)
	if !result.Success {
		h.send(s, protocol.AuthenticationError("authentication failed", result.Message))
		return
	}
	h.send(s, protocol.AuthSuccess(result.UserID, s.ID()))
}

func (h *Gateway) handleSubscription(s *session.Session, env *protocol.Envelope, subscribe bool) {
	if !s.IsAuthenticated() {
		h.send(s, protocol.AuthenticationError("authentication required", "authenticate before managing subscriptions"))
		return
	}

	eventType, _ := env.StringField("eventType")
	if subscribe {
		h.send(s, protocol.SubscriptionSuccess(eventType))
	} else {
		h.send(s, protocol.UnsubscriptionSuccess(eventType))
	}
}

// OnDisconnect 连接断开：清除会话的全部痕迹。
func (h *Gateway) OnDisconnect(conn *websocket.Connection, err error) {
	sessionID := conn.ID()
	userID := ""

	if s, ok := h.sessions.Get(sessionID); ok {
		userID = s.UserID()
		s.SetStatus(session.StatusClosed)
	}

	h.sessions.Remove(sessionID)
	h.guard.Remove(sessionID)

	h.logger.Info("session closed", "session_id", sessionID, "error", err)
	h.events.PublishEvent(context.Background(), EventConnectionClosed, sessionID, userID, nil)
}

// OnError 传输错误：记录错误、尽力通知一次，清理交给断开回调与心跳清理。
func (h *Gateway) OnError(conn *websocket.Connection, err error) {
	s, ok := h.sessions.Get(conn.ID())
	if !ok {
		return
	}

	s.SetError(err.Error(), "transport")
	if sendErr := s.Send(protocol.ConnectionError("connection error", err.Error())); sendErr != nil {
		h.logger.Debug("connection error notify failed", "session_id", s.ID(), "error", sendErr)
	}

	h.logger.Warn("session transport error", "session_id", s.ID(), "error", err)
	h.events.PublishEvent(context.Background(), EventSessionError, s.ID(), s.UserID(), map[string]any{
		"error": err.Error(),
	})
}

// send 出站发送失败只记录日志，不上抛。
func (h *Gateway) send(s *session.Session, env *protocol.Envelope) {
	if err := s.Send(env); err != nil {
		h.logger.Warn("outbound send failed", "session_id", s.ID(), "type", env.Type, "error", err)
	}
}
