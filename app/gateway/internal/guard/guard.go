package guard

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lumehome/lumelink/app/gateway/internal/protocol"
	"github.com/lumehome/lumelink/pkg/logger"
)

// Config 准入与限流配置
type Config struct {
	// MaxMessageSize 单条消息大小上限（字节）
	MaxMessageSize int `mapstructure:"max_message_size" json:"max_message_size"`

	// RateLimit 单窗口内允许的消息数
	RateLimit int `mapstructure:"rate_limit" json:"rate_limit"`

	// RateWindow 限流窗口长度
	RateWindow time.Duration `mapstructure:"rate_window" json:"rate_window"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		MaxMessageSize: 8 * 1024,
		RateLimit:      100,
		RateWindow:     time.Minute,
	}
}

// window 单会话的固定限流窗口，惰性重置。
type window struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

// Guard 入站消息的准入检查器。
// 按序执行结构校验、大小限制、必需字段检查与会话级限流，
// 任一拒绝只作用于当前消息，不影响会话状态。
type Guard struct {
	config  *Config
	logger  logger.Logger
	windows sync.Map // sessionID -> *window
	now     func() time.Time
}

// New 创建 Guard
func New(cfg *Config, log logger.Logger) *Guard {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Guard{
		config: cfg,
		logger: log.Named("guard"),
		now:    time.Now,
	}
}

// Admit 对单条入站消息执行准入检查。
// 通过时返回解析后的信封；拒绝时返回 *ValidationError 或 *RateLimitError。
func (g *Guard) Admit(sessionID string, raw []byte) (*protocol.Envelope, error) {
	// 大小限制先于解析，避免为超限消息付出解析成本
	if len(raw) > g.config.MaxMessageSize {
		return nil, &ValidationError{
			Message: fmt.Sprintf("message too large: %d bytes exceeds limit of %d", len(raw), g.config.MaxMessageSize),
		}
	}

	var env protocol.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &ValidationError{Message: "malformed message: not a valid JSON object"}
	}
	if env.Type == "" {
		return nil, &ValidationError{Message: "missing field: type"}
	}

	kind := protocol.KindOf(env.Type)
	if missing := missingFields(&env, kind); len(missing) > 0 {
		return nil, &ValidationError{
			Message: fmt.Sprintf("missing required fields for %s: %s", env.Type, strings.Join(missing, ", ")),
		}
	}

	if err := g.checkRate(sessionID); err != nil {
		return nil, err
	}
	return &env, nil
}

// checkRate 固定窗口限流，窗口过期时惰性重置。
func (g *Guard) checkRate(sessionID string) error {
	v, _ := g.windows.LoadOrStore(sessionID, &window{})
	w := v.(*window)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := g.now()
	if now.After(w.resetAt) {
		w.count = 0
		w.resetAt = now.Add(g.config.RateWindow)
	}

	if w.count >= g.config.RateLimit {
		retryAfter := int64(w.resetAt.Sub(now).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		g.logger.Warn("rate limit exceeded", "session_id", sessionID, "retry_after", retryAfter)
		return &RateLimitError{
			Message:    "rate limit exceeded",
			RetryAfter: retryAfter,
		}
	}

	w.count++
	return nil
}

// Remove 移除会话的限流窗口，会话关闭时调用。
func (g *Guard) Remove(sessionID string) {
	g.windows.Delete(sessionID)
}

func missingFields(env *protocol.Envelope, kind protocol.Kind) []string {
	var missing []string
	for _, field := range kind.RequiredFields() {
		if !env.HasField(field) {
			missing = append(missing, field)
		}
	}
	return missing
}
