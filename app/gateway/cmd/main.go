package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lumehome/lumelink/app/gateway/internal/auth"
	"github.com/lumehome/lumelink/app/gateway/internal/bridge"
	"github.com/lumehome/lumelink/app/gateway/internal/guard"
	"github.com/lumehome/lumelink/app/gateway/internal/handler"
	"github.com/lumehome/lumelink/app/gateway/internal/session"
	"github.com/lumehome/lumelink/pkg/app"
	"github.com/lumehome/lumelink/pkg/config"
	"github.com/lumehome/lumelink/pkg/logger"
	"github.com/lumehome/lumelink/pkg/mq/kafka"
	"github.com/lumehome/lumelink/pkg/security"
	"github.com/lumehome/lumelink/pkg/websocket"
)

// Config Gateway 服务配置
type Config struct {
	Log     logger.Config             `mapstructure:"log"`
	Loggers map[string]*logger.Config `mapstructure:"loggers"`

	// HTTP 监听地址
	Addr string `mapstructure:"addr"`

	// WebSocket 挂载路径
	Path string `mapstructure:"path"`

	// WebSocket 配置
	WebSocket websocket.ServerConfig `mapstructure:"websocket"`

	// 准入与限流配置
	Guard guard.Config `mapstructure:"guard"`

	// 心跳清理配置
	Sweep session.SweepConfig `mapstructure:"sweep"`

	// JWT 配置
	JWT security.JWTConfig `mapstructure:"jwt"`

	// Kafka 配置
	Kafka kafka.Config `mapstructure:"kafka"`

	// 主题名配置
	Topics bridge.Topics `mapstructure:"topics"`
}

func main() {
	var cfg Config

	// 1. 加载配置
	if err := app.LoadConfig(&cfg); err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		return
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}

	// 2. 初始化日志
	logCfg, err := config.MergeConfig(logger.DefaultConfig(), &cfg.Log)
	if err != nil {
		panic(err)
	}
	l, err := logger.New(logCfg)
	if err != nil {
		panic(err)
	}

	// 配置文件变更仅提示，不做热重载
	if path := app.GetConfigPath(); path != "" {
		watcher := config.NewManager()
		if err := watcher.LoadFile(path); err == nil {
			_ = watcher.Watch(func() {
				l.Info("config file changed, restart to apply", "path", path)
			})
		}
	}

	// 3. 初始化 JWT 管理器
	jwtMgr, err := security.NewJWTManager(&cfg.JWT)
	if err != nil {
		l.Error("failed to create jwt manager", "error", err)
		return
	}

	// 4. 配置与默认值合并
	kafkaCfg, err := config.MergeConfig(kafka.DefaultConfig(), &cfg.Kafka)
	if err != nil {
		l.Error("failed to merge kafka config", "error", err)
		return
	}
	wsCfg, err := config.MergeConfig(websocket.DefaultServerConfig(), &cfg.WebSocket)
	if err != nil {
		l.Error("failed to merge websocket config", "error", err)
		return
	}
	guardCfg, err := config.MergeConfig(guard.DefaultConfig(), &cfg.Guard)
	if err != nil {
		l.Error("failed to merge guard config", "error", err)
		return
	}
	sweepCfg, err := config.MergeConfig(session.DefaultSweepConfig(), &cfg.Sweep)
	if err != nil {
		l.Error("failed to merge sweep config", "error", err)
		return
	}
	topics, err := config.MergeConfig(bridge.DefaultTopics(), &cfg.Topics)
	if err != nil {
		l.Error("failed to merge topics config", "error", err)
		return
	}

	// 5. 初始化 Kafka 客户端
	kafkaClient, err := kafka.NewClient(kafkaCfg, l)
	if err != nil {
		l.Error("failed to create kafka client", "error", err)
		return
	}

	// 6. 会话管理器与准入检查器
	sessions := session.NewManager(sweepCfg, l)
	admission := guard.New(guardCfg, l)

	// 7. 认证登记器
	registrar := auth.NewRegistrar(auth.NewJWTValidator(jwtMgr), sessions, l)

	// 8. 扇出桥
	fanout := bridge.New(kafkaClient, sessions, topics, l,
		bridge.WithMetrics(bridge.NewMetrics(prometheus.DefaultRegisterer)))

	// 9. 网关消息处理器与 WebSocket 服务
	gateway := handler.NewGateway(sessions, admission, registrar, fanout, l)
	wsServer, err := websocket.NewServer(wsCfg,
		websocket.WithHandler(gateway),
		websocket.WithServerLogger(l),
		websocket.WithMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		l.Error("failed to create websocket server", "error", err)
		return
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, wsServer.Handler())
	mux.Handle("/metrics", promhttp.Handler())

	// 10. 创建应用并注册服务
	application := app.NewBaseApp(
		app.WithName("gateway"),
		app.WithLogger(l),
		app.WithNamedLoggers(cfg.Loggers),
	)

	application.AppendServer(&httpServer{
		server: &http.Server{Addr: cfg.Addr, Handler: mux},
		logger: l,
	})
	application.AppendServer(&backgroundTasks{
		sessions: sessions,
		bridge:   fanout,
		client:   kafkaClient,
	})
	application.AppendCloser(sessions)
	application.AppendCloser(kafkaClient)
	application.AppendCloser(wsServer)

	// 11. 运行
	if err := application.Run(); err != nil {
		l.Error("gateway exited with error", "error", err)
	}
}

// httpServer 将 net/http 服务接入应用生命周期
type httpServer struct {
	server *http.Server
	logger logger.Logger
}

func (s *httpServer) Start() error {
	s.logger.Info("http server listening", "addr", s.server.Addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server failed", "error", err)
		}
	}()
	return nil
}

func (s *httpServer) Stop() error {
	return s.server.Close()
}

func (s *httpServer) GracefulStop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// backgroundTasks 启动心跳清理与队列消费
type backgroundTasks struct {
	sessions *session.Manager
	bridge   *bridge.Bridge
	client   *kafka.Client

	cancel context.CancelFunc
}

func (b *backgroundTasks) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	if err := b.sessions.StartSweep(ctx); err != nil {
		return err
	}
	return b.bridge.Start(ctx, b.client)
}

func (b *backgroundTasks) Stop() error {
	if b.cancel != nil {
		b.cancel()
	}
	return nil
}
