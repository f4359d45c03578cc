package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 确保 BaseLogger 实现了 Logger 接口
var _ Logger = (*BaseLogger)(nil)

// BaseLogger 基于 zap 的日志记录器实现
type BaseLogger struct {
	*zap.Logger
	config *Config
}

// New 创建 BaseLogger
func New(cfg *Config) (*BaseLogger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &BaseLogger{config: cfg}

	zapLogger, err := l.build()
	if err != nil {
		return nil, err
	}
	l.Logger = zapLogger

	return l, nil
}

// build 构建 zap logger
func (l *BaseLogger) build() (*zap.Logger, error) {
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	// 开发模式：彩色等级
	if l.config.Development {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var encoder zapcore.Encoder
	switch l.config.Format {
	case ConsoleFormat:
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	writers := make([]zapcore.WriteSyncer, 0, 2)

	if l.config.EnableConsole {
		writers = append(writers, zapcore.AddSync(os.Stdout))
	}

	// 文件输出（仅在 EnableFile=true 时创建 rotation writer）
	if l.config.EnableFile {
		fileWriter, err := NewRotationWriter(&l.config.Rotation, l.config.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create rotation writer: %w", err)
		}
		writers = append(writers, zapcore.AddSync(fileWriter))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writers...), l.parseLevel())

	options := []zap.Option{
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	}
	if l.config.Development {
		options = append(options, zap.Development())
	}

	return zap.New(core, options...), nil
}

// parseLevel 解析日志等级
func (l *BaseLogger) parseLevel() zapcore.Level {
	switch l.config.Level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Debug 记录 debug 级别日志
func (l *BaseLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.Logger.Debug(msg, toZapFields(keysAndValues...)...)
}

// Info 记录 info 级别日志
func (l *BaseLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Logger.Info(msg, toZapFields(keysAndValues...)...)
}

// Warn 记录 warn 级别日志
func (l *BaseLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.Logger.Warn(msg, toZapFields(keysAndValues...)...)
}

// Error 记录 error 级别日志
func (l *BaseLogger) Error(msg string, keysAndValues ...interface{}) {
	l.Logger.Error(msg, toZapFields(keysAndValues...)...)
}

// Named 返回具名子 Logger
func (l *BaseLogger) Named(name string) Logger {
	clone := *l
	clone.Logger = l.Logger.Named(name)
	return &clone
}

// WithFields 返回附带固定字段的子 Logger
func (l *BaseLogger) WithFields(keysAndValues ...interface{}) Logger {
	clone := *l
	clone.Logger = l.Logger.With(toZapFields(keysAndValues...)...)
	return &clone
}

// Sync 刷新缓冲
func (l *BaseLogger) Sync() error {
	return l.Logger.Sync()
}

// toZapFields 将 keysAndValues 转换为 zap.Field
// 奇数个参数时，最后一个单独作为 "extra" 字段记录
func toZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2+1)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	if len(keysAndValues)%2 == 1 {
		fields = append(fields, zap.Any("extra", keysAndValues[len(keysAndValues)-1]))
	}
	return fields
}
