package logger

// Level 日志等级
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Format 输出格式
type Format string

const (
	// JSONFormat JSON 格式输出
	JSONFormat Format = "json"
	// ConsoleFormat 控制台格式输出
	ConsoleFormat Format = "console"
)

// RotationType 轮换类型
type RotationType string

const (
	// RotationBySize 按大小轮换（lumberjack）
	RotationBySize RotationType = "size"
	// RotationByTime 按时间轮换（file-rotatelogs）
	RotationByTime RotationType = "time"
)

// RotationConfig 日志轮换配置
type RotationConfig struct {
	// Type 轮换类型（size/time）
	Type RotationType `mapstructure:"type" json:"type"`

	// MaxSize 单文件最大体积（MB，按大小轮换时生效）
	MaxSize int `mapstructure:"max_size" json:"max_size"`

	// MaxBackups 保留的历史文件数
	MaxBackups int `mapstructure:"max_backups" json:"max_backups"`

	// MaxAge 保留天数
	MaxAge int `mapstructure:"max_age" json:"max_age"`

	// Compress 是否压缩历史文件
	Compress bool `mapstructure:"compress" json:"compress"`

	// RotationTime 轮换间隔（按时间轮换时生效，如 "24h"）
	RotationTime string `mapstructure:"rotation_time" json:"rotation_time"`

	// MaxAgeTime 保留时长（按时间轮换时生效，如 "168h"）
	MaxAgeTime string `mapstructure:"max_age_time" json:"max_age_time"`
}

// Config 日志配置
type Config struct {
	// Level 日志等级
	Level Level `mapstructure:"level" json:"level"`

	// Format 输出格式
	Format Format `mapstructure:"format" json:"format"`

	// EnableConsole 是否输出到控制台
	EnableConsole bool `mapstructure:"enable_console" json:"enable_console"`

	// EnableFile 是否输出到文件
	EnableFile bool `mapstructure:"enable_file" json:"enable_file"`

	// OutputPath 日志文件路径
	OutputPath string `mapstructure:"output_path" json:"output_path"`

	// Development 开发模式（彩色等级、DPanic）
	Development bool `mapstructure:"development" json:"development"`

	// Rotation 轮换配置
	Rotation RotationConfig `mapstructure:"rotation" json:"rotation"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Level:         InfoLevel,
		Format:        JSONFormat,
		EnableConsole: true,
		EnableFile:    false,
		Rotation: RotationConfig{
			Type:       RotationBySize,
			MaxSize:    100,
			MaxBackups: 10,
			MaxAge:     7,
		},
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Level {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
	default:
		return ErrInvalidLevel
	}

	if !c.EnableConsole && !c.EnableFile {
		return ErrNoOutput
	}

	if c.EnableFile && c.OutputPath == "" {
		return ErrEmptyOutputPath
	}

	return nil
}
