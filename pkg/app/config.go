package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lumehome/lumelink/pkg/config"
)

var (
	configPath string
	logPath    string
)

// LoadConfig 集成 pkg/config 提供统一加载能力
// 严格遵守优先级：1. 命令行显式参数 > 2. 环境变量 > 3. 配置文件 > 4. 默认值
func LoadConfig(target any, opts ...config.Option) error {
	execDir, err := GetExecDir()
	if err != nil {
		return fmt.Errorf("failed to get executable directory: %w", err)
	}

	defaultConfig := filepath.Join(execDir, "config.yaml")
	defaultLog := filepath.Join(execDir, "logs", "app.log")

	if pflag.Lookup("config") == nil {
		pflag.StringVarP(&configPath, "config", "c", defaultConfig, "path to config file")
	}
	if pflag.Lookup("log.path") == nil {
		pflag.StringVar(&logPath, "log.path", defaultLog, "output path for logs")
	}

	if !pflag.Parsed() {
		pflag.Parse()
	}

	v := viper.New()
	v.SetEnvPrefix("LUMELINK")
	v.AutomaticEnv()
	// 将环境变量中的 "_" 替换为配置中的 "."，例如 LUMELINK_LOG_LEVEL -> log.level
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// 优先级：Flag 显式指定 > 环境变量 LUMELINK_CONFIG > 默认物理路径
	finalConfigPath := configPath
	if !pflag.CommandLine.Changed("config") {
		if envConfig := os.Getenv("LUMELINK_CONFIG"); envConfig != "" {
			finalConfigPath = envConfig
		}
	}

	if _, err := os.Stat(finalConfigPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found at %s", finalConfigPath)
	}
	configPath = finalConfigPath

	v.SetDefault("log.output_path", defaultLog)
	v.SetDefault("log.enable_file", true)

	// 命令行显式使用了 --log.path 时强制覆盖所有来源
	if pflag.CommandLine.Changed("log.path") {
		v.Set("log.output_path", logPath)
	}

	mgr := config.NewManager(append(opts, config.WithViper(v))...)

	if err := mgr.LoadFile(configPath); err != nil {
		return err
	}

	if err := mgr.Unmarshal(target); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	logPath = v.GetString("log.output_path")
	logDir := filepath.Dir(logPath)
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		_ = os.MkdirAll(logDir, 0755)
	}

	return nil
}

// GetExecDir 获取可执行文件所在目录（处理符号链接）
func GetExecDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		return filepath.Dir(execPath), nil
	}
	return filepath.Dir(realPath), nil
}

// GetConfigPath 返回最终使用的配置文件路径
func GetConfigPath() string {
	return configPath
}

func GetLogPath() string {
	return logPath
}
