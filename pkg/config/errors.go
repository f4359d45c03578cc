package config

import "errors"

var (
	// ErrConfigFileNotFound 配置文件未找到
	ErrConfigFileNotFound = errors.New("config file not found")

	// ErrNilConfig 配置为 nil
	ErrNilConfig = errors.New("config cannot be nil")

	// ErrMergeFailed 配置合并失败
	ErrMergeFailed = errors.New("failed to merge configs")
)
