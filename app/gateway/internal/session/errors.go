package session

import "errors"

var (
	// ErrSessionNotFound 会话不存在
	ErrSessionNotFound = errors.New("session: not found")

	// ErrSessionExists 会话已存在
	ErrSessionExists = errors.New("session: already exists")

	// ErrSweepRunning 清理任务已在运行
	ErrSweepRunning = errors.New("session: sweep already running")
)
