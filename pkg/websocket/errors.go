package websocket

import "errors"

var (
	// 配置错误
	ErrInvalidConfig = errors.New("websocket: invalid config")

	// 连接错误
	ErrConnectionClosed = errors.New("websocket: connection closed")

	// 发送错误
	ErrSendQueueFull = errors.New("websocket: send queue full")
	ErrMessageTooBig = errors.New("websocket: message too big")

	// 连接池错误
	ErrPoolFull            = errors.New("websocket: connection pool full")
	ErrPoolClosed          = errors.New("websocket: connection pool closed")
	ErrMaxConnectionsPerIP = errors.New("websocket: max connections per ip exceeded")

	// 升级错误
	ErrUpgradeRateLimited = errors.New("websocket: upgrade rate limited")
)
