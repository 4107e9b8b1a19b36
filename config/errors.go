package config

import "errors"

var (
	// ErrInvalidPeerID 节点 ID 不是合法 UUID
	ErrInvalidPeerID = errors.New("config: invalid peer id")

	// ErrInvalidFrameSize 帧大小非法
	ErrInvalidFrameSize = errors.New("config: max frame size must be positive")

	// ErrInvalidDuration 时长既不是时长字符串也不是整数
	ErrInvalidDuration = errors.New("config: invalid duration")

	// ErrInvalidTimeout 超时非法
	ErrInvalidTimeout = errors.New("config: timeout must not be negative")

	// ErrInvalidWorkers 处理器并发数非法
	ErrInvalidWorkers = errors.New("config: handler workers must not be negative")

	// ErrInvalidBeaconGroup 组播地址非法
	ErrInvalidBeaconGroup = errors.New("config: invalid beacon group")

	// ErrInvalidInterval 信标间隔非法
	ErrInvalidInterval = errors.New("config: beacon interval must be positive")

	// ErrInvalidNamespace 指标命名空间非法
	ErrInvalidNamespace = errors.New("config: metrics namespace must not be empty")
)
