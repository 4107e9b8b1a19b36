package listener

import "errors"

var (
	// ErrClosed 注册表已关闭
	ErrClosed = errors.New("listener: registry closed")

	// ErrNoInitializer 未设置通道初始化器
	ErrNoInitializer = errors.New("listener: no channel initializer")
)
