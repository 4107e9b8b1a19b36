package channel

import "errors"

var (
	// ErrChannelClosed 通道已关闭
	ErrChannelClosed = errors.New("channel: closed")

	// ErrRemoteIDConflict 远端 ID 已设置为不同的值
	ErrRemoteIDConflict = errors.New("channel: remote id already set to a different value")

	// ErrNoRemoteID 通道尚未交换身份
	ErrNoRemoteID = errors.New("channel: remote id not set")

	// ErrNotRegistered 通道不属于该注册表
	ErrNotRegistered = errors.New("channel: not registered")

	// ErrNoInitializer 注册表未设置初始化器
	ErrNoInitializer = errors.New("channel: no initializer")

	// ErrRegistryClosed 注册表已关闭
	ErrRegistryClosed = errors.New("channel: registry closed")
)
