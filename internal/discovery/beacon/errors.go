package beacon

import "errors"

var (
	// ErrAlreadyStarted 已启动
	ErrAlreadyStarted = errors.New("beacon: already started")

	// ErrClosed 已关闭
	ErrClosed = errors.New("beacon: closed")

	// ErrInvalidGroup 组地址无效
	ErrInvalidGroup = errors.New("beacon: invalid group address")

	// ErrNoMulticastInterface 没有可加入组播组的网卡
	ErrNoMulticastInterface = errors.New("beacon: no multicast interface")
)
