package connmgr

import "errors"

// 连接管理器错误定义
var (
	// ErrNoActiveChannel 目标节点没有激活通道
	ErrNoActiveChannel = errors.New("connmgr: no active channel to peer")

	// ErrManagerClosed 管理器已关闭
	ErrManagerClosed = errors.New("connmgr: manager closed")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("connmgr: invalid config")
)
