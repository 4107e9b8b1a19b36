package handshake

import "errors"

// 握手协议违规，作为通道关闭原因
var (
	// ErrEmptyPeerID 对端声明的 ID 为空
	ErrEmptyPeerID = errors.New("handshake: empty peer id")

	// ErrSelfConnection 对端声明的 ID 与本地相同
	ErrSelfConnection = errors.New("handshake: peer id equals local id")

	// ErrIdentityConflict 对端声明的 ID 与已记录的不一致
	ErrIdentityConflict = errors.New("handshake: conflicting peer id")

	// ErrDuplicateChannel 该节点已有激活通道
	ErrDuplicateChannel = errors.New("handshake: peer already has an active channel")

	// ErrUnexpectedConfirmation 不应在此通道上收到确认
	ErrUnexpectedConfirmation = errors.New("handshake: unexpected connection established")
)
