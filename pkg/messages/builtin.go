package messages

import (
	"github.com/google/uuid"

	"github.com/dep2p/go-modnet/pkg/types"
)

// ============================================================================
//                              握手消息
// ============================================================================

// Hello 通道建立后双方发送的第一条消息
type Hello struct {
	Base
	ModuleID  types.PeerID `json:"moduleid"`
	FrameSize int          `json:"framesize"`
}

// NewHello 创建 Hello
func NewHello(id types.PeerID, frameSize int) *Hello {
	return &Hello{Base: NewBase(), ModuleID: id, FrameSize: frameSize}
}

// MessageKind 实现 Message
func (*Hello) MessageKind() Kind { return KindHello }

// ConnectionEstablished 主节点确认通道激活
type ConnectionEstablished struct {
	Base
	ModuleID types.PeerID `json:"moduleid"`
}

// NewConnectionEstablished 创建 ConnectionEstablished
func NewConnectionEstablished(id types.PeerID) *ConnectionEstablished {
	return &ConnectionEstablished{Base: NewBase(), ModuleID: id}
}

// MessageKind 实现 Message
func (*ConnectionEstablished) MessageKind() Kind { return KindConnectionEstablished }

// ============================================================================
//                              响应
// ============================================================================

// DefaultResponse 空响应
//
// 处理器返回 nil、处理失败或找不到处理器时发送。
type DefaultResponse struct {
	ResponseBase
}

// NewDefaultResponse 创建指向 source 的空响应
func NewDefaultResponse(source uuid.UUID) *DefaultResponse {
	return &DefaultResponse{ResponseBase: NewResponseBase(source)}
}

// MessageKind 实现 Message
func (*DefaultResponse) MessageKind() Kind { return KindDefaultResponse }

// ============================================================================
//                              发现与节点交换
// ============================================================================

// Peers 节点交换消息，携带已知节点及其地址
type Peers struct {
	Base
	Peers map[types.PeerID][]string `json:"peers"`
}

// NewPeers 创建 Peers
func NewPeers(peers map[types.PeerID][]string) *Peers {
	return &Peers{Base: NewBase(), Peers: peers}
}

// MessageKind 实现 Message
func (*Peers) MessageKind() Kind { return KindPeers }

// Beacon 组播发现报文
type Beacon struct {
	Base
	ModuleID types.PeerID `json:"moduleid"`
	Addrs    []string     `json:"addrs"`
}

// NewBeacon 创建 Beacon
func NewBeacon(id types.PeerID, addrs []string) *Beacon {
	return &Beacon{Base: NewBase(), ModuleID: id, Addrs: addrs}
}

// MessageKind 实现 Message
func (*Beacon) MessageKind() Kind { return KindBeacon }
