package interfaces

import (
	"context"
	"net"

	"github.com/dep2p/go-modnet/pkg/lib/future"
	"github.com/dep2p/go-modnet/pkg/messages"
	"github.com/dep2p/go-modnet/pkg/types"
)

// ConnectionListener 节点级连接事件
//
// 每个节点只在第一个通道激活时收到一次 ConnectionEstablished，
// 在最后一个激活通道关闭时收到一次 ConnectionClosed。
// 实现必须可比较（通常为指针），以便 RemoveConnectionListener。
type ConnectionListener interface {
	ConnectionEstablished(id types.PeerID)
	ConnectionClosed(id types.PeerID)
}

// ConnectionListenerFuncs 用函数实现 ConnectionListener
//
// 以指针形式注册：mgr.AddConnectionListener(&ConnectionListenerFuncs{...})。
type ConnectionListenerFuncs struct {
	OnEstablished func(id types.PeerID)
	OnClosed      func(id types.PeerID)
}

// ConnectionEstablished 实现 ConnectionListener
func (f *ConnectionListenerFuncs) ConnectionEstablished(id types.PeerID) {
	if f.OnEstablished != nil {
		f.OnEstablished(id)
	}
}

// ConnectionClosed 实现 ConnectionListener
func (f *ConnectionListenerFuncs) ConnectionClosed(id types.PeerID) {
	if f.OnClosed != nil {
		f.OnClosed(id)
	}
}

// BeaconListener 发现事件消费者
type BeaconListener interface {
	// BeaconFound 发现节点 id，addrs 为候选地址
	BeaconFound(id types.PeerID, addrs []string)
}

// ConnectionManager 连接管理门面
type ConnectionManager interface {
	// LocalID 本节点 ID
	LocalID() types.PeerID

	// SendMessage 向 id 发送消息并等待响应
	//
	// 没有激活通道时返回的 Future 立即失败。
	SendMessage(id types.PeerID, m messages.Message) future.Future[messages.Response]

	// AddHandler 为 kind 注册处理器
	AddHandler(kind messages.Kind, h MessageHandler, opts ...HandlerOption)

	// RegisterMessageKind 注册自定义消息类型
	RegisterMessageKind(kind, parent messages.Kind, factory messages.Factory) error

	// RegisterAdapter 为 kind 注册自定义编解码
	RegisterAdapter(kind messages.Kind, a messages.Adapter)

	// ConnectedPeers 拥有激活通道的节点
	ConnectedPeers() []types.PeerID

	// IsConnected 是否有到 id 的激活通道
	IsConnected(id types.PeerID) bool

	// AddConnectionListener 注册连接事件监听器
	AddConnectionListener(l ConnectionListener)

	// RemoveConnectionListener 移除连接事件监听器
	RemoveConnectionListener(l ConnectionListener)

	// StartListening 在 addr 上监听，返回实际绑定的地址
	StartListening(addr string) (net.Addr, error)

	// ListenAddrs 当前监听地址
	ListenAddrs() []net.Addr

	// ConnectTo 主动拨号 addr
	ConnectTo(ctx context.Context, addr string) error

	// Shutdown 关闭所有监听，幂等
	Shutdown() future.Future[struct{}]

	// IsShuttingDown 是否已开始关闭
	IsShuttingDown() bool

	// Close 关闭监听和所有通道，释放后台资源
	Close() error
}
