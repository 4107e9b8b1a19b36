package modnet

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-modnet/config"
	"github.com/dep2p/go-modnet/internal/core/connmgr"
	"github.com/dep2p/go-modnet/internal/core/metrics"
	"github.com/dep2p/go-modnet/internal/discovery/beacon"
	"github.com/dep2p/go-modnet/internal/protocol/peerexchange"
	pkgif "github.com/dep2p/go-modnet/pkg/interfaces"
	"github.com/dep2p/go-modnet/pkg/lib/future"
	"github.com/dep2p/go-modnet/pkg/lib/log"
	"github.com/dep2p/go-modnet/pkg/messages"
	"github.com/dep2p/go-modnet/pkg/types"
)

var logger = log.Logger("modnet")

// ════════════════════════════════════════════════════════════════════════════
//                              节点状态
// ════════════════════════════════════════════════════════════════════════════

// NodeState 节点状态
type NodeState int

const (
	// StateIdle 已创建，未启动
	StateIdle NodeState = iota

	// StateStarting 启动中
	StateStarting

	// StateRunning 运行中
	StateRunning

	// StateStopping 停止中
	StateStopping

	// StateStopped 已停止（不可重新启动）
	StateStopped
)

// String 返回状态的字符串表示
func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	// startTimeout Fx App 启动超时
	startTimeout = 30 * time.Second

	// stopTimeout Fx App 停止超时
	stopTimeout = 10 * time.Second
)

// ════════════════════════════════════════════════════════════════════════════
//                              Node
// ════════════════════════════════════════════════════════════════════════════

// Node 网络节点
//
// Node 是门面，聚合连接管理器、信标和节点交换。
//
// 使用示例：
//
//	node, err := modnet.New(modnet.WithListenAddrs("0.0.0.0:5555"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	node.Handle("ping", pkgif.HandlerFunc(onPing))
//	if err := node.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
type Node struct {
	cfg *config.Config
	app *fx.App

	manager   *connmgr.Manager
	metrics   *metrics.Metrics
	beacon    *beacon.Beacon
	exchanger *peerexchange.Exchanger

	mu    sync.Mutex
	state NodeState
}

// New 创建节点但不启动
//
// 返回后即可注册处理器和监听器，Start 开始监听与发现。
func New(opts ...Option) (*Node, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	cfg, err := o.toConfig()
	if err != nil {
		return nil, err
	}

	n := &Node{cfg: cfg}
	app := buildFxApp(cfg, o, n)
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build node: %w", err)
	}
	n.app = app

	logger.Debug("节点已创建", "id", n.ID().ShortString())
	return n, nil
}

// Start 创建并启动节点
func Start(ctx context.Context, opts ...Option) (*Node, error) {
	n, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := n.Start(ctx); err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

// Start 启动节点：监听配置的地址，启动信标
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.state {
	case StateRunning, StateStarting:
		return ErrAlreadyStarted
	case StateStopping, StateStopped:
		return ErrNodeClosed
	}
	n.state = StateStarting

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := n.app.Start(startCtx); err != nil {
		// Fx 已回滚启动成功的钩子，管理器可能尚未关闭
		n.manager.Close()
		n.state = StateStopped
		logger.Error("节点启动失败", "error", err)
		return fmt.Errorf("start failed: %w", err)
	}
	n.state = StateRunning

	logger.Info("节点已启动", "id", n.ID().ShortString(), "addrs", n.ListenAddrs())
	return nil
}

// Close 停止节点
//
// 幂等。关闭监听、信标和所有通道，待决请求失败。节点不可重新启动。
func (n *Node) Close() error {
	n.mu.Lock()
	prev := n.state
	if prev == StateStopping || prev == StateStopped {
		n.mu.Unlock()
		return nil
	}
	n.state = StateStopping
	n.mu.Unlock()

	var err error
	if prev == StateRunning {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		err = n.app.Stop(ctx)
	} else {
		// 未启动时没有 OnStop 钩子可运行，直接释放管理器
		err = n.manager.Close()
	}

	n.mu.Lock()
	n.state = StateStopped
	n.mu.Unlock()

	logger.Info("节点已停止", "id", n.ID().ShortString())
	return err
}

// Shutdown 停止接受新连接，已有通道保持可用
func (n *Node) Shutdown() future.Future[struct{}] {
	return n.manager.Shutdown()
}

// State 当前状态
func (n *Node) State() NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// ════════════════════════════════════════════════════════════════════════════
//                              查询
// ════════════════════════════════════════════════════════════════════════════

// ID 本节点 ID
func (n *Node) ID() types.PeerID {
	return n.manager.LocalID()
}

// Config 生效的配置
//
// 返回值不应被修改。
func (n *Node) Config() *config.Config {
	return n.cfg
}

// ListenAddrs 当前监听地址
func (n *Node) ListenAddrs() []net.Addr {
	return n.manager.ListenAddrs()
}

// ConnectedPeers 拥有激活通道的节点
func (n *Node) ConnectedPeers() []types.PeerID {
	return n.manager.ConnectedPeers()
}

// IsConnected 是否已连接 id
func (n *Node) IsConnected(id types.PeerID) bool {
	return n.manager.IsConnected(id)
}

// KnownPeers 节点交换表的快照，未启用节点交换时返回 nil
func (n *Node) KnownPeers() map[types.PeerID][]string {
	if n.exchanger == nil {
		return nil
	}
	return n.exchanger.Peers()
}

// BeaconAddr 信标套接字地址，未启用或未启动时返回 nil
func (n *Node) BeaconAddr() net.Addr {
	if n.beacon == nil {
		return nil
	}
	return n.beacon.LocalAddr()
}

// Manager 底层连接管理器
func (n *Node) Manager() pkgif.ConnectionManager {
	return n.manager
}

// Executor 共享的有界处理器执行器
func (n *Node) Executor() pkgif.Executor {
	return n.manager.Executor()
}

// MetricsHandler prometheus /metrics 处理器
//
// 指标未启用时返回 404 处理器。
func (n *Node) MetricsHandler() http.Handler {
	return n.metrics.Handler()
}

// ════════════════════════════════════════════════════════════════════════════
//                              连接与消息
// ════════════════════════════════════════════════════════════════════════════

// Listen 额外监听 addr
func (n *Node) Listen(addr string) (net.Addr, error) {
	if n.State() != StateRunning {
		return nil, ErrNotStarted
	}
	return n.manager.StartListening(addr)
}

// Connect 拨号 addr
//
// 返回时通道已建立，激活由握手异步完成，见 AddConnectionListener。
func (n *Node) Connect(ctx context.Context, addr string) error {
	if n.State() != StateRunning {
		return ErrNotStarted
	}
	return n.manager.ConnectTo(ctx, addr)
}

// Send 向 id 发送消息，返回响应 Future
func (n *Node) Send(id types.PeerID, m messages.Message) future.Future[messages.Response] {
	return n.manager.SendMessage(id, m)
}

// Handle 为 kind 注册处理器
func (n *Node) Handle(kind messages.Kind, h pkgif.MessageHandler, opts ...pkgif.HandlerOption) {
	n.manager.AddHandler(kind, h, opts...)
}

// RemoveHandler 移除 kind 在 app 作用域下的处理器
func (n *Node) RemoveHandler(kind messages.Kind, app types.ApplicationID) {
	n.manager.RemoveHandler(kind, app)
}

// RegisterMessageKind 注册自定义消息类型
func (n *Node) RegisterMessageKind(kind, parent messages.Kind, factory messages.Factory) error {
	return n.manager.RegisterMessageKind(kind, parent, factory)
}

// RegisterAdapter 为 kind 注册自定义编解码
func (n *Node) RegisterAdapter(kind messages.Kind, a messages.Adapter) {
	n.manager.RegisterAdapter(kind, a)
}

// AddConnectionListener 注册连接事件监听器
func (n *Node) AddConnectionListener(l pkgif.ConnectionListener) {
	n.manager.AddConnectionListener(l)
}

// RemoveConnectionListener 移除连接事件监听器
func (n *Node) RemoveConnectionListener(l pkgif.ConnectionListener) {
	n.manager.RemoveConnectionListener(l)
}
