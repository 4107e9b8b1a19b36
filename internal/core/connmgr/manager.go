package connmgr

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/multierr"

	"github.com/dep2p/go-modnet/internal/core/channel"
	"github.com/dep2p/go-modnet/internal/core/codec"
	"github.com/dep2p/go-modnet/internal/core/correlator"
	"github.com/dep2p/go-modnet/internal/core/dispatch"
	"github.com/dep2p/go-modnet/internal/core/handshake"
	"github.com/dep2p/go-modnet/internal/core/listener"
	"github.com/dep2p/go-modnet/internal/core/metrics"
	pkgif "github.com/dep2p/go-modnet/pkg/interfaces"
	"github.com/dep2p/go-modnet/pkg/lib/future"
	"github.com/dep2p/go-modnet/pkg/lib/log"
	"github.com/dep2p/go-modnet/pkg/messages"
	"github.com/dep2p/go-modnet/pkg/types"
)

var logger = log.Logger("core/connmgr")

// recentDialsSize 拨号抑制缓存的容量
const recentDialsSize = 1024

var (
	_ pkgif.ConnectionManager = (*Manager)(nil)
	_ pkgif.BeaconListener    = (*Manager)(nil)
	_ channel.Initializer     = (*Manager)(nil)
)

// Option Manager 构造选项
type Option func(*Manager)

// WithClock 指定请求超时使用的时钟
func WithClock(clk clock.Clock) Option {
	return func(m *Manager) {
		m.clock = clk
	}
}

// WithMessageRegistry 使用已有的消息类型注册表
func WithMessageRegistry(kinds *messages.Registry) Option {
	return func(m *Manager) {
		m.kinds = kinds
	}
}

// Manager 连接管理器
type Manager struct {
	cfg       Config
	local     types.PeerID
	transport pkgif.Transport
	metrics   *metrics.Metrics
	clock     clock.Clock

	kinds      *messages.Registry
	codec      *codec.Codec
	channels   *channel.Registry
	handshake  *handshake.Handler
	handlers   *dispatch.Registry
	dispatcher *dispatch.Dispatcher
	correlator *correlator.Correlator
	listeners  *listener.Registry
	pool       *dispatch.PoolExecutor

	dialMu      sync.Mutex
	recentDials *expirable.LRU[string, struct{}]

	// 每个通道上尚未收到响应的请求
	outMu       sync.Mutex
	outstanding map[uint64]map[uuid.UUID]struct{}

	ctx    context.Context
	cancel context.CancelFunc

	shuttingDown atomic.Bool
	shutdownOnce sync.Once
	shutdown     *future.Promise[struct{}]

	closeOnce sync.Once
	closeErr  error
}

// New 创建连接管理器
//
// m 可为 nil（不收集指标）。
func New(cfg Config, tr pkgif.Transport, m *metrics.Metrics, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tr == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidConfig)
	}
	if cfg.LocalID.IsEmpty() {
		cfg.LocalID = types.NewPeerID()
	}

	ctx, cancel := context.WithCancel(context.Background())
	mgr := &Manager{
		cfg:         cfg,
		local:       cfg.LocalID,
		transport:   tr,
		metrics:     m,
		clock:       clock.New(),
		outstanding: make(map[uint64]map[uuid.UUID]struct{}),
		ctx:         ctx,
		cancel:      cancel,
		shutdown:    future.NewPromise[struct{}](),
	}
	for _, opt := range opts {
		opt(mgr)
	}
	if mgr.kinds == nil {
		mgr.kinds = messages.NewRegistry()
	}

	mgr.codec = codec.New(mgr.kinds)
	mgr.channels = channel.NewRegistry(tr, m)
	mgr.channels.SetInitializer(mgr)
	mgr.handshake = handshake.New(mgr.local, mgr.channels, m)
	mgr.handlers = dispatch.NewRegistry(mgr.kinds)
	mgr.correlator = correlator.New(mgr.clock, cfg.RequestTimeout, m)
	mgr.dispatcher = dispatch.NewDispatcher(mgr.handlers, mgr.correlator, m)
	mgr.listeners = listener.NewRegistry(tr, mgr)
	if cfg.HandlerWorkers > 0 {
		mgr.pool = dispatch.NewPoolExecutor(cfg.HandlerWorkers)
	}

	// 抑制窗口为 0 表示不抑制
	if cfg.DialSuppression > 0 {
		mgr.recentDials = expirable.NewLRU[string, struct{}](recentDialsSize, nil, cfg.DialSuppression)
	}

	logger.Info("连接管理器已创建", "local", mgr.local.ShortString(), "transport", tr.Name())
	return mgr, nil
}

// LocalID 实现 ConnectionManager
func (m *Manager) LocalID() types.PeerID {
	return m.local
}

// Executor 共享的有界处理器执行器
//
// 注册处理器时通过 interfaces.WithExecutor 使用。HandlerWorkers 为 0
// 时返回同步执行器。
func (m *Manager) Executor() pkgif.Executor {
	if m.pool == nil {
		return dispatch.SyncExecutor{}
	}
	return m.pool
}

// Metrics 指标，未启用时为 nil
func (m *Manager) Metrics() *metrics.Metrics {
	return m.metrics
}

// ============================================================================
//                              通道装配
// ============================================================================

// InitChannel 实现 channel.Initializer
//
// 入站（Accept）与出站（Connect）连接都经过这里。
func (m *Manager) InitChannel(conn net.Conn, dir types.Direction) (*channel.Channel, error) {
	ch := channel.New(conn, dir, channel.Config{
		Codec:        m.codec,
		MaxFrameSize: m.cfg.MaxFrameSize,
		Metrics:      m.metrics,
	})
	if err := m.channels.AddChannel(ch); err != nil {
		return nil, err
	}
	ch.CloseFuture().AddListener(future.ListenerFunc(func(future.Future[struct{}]) {
		m.failOutstanding(ch)
	}))
	// Hello 必须先于读循环入队，保证它是第一条出站消息
	m.handshake.Begin(ch)
	ch.Start(channel.InboundHandlerFunc(m.handleInbound))
	return ch, nil
}

func (m *Manager) handleInbound(ch *channel.Channel, msg messages.Message) {
	if m.handshake.Handle(ch, msg) {
		return
	}
	if !m.channels.IsActive(ch) {
		logger.Debug("丢弃未激活通道上的消息", "channel", ch.String(), "kind", msg.MessageKind())
		return
	}
	from, _ := ch.RemoteID()
	m.dispatcher.Dispatch(m.ctx, from, msg, ch)
}

// ============================================================================
//                              消息
// ============================================================================

// SendMessage 实现 ConnectionManager
func (m *Manager) SendMessage(id types.PeerID, msg messages.Message) future.Future[messages.Response] {
	ch, ok := m.channels.ActiveChannel(id)
	if !ok {
		return future.Failed[messages.Response](fmt.Errorf("%w: %s", ErrNoActiveChannel, id.ShortString()))
	}

	reqID := msg.MessageID()
	f := m.correlator.CreateResponseFuture(reqID)
	m.track(ch, reqID)
	f.AddListener(future.ListenerFunc(func(future.Future[messages.Response]) {
		m.untrack(ch, reqID)
	}))

	ch.Send(msg).AddListener(future.ListenerFunc(func(sf future.Future[struct{}]) {
		if !sf.IsSuccess() {
			logger.Debug("请求写入失败", "peer", id.ShortString(), "kind", msg.MessageKind(), "err", sf.Cause())
			m.correlator.SetFailure(reqID, sf.Cause())
		}
	}))
	return f
}

func (m *Manager) track(ch *channel.Channel, id uuid.UUID) {
	m.outMu.Lock()
	defer m.outMu.Unlock()
	set := m.outstanding[ch.ID()]
	if set == nil {
		set = make(map[uuid.UUID]struct{})
		m.outstanding[ch.ID()] = set
	}
	set[id] = struct{}{}
}

func (m *Manager) untrack(ch *channel.Channel, id uuid.UUID) {
	m.outMu.Lock()
	defer m.outMu.Unlock()
	if set, ok := m.outstanding[ch.ID()]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(m.outstanding, ch.ID())
		}
	}
}

// failOutstanding 通道关闭时使其上的待决请求失败
func (m *Manager) failOutstanding(ch *channel.Channel) {
	m.outMu.Lock()
	set := m.outstanding[ch.ID()]
	delete(m.outstanding, ch.ID())
	m.outMu.Unlock()

	if len(set) == 0 {
		return
	}
	cause := fmt.Errorf("%w: %s", channel.ErrChannelClosed, ch.String())
	for id := range set {
		m.correlator.SetFailure(id, cause)
	}
	logger.Debug("通道关闭，待决请求失败", "channel", ch.String(), "count", len(set))
}

// AddHandler 实现 ConnectionManager
func (m *Manager) AddHandler(kind messages.Kind, h pkgif.MessageHandler, opts ...pkgif.HandlerOption) {
	m.handlers.Add(kind, h, opts...)
}

// RemoveHandler 注销 kind 在 app 作用域下的处理器
func (m *Manager) RemoveHandler(kind messages.Kind, app types.ApplicationID) {
	m.handlers.Remove(kind, app)
}

// RegisterMessageKind 实现 ConnectionManager
//
// 通道创建前后都可调用，所有通道共享同一注册表。
func (m *Manager) RegisterMessageKind(kind, parent messages.Kind, factory messages.Factory) error {
	return m.kinds.Register(kind, parent, factory)
}

// RegisterAdapter 实现 ConnectionManager
func (m *Manager) RegisterAdapter(kind messages.Kind, a messages.Adapter) {
	m.codec.RegisterAdapter(kind, a)
}

// ============================================================================
//                              连接
// ============================================================================

// ConnectedPeers 实现 ConnectionManager
func (m *Manager) ConnectedPeers() []types.PeerID {
	return m.channels.ConnectedPeers()
}

// IsConnected 实现 ConnectionManager
func (m *Manager) IsConnected(id types.PeerID) bool {
	return m.channels.HasActiveChannel(id)
}

// AddConnectionListener 实现 ConnectionManager
func (m *Manager) AddConnectionListener(l pkgif.ConnectionListener) {
	m.channels.AddConnectionListener(l)
}

// RemoveConnectionListener 实现 ConnectionManager
func (m *Manager) RemoveConnectionListener(l pkgif.ConnectionListener) {
	m.channels.RemoveConnectionListener(l)
}

// StartListening 实现 ConnectionManager
func (m *Manager) StartListening(addr string) (net.Addr, error) {
	if m.shuttingDown.Load() {
		return nil, ErrManagerClosed
	}
	return m.listeners.Bind(addr)
}

// ListenAddrs 当前监听地址
func (m *Manager) ListenAddrs() []net.Addr {
	return m.listeners.Addrs()
}

// ConnectTo 实现 ConnectionManager
//
// 返回时通道已建立并开始握手，但不一定已激活。
func (m *Manager) ConnectTo(ctx context.Context, addr string) error {
	if m.ctx.Err() != nil {
		return ErrManagerClosed
	}
	_, err := m.channels.Connect(ctx, addr)
	return err
}

// BeaconFound 实现 BeaconListener
//
// 对尚无激活通道的节点拨号每个候选地址。
func (m *Manager) BeaconFound(id types.PeerID, addrs []string) {
	if id.IsEmpty() || id == m.local || m.ctx.Err() != nil {
		return
	}
	if m.channels.HasActiveChannel(id) {
		return
	}
	for _, addr := range addrs {
		if !m.claimDial(addr) {
			continue
		}
		logger.Debug("发现节点，拨号", "peer", id.ShortString(), "addr", addr)
		go m.dial(id, addr)
	}
}

// claimDial 抑制窗口内同一地址只拨一次
func (m *Manager) claimDial(addr string) bool {
	if m.recentDials == nil {
		return true
	}
	m.dialMu.Lock()
	defer m.dialMu.Unlock()
	if m.recentDials.Contains(addr) {
		return false
	}
	m.recentDials.Add(addr, struct{}{})
	return true
}

func (m *Manager) dial(id types.PeerID, addr string) {
	ctx := m.ctx
	if m.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.DialTimeout)
		defer cancel()
	}
	if _, err := m.channels.Connect(ctx, addr); err != nil {
		logger.Debug("发现拨号失败", "peer", id.ShortString(), "addr", addr, "err", err)
	}
}

// ============================================================================
//                              关闭
// ============================================================================

// Shutdown 实现 ConnectionManager
//
// 关闭所有监听器，幂等。返回的 Future 在全部监听器关闭后成功。
// 已建立的通道不受影响。
func (m *Manager) Shutdown() future.Future[struct{}] {
	m.shutdownOnce.Do(func() {
		m.shuttingDown.Store(true)
		logger.Info("关闭监听", "local", m.local.ShortString())
		m.listeners.CloseAll().AddListener(future.ListenerFunc(func(f future.Future[[]struct{}]) {
			if !f.IsSuccess() {
				logger.Debug("关闭监听器时出错", "err", f.Cause())
			}
			m.shutdown.SetSuccess(struct{}{})
		}))
	})
	return m.shutdown
}

// IsShuttingDown 实现 ConnectionManager
func (m *Manager) IsShuttingDown() bool {
	return m.shuttingDown.Load()
}

// Close 实现 ConnectionManager
//
// 关闭监听器和所有通道，使待决请求失败，停止处理器执行器。
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		<-m.Shutdown().Done()
		m.cancel()

		err := m.channels.Close()
		if n := m.correlator.FailAll(ErrManagerClosed); n > 0 {
			logger.Debug("关闭时使待决请求失败", "count", n)
		}
		if m.pool != nil {
			err = multierr.Append(err, m.pool.Close())
		}
		m.closeErr = err
		logger.Info("连接管理器已关闭", "local", m.local.ShortString())
	})
	return m.closeErr
}
