package channel

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/dep2p/go-modnet/internal/core/metrics"
	pkgif "github.com/dep2p/go-modnet/pkg/interfaces"
	"github.com/dep2p/go-modnet/pkg/lib/future"
	"github.com/dep2p/go-modnet/pkg/types"
)

// Initializer 为新连接装配通道
//
// 实现负责创建 Channel、加入 Registry、启动读循环并发送 Hello。
type Initializer interface {
	InitChannel(conn net.Conn, dir types.Direction) (*Channel, error)
}

// Registry 节点通道注册表
type Registry struct {
	dialer      pkgif.Dialer
	initializer atomic.Value // Initializer
	metrics     *metrics.Metrics

	mu       sync.Mutex
	channels map[uint64]*Channel
	peers    map[types.PeerID]map[uint64]*Channel
	closed   bool

	listenersMu sync.RWMutex
	listeners   []pkgif.ConnectionListener

	events *notifier
}

// NewRegistry 创建注册表
//
// dialer 为出站通道工厂，m 可为 nil。
func NewRegistry(dialer pkgif.Dialer, m *metrics.Metrics) *Registry {
	r := &Registry{
		dialer:   dialer,
		metrics:  m,
		channels: make(map[uint64]*Channel),
		peers:    make(map[types.PeerID]map[uint64]*Channel),
	}
	r.events = newNotifier(r.deliver)
	return r
}

// SetInitializer 设置通道初始化器
func (r *Registry) SetInitializer(init Initializer) {
	r.initializer.Store(init)
}

// ============================================================================
//                              建立与登记
// ============================================================================

// Connect 通过出站工厂拨号 addr，并交给初始化器装配
//
// 不决定通道是否激活。
func (r *Registry) Connect(ctx context.Context, addr string) (*Channel, error) {
	init, _ := r.initializer.Load().(Initializer)
	if init == nil {
		return nil, ErrNoInitializer
	}
	conn, err := r.dialer.Dial(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("channel: dial %s: %w", addr, err)
	}
	ch, err := init.InitChannel(conn, types.DirOutbound)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return ch, nil
}

// AddChannel 登记新通道
//
// 通道关闭时自动移除。注册表已关闭时通道被立即关闭。
func (r *Registry) AddChannel(ch *Channel) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		ch.Close()
		return ErrRegistryClosed
	}
	r.channels[ch.id] = ch
	ch.registry.Store(r)
	r.mu.Unlock()

	r.metrics.ChannelOpened(ch.dir)
	logger.Debug("通道已登记", "channel", ch.String())

	ch.CloseFuture().AddListener(future.ListenerFunc(func(future.Future[struct{}]) {
		r.remove(ch)
	}))
	return nil
}

func (r *Registry) remove(ch *Channel) {
	r.mu.Lock()
	if _, ok := r.channels[ch.id]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.channels, ch.id)

	closedPeer := false
	if ch.hasRemote {
		set := r.peers[ch.remote]
		delete(set, ch.id)
		if len(set) == 0 {
			delete(r.peers, ch.remote)
		}
		if ch.active && !r.hasActiveLocked(ch.remote, 0) {
			closedPeer = true
			r.events.push(event{kind: eventClosed, peer: ch.remote})
		}
	}
	peer := ch.remote
	r.mu.Unlock()

	r.metrics.ChannelClosed()
	if closedPeer {
		r.metrics.PeerClosed()
		logger.Info("节点连接关闭", "peer", peer.ShortString())
	}
	logger.Debug("通道已移除", "channel", ch.String())
}

// ============================================================================
//                              身份与激活
// ============================================================================

// SetRemoteID 记录通道的远端 ID
//
// 每个通道只能设置一次：相同 ID 重复设置为空操作，不同 ID 返回
// ErrRemoteIDConflict。
func (r *Registry) SetRemoteID(ch *Channel, id types.PeerID) error {
	if id.IsEmpty() {
		return ErrNoRemoteID
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.channels[ch.id]; !ok {
		return ErrNotRegistered
	}
	if ch.hasRemote {
		if ch.remote == id {
			return nil
		}
		return fmt.Errorf("%w: %s != %s", ErrRemoteIDConflict, ch.remote.ShortString(), id.ShortString())
	}
	ch.remote = id
	ch.hasRemote = true
	set := r.peers[id]
	if set == nil {
		set = make(map[uint64]*Channel)
		r.peers[id] = set
	}
	set[ch.id] = ch
	return nil
}

// RemoteID 返回通道的远端 ID
func (r *Registry) RemoteID(ch *Channel) (types.PeerID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ch.remote, ch.hasRemote
}

// IsActive 通道是否已激活
func (r *Registry) IsActive(ch *Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ch.active
}

// SetActive 激活通道
//
// 若这是该节点的第一个激活通道，触发一次 established 事件。
// 同一节点已有的其他激活通道被视为过时并关闭，新的确认优先。
func (r *Registry) SetActive(ch *Channel) error {
	r.mu.Lock()
	if _, ok := r.channels[ch.id]; !ok {
		r.mu.Unlock()
		return ErrNotRegistered
	}
	if !ch.hasRemote {
		r.mu.Unlock()
		return ErrNoRemoteID
	}
	if ch.active {
		r.mu.Unlock()
		return nil
	}

	var superseded []*Channel
	for id, other := range r.peers[ch.remote] {
		if id != ch.id && other.active {
			superseded = append(superseded, other)
		}
	}
	ch.active = true
	first := len(superseded) == 0
	if first {
		r.events.push(event{kind: eventEstablished, peer: ch.remote})
	}
	peer := ch.remote
	r.mu.Unlock()

	if first {
		r.metrics.PeerEstablished()
		logger.Info("节点连接建立", "peer", peer.ShortString(), "channel", ch.String())
	}
	for _, old := range superseded {
		logger.Debug("关闭被取代的激活通道", "peer", peer.ShortString(), "channel", old.String())
		old.Close()
	}
	return nil
}

// SetActiveIfFirst 该节点没有其他激活通道时激活 ch
//
// 检查与激活在同一把锁下完成，对同一节点的并发调用恰好一个返回 true。
// 返回 false 时不改变任何状态。
//
// onWin 非 nil 时在激活生效前、持锁调用一次，只能做不阻塞的操作
// （如 Channel.Send 入队）。其他 goroutine 经 ActiveChannel 看到该通道时，
// onWin 入队的消息一定排在它们之前。
func (r *Registry) SetActiveIfFirst(ch *Channel, onWin func()) (bool, error) {
	r.mu.Lock()
	if _, ok := r.channels[ch.id]; !ok {
		r.mu.Unlock()
		return false, ErrNotRegistered
	}
	if !ch.hasRemote {
		r.mu.Unlock()
		return false, ErrNoRemoteID
	}
	if r.hasActiveLocked(ch.remote, ch.id) {
		r.mu.Unlock()
		return false, nil
	}
	if ch.active {
		r.mu.Unlock()
		return true, nil
	}
	if onWin != nil {
		onWin()
	}
	ch.active = true
	r.events.push(event{kind: eventEstablished, peer: ch.remote})
	peer := ch.remote
	r.mu.Unlock()

	r.metrics.PeerEstablished()
	logger.Info("节点连接建立", "peer", peer.ShortString(), "channel", ch.String())
	return true, nil
}

// hasActiveLocked 除 except 外该节点是否有激活通道，调用方持有 r.mu
func (r *Registry) hasActiveLocked(id types.PeerID, except uint64) bool {
	for cid, ch := range r.peers[id] {
		if cid != except && ch.active {
			return true
		}
	}
	return false
}

// ============================================================================
//                              查询（快照）
// ============================================================================

// Channels 返回所有通道的快照
func (r *Registry) Channels() []*Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		out = append(out, ch)
	}
	return out
}

// PeerChannels 返回该节点所有通道的快照
func (r *Registry) PeerChannels(id types.PeerID) []*Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.peers[id]
	out := make([]*Channel, 0, len(set))
	for _, ch := range set {
		out = append(out, ch)
	}
	return out
}

// ActiveChannel 返回该节点的激活通道
func (r *Registry) ActiveChannel(id types.PeerID) (*Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.peers[id] {
		if ch.active {
			return ch, true
		}
	}
	return nil, false
}

// HasActiveChannel 该节点是否有激活通道
func (r *Registry) HasActiveChannel(id types.PeerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasActiveLocked(id, 0)
}

// ConnectedPeers 拥有激活通道的节点
func (r *Registry) ConnectedPeers() []types.PeerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.PeerID, 0, len(r.peers))
	for id := range r.peers {
		if r.hasActiveLocked(id, 0) {
			out = append(out, id)
		}
	}
	return out
}

// ============================================================================
//                              监听器
// ============================================================================

// AddConnectionListener 注册节点级连接事件监听器
func (r *Registry) AddConnectionListener(l pkgif.ConnectionListener) {
	if l == nil {
		return
	}
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	r.listeners = append(r.listeners, l)
}

// RemoveConnectionListener 移除监听器
func (r *Registry) RemoveConnectionListener(l pkgif.ConnectionListener) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	for i, existing := range r.listeners {
		if existing == l {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

func (r *Registry) deliver(e event) {
	r.listenersMu.RLock()
	listeners := make([]pkgif.ConnectionListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.listenersMu.RUnlock()

	for _, l := range listeners {
		callListener(l, e)
	}
}

func callListener(l pkgif.ConnectionListener, e event) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("连接监听器 panic", "peer", e.peer.ShortString(), "panic", rec)
		}
	}()
	switch e.kind {
	case eventEstablished:
		l.ConnectionEstablished(e.peer)
	case eventClosed:
		l.ConnectionClosed(e.peer)
	}
}

// ============================================================================
//                              关闭
// ============================================================================

// CloseAll 关闭所有通道
func (r *Registry) CloseAll() error {
	var err error
	for _, ch := range r.Channels() {
		err = multierr.Append(err, ch.Close())
	}
	return err
}

// Close 关闭所有通道并停止事件投递
//
// 关闭前产生的事件仍会投递。通常等待投递完成后返回；在
// ConnectionListener 回调内调用时不等待，剩余事件在回调返回后投递。
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	err := r.CloseAll()
	r.events.stop()
	return err
}
