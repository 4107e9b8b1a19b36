package peerexchange

import (
	"context"
	"sort"
	"sync"

	pkgif "github.com/dep2p/go-modnet/pkg/interfaces"
	"github.com/dep2p/go-modnet/pkg/lib/future"
	"github.com/dep2p/go-modnet/pkg/lib/log"
	"github.com/dep2p/go-modnet/pkg/messages"
	"github.com/dep2p/go-modnet/pkg/types"
)

var logger = log.Logger("protocol/peerexchange")

var (
	_ pkgif.ConnectionListener = (*Exchanger)(nil)
	_ pkgif.MessageHandler     = (*Exchanger)(nil)
	_ pkgif.BeaconListener     = (*Exchanger)(nil)
)

// Exchanger 节点表交换
type Exchanger struct {
	mgr    pkgif.ConnectionManager
	dialer pkgif.BeaconListener

	mu         sync.RWMutex
	peers      map[types.PeerID]map[string]struct{}
	localAddrs func() []string
}

// New 创建 Exchanger
//
// dialer 接收新学到的节点，通常就是 mgr 本身；为 nil 时只记录不拨号。
func New(mgr pkgif.ConnectionManager, dialer pkgif.BeaconListener) *Exchanger {
	return &Exchanger{
		mgr:    mgr,
		dialer: dialer,
		peers:  make(map[types.PeerID]map[string]struct{}),
	}
}

// SetLocalAddrs 设置本节点地址来源
//
// 发送的节点表包含本节点及 fn 返回的地址，使对端能把本节点
// 转告给它的邻居。
func (e *Exchanger) SetLocalAddrs(fn func() []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.localAddrs = fn
}

// Attach 注册连接监听器与 peers 处理器
func (e *Exchanger) Attach() {
	e.mgr.AddConnectionListener(e)
	e.mgr.AddHandler(messages.KindPeers, e)
}

// Detach 撤销 Attach
func (e *Exchanger) Detach() {
	e.mgr.RemoveConnectionListener(e)
}

// ============================================================================
//                              节点表
// ============================================================================

// AddPeer 记录 id 的地址，表有变化时返回 true
func (e *Exchanger) AddPeer(id types.PeerID, addrs []string) bool {
	changed, _ := e.merge(map[types.PeerID][]string{id: addrs})
	return changed
}

// merge 合并 peers，返回表是否变化以及本次新增了地址的节点
func (e *Exchanger) merge(peers map[types.PeerID][]string) (bool, map[types.PeerID][]string) {
	local := e.mgr.LocalID()
	fresh := make(map[types.PeerID][]string)

	e.mu.Lock()
	defer e.mu.Unlock()

	for id, addrs := range peers {
		if id.IsEmpty() || id == local || len(addrs) == 0 {
			continue
		}
		set := e.peers[id]
		if set == nil {
			set = make(map[string]struct{}, len(addrs))
			e.peers[id] = set
		}
		for _, a := range addrs {
			if a == "" {
				continue
			}
			if _, ok := set[a]; ok {
				continue
			}
			set[a] = struct{}{}
			fresh[id] = append(fresh[id], a)
		}
		if len(set) == 0 {
			delete(e.peers, id)
		}
	}
	return len(fresh) > 0, fresh
}

// Peers 节点表快照，地址有序
func (e *Exchanger) Peers() map[types.PeerID][]string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[types.PeerID][]string, len(e.peers))
	for id, set := range e.peers {
		addrs := make([]string, 0, len(set))
		for a := range set {
			addrs = append(addrs, a)
		}
		sort.Strings(addrs)
		out[id] = addrs
	}
	return out
}

// snapshot 待发送的节点表，含本节点
func (e *Exchanger) snapshot() map[types.PeerID][]string {
	out := e.Peers()
	e.mu.RLock()
	fn := e.localAddrs
	e.mu.RUnlock()
	if fn != nil {
		if addrs := fn(); len(addrs) > 0 {
			out[e.mgr.LocalID()] = addrs
		}
	}
	return out
}

// ============================================================================
//                              事件
// ============================================================================

// ConnectionEstablished 向新节点发送节点表
func (e *Exchanger) ConnectionEstablished(id types.PeerID) {
	e.send(id, e.snapshot())
}

// ConnectionClosed 实现 ConnectionListener
func (e *Exchanger) ConnectionClosed(types.PeerID) {}

// BeaconFound 记录信标中的节点
func (e *Exchanger) BeaconFound(id types.PeerID, addrs []string) {
	e.AddPeer(id, addrs)
}

// HandleMessage 合并收到的节点表，有变化时转发
func (e *Exchanger) HandleMessage(_ context.Context, from types.PeerID, m messages.Message) (messages.Response, error) {
	p, ok := m.(*messages.Peers)
	if !ok {
		return nil, nil
	}

	changed, fresh := e.merge(p.Peers)
	if !changed {
		return nil, nil
	}
	logger.Debug("节点表已更新", "from", from.ShortString(), "new", len(fresh))

	snapshot := e.snapshot()
	for _, id := range e.mgr.ConnectedPeers() {
		if id != from {
			e.send(id, snapshot)
		}
	}

	if e.dialer != nil {
		for id, addrs := range fresh {
			if !e.mgr.IsConnected(id) {
				e.dialer.BeaconFound(id, addrs)
			}
		}
	}
	return nil, nil
}

func (e *Exchanger) send(id types.PeerID, peers map[types.PeerID][]string) {
	e.mgr.SendMessage(id, messages.NewPeers(peers)).AddListener(future.ListenerFunc(func(f future.Future[messages.Response]) {
		if !f.IsSuccess() {
			logger.Debug("发送节点表失败", "peer", id.ShortString(), "err", f.Cause())
		}
	}))
}
