package peerexchange

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-modnet/internal/core/connmgr"
	"github.com/dep2p/go-modnet/internal/core/transport/memory"
	pkgif "github.com/dep2p/go-modnet/pkg/interfaces"
	"github.com/dep2p/go-modnet/pkg/lib/future"
	"github.com/dep2p/go-modnet/pkg/messages"
	"github.com/dep2p/go-modnet/pkg/types"
)

var (
	idA = types.MustParsePeerID("00000000-0000-0000-0000-000000000001")
	idB = types.MustParsePeerID("00000000-0000-0000-0000-000000000002")
	idC = types.MustParsePeerID("00000000-0000-0000-0000-000000000003")
	idD = types.MustParsePeerID("00000000-0000-0000-0000-000000000004")
)

// ============================================================================
//                              桩
// ============================================================================

type sent struct {
	to    types.PeerID
	peers map[types.PeerID][]string
}

// fakeManager 记录发送的消息，连接状态由测试设定
type fakeManager struct {
	pkgif.ConnectionManager

	local     types.PeerID
	mu        sync.Mutex
	connected []types.PeerID
	sent      []sent
}

func (m *fakeManager) LocalID() types.PeerID { return m.local }

func (m *fakeManager) ConnectedPeers() []types.PeerID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.PeerID(nil), m.connected...)
}

func (m *fakeManager) IsConnected(id types.PeerID) bool {
	for _, c := range m.ConnectedPeers() {
		if c == id {
			return true
		}
	}
	return false
}

func (m *fakeManager) SendMessage(id types.PeerID, msg messages.Message) future.Future[messages.Response] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sent{to: id, peers: msg.(*messages.Peers).Peers})
	return future.Succeeded[messages.Response](messages.NewDefaultResponse(msg.MessageID()))
}

func (m *fakeManager) takeSent() []sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sent
	m.sent = nil
	return out
}

// dialLog 记录交给拨号方的发现事件
type dialLog struct {
	mu    sync.Mutex
	found map[types.PeerID][]string
}

func (d *dialLog) BeaconFound(id types.PeerID, addrs []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.found == nil {
		d.found = make(map[types.PeerID][]string)
	}
	d.found[id] = append(d.found[id], addrs...)
}

// ============================================================================
//                              节点表
// ============================================================================

func TestExchanger_AddPeer(t *testing.T) {
	e := New(&fakeManager{local: idA}, nil)

	assert.True(t, e.AddPeer(idB, []string{"b2", "b1"}))
	assert.False(t, e.AddPeer(idB, []string{"b1"}), "已知地址不算变化")
	assert.True(t, e.AddPeer(idB, []string{"b3"}))

	assert.False(t, e.AddPeer(idC, nil), "空地址列表")
	assert.False(t, e.AddPeer(idC, []string{""}))
	assert.False(t, e.AddPeer(idA, []string{"a"}), "本节点不记录")
	assert.False(t, e.AddPeer(types.EmptyPeerID, []string{"x"}))

	assert.Equal(t, map[types.PeerID][]string{idB: {"b1", "b2", "b3"}}, e.Peers())
}

func TestExchanger_BeaconFoundRecords(t *testing.T) {
	e := New(&fakeManager{local: idA}, nil)
	e.BeaconFound(idC, []string{"c"})
	assert.Equal(t, map[types.PeerID][]string{idC: {"c"}}, e.Peers())
}

func TestExchanger_ConnectionEstablishedSendsTable(t *testing.T) {
	mgr := &fakeManager{local: idA}
	e := New(mgr, nil)
	e.SetLocalAddrs(func() []string { return []string{"a"} })
	e.AddPeer(idC, []string{"c"})

	e.ConnectionEstablished(idB)

	out := mgr.takeSent()
	require.Len(t, out, 1)
	assert.Equal(t, idB, out[0].to)
	assert.Equal(t, map[types.PeerID][]string{idA: {"a"}, idC: {"c"}}, out[0].peers)
}

func TestExchanger_HandleMessage(t *testing.T) {
	mgr := &fakeManager{local: idA, connected: []types.PeerID{idB, idC}}
	dials := &dialLog{}
	e := New(mgr, dials)

	incoming := messages.NewPeers(map[types.PeerID][]string{
		idB: {"b"},
		idC: {"c"},
		idD: {"d"},
		idA: {"a"},
	})
	resp, err := e.HandleMessage(context.Background(), idB, incoming)
	require.NoError(t, err)
	assert.Nil(t, resp)

	// 只转发给来源以外的已连接节点
	out := mgr.takeSent()
	require.Len(t, out, 1)
	assert.Equal(t, idC, out[0].to)
	assert.Equal(t, []string{"d"}, out[0].peers[idD])

	// 只拨号尚未连接的新节点
	dials.mu.Lock()
	assert.Equal(t, map[types.PeerID][]string{idD: {"d"}}, dials.found)
	dials.mu.Unlock()

	// 重复的表不再转发
	_, err = e.HandleMessage(context.Background(), idC, incoming)
	require.NoError(t, err)
	assert.Empty(t, mgr.takeSent())
}

func TestExchanger_IgnoresOtherKinds(t *testing.T) {
	mgr := &fakeManager{local: idA, connected: []types.PeerID{idB}}
	e := New(mgr, nil)
	resp, err := e.HandleMessage(context.Background(), idB, messages.NewBeacon(idC, []string{"c"}))
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Empty(t, e.Peers())
}

// ============================================================================
//                              集成
// ============================================================================

func newNode(t *testing.T, network *memory.Network, id types.PeerID, addr string) *connmgr.Manager {
	t.Helper()
	cfg := connmgr.DefaultConfig()
	cfg.LocalID = id
	cfg.DialTimeout = time.Second
	mgr, err := connmgr.New(cfg, network.Transport(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	_, err = mgr.StartListening(addr)
	require.NoError(t, err)

	e := New(mgr, mgr)
	e.SetLocalAddrs(func() []string { return []string{addr} })
	e.Attach()
	t.Cleanup(e.Detach)
	return mgr
}

func TestExchanger_TransitiveDiscovery(t *testing.T) {
	network := memory.NewNetwork()
	a := newNode(t, network, idA, "a")
	b := newNode(t, network, idB, "b")
	c := newNode(t, network, idC, "c")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.ConnectTo(ctx, "b"))
	require.NoError(t, c.ConnectTo(ctx, "b"))

	// a 和 c 通过 b 的节点表互相发现
	require.Eventually(t, func() bool {
		return a.IsConnected(idC) && c.IsConnected(idA)
	}, 3*time.Second, 10*time.Millisecond)

	assert.ElementsMatch(t, []types.PeerID{idB, idC}, a.ConnectedPeers())
	assert.ElementsMatch(t, []types.PeerID{idA, idB}, c.ConnectedPeers())
	assert.ElementsMatch(t, []types.PeerID{idA, idC}, b.ConnectedPeers())
}
