package connmgr

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-modnet/internal/core/transport/memory"
	pkgif "github.com/dep2p/go-modnet/pkg/interfaces"
	"github.com/dep2p/go-modnet/pkg/messages"
	"github.com/dep2p/go-modnet/pkg/types"
)

const (
	kindPing messages.Kind = "ping"
	kindPong messages.Kind = "pong"
)

var (
	idA = types.MustParsePeerID("00000000-0000-0000-0000-000000000001")
	idB = types.MustParsePeerID("00000000-0000-0000-0000-000000000002")
)

type ping struct {
	messages.Base
	Seq int `json:"seq"`
}

func newPing(seq int) *ping {
	return &ping{Base: messages.NewBase(), Seq: seq}
}

func (*ping) MessageKind() messages.Kind { return kindPing }

type pong struct {
	messages.ResponseBase
	Seq int `json:"seq"`
}

func (*pong) MessageKind() messages.Kind { return kindPong }

func newTestManager(t *testing.T, tr pkgif.Transport, id types.PeerID, opts ...Option) *Manager {
	t.Helper()
	cfg := DefaultConfig()
	cfg.LocalID = id
	cfg.DialTimeout = time.Second
	cfg.DialSuppression = time.Minute
	mgr, err := New(cfg, tr, nil, opts...)
	require.NoError(t, err)
	require.NoError(t, mgr.RegisterMessageKind(kindPing, messages.KindMessage, func() messages.Message { return &ping{} }))
	require.NoError(t, mgr.RegisterMessageKind(kindPong, messages.KindResponse, func() messages.Message { return &pong{} }))
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

// echo 以相同序号回复 pong
func echo(_ context.Context, _ types.PeerID, m messages.Message) (messages.Response, error) {
	return &pong{ResponseBase: messages.NewResponseBase(m.MessageID()), Seq: m.(*ping).Seq}, nil
}

func awaitConnected(t *testing.T, a, b *Manager) {
	t.Helper()
	require.Eventually(t, func() bool {
		return a.IsConnected(b.LocalID()) && b.IsConnected(a.LocalID())
	}, 2*time.Second, 5*time.Millisecond)
}

// pair 两个在 memory 网络上互相监听的管理器
func pair(t *testing.T, opts ...Option) (*Manager, *Manager) {
	t.Helper()
	network := memory.NewNetwork()
	a := newTestManager(t, network.Transport(), idA, opts...)
	b := newTestManager(t, network.Transport(), idB)
	_, err := a.StartListening("a")
	require.NoError(t, err)
	_, err = b.StartListening("b")
	require.NoError(t, err)
	return a, b
}

// eventLog 记录节点级连接事件
type eventLog struct {
	mu     sync.Mutex
	up     map[types.PeerID]int
	down   map[types.PeerID]int
	orders []string
}

func newEventLog() *eventLog {
	return &eventLog{up: make(map[types.PeerID]int), down: make(map[types.PeerID]int)}
}

func (l *eventLog) listener() *pkgif.ConnectionListenerFuncs {
	return &pkgif.ConnectionListenerFuncs{
		OnEstablished: func(id types.PeerID) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.up[id]++
		},
		OnClosed: func(id types.PeerID) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.down[id]++
		},
	}
}

func (l *eventLog) counts(id types.PeerID) (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.up[id], l.down[id]
}
