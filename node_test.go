package modnet

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-modnet/config"
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
	idA = types.MustParsePeerID("00000000-0000-0000-0000-00000000000a")
	idB = types.MustParsePeerID("00000000-0000-0000-0000-00000000000b")
	idC = types.MustParsePeerID("00000000-0000-0000-0000-00000000000c")
)

type ping struct {
	messages.Base
	Text string `json:"text"`
}

func (*ping) MessageKind() messages.Kind { return kindPing }

type pong struct {
	messages.ResponseBase
	Text string `json:"text"`
}

func (*pong) MessageKind() messages.Kind { return kindPong }

// newNode 在 memory 网络上创建并启动节点，注册 ping/pong
func newNode(t *testing.T, network *memory.Network, id types.PeerID, addr string, opts ...Option) *Node {
	t.Helper()
	base := []Option{
		WithPreset(PresetMinimal),
		WithPeerID(id),
		WithTransport(network.Transport()),
		WithListenAddrs(addr),
	}
	n, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() })

	require.NoError(t, n.RegisterMessageKind(kindPing, messages.KindMessage, func() messages.Message { return &ping{} }))
	require.NoError(t, n.RegisterMessageKind(kindPong, messages.KindResponse, func() messages.Message { return &pong{} }))
	n.Handle(kindPing, pkgif.HandlerFunc(func(_ context.Context, _ types.PeerID, m messages.Message) (messages.Response, error) {
		return &pong{ResponseBase: messages.NewResponseBase(m.MessageID()), Text: m.(*ping).Text}, nil
	}))

	require.NoError(t, n.Start(context.Background()))
	return n
}

// ============================================================================
//                              生命周期
// ============================================================================

func TestNode_Lifecycle(t *testing.T) {
	n, err := New(WithPreset(PresetMinimal), WithPeerID(idA), WithTransport(memory.NewNetwork().Transport()), WithListenAddrs("a"))
	require.NoError(t, err)
	assert.Equal(t, StateIdle, n.State())
	assert.Equal(t, idA, n.ID())
	assert.Empty(t, n.ListenAddrs(), "监听在 Start 时开始")

	_, err = n.Listen("x")
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.ErrorIs(t, n.Connect(context.Background(), "x"), ErrNotStarted)

	require.NoError(t, n.Start(context.Background()))
	assert.Equal(t, StateRunning, n.State())
	require.Len(t, n.ListenAddrs(), 1)
	assert.Equal(t, "a", n.ListenAddrs()[0].String())
	assert.ErrorIs(t, n.Start(context.Background()), ErrAlreadyStarted)

	extra, err := n.Listen("a2")
	require.NoError(t, err)
	assert.Equal(t, "a2", extra.String())

	require.NoError(t, n.Close())
	assert.Equal(t, StateStopped, n.State())
	assert.NoError(t, n.Close(), "幂等")
	assert.ErrorIs(t, n.Start(context.Background()), ErrNodeClosed)
}

func TestNode_CloseWithoutStart(t *testing.T) {
	n, err := New(WithPreset(PresetMinimal), WithTransport(memory.NewNetwork().Transport()))
	require.NoError(t, err)
	assert.False(t, n.ID().IsEmpty(), "未指定时随机生成")
	require.NoError(t, n.Close())
	assert.Equal(t, StateStopped, n.State())
}

func TestNode_StartFailure(t *testing.T) {
	network := memory.NewNetwork()
	newNode(t, network, idA, "taken")

	n, err := New(WithPreset(PresetMinimal), WithPeerID(idB), WithTransport(network.Transport()), WithListenAddrs("taken"))
	require.NoError(t, err)
	assert.Error(t, n.Start(context.Background()))
	assert.Equal(t, StateStopped, n.State())
	assert.NoError(t, n.Close())
}

// ============================================================================
//                              消息
// ============================================================================

func TestNode_RequestResponse(t *testing.T) {
	network := memory.NewNetwork()
	a := newNode(t, network, idA, "a")
	b := newNode(t, network, idB, "b")

	up := make(chan types.PeerID, 1)
	a.AddConnectionListener(&pkgif.ConnectionListenerFuncs{
		OnEstablished: func(id types.PeerID) { up <- id },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, b.Connect(ctx, "a"))

	select {
	case id := <-up:
		assert.Equal(t, idB, id)
	case <-ctx.Done():
		t.Fatal("连接未建立")
	}
	require.Eventually(t, func() bool { return b.IsConnected(idA) }, time.Second, 5*time.Millisecond)

	resp, err := a.Send(idB, &ping{Base: messages.NewBase(), Text: "hi"}).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.(*pong).Text)

	assert.Equal(t, []types.PeerID{idB}, a.ConnectedPeers())
	assert.Equal(t, []types.PeerID{idA}, b.ConnectedPeers())
}

func TestNode_SendWithoutConnection(t *testing.T) {
	a := newNode(t, memory.NewNetwork(), idA, "a")
	_, err := a.Send(idB, &ping{Base: messages.NewBase()}).Get(context.Background())
	assert.Error(t, err)
}

// ============================================================================
//                              节点交换
// ============================================================================

func TestNode_PeerExchange(t *testing.T) {
	network := memory.NewNetwork()
	a := newNode(t, network, idA, "a", WithPeerExchange(true))
	b := newNode(t, network, idB, "b", WithPeerExchange(true))
	c := newNode(t, network, idC, "c", WithPeerExchange(true))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Connect(ctx, "b"))
	require.NoError(t, c.Connect(ctx, "b"))

	require.Eventually(t, func() bool {
		return a.IsConnected(idC) && c.IsConnected(idA)
	}, 3*time.Second, 10*time.Millisecond)

	known := b.KnownPeers()
	assert.Equal(t, []string{"a"}, known[idA])
	assert.Equal(t, []string{"c"}, known[idC])
}

func TestNode_KnownPeersDisabled(t *testing.T) {
	a := newNode(t, memory.NewNetwork(), idA, "a")
	assert.Nil(t, a.KnownPeers())
	assert.Nil(t, a.BeaconAddr())
}

// ============================================================================
//                              配置与指标
// ============================================================================

func TestNode_Options(t *testing.T) {
	n, err := New(
		WithPresetName(PresetNameLAN),
		WithBeacon(false),
		WithTransport(memory.NewNetwork().Transport()),
		WithRequestTimeout(5*time.Second),
		WithHandlerWorkers(4),
		WithDialSuppression(time.Second),
		WithAnnounceAddrs("10.0.0.1:5555"),
	)
	require.NoError(t, err)
	defer n.Close()

	cfg := n.Config()
	assert.False(t, cfg.Discovery.EnableBeacon, "显式选项覆盖预设")
	assert.True(t, cfg.PeerExchange.Enable)
	assert.Equal(t, 5*time.Second, cfg.Messaging.RequestTimeout.Duration())
	assert.Equal(t, 4, cfg.Messaging.HandlerWorkers)
	assert.Equal(t, time.Second, cfg.Discovery.DialSuppression.Duration())
	assert.Equal(t, []string{"10.0.0.1:5555"}, cfg.Discovery.AnnounceAddrs)
	assert.Equal(t, n.ID().String(), cfg.Identity.PeerID)
}

func TestNode_InvalidOptions(t *testing.T) {
	_, err := New(WithPresetName("nope"))
	assert.ErrorIs(t, err, ErrUnknownPreset)

	_, err = New(WithPeerID(types.EmptyPeerID))
	assert.Error(t, err)

	_, err = New(WithHandlerWorkers(-1), WithTransport(memory.NewNetwork().Transport()))
	assert.ErrorIs(t, err, config.ErrInvalidWorkers)

	_, err = New(WithConfig(nil))
	assert.Error(t, err)
}

func TestNode_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.json")
	data := []byte(`{"identity":{"peer_id":"` + idC.String() + `"},"peer_exchange":{"enable":false}}`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	n, err := New(WithConfigFile(path), WithTransport(memory.NewNetwork().Transport()))
	require.NoError(t, err)
	defer n.Close()
	assert.Equal(t, idC, n.ID())
	assert.False(t, n.Config().PeerExchange.Enable)
}

func TestNode_ConfigNotMutated(t *testing.T) {
	base := config.NewConfig()
	n, err := New(WithConfig(base), WithPeerID(idA), WithTransport(memory.NewNetwork().Transport()))
	require.NoError(t, err)
	defer n.Close()
	assert.Empty(t, base.Identity.PeerID)
}

func TestNode_MetricsHandler(t *testing.T) {
	network := memory.NewNetwork()
	a := newNode(t, network, idA, "a", WithMetrics(true))
	newNode(t, network, idB, "b")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Connect(ctx, "b"))
	require.Eventually(t, func() bool { return a.IsConnected(idB) }, 2*time.Second, 5*time.Millisecond)

	srv := httptest.NewServer(a.MetricsHandler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "modnet_")
}

func TestNode_MetricsDisabled(t *testing.T) {
	a := newNode(t, memory.NewNetwork(), idA, "a")
	rec := httptest.NewRecorder()
	a.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPresets(t *testing.T) {
	assert.Equal(t, []string{PresetNameDefault, PresetNameLAN, PresetNameMinimal}, AvailablePresets())
	p, ok := PresetByName(PresetNameLAN)
	require.True(t, ok)

	cfg := config.NewConfig()
	p.Apply(cfg)
	assert.True(t, cfg.Discovery.EnableBeacon)

	var nilPreset *Preset
	nilPreset.Apply(cfg)
}

func TestVersionInfo(t *testing.T) {
	assert.Contains(t, VersionInfo(), Version)
}
