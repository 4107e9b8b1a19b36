package beacon

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-modnet/internal/core/codec"
	"github.com/dep2p/go-modnet/pkg/messages"
	"github.com/dep2p/go-modnet/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

type found struct {
	id    types.PeerID
	addrs []string
}

type recorder struct {
	mu    sync.Mutex
	found []found
}

func (r *recorder) BeaconFound(id types.PeerID, addrs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.found = append(r.found, found{id: id, addrs: addrs})
}

func (r *recorder) snapshot() []found {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]found, len(r.found))
	copy(out, r.found)
	return out
}

type staticAddrs []net.Addr

func (s staticAddrs) ListenAddrs() []net.Addr { return s }

// sink 本地 UDP 套接字，用作单播目标
func sink(t *testing.T) net.PacketConn {
	t.Helper()
	c, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// startUnicast 启动一个绑定在回环地址、向 target 单播的信标
func startUnicast(t *testing.T, local types.PeerID, target net.Addr, opts ...Option) *Beacon {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Group = target.String()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Interval = 20 * time.Millisecond
	b, err := New(cfg, local, opts...)
	require.NoError(t, err)
	require.NoError(t, b.Start())
	t.Cleanup(func() { b.Close() })
	return b
}

func encode(t *testing.T, m messages.Message) []byte {
	t.Helper()
	payload, err := codec.New(messages.NewRegistry()).Encode(m)
	require.NoError(t, err)
	return payload
}

// ============================================================================
//                              测试
// ============================================================================

func TestBeacon_SendsPeriodically(t *testing.T) {
	s := sink(t)
	local := types.NewPeerID()
	startUnicast(t, local, s.LocalAddr(), WithAddrSource(staticAddrs{
		&net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 7000},
	}))

	dec := codec.New(messages.NewRegistry())
	buf := make([]byte, maxPacketSize)
	for i := 0; i < 2; i++ {
		require.NoError(t, s.SetReadDeadline(time.Now().Add(time.Second)))
		n, _, err := s.ReadFrom(buf)
		require.NoError(t, err)

		m, err := dec.Decode(buf[:n])
		require.NoError(t, err)
		beacon, ok := m.(*messages.Beacon)
		require.True(t, ok)
		assert.Equal(t, local, beacon.ModuleID)
		assert.Equal(t, []string{"10.0.0.1:7000"}, beacon.Addrs)
	}
}

func TestBeacon_AnnounceAddrsOverride(t *testing.T) {
	s := sink(t)
	cfg := DefaultConfig()
	cfg.Group = s.LocalAddr().String()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.AnnounceAddrs = []string{"example.org:7000"}
	b, err := New(cfg, types.NewPeerID(), WithAddrSource(staticAddrs{&net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 1}}))
	require.NoError(t, err)

	assert.Equal(t, []string{"example.org:7000"}, b.AnnounceAddrs())
}

func TestBeacon_ExpandsUnspecifiedHost(t *testing.T) {
	addrs := expandAddr(&net.TCPAddr{IP: net.IPv4zero, Port: 7000})
	require.NotEmpty(t, addrs, "至少包含回环地址")
	for _, a := range addrs {
		_, port, err := net.SplitHostPort(a)
		require.NoError(t, err)
		assert.Equal(t, "7000", port)
	}
	assert.Contains(t, addrs, "127.0.0.1:7000")
}

func TestBeacon_NotifiesListeners(t *testing.T) {
	s := sink(t)
	local := types.NewPeerID()
	b := startUnicast(t, local, s.LocalAddr())
	rec := &recorder{}
	b.AddListener(rec)

	sender := sink(t)
	remote := types.NewPeerID()

	// 自身信标、非信标报文、垃圾数据都被忽略
	_, err := sender.WriteTo(encode(t, messages.NewBeacon(local, []string{"x:1"})), b.LocalAddr())
	require.NoError(t, err)
	_, err = sender.WriteTo(encode(t, messages.NewHello(remote, 10)), b.LocalAddr())
	require.NoError(t, err)
	_, err = sender.WriteTo([]byte("not json"), b.LocalAddr())
	require.NoError(t, err)

	_, err = sender.WriteTo(encode(t, messages.NewBeacon(remote, []string{"10.0.0.2:7000"})), b.LocalAddr())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	got := rec.snapshot()[0]
	assert.Equal(t, remote, got.id)
	assert.Equal(t, []string{"10.0.0.2:7000"}, got.addrs)

	b.RemoveListener(rec)
	_, err = sender.WriteTo(encode(t, messages.NewBeacon(remote, nil)), b.LocalAddr())
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)
}

func TestBeacon_Lifecycle(t *testing.T) {
	s := sink(t)
	b := startUnicast(t, types.NewPeerID(), s.LocalAddr())

	assert.ErrorIs(t, b.Start(), ErrAlreadyStarted)
	require.NoError(t, b.Close())
	assert.NoError(t, b.Close(), "幂等")
	assert.ErrorIs(t, b.Start(), ErrClosed)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Interval = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Group = "not an address"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidGroup)
}
