package beacon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"golang.org/x/net/ipv4"

	"github.com/dep2p/go-modnet/internal/core/codec"
	pkgif "github.com/dep2p/go-modnet/pkg/interfaces"
	"github.com/dep2p/go-modnet/pkg/lib/log"
	"github.com/dep2p/go-modnet/pkg/messages"
	"github.com/dep2p/go-modnet/pkg/types"
)

var logger = log.Logger("discovery/beacon")

// maxPacketSize UDP 报文上限
const maxPacketSize = 64 * 1024

// AddrSource 提供节点的监听地址
type AddrSource interface {
	ListenAddrs() []net.Addr
}

// Option Beacon 构造选项
type Option func(*Beacon)

// WithClock 指定发送计时使用的时钟
func WithClock(clk clock.Clock) Option {
	return func(b *Beacon) {
		b.clock = clk
	}
}

// WithAddrSource 未配置公布地址时从 src 取监听地址
func WithAddrSource(src AddrSource) Option {
	return func(b *Beacon) {
		b.addrs = src
	}
}

// Beacon UDP 组播信标
type Beacon struct {
	cfg   Config
	local types.PeerID
	codec *codec.Codec
	clock clock.Clock
	addrs AddrSource

	pc    *ipv4.PacketConn
	group *net.UDPAddr

	listenersMu sync.RWMutex
	listeners   []pkgif.BeaconListener

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool
	closed  atomic.Bool
}

// New 创建信标
func New(cfg Config, local types.PeerID, opts ...Option) (*Beacon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	group, err := net.ResolveUDPAddr("udp4", cfg.Group)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGroup, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Beacon{
		cfg:    cfg,
		local:  local,
		codec:  codec.New(messages.NewRegistry()),
		clock:  clock.New(),
		group:  group,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// AddListener 注册信标监听器
func (b *Beacon) AddListener(l pkgif.BeaconListener) {
	if l == nil {
		return
	}
	b.listenersMu.Lock()
	defer b.listenersMu.Unlock()
	b.listeners = append(b.listeners, l)
}

// RemoveListener 移除信标监听器
func (b *Beacon) RemoveListener(l pkgif.BeaconListener) {
	b.listenersMu.Lock()
	defer b.listenersMu.Unlock()
	for i, existing := range b.listeners {
		if existing == l {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			return
		}
	}
}

// ============================================================================
//                              启动与关闭
// ============================================================================

// Start 绑定套接字，加入组播组，启动收发循环
func (b *Beacon) Start() error {
	if b.closed.Load() {
		return ErrClosed
	}
	if b.started.Swap(true) {
		return ErrAlreadyStarted
	}

	listen := b.cfg.ListenAddr
	if listen == "" {
		listen = net.JoinHostPort("0.0.0.0", strconv.Itoa(b.group.Port))
	}
	c, err := net.ListenPacket("udp4", listen)
	if err != nil {
		b.started.Store(false)
		return fmt.Errorf("beacon: listen %s: %w", listen, err)
	}
	pc := ipv4.NewPacketConn(c)

	if b.group.IP.IsMulticast() {
		if err := joinGroup(pc, b.group); err != nil {
			c.Close()
			b.started.Store(false)
			return err
		}
		if err := pc.SetMulticastLoopback(true); err != nil {
			logger.Debug("设置组播回环失败", "err", err)
		}
		if err := pc.SetMulticastTTL(b.cfg.TTL); err != nil {
			logger.Debug("设置组播 TTL 失败", "err", err)
		}
	}
	b.pc = pc

	b.wg.Add(2)
	go b.readLoop()
	go b.sendLoop()

	logger.Info("信标已启动", "group", b.group.String(), "listen", c.LocalAddr().String(), "interval", b.cfg.Interval)
	return nil
}

// joinGroup 在所有支持组播的网卡上加入组，全部失败时退回系统默认网卡
func joinGroup(pc *ipv4.PacketConn, group *net.UDPAddr) error {
	target := &net.UDPAddr{IP: group.IP}
	joined := 0

	ifaces, err := net.Interfaces()
	if err == nil {
		for i := range ifaces {
			ifi := &ifaces[i]
			if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagMulticast == 0 {
				continue
			}
			if err := pc.JoinGroup(ifi, target); err != nil {
				logger.Debug("加入组播组失败", "iface", ifi.Name, "err", err)
				continue
			}
			joined++
		}
	}
	if joined > 0 {
		return nil
	}
	if err := pc.JoinGroup(nil, target); err != nil {
		return fmt.Errorf("%w: %v", ErrNoMulticastInterface, err)
	}
	return nil
}

// LocalAddr 接收套接字地址，未启动时为 nil
func (b *Beacon) LocalAddr() net.Addr {
	if b.pc == nil {
		return nil
	}
	return b.pc.LocalAddr()
}

// Close 停止收发并关闭套接字，幂等
func (b *Beacon) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	b.cancel()
	var err error
	if b.pc != nil {
		err = b.pc.Close()
	}
	b.wg.Wait()
	logger.Debug("信标已关闭")
	return err
}

// ============================================================================
//                              发送
// ============================================================================

func (b *Beacon) sendLoop() {
	defer b.wg.Done()

	ticker := b.clock.Ticker(b.cfg.Interval)
	defer ticker.Stop()

	b.send()
	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			b.send()
		}
	}
}

func (b *Beacon) send() {
	payload, err := b.codec.Encode(messages.NewBeacon(b.local, b.AnnounceAddrs()))
	if err != nil {
		logger.Warn("编码信标失败", "err", err)
		return
	}
	if _, err := b.pc.WriteTo(payload, nil, b.group); err != nil {
		if !b.closed.Load() {
			logger.Debug("发送信标失败", "group", b.group.String(), "err", err)
		}
	}
}

// AnnounceAddrs 公布的地址
//
// 配置的地址优先；否则展开监听地址，未指定主机的监听地址
// 替换为本机各网卡的 IPv4 地址。
func (b *Beacon) AnnounceAddrs() []string {
	if len(b.cfg.AnnounceAddrs) > 0 {
		return b.cfg.AnnounceAddrs
	}
	if b.addrs == nil {
		return nil
	}
	var out []string
	for _, a := range b.addrs.ListenAddrs() {
		out = append(out, expandAddr(a)...)
	}
	return out
}

func expandAddr(a net.Addr) []string {
	tcp, ok := a.(*net.TCPAddr)
	if !ok {
		return []string{a.String()}
	}
	if !tcp.IP.IsUnspecified() {
		return []string{tcp.String()}
	}
	ifaddrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	var out []string
	for _, ia := range ifaddrs {
		ipnet, ok := ia.(*net.IPNet)
		if !ok || ipnet.IP.To4() == nil {
			continue
		}
		out = append(out, net.JoinHostPort(ipnet.IP.String(), strconv.Itoa(tcp.Port)))
	}
	return out
}

// ============================================================================
//                              接收
// ============================================================================

func (b *Beacon) readLoop() {
	defer b.wg.Done()

	buf := make([]byte, maxPacketSize)
	for {
		n, _, src, err := b.pc.ReadFrom(buf)
		if err != nil {
			if b.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Debug("读取信标失败", "err", err)
			continue
		}
		b.handlePacket(buf[:n], src)
	}
}

func (b *Beacon) handlePacket(payload []byte, src net.Addr) {
	m, err := b.codec.Decode(payload)
	if err != nil {
		logger.Debug("忽略无法解码的报文", "from", addrString(src), "err", err)
		return
	}
	beacon, ok := m.(*messages.Beacon)
	if !ok {
		logger.Debug("忽略非信标报文", "from", addrString(src), "kind", m.MessageKind())
		return
	}
	if beacon.ModuleID == b.local || beacon.ModuleID.IsEmpty() {
		return
	}

	logger.Debug("收到信标", "peer", beacon.ModuleID.ShortString(), "addrs", beacon.Addrs)

	b.listenersMu.RLock()
	listeners := make([]pkgif.BeaconListener, len(b.listeners))
	copy(listeners, b.listeners)
	b.listenersMu.RUnlock()

	for _, l := range listeners {
		addrs := make([]string, len(beacon.Addrs))
		copy(addrs, beacon.Addrs)
		l.BeaconFound(beacon.ModuleID, addrs)
	}
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
