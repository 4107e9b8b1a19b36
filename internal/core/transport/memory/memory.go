// Package memory 提供进程内通道工厂
//
// 所有 Transport 共享一个 Network，地址为任意字符串名称。
// 连接基于 net.Pipe，无缓冲、同步，适合在测试中确定性地制造
// 多条并发连接。
package memory

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	// ErrAddrInUse 地址已被监听
	ErrAddrInUse = errors.New("memory: address in use")

	// ErrNoListener 地址上没有监听器
	ErrNoListener = errors.New("memory: connection refused")

	// ErrListenerClosed 监听器已关闭
	ErrListenerClosed = errors.New("memory: listener closed")
)

// Addr 内存地址
type Addr string

// Network 实现 net.Addr
func (a Addr) Network() string { return "memory" }

// String 实现 net.Addr
func (a Addr) String() string { return string(a) }

// Network 进程内网络
type Network struct {
	mu        sync.Mutex
	listeners map[string]*Listener
	next      atomic.Uint64
}

// NewNetwork 创建网络
func NewNetwork() *Network {
	return &Network{listeners: make(map[string]*Listener)}
}

// Transport 返回绑定到该网络的通道工厂
func (n *Network) Transport() *Transport {
	return &Transport{network: n}
}

// Transport 内存通道工厂
type Transport struct {
	network *Network
}

// Name 实现 interfaces.Transport
func (t *Transport) Name() string {
	return "memory"
}

// Listen 在 addr 上监听
//
// addr 为空或以 ":0" 结尾时分配唯一名称。
func (t *Transport) Listen(addr string) (net.Listener, error) {
	n := t.network
	if addr == "" || strings.HasSuffix(addr, ":0") {
		addr = fmt.Sprintf("mem-%d", n.next.Add(1))
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[addr]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAddrInUse, addr)
	}
	l := &Listener{
		network: n,
		addr:    Addr(addr),
		accept:  make(chan net.Conn),
		done:    make(chan struct{}),
	}
	n.listeners[addr] = l
	return l, nil
}

// Dial 连接 addr 上的监听器
func (t *Transport) Dial(ctx context.Context, addr string) (net.Conn, error) {
	n := t.network
	n.mu.Lock()
	l, ok := n.listeners[addr]
	n.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoListener, addr)
	}

	local := Addr(fmt.Sprintf("mem-dial-%d", n.next.Add(1)))
	client, server := net.Pipe()
	clientConn := &conn{Conn: client, local: local, remote: l.addr}
	serverConn := &conn{Conn: server, local: l.addr, remote: local}

	select {
	case l.accept <- serverConn:
		return clientConn, nil
	case <-l.done:
		client.Close()
		server.Close()
		return nil, fmt.Errorf("%w: %s", ErrNoListener, addr)
	case <-ctx.Done():
		client.Close()
		server.Close()
		return nil, ctx.Err()
	}
}

// Listener 内存监听器
type Listener struct {
	network *Network
	addr    Addr
	accept  chan net.Conn
	once    sync.Once
	done    chan struct{}
}

// Accept 实现 net.Listener
func (l *Listener) Accept() (net.Conn, error) {
	select {
	case c := <-l.accept:
		return c, nil
	case <-l.done:
		return nil, ErrListenerClosed
	}
}

// Close 实现 net.Listener
func (l *Listener) Close() error {
	l.once.Do(func() {
		l.network.mu.Lock()
		delete(l.network.listeners, string(l.addr))
		l.network.mu.Unlock()
		close(l.done)
	})
	return nil
}

// Addr 实现 net.Listener
func (l *Listener) Addr() net.Addr {
	return l.addr
}

type conn struct {
	net.Conn
	local  Addr
	remote Addr
}

func (c *conn) LocalAddr() net.Addr  { return c.local }
func (c *conn) RemoteAddr() net.Addr { return c.remote }
