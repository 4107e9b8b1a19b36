package tcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
)

// Config TCP 传输配置
type Config struct {
	// DialTimeout 拨号超时
	DialTimeout time.Duration

	// KeepAlive keep-alive 周期，0 表示系统默认
	KeepAlive time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		DialTimeout: 10 * time.Second,
		KeepAlive:   30 * time.Second,
	}
}

// ============================================================================
//                              Transport 实现
// ============================================================================

// Transport TCP 通道工厂
type Transport struct {
	config Config

	listenersMu sync.Mutex
	listeners   map[net.Listener]struct{}

	closed atomic.Bool
}

// NewTransport 创建 TCP 传输
func NewTransport(cfg Config) *Transport {
	return &Transport{
		config:    cfg,
		listeners: make(map[net.Listener]struct{}),
	}
}

// Name 实现 interfaces.Transport
func (t *Transport) Name() string {
	return "tcp"
}

// Dial 建立出站连接
func (t *Transport) Dial(ctx context.Context, addr string) (net.Conn, error) {
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}

	dialer := &net.Dialer{
		Timeout:   t.config.DialTimeout,
		KeepAlive: t.config.KeepAlive,
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp: dial %s: %w", addr, err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}
	return conn, nil
}

// Listen 监听入站连接
func (t *Transport) Listen(addr string) (net.Listener, error) {
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp: listen %s: %w", addr, err)
	}

	tl := &listener{Listener: l, owner: t}
	t.listenersMu.Lock()
	t.listeners[tl] = struct{}{}
	t.listenersMu.Unlock()
	return tl, nil
}

// Close 关闭传输层及其创建的所有监听器
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.listenersMu.Lock()
	listeners := make([]net.Listener, 0, len(t.listeners))
	for l := range t.listeners {
		listeners = append(listeners, l)
	}
	t.listenersMu.Unlock()

	var err error
	for _, l := range listeners {
		err = multierr.Append(err, l.Close())
	}
	return err
}

// listener 关闭时从所属 Transport 注销
type listener struct {
	net.Listener
	owner *Transport
	once  sync.Once
	err   error
}

func (l *listener) Close() error {
	l.once.Do(func() {
		l.owner.listenersMu.Lock()
		delete(l.owner.listeners, l)
		l.owner.listenersMu.Unlock()
		l.err = l.Listener.Close()
	})
	return l.err
}
