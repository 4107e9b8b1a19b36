package listener

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-modnet/internal/core/channel"
	pkgif "github.com/dep2p/go-modnet/pkg/interfaces"
	"github.com/dep2p/go-modnet/pkg/lib/future"
	"github.com/dep2p/go-modnet/pkg/lib/log"
	"github.com/dep2p/go-modnet/pkg/types"
)

var logger = log.Logger("core/listener")

// acceptBackoff Accept 临时错误后的等待
const acceptBackoff = 50 * time.Millisecond

type entry struct {
	l       net.Listener
	closing atomic.Bool
	done    *future.Promise[struct{}]
}

// Registry 监听器注册表
type Registry struct {
	factory pkgif.ListenerFactory
	init    channel.Initializer

	mu        sync.Mutex
	listeners []*entry
	closed    bool
}

// NewRegistry 创建注册表
func NewRegistry(factory pkgif.ListenerFactory, init channel.Initializer) *Registry {
	return &Registry{factory: factory, init: init}
}

// Bind 在 addr 上监听，返回实际绑定的地址
func (r *Registry) Bind(addr string) (net.Addr, error) {
	if r.init == nil {
		return nil, ErrNoInitializer
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	r.mu.Unlock()

	l, err := r.factory.Listen(addr)
	if err != nil {
		return nil, fmt.Errorf("listener: listen %s: %w", addr, err)
	}

	e := &entry{l: l, done: future.NewPromise[struct{}]()}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		l.Close()
		return nil, ErrClosed
	}
	r.listeners = append(r.listeners, e)
	r.mu.Unlock()

	go r.acceptLoop(e)

	logger.Info("开始监听", "addr", l.Addr().String())
	return l.Addr(), nil
}

func (r *Registry) acceptLoop(e *entry) {
	defer func() {
		if err := e.l.Close(); err != nil && !e.closing.Load() {
			logger.Debug("关闭监听器时出错", "addr", e.l.Addr().String(), "error", err)
		}
		e.done.SetSuccess(struct{}{})
	}()

	for {
		conn, err := e.l.Accept()
		if err != nil {
			if e.closing.Load() {
				return
			}
			logger.Debug("Accept 失败", "addr", e.l.Addr().String(), "error", err)
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				time.Sleep(acceptBackoff)
				continue
			}
			return
		}
		go r.accept(conn)
	}
}

func (r *Registry) accept(conn net.Conn) {
	if _, err := r.init.InitChannel(conn, types.DirInbound); err != nil {
		logger.Debug("入站通道初始化失败", "remote", conn.RemoteAddr().String(), "error", err)
		conn.Close()
	}
}

// Addrs 当前监听地址
func (r *Registry) Addrs() []net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]net.Addr, 0, len(r.listeners))
	for _, e := range r.listeners {
		if !e.closing.Load() {
			out = append(out, e.l.Addr())
		}
	}
	return out
}

// CloseAll 关闭所有监听器，幂等
//
// 返回的 Future 在所有 Accept 循环退出后完成。
func (r *Registry) CloseAll() future.Future[[]struct{}] {
	r.mu.Lock()
	r.closed = true
	listeners := make([]*entry, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	dones := make([]future.Future[struct{}], 0, len(listeners))
	for _, e := range listeners {
		if e.closing.CompareAndSwap(false, true) {
			logger.Debug("关闭监听器", "addr", e.l.Addr().String())
			e.l.Close()
		}
		dones = append(dones, e.done)
	}
	return future.Join(dones...)
}
