package future

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dep2p/go-modnet/pkg/lib/log"
)

var logger = log.Logger("lib/future")

// ErrNotDone Future 尚未完成
var ErrNotDone = errors.New("future: not done")

// ============================================================================
//                              接口定义
// ============================================================================

// Future 异步结果的只读视图
type Future[T any] interface {
	// IsDone 是否已完成（成功或失败）
	IsDone() bool

	// IsSuccess 是否已成功完成
	IsSuccess() bool

	// Cause 失败原因，未完成或成功时返回 nil
	Cause() error

	// GetNow 非阻塞获取结果，仅在成功完成时 ok 为 true
	GetNow() (value T, ok bool)

	// AddListener 注册完成监听器
	//
	// 已完成时在调用方 goroutine 同步回调。
	AddListener(l Listener[T])

	// RemoveListener 移除尚未触发的监听器
	RemoveListener(l Listener[T])

	// Done 返回完成时关闭的通道
	Done() <-chan struct{}

	// Await 阻塞直到完成或 ctx 结束
	//
	// 完成时返回 nil（与成功失败无关），ctx 结束时返回 ctx.Err()。
	Await(ctx context.Context) error

	// AwaitTimeout 最多等待 d，返回是否已完成
	AwaitTimeout(d time.Duration) bool

	// Get 阻塞等待并返回结果或失败原因
	Get(ctx context.Context) (T, error)

	// Cancel 不支持取消，恒返回 false
	Cancel() bool
}

// Listener 完成监听器
type Listener[T any] interface {
	OperationComplete(f Future[T])
}

type listenerFunc[T any] struct {
	fn func(Future[T])
}

func (l *listenerFunc[T]) OperationComplete(f Future[T]) {
	l.fn(f)
}

// ListenerFunc 把函数适配为 Listener
//
// 每次调用返回新的实例，RemoveListener 需传入同一个返回值。
func ListenerFunc[T any](fn func(Future[T])) Listener[T] {
	return &listenerFunc[T]{fn: fn}
}

// ============================================================================
//                              Promise 实现
// ============================================================================

// Promise Future 的可写端
type Promise[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	completed bool
	value     T
	cause     error
	listeners []Listener[T]
}

var _ Future[struct{}] = (*Promise[struct{}])(nil)

// NewPromise 创建未完成的 Promise
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{done: make(chan struct{})}
}

// Succeeded 返回已成功完成的 Future
func Succeeded[T any](value T) Future[T] {
	p := NewPromise[T]()
	p.SetSuccess(value)
	return p
}

// Failed 返回已失败的 Future
func Failed[T any](cause error) Future[T] {
	p := NewPromise[T]()
	p.SetFailure(cause)
	return p
}

// SetSuccess 以 value 成功完成
//
// 已完成时返回 false，不改变状态也不重复通知。
func (p *Promise[T]) SetSuccess(value T) bool {
	return p.complete(value, nil)
}

// SetFailure 以 cause 失败完成
//
// cause 为 nil 时 panic。已完成时返回 false。
func (p *Promise[T]) SetFailure(cause error) bool {
	if cause == nil {
		panic("future: SetFailure with nil cause")
	}
	var zero T
	return p.complete(zero, cause)
}

func (p *Promise[T]) complete(value T, cause error) bool {
	p.mu.Lock()
	if p.completed {
		p.mu.Unlock()
		return false
	}
	p.completed = true
	p.value = value
	p.cause = cause
	listeners := p.listeners
	p.listeners = nil
	close(p.done)
	p.mu.Unlock()

	// 锁外通知，监听器内可以安全地再次 AddListener
	for _, l := range listeners {
		p.notify(l)
	}
	return true
}

func (p *Promise[T]) notify(l Listener[T]) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("future listener panicked", "panic", r)
		}
	}()
	l.OperationComplete(p)
}

// IsDone 实现 Future
func (p *Promise[T]) IsDone() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed
}

// IsSuccess 实现 Future
func (p *Promise[T]) IsSuccess() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed && p.cause == nil
}

// Cause 实现 Future
func (p *Promise[T]) Cause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cause
}

// GetNow 实现 Future
func (p *Promise[T]) GetNow() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.completed || p.cause != nil {
		var zero T
		return zero, false
	}
	return p.value, true
}

// AddListener 实现 Future
func (p *Promise[T]) AddListener(l Listener[T]) {
	if l == nil {
		return
	}
	p.mu.Lock()
	if !p.completed {
		p.listeners = append(p.listeners, l)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.notify(l)
}

// RemoveListener 实现 Future
func (p *Promise[T]) RemoveListener(l Listener[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, existing := range p.listeners {
		if existing == l {
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			return
		}
	}
}

// Done 实现 Future
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// Await 实现 Future
func (p *Promise[T]) Await(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AwaitTimeout 实现 Future
func (p *Promise[T]) AwaitTimeout(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.done:
		return true
	case <-t.C:
		return false
	}
}

// Get 实现 Future
func (p *Promise[T]) Get(ctx context.Context) (T, error) {
	if err := p.Await(ctx); err != nil {
		var zero T
		return zero, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.cause
}

// Cancel 实现 Future
func (p *Promise[T]) Cancel() bool {
	return false
}
