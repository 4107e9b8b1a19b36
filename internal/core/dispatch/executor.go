package dispatch

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	pkgif "github.com/dep2p/go-modnet/pkg/interfaces"
)

var (
	_ pkgif.Executor = SyncExecutor{}
	_ pkgif.Executor = GoExecutor{}
	_ pkgif.Executor = (*PoolExecutor)(nil)
)

// SyncExecutor 在调用方 goroutine 上同步执行
//
// 未指定执行器的处理器使用它，处理期间阻塞该通道的读循环。
type SyncExecutor struct{}

// Execute 实现 Executor
func (SyncExecutor) Execute(task func()) {
	task()
}

// GoExecutor 每个任务一个 goroutine
type GoExecutor struct{}

// Execute 实现 Executor
func (GoExecutor) Execute(task func()) {
	go task()
}

// PoolExecutor 并发数受限的执行器
//
// 并发已满时 Execute 阻塞，对入站通道形成背压。
type PoolExecutor struct {
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewPoolExecutor 创建最多并发 size 个任务的执行器
func NewPoolExecutor(size int) *PoolExecutor {
	if size <= 0 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PoolExecutor{
		sem:    semaphore.NewWeighted(int64(size)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Execute 实现 Executor
//
// 执行器关闭后提交的任务被丢弃。
func (p *PoolExecutor) Execute(task func()) {
	if err := p.sem.Acquire(p.ctx, 1); err != nil {
		logger.Debug("执行器已关闭，丢弃任务")
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		logger.Debug("执行器已关闭，丢弃任务")
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		task()
	}()
}

// Close 拒绝新任务并等待运行中的任务结束
func (p *PoolExecutor) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	return nil
}
