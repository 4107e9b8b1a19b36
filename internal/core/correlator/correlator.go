package correlator

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/dep2p/go-modnet/internal/core/metrics"
	"github.com/dep2p/go-modnet/pkg/lib/future"
	"github.com/dep2p/go-modnet/pkg/lib/log"
	"github.com/dep2p/go-modnet/pkg/messages"
)

var logger = log.Logger("core/correlator")

// DefaultTimeout 默认响应超时
const DefaultTimeout = 30 * time.Second

type pending struct {
	promise *future.Promise[messages.Response]
	timer   *clock.Timer
}

// Correlator 待决请求表
type Correlator struct {
	clock   clock.Clock
	timeout time.Duration
	metrics *metrics.Metrics

	mu      sync.Mutex
	pending map[uuid.UUID]*pending
}

// New 创建关联器
//
// clk 为 nil 时使用系统时钟；timeout 非正时使用 DefaultTimeout。
func New(clk clock.Clock, timeout time.Duration, m *metrics.Metrics) *Correlator {
	if clk == nil {
		clk = clock.New()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Correlator{
		clock:   clk,
		timeout: timeout,
		metrics: m,
		pending: make(map[uuid.UUID]*pending),
	}
}

// Timeout 响应超时
func (c *Correlator) Timeout() time.Duration {
	return c.timeout
}

// CreateResponseFuture 为请求 id 登记待决条目
//
// 同一 id 重复登记说明关联 ID 生成有误，直接 panic。
func (c *Correlator) CreateResponseFuture(id uuid.UUID) future.Future[messages.Response] {
	p := future.NewPromise[messages.Response]()

	c.mu.Lock()
	if _, exists := c.pending[id]; exists {
		c.mu.Unlock()
		panic(fmt.Sprintf("correlator: duplicate correlation id %s", id))
	}
	entry := &pending{promise: p}
	c.pending[id] = entry
	entry.timer = c.clock.AfterFunc(c.timeout, func() {
		if c.SetFailure(id, ErrTimeout) {
			c.metrics.RequestTimedOut()
			logger.Debug("请求超时", "id", id.String(), "timeout", c.timeout)
		}
	})
	c.mu.Unlock()

	c.metrics.RequestSent()
	return p
}

// SetSuccess 以 resp 完成其 SourceID 对应的请求
//
// 没有对应条目（已超时或重复响应）时返回 false，无副作用。
func (c *Correlator) SetSuccess(resp messages.Response) bool {
	entry := c.take(resp.SourceID())
	if entry == nil {
		logger.Debug("丢弃无对应请求的响应", "source", resp.SourceID().String())
		return false
	}
	return entry.promise.SetSuccess(resp)
}

// SetFailure 以 cause 使请求 id 失败
func (c *Correlator) SetFailure(id uuid.UUID, cause error) bool {
	entry := c.take(id)
	if entry == nil {
		return false
	}
	return entry.promise.SetFailure(cause)
}

func (c *Correlator) take(id uuid.UUID) *pending {
	c.mu.Lock()
	entry, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !ok {
		return nil
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	return entry
}

// IsPending 请求 id 是否仍在等待
func (c *Correlator) IsPending(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[id]
	return ok
}

// Pending 待决请求数
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// FailAll 以 cause 使所有待决请求失败，返回失败的数量
func (c *Correlator) FailAll(cause error) int {
	c.mu.Lock()
	ids := make([]uuid.UUID, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	n := 0
	for _, id := range ids {
		if c.SetFailure(id, cause) {
			n++
		}
	}
	return n
}
