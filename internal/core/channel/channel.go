package channel

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-modnet/internal/core/codec"
	"github.com/dep2p/go-modnet/internal/core/metrics"
	"github.com/dep2p/go-modnet/pkg/lib/future"
	"github.com/dep2p/go-modnet/pkg/lib/log"
	"github.com/dep2p/go-modnet/pkg/messages"
	"github.com/dep2p/go-modnet/pkg/types"
)

var logger = log.Logger("core/channel")

var nextChannelID atomic.Uint64

// ============================================================================
//                              状态
// ============================================================================

// State 通道握手状态
type State int

const (
	// StateConnected 传输层已连接，尚未收到有效 Hello
	StateConnected State = iota
	// StateIdentityExchanged 已记录远端 ID
	StateIdentityExchanged
	// StateActive 已激活（终态）
	StateActive
	// StateClosed 已关闭（终态）
	StateClosed
)

// String 返回状态名
func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateIdentityExchanged:
		return "identity-exchanged"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              入站处理
// ============================================================================

// InboundHandler 入站消息处理器
//
// 同一通道的消息按接收顺序在读 goroutine 上逐条回调。
type InboundHandler interface {
	HandleInbound(ch *Channel, m messages.Message)
}

// InboundHandlerFunc 把函数适配为 InboundHandler
type InboundHandlerFunc func(ch *Channel, m messages.Message)

// HandleInbound 实现 InboundHandler
func (f InboundHandlerFunc) HandleInbound(ch *Channel, m messages.Message) {
	f(ch, m)
}

// ============================================================================
//                              Channel
// ============================================================================

// Config 通道配置
type Config struct {
	// Codec 共享编解码器
	Codec *codec.Codec

	// MaxFrameSize 本端可接收的最大帧
	MaxFrameSize int

	// Metrics 指标，可为 nil
	Metrics *metrics.Metrics
}

type outbound struct {
	payload []byte
	promise *future.Promise[struct{}]
}

// Channel 双向字节流通道
//
// 通道身份是其句柄 ID，而不是远端节点：同一节点可能短暂存在多个通道。
type Channel struct {
	id        uint64
	conn      net.Conn
	dir       types.Direction
	codec     *codec.Codec
	metrics   *metrics.Metrics
	readLimit int

	remoteLimit atomic.Int64
	helloSeen   atomic.Bool
	registry    atomic.Pointer[Registry]

	// 以下字段由所属 Registry 的锁保护
	remote    types.PeerID
	hasRemote bool
	active    bool

	wmu     sync.Mutex
	queue   []outbound
	wclosed bool
	wakeup  chan struct{}

	closeOnce sync.Once
	closing   chan struct{}
	cause     error
	closed    *future.Promise[struct{}]
}

// New 包装 conn 并启动写 goroutine
//
// 读循环由 Start 启动。调用方应先将通道加入 Registry 再调用 Start。
func New(conn net.Conn, dir types.Direction, cfg Config) *Channel {
	c := &Channel{
		id:        nextChannelID.Add(1),
		conn:      conn,
		dir:       dir,
		codec:     cfg.Codec,
		metrics:   cfg.Metrics,
		readLimit: codec.EffectiveLimit(cfg.MaxFrameSize),
		wakeup:    make(chan struct{}, 1),
		closing:   make(chan struct{}),
		closed:    future.NewPromise[struct{}](),
	}
	go c.writeLoop()
	return c
}

// ID 通道句柄
func (c *Channel) ID() uint64 {
	return c.id
}

// Direction 连接方向
func (c *Channel) Direction() types.Direction {
	return c.dir
}

// RemoteAddr 远端地址
func (c *Channel) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// LocalAddr 本端地址
func (c *Channel) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// String 用于日志
func (c *Channel) String() string {
	return fmt.Sprintf("channel#%d(%s %s)", c.id, c.dir, c.conn.RemoteAddr())
}

// MaxFrameSize 本端可接收的最大帧
func (c *Channel) MaxFrameSize() int {
	return c.readLimit
}

// SetRemoteFrameSize 记录远端可接收的最大帧，非正值忽略
func (c *Channel) SetRemoteFrameSize(n int) {
	if n > 0 {
		c.remoteLimit.Store(int64(n))
	}
}

func (c *Channel) writeLimit() int {
	if n := c.remoteLimit.Load(); n > 0 {
		return codec.EffectiveLimit(int(n))
	}
	return codec.MaxWireFrame
}

// MarkHelloReceived 记录收到 Hello，仅第一次返回 true
func (c *Channel) MarkHelloReceived() bool {
	return c.helloSeen.CompareAndSwap(false, true)
}

// RemoteID 远端节点 ID
func (c *Channel) RemoteID() (types.PeerID, bool) {
	r := c.registry.Load()
	if r == nil {
		return types.EmptyPeerID, false
	}
	return r.RemoteID(c)
}

// State 当前握手状态
func (c *Channel) State() State {
	if c.IsClosed() {
		return StateClosed
	}
	r := c.registry.Load()
	if r == nil {
		return StateConnected
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case c.active:
		return StateActive
	case c.hasRemote:
		return StateIdentityExchanged
	default:
		return StateConnected
	}
}

// ============================================================================
//                              写路径
// ============================================================================

// Send 编码并排队发送消息
//
// 不阻塞。返回的 Future 在帧写出后成功，编码失败、帧过大、
// 写失败或通道关闭时失败。同一通道上的消息按调用顺序写出。
func (c *Channel) Send(m messages.Message) future.Future[struct{}] {
	payload, err := c.codec.Encode(m)
	if err != nil {
		return future.Failed[struct{}](err)
	}
	if limit := c.writeLimit(); len(payload) > limit {
		return future.Failed[struct{}](fmt.Errorf("%w: %d > %d", codec.ErrFrameTooLarge, len(payload), limit))
	}

	p := future.NewPromise[struct{}]()
	c.wmu.Lock()
	if c.wclosed {
		c.wmu.Unlock()
		return future.Failed[struct{}](ErrChannelClosed)
	}
	c.queue = append(c.queue, outbound{payload: payload, promise: p})
	c.wmu.Unlock()

	select {
	case c.wakeup <- struct{}{}:
	default:
	}
	return p
}

func (c *Channel) writeLoop() {
	for {
		select {
		case <-c.wakeup:
		case <-c.closing:
			return
		}

		for {
			c.wmu.Lock()
			if c.wclosed || len(c.queue) == 0 {
				c.wmu.Unlock()
				break
			}
			batch := c.queue
			c.queue = nil
			c.wmu.Unlock()

			for i, o := range batch {
				if err := codec.WriteFrame(c.conn, o.payload, codec.MaxWireFrame); err != nil {
					if c.IsClosed() {
						err = fmt.Errorf("%w: %v", ErrChannelClosed, err)
					}
					o.promise.SetFailure(err)
					for _, rest := range batch[i+1:] {
						rest.promise.SetFailure(ErrChannelClosed)
					}
					logger.Debug("写入失败，关闭通道", "channel", c.String(), "err", err)
					c.closeWithCause(err)
					return
				}
				c.metrics.LogSentMessage(int64(len(o.payload)))
				o.promise.SetSuccess(struct{}{})
			}
		}
	}
}

// ============================================================================
//                              读路径
// ============================================================================

// Start 启动读循环
func (c *Channel) Start(h InboundHandler) {
	go c.readLoop(h)
}

func (c *Channel) readLoop(h InboundHandler) {
	r := bufio.NewReader(c.conn)
	for {
		payload, err := codec.ReadFrame(r, c.readLimit)
		if err != nil {
			switch {
			case errors.Is(err, codec.ErrFrameTooLarge):
				logger.Warn("帧超过上限，关闭通道", "channel", c.String(), "err", err)
				c.metrics.ProtocolViolation("frame_too_large")
			case errors.Is(err, io.EOF), c.IsClosed():
				logger.Debug("通道读结束", "channel", c.String())
			default:
				logger.Debug("读取失败，关闭通道", "channel", c.String(), "err", err)
			}
			c.closeWithCause(err)
			return
		}
		c.metrics.LogRecvMessage(int64(len(payload)))

		m, err := c.codec.Decode(payload)
		if err != nil {
			logger.Warn("解码失败，关闭通道", "channel", c.String(), "err", err)
			c.metrics.ProtocolViolation("decode")
			c.closeWithCause(err)
			return
		}

		c.deliver(h, m)
		if c.IsClosed() {
			return
		}
	}
}

func (c *Channel) deliver(h InboundHandler, m messages.Message) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("入站处理 panic", "channel", c.String(), "kind", m.MessageKind(), "panic", r)
		}
	}()
	h.HandleInbound(c, m)
}

// ============================================================================
//                              关闭
// ============================================================================

// Close 关闭通道
//
// 幂等。排队中尚未写出的消息以 ErrChannelClosed 失败。
func (c *Channel) Close() error {
	return c.closeWithCause(ErrChannelClosed)
}

// CloseWithError 以 cause 为原因关闭通道
func (c *Channel) CloseWithError(cause error) error {
	if cause == nil {
		cause = ErrChannelClosed
	}
	return c.closeWithCause(cause)
}

func (c *Channel) closeWithCause(cause error) error {
	var err error
	c.closeOnce.Do(func() {
		c.wmu.Lock()
		c.wclosed = true
		pending := c.queue
		c.queue = nil
		c.wmu.Unlock()

		c.cause = cause
		close(c.closing)
		err = c.conn.Close()

		for _, o := range pending {
			o.promise.SetFailure(ErrChannelClosed)
		}
		c.closed.SetSuccess(struct{}{})
	})
	return err
}

// IsClosed 是否已关闭
func (c *Channel) IsClosed() bool {
	select {
	case <-c.closing:
		return true
	default:
		return false
	}
}

// CloseFuture 通道关闭时完成的 Future
func (c *Channel) CloseFuture() future.Future[struct{}] {
	return c.closed
}

// Cause 关闭原因，未关闭时返回 nil
func (c *Channel) Cause() error {
	if !c.IsClosed() {
		return nil
	}
	return c.cause
}
