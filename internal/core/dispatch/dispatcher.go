package dispatch

import (
	"context"
	"fmt"

	"github.com/dep2p/go-modnet/internal/core/correlator"
	"github.com/dep2p/go-modnet/internal/core/metrics"
	"github.com/dep2p/go-modnet/pkg/lib/future"
	"github.com/dep2p/go-modnet/pkg/lib/log"
	"github.com/dep2p/go-modnet/pkg/messages"
	"github.com/dep2p/go-modnet/pkg/types"
)

var logger = log.Logger("core/dispatch")

// Replier 回送响应的通道
type Replier interface {
	Send(m messages.Message) future.Future[struct{}]
}

// Dispatcher 入站消息分发器
type Dispatcher struct {
	handlers   *Registry
	correlator *correlator.Correlator
	metrics    *metrics.Metrics
}

// NewDispatcher 创建分发器，m 可为 nil
func NewDispatcher(handlers *Registry, c *correlator.Correlator, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{handlers: handlers, correlator: c, metrics: m}
}

// Dispatch 分发来自 from 的消息 m
//
// 响应交给关联器；其他消息在处理器的执行器上处理，结果经 reply 回送。
// 处理器找不到、返回 nil、返回错误或 panic 时回送空响应，发送方
// 总会收到回复。
func (d *Dispatcher) Dispatch(ctx context.Context, from types.PeerID, m messages.Message, reply Replier) {
	if resp, ok := m.(messages.Response); ok {
		d.correlator.SetSuccess(resp)
		return
	}

	entry, ok := d.handlers.Lookup(m)
	if !ok {
		logger.Debug("没有处理器，回送空响应", "kind", m.MessageKind(), "from", from.ShortString())
		d.respond(reply, m, nil)
		return
	}

	entry.Executor.Execute(func() {
		resp, err := d.invoke(ctx, entry, from, m)
		if err != nil {
			d.metrics.HandlerFailed()
			logger.Warn("处理器失败，回送空响应", "kind", m.MessageKind(), "from", from.ShortString(), "err", err)
			resp = nil
		}
		d.respond(reply, m, resp)
	})
}

func (d *Dispatcher) invoke(ctx context.Context, entry Entry, from types.PeerID, m messages.Message) (resp messages.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return entry.Handler.HandleMessage(ctx, from, m)
}

func (d *Dispatcher) respond(reply Replier, m messages.Message, resp messages.Response) {
	if resp == nil {
		resp = messages.NewDefaultResponse(m.MessageID())
	} else {
		resp.SetSourceID(m.MessageID())
	}
	reply.Send(resp).AddListener(future.ListenerFunc(func(f future.Future[struct{}]) {
		if !f.IsSuccess() {
			logger.Debug("回送响应失败", "kind", m.MessageKind(), "err", f.Cause())
		}
	}))
}
