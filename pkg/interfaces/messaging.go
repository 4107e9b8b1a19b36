package interfaces

import (
	"context"

	"github.com/dep2p/go-modnet/pkg/messages"
	"github.com/dep2p/go-modnet/pkg/types"
)

// MessageHandler 消息处理器
//
// 处理器可能被并发调用。返回 nil 响应或错误时，
// 发送方收到空的默认响应。
type MessageHandler interface {
	HandleMessage(ctx context.Context, from types.PeerID, m messages.Message) (messages.Response, error)
}

// HandlerFunc 把函数适配为 MessageHandler
type HandlerFunc func(ctx context.Context, from types.PeerID, m messages.Message) (messages.Response, error)

// HandleMessage 实现 MessageHandler
func (f HandlerFunc) HandleMessage(ctx context.Context, from types.PeerID, m messages.Message) (messages.Response, error) {
	return f(ctx, from, m)
}

// Executor 处理器执行器
type Executor interface {
	Execute(task func())
}

// HandlerOptions 处理器注册选项
type HandlerOptions struct {
	// Application 限定应用作用域，默认值表示不限定
	Application types.ApplicationID

	// Executor 执行器，nil 表示在调用方 goroutine 同步执行
	Executor Executor
}

// HandlerOption 处理器注册选项函数
type HandlerOption func(*HandlerOptions)

// WithApplication 限定处理器的应用作用域
func WithApplication(app types.ApplicationID) HandlerOption {
	return func(o *HandlerOptions) {
		o.Application = app
	}
}

// WithExecutor 指定处理器执行器
func WithExecutor(e Executor) HandlerOption {
	return func(o *HandlerOptions) {
		o.Executor = e
	}
}

// ApplyHandlerOptions 合并选项
func ApplyHandlerOptions(opts ...HandlerOption) HandlerOptions {
	var o HandlerOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
