package dispatch

import (
	"sync"

	pkgif "github.com/dep2p/go-modnet/pkg/interfaces"
	"github.com/dep2p/go-modnet/pkg/messages"
	"github.com/dep2p/go-modnet/pkg/types"
)

// Entry 已注册的处理器及其执行器
type Entry struct {
	Handler  pkgif.MessageHandler
	Executor pkgif.Executor
}

type kindHandlers struct {
	def   *Entry
	byApp map[types.ApplicationID]*Entry
}

// Registry 处理器注册表
type Registry struct {
	kinds *messages.Registry

	mu       sync.RWMutex
	handlers map[messages.Kind]*kindHandlers
}

// NewRegistry 创建处理器注册表
//
// kinds 提供父类型链，与编解码器共用同一个消息注册表。
func NewRegistry(kinds *messages.Registry) *Registry {
	return &Registry{
		kinds:    kinds,
		handlers: make(map[messages.Kind]*kindHandlers),
	}
}

// Add 为 kind 注册处理器
//
// 同一 kind 与应用作用域重复注册时覆盖旧处理器。
func (r *Registry) Add(kind messages.Kind, h pkgif.MessageHandler, opts ...pkgif.HandlerOption) {
	o := pkgif.ApplyHandlerOptions(opts...)
	exec := o.Executor
	if exec == nil {
		exec = SyncExecutor{}
	}
	e := &Entry{Handler: h, Executor: exec}

	r.mu.Lock()
	defer r.mu.Unlock()

	kh := r.handlers[kind]
	if kh == nil {
		kh = &kindHandlers{byApp: make(map[types.ApplicationID]*Entry)}
		r.handlers[kind] = kh
	}
	if o.Application.IsDefault() {
		if kh.def != nil {
			logger.Info("覆盖已注册的处理器", "kind", kind)
		}
		kh.def = e
		return
	}
	if _, exists := kh.byApp[o.Application]; exists {
		logger.Info("覆盖已注册的处理器", "kind", kind, "app", o.Application.String())
	}
	kh.byApp[o.Application] = e
}

// Remove 注销 kind 在 app 作用域下的处理器，app 为默认值时注销默认处理器
func (r *Registry) Remove(kind messages.Kind, app types.ApplicationID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kh := r.handlers[kind]
	if kh == nil {
		return
	}
	if app.IsDefault() {
		kh.def = nil
	} else {
		delete(kh.byApp, app)
	}
	if kh.def == nil && len(kh.byApp) == 0 {
		delete(r.handlers, kind)
	}
}

// Lookup 为 m 查找处理器
//
// 应用消息在每一级先找应用专属处理器，再找默认处理器；
// 其他消息只找默认处理器。
func (r *Registry) Lookup(m messages.Message) (Entry, bool) {
	var app types.ApplicationID
	if am, ok := m.(messages.ApplicationMessage); ok {
		app = am.ApplicationID()
	}

	chain := r.kinds.Chain(m.MessageKind())
	if chain == nil {
		chain = []messages.Kind{m.MessageKind(), messages.KindMessage}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, kind := range chain {
		kh := r.handlers[kind]
		if kh == nil {
			continue
		}
		if !app.IsDefault() {
			if e, ok := kh.byApp[app]; ok {
				return *e, true
			}
		}
		if kh.def != nil {
			return *kh.def, true
		}
	}
	return Entry{}, false
}

// Kinds 已注册处理器的类型
func (r *Registry) Kinds() []messages.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]messages.Kind, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	return out
}
