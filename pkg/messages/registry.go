package messages

import (
	"fmt"
	"sync"
)

// Factory 创建零值消息，用于解码
type Factory func() Message

type kindEntry struct {
	parent  Kind
	factory Factory
	chain   []Kind
}

// Registry 消息类型注册表
//
// 同一个协议初始化器创建的所有通道共享一个 Registry。
// 并发安全，注册可以发生在通道建立之前或之后。
type Registry struct {
	mu    sync.RWMutex
	kinds map[Kind]*kindEntry
}

// NewRegistry 创建包含内置类型的注册表
func NewRegistry() *Registry {
	r := &Registry{kinds: make(map[Kind]*kindEntry)}
	r.kinds[KindMessage] = &kindEntry{chain: []Kind{KindMessage}}

	r.MustRegister(KindResponse, KindMessage, nil)
	r.MustRegister(KindApplication, KindMessage, nil)
	r.MustRegister(KindDefaultResponse, KindResponse, func() Message { return &DefaultResponse{} })
	r.MustRegister(KindHello, KindMessage, func() Message { return &Hello{} })
	r.MustRegister(KindConnectionEstablished, KindMessage, func() Message { return &ConnectionEstablished{} })
	r.MustRegister(KindPeers, KindMessage, func() Message { return &Peers{} })
	r.MustRegister(KindBeacon, KindMessage, func() Message { return &Beacon{} })
	return r
}

// Register 注册消息类型
//
// factory 为 nil 表示抽象类型，只能作为父类型和处理器回退目标。
// response 之下的类型必须产出 Response，application 之下的类型
// 必须产出 ApplicationMessage。
func (r *Registry) Register(kind, parent Kind, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.kinds[kind]; ok {
		return fmt.Errorf("%w: %s", ErrKindExists, kind)
	}
	p, ok := r.kinds[parent]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParent, parent)
	}

	chain := make([]Kind, 0, len(p.chain)+1)
	chain = append(chain, kind)
	chain = append(chain, p.chain...)

	if factory != nil {
		if err := checkFactory(kind, chain, factory); err != nil {
			return err
		}
	}

	r.kinds[kind] = &kindEntry{parent: parent, factory: factory, chain: chain}
	return nil
}

func checkFactory(kind Kind, chain []Kind, factory Factory) error {
	m := factory()
	if m == nil || m.MessageKind() != kind {
		return fmt.Errorf("%w: %s", ErrKindMismatch, kind)
	}
	for _, k := range chain {
		switch k {
		case KindResponse:
			if _, ok := m.(Response); !ok {
				return fmt.Errorf("%w: %s is not a response", ErrKindMismatch, kind)
			}
		case KindApplication:
			if _, ok := m.(ApplicationMessage); !ok {
				return fmt.Errorf("%w: %s is not an application message", ErrKindMismatch, kind)
			}
		}
	}
	return nil
}

// MustRegister 注册消息类型，失败时 panic
//
// 重复定义消息类型属于编程错误。
func (r *Registry) MustRegister(kind, parent Kind, factory Factory) {
	if err := r.Register(kind, parent, factory); err != nil {
		panic(err)
	}
}

// New 按类型创建零值消息
func (r *Registry) New(kind Kind) (Message, error) {
	r.mu.RLock()
	e, ok := r.kinds[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if e.factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrAbstractKind, kind)
	}
	return e.factory(), nil
}

// Chain 返回回退链 [kind, parent, ..., message]
//
// 未注册的类型返回 nil。返回值是副本。
func (r *Registry) Chain(kind Kind) []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.kinds[kind]
	if !ok {
		return nil
	}
	out := make([]Kind, len(e.chain))
	copy(out, e.chain)
	return out
}

// Known 类型是否已注册
func (r *Registry) Known(kind Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.kinds[kind]
	return ok
}

// IsA kind 是否为 ancestor 或其后代
func (r *Registry) IsA(kind, ancestor Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.kinds[kind]
	if !ok {
		return false
	}
	for _, k := range e.chain {
		if k == ancestor {
			return true
		}
	}
	return false
}
