package codec

import (
	"bytes"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/dep2p/go-modnet/pkg/messages"
)

// Codec 带类型判别字段的 JSON 编解码器
//
// 由协议初始化器创建，所有通道共享。
type Codec struct {
	registry *messages.Registry

	mu       sync.RWMutex
	adapters map[messages.Kind]messages.Adapter
}

// New 创建 Codec
func New(registry *messages.Registry) *Codec {
	return &Codec{
		registry: registry,
		adapters: make(map[messages.Kind]messages.Adapter),
	}
}

// Registry 返回消息类型注册表
func (c *Codec) Registry() *messages.Registry {
	return c.registry
}

// RegisterAdapter 为 kind 注册自定义 Adapter
//
// 传入 nil 移除已有 Adapter。
func (c *Codec) RegisterAdapter(kind messages.Kind, a messages.Adapter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a == nil {
		delete(c.adapters, kind)
		return
	}
	c.adapters[kind] = a
}

func (c *Codec) adapter(kind messages.Kind) messages.Adapter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.adapters[kind]
}

// Encode 编码消息为 payload
func (c *Codec) Encode(m messages.Message) ([]byte, error) {
	if m == nil {
		return nil, ErrNilMessage
	}
	kind := m.MessageKind()

	var (
		body []byte
		err  error
	)
	if a := c.adapter(kind); a != nil {
		body, err = a.MarshalMessage(m)
	} else {
		body, err = json.Marshal(m)
	}
	if err != nil {
		return nil, fmt.Errorf("codec: encode %s: %w", kind, err)
	}

	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' || body[len(body)-1] != '}' {
		return nil, fmt.Errorf("%w: %s did not encode to an object", ErrMalformed, kind)
	}

	tag, err := json.Marshal(string(kind))
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(body)+len(tag)+9)
	out = append(out, `{"type":`...)
	out = append(out, tag...)
	inner := bytes.TrimSpace(body[1 : len(body)-1])
	if len(inner) > 0 {
		out = append(out, ',')
		out = append(out, inner...)
	}
	out = append(out, '}')
	return out, nil
}

type header struct {
	Type messages.Kind `json:"type"`
}

// Decode 解码 payload 为消息
func (c *Codec) Decode(payload []byte) (messages.Message, error) {
	if !utf8.Valid(payload) {
		return nil, fmt.Errorf("%w: invalid utf-8", ErrMalformed)
	}
	var h header
	if err := json.Unmarshal(payload, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if h.Type == "" {
		return nil, ErrMissingType
	}

	if a := c.adapter(h.Type); a != nil {
		m, err := a.UnmarshalMessage(payload)
		if err != nil {
			return nil, fmt.Errorf("codec: decode %s: %w", h.Type, err)
		}
		return m, nil
	}

	m, err := c.registry.New(h.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, h.Type, err)
	}
	return m, nil
}
