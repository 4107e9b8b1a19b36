package messages

import (
	"github.com/google/uuid"

	"github.com/dep2p/go-modnet/pkg/types"
)

// Kind 消息类型标识
type Kind string

// 内置消息类型
const (
	KindMessage               Kind = "message"
	KindResponse              Kind = "response"
	KindDefaultResponse       Kind = "default_response"
	KindApplication           Kind = "application"
	KindHello                 Kind = "hello"
	KindConnectionEstablished Kind = "connection_established"
	KindPeers                 Kind = "peers"
	KindBeacon                Kind = "beacon"
)

// String 返回类型名
func (k Kind) String() string {
	return string(k)
}

// ============================================================================
//                              消息接口
// ============================================================================

// Message 所有消息的公共接口
type Message interface {
	// MessageKind 返回消息类型
	MessageKind() Kind

	// MessageID 返回构造时分配的关联 ID
	MessageID() uuid.UUID
}

// Response 响应消息
//
// SourceID 指向被响应请求的 MessageID。
type Response interface {
	Message
	SourceID() uuid.UUID
	SetSourceID(id uuid.UUID)
}

// ApplicationMessage 限定应用作用域的消息
type ApplicationMessage interface {
	Message
	ApplicationID() types.ApplicationID
}

// ============================================================================
//                              公共字段
// ============================================================================

// Base 消息公共字段
type Base struct {
	ID uuid.UUID `json:"uuid"`
}

// NewBase 分配新的关联 ID
func NewBase() Base {
	return Base{ID: uuid.New()}
}

// MessageID 实现 Message
func (b *Base) MessageID() uuid.UUID {
	return b.ID
}

// ResponseBase 响应公共字段
type ResponseBase struct {
	Base
	Source uuid.UUID `json:"sourceuuid"`
}

// NewResponseBase 创建指向 source 的响应字段
func NewResponseBase(source uuid.UUID) ResponseBase {
	return ResponseBase{Base: NewBase(), Source: source}
}

// SourceID 实现 Response
func (r *ResponseBase) SourceID() uuid.UUID {
	return r.Source
}

// SetSourceID 实现 Response
func (r *ResponseBase) SetSourceID(id uuid.UUID) {
	r.Source = id
}

// ApplicationBase 应用消息公共字段
type ApplicationBase struct {
	Base
	AppID types.ApplicationID `json:"appid"`
}

// NewApplicationBase 创建指定应用作用域的消息字段
func NewApplicationBase(app types.ApplicationID) ApplicationBase {
	return ApplicationBase{Base: NewBase(), AppID: app}
}

// ApplicationID 实现 ApplicationMessage
func (a *ApplicationBase) ApplicationID() types.ApplicationID {
	return a.AppID
}
