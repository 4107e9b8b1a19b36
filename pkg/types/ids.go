package types

import (
	"bytes"
	"errors"

	"github.com/google/uuid"

	"github.com/dep2p/go-modnet/pkg/lib/log"
)

// ErrInvalidID 无效的 ID 字符串
var ErrInvalidID = errors.New("invalid id: must be a UUID")

// ============================================================================
//                              PeerID - 节点标识
// ============================================================================

// PeerID 节点唯一标识符
//
// 128 位 UUID，按字节序全序比较。零值表示"未设置"。
// 文本形式为标准 UUID 字符串，JSON 中以字符串出现。
type PeerID uuid.UUID

// EmptyPeerID 空节点 ID
var EmptyPeerID PeerID

// NewPeerID 生成随机 PeerID
func NewPeerID() PeerID {
	return PeerID(uuid.New())
}

// ParsePeerID 从 UUID 字符串解析 PeerID
func ParsePeerID(s string) (PeerID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return EmptyPeerID, ErrInvalidID
	}
	return PeerID(u), nil
}

// MustParsePeerID 解析 PeerID，失败时 panic
//
// 仅用于测试和常量初始化。
func MustParsePeerID(s string) PeerID {
	id, err := ParsePeerID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String 返回标准 UUID 字符串
func (id PeerID) String() string {
	return uuid.UUID(id).String()
}

// ShortString 返回前 8 个字符，用于日志
func (id PeerID) ShortString() string {
	return log.TruncateID(id.String(), 8)
}

// IsEmpty 检查是否为空
func (id PeerID) IsEmpty() bool {
	return id == EmptyPeerID
}

// Compare 全序比较
//
// 返回 -1、0、1。
func (id PeerID) Compare(other PeerID) int {
	return bytes.Compare(id[:], other[:])
}

// IsMasterFor 判断本节点相对 other 是否为主节点
//
// ID 较小的一方为主节点。相等时双方都不是主节点。
func (id PeerID) IsMasterFor(other PeerID) bool {
	return id.Compare(other) < 0
}

// MarshalText 实现 encoding.TextMarshaler
func (id PeerID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// UnmarshalText 实现 encoding.TextUnmarshaler
//
// 空字符串解析为空 ID。
func (id *PeerID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*id = EmptyPeerID
		return nil
	}
	var u uuid.UUID
	if err := u.UnmarshalText(data); err != nil {
		return ErrInvalidID
	}
	*id = PeerID(u)
	return nil
}

// ============================================================================
//                              ApplicationID - 应用标识
// ============================================================================

// ApplicationID 应用作用域标识
//
// DefaultApplicationID（全零）表示不限定应用。
type ApplicationID uuid.UUID

// DefaultApplicationID 默认应用作用域
var DefaultApplicationID ApplicationID

// NewApplicationID 生成随机 ApplicationID
func NewApplicationID() ApplicationID {
	return ApplicationID(uuid.New())
}

// ParseApplicationID 从 UUID 字符串解析 ApplicationID
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return DefaultApplicationID, ErrInvalidID
	}
	return ApplicationID(u), nil
}

// String 返回标准 UUID 字符串
func (id ApplicationID) String() string {
	return uuid.UUID(id).String()
}

// IsDefault 是否为默认作用域
func (id ApplicationID) IsDefault() bool {
	return id == DefaultApplicationID
}

// MarshalText 实现 encoding.TextMarshaler
func (id ApplicationID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (id *ApplicationID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*id = DefaultApplicationID
		return nil
	}
	var u uuid.UUID
	if err := u.UnmarshalText(data); err != nil {
		return ErrInvalidID
	}
	*id = ApplicationID(u)
	return nil
}
