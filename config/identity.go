package config

import (
	"github.com/dep2p/go-modnet/pkg/types"
)

// IdentityConfig 身份配置
type IdentityConfig struct {
	// PeerID 本节点 ID（UUID 字符串）
	//
	// 为空时启动时随机生成。
	PeerID string `json:"peer_id,omitempty"`
}

// DefaultIdentityConfig 返回默认身份配置
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{}
}

// Validate 验证身份配置
func (c IdentityConfig) Validate() error {
	if c.PeerID == "" {
		return nil
	}
	if _, err := types.ParsePeerID(c.PeerID); err != nil {
		return ErrInvalidPeerID
	}
	return nil
}

// ResolvePeerID 返回配置的节点 ID，未配置时随机生成
func (c IdentityConfig) ResolvePeerID() (types.PeerID, error) {
	if c.PeerID == "" {
		return types.NewPeerID(), nil
	}
	id, err := types.ParsePeerID(c.PeerID)
	if err != nil {
		return types.EmptyPeerID, ErrInvalidPeerID
	}
	return id, nil
}
