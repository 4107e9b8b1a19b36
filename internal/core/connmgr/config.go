package connmgr

import (
	"fmt"
	"time"

	"github.com/dep2p/go-modnet/config"
	"github.com/dep2p/go-modnet/pkg/types"
)

// Config 连接管理器配置
type Config struct {
	// LocalID 本节点 ID，为空时随机生成
	LocalID types.PeerID

	// ListenAddrs 启动时监听的地址
	ListenAddrs []string

	// MaxFrameSize 本端可接收的最大帧
	MaxFrameSize int

	// RequestTimeout 等待响应的超时
	RequestTimeout time.Duration

	// HandlerWorkers 共享处理器执行器的并发上限
	//
	// 0 表示 Executor 返回同步执行器。
	HandlerWorkers int

	// DialTimeout 发现触发的拨号超时
	DialTimeout time.Duration

	// DialSuppression 同一地址两次发现拨号的最小间隔
	DialSuppression time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		MaxFrameSize:    config.DefaultMaxFrameSize,
		RequestTimeout:  30 * time.Second,
		HandlerWorkers:  64,
		DialTimeout:     10 * time.Second,
		DialSuppression: 3 * time.Second,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.MaxFrameSize <= 0 {
		return fmt.Errorf("%w: max frame size %d", ErrInvalidConfig, c.MaxFrameSize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout %s", ErrInvalidConfig, c.RequestTimeout)
	}
	if c.HandlerWorkers < 0 {
		return fmt.Errorf("%w: handler workers %d", ErrInvalidConfig, c.HandlerWorkers)
	}
	if c.DialTimeout < 0 || c.DialSuppression < 0 {
		return fmt.Errorf("%w: negative dial timing", ErrInvalidConfig)
	}
	return nil
}

// ConfigFromUnified 从统一配置创建连接管理配置
func ConfigFromUnified(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return DefaultConfig(), nil
	}
	id, err := cfg.Identity.ResolvePeerID()
	if err != nil {
		return Config{}, err
	}
	def := DefaultConfig()
	out := Config{
		LocalID:         id,
		ListenAddrs:     cfg.Transport.ListenAddrs,
		MaxFrameSize:    cfg.Transport.MaxFrameSize,
		RequestTimeout:  cfg.Messaging.RequestTimeout.Duration(),
		HandlerWorkers:  cfg.Messaging.HandlerWorkers,
		DialTimeout:     cfg.Transport.DialTimeout.Duration(),
		DialSuppression: cfg.Discovery.DialSuppression.Duration(),
	}
	if out.RequestTimeout == 0 {
		out.RequestTimeout = def.RequestTimeout
	}
	if out.MaxFrameSize == 0 {
		out.MaxFrameSize = def.MaxFrameSize
	}
	return out, nil
}
