package beacon

import (
	"fmt"
	"net"
	"time"

	"github.com/dep2p/go-modnet/config"
)

// Config 信标配置
type Config struct {
	// Enabled 是否启用
	Enabled bool

	// Group 信标发送的目标地址，通常为组播组
	Group string

	// ListenAddr 接收信标的本地地址，为空时绑定 0.0.0.0 上与 Group 相同的端口
	ListenAddr string

	// Interval 发送间隔
	Interval time.Duration

	// AnnounceAddrs 公布的地址，为空时使用节点的监听地址
	AnnounceAddrs []string

	// TTL 组播跳数
	TTL int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Enabled:  false,
		Group:    config.DefaultBeaconGroup,
		Interval: 5 * time.Second,
		TTL:      1,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("beacon: invalid interval %s", c.Interval)
	}
	if _, err := net.ResolveUDPAddr("udp4", c.Group); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGroup, err)
	}
	return nil
}

// ConfigFromUnified 从统一配置创建信标配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	c := DefaultConfig()
	c.Enabled = cfg.Discovery.EnableBeacon
	c.Group = cfg.Discovery.BeaconGroup
	c.Interval = cfg.Discovery.BeaconInterval.Duration()
	c.AnnounceAddrs = cfg.Discovery.AnnounceAddrs
	return c
}
