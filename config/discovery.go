package config

import (
	"net"
	"time"
)

// DefaultBeaconGroup 默认组播地址
const DefaultBeaconGroup = "239.255.77.77:5566"

// DiscoveryConfig 节点发现配置
type DiscoveryConfig struct {
	// EnableBeacon 启用 UDP 组播信标
	EnableBeacon bool `json:"enable_beacon"`

	// BeaconGroup 组播组地址
	BeaconGroup string `json:"beacon_group"`

	// BeaconInterval 信标发送间隔
	BeaconInterval Duration `json:"beacon_interval"`

	// AnnounceAddrs 信标中公布的地址，为空时使用实际监听地址
	AnnounceAddrs []string `json:"announce_addrs,omitempty"`

	// DialSuppression 同一地址的重复拨号抑制窗口
	DialSuppression Duration `json:"dial_suppression"`
}

// DefaultDiscoveryConfig 返回默认发现配置
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		EnableBeacon:    false,
		BeaconGroup:     DefaultBeaconGroup,
		BeaconInterval:  Duration(5 * time.Second),
		DialSuppression: Duration(3 * time.Second),
	}
}

// Validate 验证发现配置
func (c DiscoveryConfig) Validate() error {
	if c.DialSuppression < 0 {
		return ErrInvalidTimeout
	}
	if !c.EnableBeacon {
		return nil
	}
	if c.BeaconInterval <= 0 {
		return ErrInvalidInterval
	}
	addr, err := net.ResolveUDPAddr("udp4", c.BeaconGroup)
	if err != nil || !addr.IP.IsMulticast() {
		return ErrInvalidBeaconGroup
	}
	return nil
}

// PeerExchangeConfig 节点交换配置
type PeerExchangeConfig struct {
	// Enable 启用节点交换
	Enable bool `json:"enable"`
}

// DefaultPeerExchangeConfig 返回默认节点交换配置
func DefaultPeerExchangeConfig() PeerExchangeConfig {
	return PeerExchangeConfig{Enable: true}
}
