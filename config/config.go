// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 加载和保存配置
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Transport.ListenAddrs = []string{"0.0.0.0:7000"}
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
//
//	// 从文件加载
//	cfg, err := config.LoadFile("modnet.json")
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// Config 是 modnet 的完整配置结构
//
// 配置按照功能模块组织：
//   - Identity: 节点身份
//   - Transport: 监听、拨号与帧大小
//   - Messaging: 请求超时与处理器并发
//   - Discovery: 组播信标发现
//   - PeerExchange: 节点交换
//   - Metrics: 监控指标
type Config struct {
	// Identity 身份配置
	Identity IdentityConfig `json:"identity"`

	// Transport 传输层配置
	Transport TransportConfig `json:"transport"`

	// Messaging 消息传递配置
	Messaging MessagingConfig `json:"messaging"`

	// Discovery 节点发现配置
	Discovery DiscoveryConfig `json:"discovery"`

	// PeerExchange 节点交换配置
	PeerExchange PeerExchangeConfig `json:"peer_exchange"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Identity:     DefaultIdentityConfig(),
		Transport:    DefaultTransportConfig(),
		Messaging:    DefaultMessagingConfig(),
		Discovery:    DefaultDiscoveryConfig(),
		PeerExchange: DefaultPeerExchangeConfig(),
		Metrics:      DefaultMetricsConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if err := c.Identity.Validate(); err != nil {
		return err
	}
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	if err := c.Messaging.Validate(); err != nil {
		return err
	}
	if err := c.Discovery.Validate(); err != nil {
		return err
	}
	return c.Metrics.Validate()
}

// FromJSON 从 JSON 解析配置
//
// 未出现的字段保留默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile 从 JSON 文件加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return FromJSON(data)
}

// ToJSON 序列化配置
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
