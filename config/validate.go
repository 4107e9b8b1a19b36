package config

import "errors"

// ValidateAll 验证整个配置的有效性
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// ValidateAndFix 验证配置并修复可自动修复的问题
//
//   - 非正的帧大小恢复默认值
//   - 负的超时恢复默认值
//   - 启用信标但组地址为空时使用默认组
//   - 启用指标但命名空间为空时使用默认命名空间
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	if c.Transport.MaxFrameSize <= 0 {
		c.Transport.MaxFrameSize = DefaultMaxFrameSize
	}
	if c.Transport.DialTimeout < 0 {
		c.Transport.DialTimeout = DefaultTransportConfig().DialTimeout
	}
	if c.Messaging.RequestTimeout < 0 {
		c.Messaging.RequestTimeout = DefaultMessagingConfig().RequestTimeout
	}
	if c.Discovery.EnableBeacon && c.Discovery.BeaconGroup == "" {
		c.Discovery.BeaconGroup = DefaultBeaconGroup
	}
	if c.Metrics.Enable && c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricsConfig().Namespace
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
