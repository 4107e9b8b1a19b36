package config

import "time"

// DefaultMaxFrameSize 默认最大帧大小
//
// 线上长度前缀为 u16，实际生效值不超过 65535。
const DefaultMaxFrameSize = 512 * 1024

// TransportConfig 传输层配置
type TransportConfig struct {
	// ListenAddrs 启动时监听的地址（host:port）
	ListenAddrs []string `json:"listen_addrs,omitempty"`

	// DialTimeout 拨号超时
	DialTimeout Duration `json:"dial_timeout"`

	// KeepAlive TCP keep-alive 周期，0 表示系统默认
	KeepAlive Duration `json:"keep_alive"`

	// MaxFrameSize 可接收的最大帧大小
	MaxFrameSize int `json:"max_frame_size"`
}

// DefaultTransportConfig 返回默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		DialTimeout:  Duration(10 * time.Second),
		KeepAlive:    Duration(30 * time.Second),
		MaxFrameSize: DefaultMaxFrameSize,
	}
}

// Validate 验证传输配置
func (c TransportConfig) Validate() error {
	if c.MaxFrameSize <= 0 {
		return ErrInvalidFrameSize
	}
	if c.DialTimeout < 0 || c.KeepAlive < 0 {
		return ErrInvalidTimeout
	}
	return nil
}
