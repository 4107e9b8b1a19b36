package config

import "time"

// MessagingConfig 消息传递配置
type MessagingConfig struct {
	// RequestTimeout 请求等待响应的超时，0 表示使用默认值
	RequestTimeout Duration `json:"request_timeout"`

	// HandlerWorkers 处理器最大并发数
	//
	// 0 表示处理器在读取 goroutine 上同步执行。
	HandlerWorkers int `json:"handler_workers"`
}

// DefaultMessagingConfig 返回默认消息配置
func DefaultMessagingConfig() MessagingConfig {
	return MessagingConfig{
		RequestTimeout: Duration(30 * time.Second),
		HandlerWorkers: 64,
	}
}

// Validate 验证消息配置
func (c MessagingConfig) Validate() error {
	if c.RequestTimeout < 0 {
		return ErrInvalidTimeout
	}
	if c.HandlerWorkers < 0 {
		return ErrInvalidWorkers
	}
	return nil
}
