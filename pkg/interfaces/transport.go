package interfaces

import (
	"context"
	"net"
)

// Dialer 出站通道工厂
type Dialer interface {
	// Dial 建立到 addr 的字节流连接
	Dial(ctx context.Context, addr string) (net.Conn, error)
}

// ListenerFactory 入站通道工厂
type ListenerFactory interface {
	// Listen 在 addr 上监听
	Listen(addr string) (net.Listener, error)
}

// Transport 同时提供出站和入站通道工厂
type Transport interface {
	Dialer
	ListenerFactory

	// Name 传输名称，如 "tcp"、"memory"
	Name() string
}
