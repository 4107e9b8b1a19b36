// Package tcp 提供基于 TCP 的通道工厂
//
// 出站连接开启 TCP_NODELAY，并按配置设置 keep-alive。
package tcp
