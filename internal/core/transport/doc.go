// Package transport 提供通道工厂
//
// 出站（Dial）与入站（Listen）工厂把传输细节与协议逻辑隔离：
//   - tcp    - 生产环境使用的 TCP 传输
//   - memory - 进程内 net.Pipe 网络，用于测试和演示
package transport
