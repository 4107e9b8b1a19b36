// Package interfaces 定义 modnet 公共接口
//
// 上层协作方（发现、应用消息框架、部署调度）只依赖本包中的接口，
// 不直接引用 internal 实现。
//
// # 文件组织
//
//   - connmgr.go   - ConnectionManager, ConnectionListener, BeaconListener
//   - messaging.go - MessageHandler, Executor, HandlerOption
//   - transport.go - Dialer, ListenerFactory, Transport
package interfaces
