// Package modnet 提供模块间点对点消息网络
//
// 每个节点以 UUID 标识，通过 TCP 与其他节点建立长度前缀帧的 JSON
// 消息通道。两个节点之间可能同时存在多条通道，握手后恰好一条被
// 激活，ID 较小的一方（master）负责确认。
//
// # 快速开始
//
//	node, err := modnet.Start(ctx,
//	    modnet.WithListenAddrs("0.0.0.0:5555"),
//	    modnet.WithBeacon(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	node.Handle("ping", pkgif.HandlerFunc(onPing))
//	resp, err := node.Send(peerID, newPing()).Get(ctx)
//
// # 组成
//
//   - internal/core/connmgr: 通道、握手、请求响应与处理器分发
//   - internal/discovery/beacon: UDP 组播信标发现
//   - internal/protocol/peerexchange: 已知节点表交换
//   - internal/core/metrics: prometheus 指标
//
// 节点内部以 Fx 组装，见 fx.go。
package modnet
