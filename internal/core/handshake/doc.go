// Package handshake 实现通道握手与去重
//
// # 状态机
//
// 每个通道经历 Connected → IdentityExchanged → Active / Closed：
//
//	Connected         传输层建立，双方各发送一条 Hello
//	IdentityExchanged 收到第一条有效 Hello，记录远端 ID
//	Active            主节点 SetActiveIfFirst 成功，或从节点收到 ConnectionEstablished
//	Closed            协议违规或去重失败
//
// # 主从
//
// 两个节点按 PeerID 的全序比较，较小者为主节点。只有主节点决定
// 激活哪个通道，并在该通道上发送 ConnectionEstablished；从节点
// 只在收到确认后激活。同一对节点之间的多条并发连接因此收敛到
// 恰好一条激活通道，无需额外的选举往返。
package handshake
