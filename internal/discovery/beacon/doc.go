// Package beacon 实现 UDP 组播信标发现
//
// 节点定期向组播组发送 beacon 消息，内容为本节点 ID 与可拨号地址。
// 收到其他节点的信标时通知所有 BeaconListener（通常是连接管理器），
// 由其决定是否拨号。自身发出的信标被忽略。
//
// 信标报文与 TCP 通道使用同一套带 type 字段的 JSON 编码，一个 UDP
// 报文承载一条消息，没有长度前缀。
package beacon
