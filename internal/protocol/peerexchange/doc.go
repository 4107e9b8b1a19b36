// Package peerexchange 实现已知节点表的交换
//
// 每个节点维护一张 节点 ID → 地址集合 的表，来源是信标和其他节点
// 发来的 peers 消息。与新节点建立连接时发送整张表；收到的表合并后
// 若有变化，转发给除来源外的所有已连接节点。新学到的节点作为发现
// 事件交给连接管理器拨号。
package peerexchange
