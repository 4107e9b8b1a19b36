// Package codec 实现 modnet 的线上格式
//
// 帧格式：
//
//	+----------------+---------------------------+
//	| length (u16BE) | payload (UTF-8 JSON 文本)  |
//	+----------------+---------------------------+
//
// payload 是带 "type" 判别字段的 JSON 对象，其余字段来自具体消息类型。
// 解码时先读取 "type"，再通过 messages.Registry 创建具体消息。
//
// 可以为单个消息类型注册自定义 Adapter，替换默认的 JSON 映射。
// 注册对共享该 Codec 的所有通道立即生效。
package codec
