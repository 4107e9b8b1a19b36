// Package messages 定义 modnet 的消息模型
//
// 消息通过字符串 Kind 区分，线上以 "type" 字段出现。
// 内置 Kind 构成一棵封闭的树：
//
//	message
//	├── response
//	│   └── default_response
//	├── application
//	├── hello
//	├── connection_established
//	├── peers
//	└── beacon
//
// 应用通过 Registry.Register 在 application（或任意已有 Kind）下扩展
// 自己的消息类型。每个 Kind 的回退链 [kind, parent, ..., message]
// 在注册时计算，分发器按该链逐级查找处理器。
//
// 自定义消息通过嵌入 Base / ResponseBase / ApplicationBase 获得
// 关联 ID 等公共字段：
//
//	type Ping struct {
//	    messages.ApplicationBase
//	    Payload string `json:"payload"`
//	}
//
//	func (*Ping) MessageKind() messages.Kind { return "ping" }
//
// 自定义消息不得声明 json 名为 "type" 的字段。
package messages
