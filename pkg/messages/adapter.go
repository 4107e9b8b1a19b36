package messages

// ============================================================================
//                              Adapter
// ============================================================================

// Adapter 单个消息类型的自定义编解码
//
// MarshalMessage 必须产出 JSON 对象，"type" 字段由编解码器写入。
type Adapter interface {
	MarshalMessage(m Message) ([]byte, error)
	UnmarshalMessage(data []byte) (Message, error)
}

// AdapterFuncs 用函数实现 Adapter
type AdapterFuncs struct {
	Marshal   func(m Message) ([]byte, error)
	Unmarshal func(data []byte) (Message, error)
}

// MarshalMessage 实现 Adapter
func (a AdapterFuncs) MarshalMessage(m Message) ([]byte, error) {
	return a.Marshal(m)
}

// UnmarshalMessage 实现 Adapter
func (a AdapterFuncs) UnmarshalMessage(data []byte) (Message, error) {
	return a.Unmarshal(data)
}
