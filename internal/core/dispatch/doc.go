// Package dispatch 实现入站消息分发
//
// 处理器按消息类型注册，可选限定应用作用域。查找时先找应用专属
// 处理器，再找默认处理器；当前类型都没有时沿父类型链向上，直到
// message 根类型。
//
// 响应消息不进入处理器，直接交给关联器。其他消息的处理结果（或
// 处理失败时的空响应）以原消息 ID 为 SourceID 回送到同一通道。
package dispatch
