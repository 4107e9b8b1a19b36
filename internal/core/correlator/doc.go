// Package correlator 实现请求/响应关联
//
// 每个发出的请求以其 MessageID 登记一个待决条目，响应按 SourceID
// 找回条目并完成 Future。条目只会被移除一次：成功、失败或超时中
// 先发生者生效，其余为空操作。
package correlator
