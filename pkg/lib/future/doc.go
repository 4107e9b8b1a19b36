// Package future 提供单次赋值的异步结果容器
//
// Future 是只读视图，Promise 是生产者持有的可写端。
// 所有上层组件都通过 Future 返回异步结果，而不是阻塞调用。
//
// # 语义
//
//   - 状态只转换一次：pending → succeeded(value) 或 failed(cause)
//   - SetSuccess/SetFailure 先到先得，后续调用返回 false
//   - 完成时通知所有已注册监听器恰好一次，随后清空监听器列表
//   - 在已完成的 Future 上 AddListener 会在调用方 goroutine 同步回调
//   - 不支持取消，Cancel 恒返回 false
//
// # 使用示例
//
//	p := future.NewPromise[int]()
//	p.AddListener(future.ListenerFunc(func(f future.Future[int]) {
//	    v, _ := f.GetNow()
//	    fmt.Println(v)
//	}))
//	p.SetSuccess(42)
package future
