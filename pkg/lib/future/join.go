package future

import "sync"

// Join 合并多个 Future
//
// 全部成功时以结果列表成功，顺序与 futures 参数一致。
// 任一失败时立即以该失败原因失败。多个子 Future 并发失败时，
// 选中哪一个原因取决于完成顺序，不做保证。
// 空参数时立即成功并返回空列表。
func Join[T any](futures ...Future[T]) Future[[]T] {
	joined := NewPromise[[]T]()
	if len(futures) == 0 {
		joined.SetSuccess([]T{})
		return joined
	}

	var (
		mu        sync.Mutex
		results   = make([]T, len(futures))
		remaining = len(futures)
	)
	for i, f := range futures {
		idx := i
		f.AddListener(ListenerFunc(func(child Future[T]) {
			if cause := child.Cause(); cause != nil {
				joined.SetFailure(cause)
				return
			}
			value, _ := child.GetNow()

			mu.Lock()
			results[idx] = value
			remaining--
			last := remaining == 0
			mu.Unlock()

			if last {
				joined.SetSuccess(results)
			}
		}))
	}
	return joined
}
