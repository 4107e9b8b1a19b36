package future

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// ============================================================================
//                              Promise 测试
// ============================================================================

func TestPromise_SuccessOnce(t *testing.T) {
	p := NewPromise[int]()
	assert.False(t, p.IsDone())

	var calls int32
	p.AddListener(ListenerFunc(func(Future[int]) { atomic.AddInt32(&calls, 1) }))

	assert.True(t, p.SetSuccess(1))
	assert.False(t, p.SetSuccess(2), "第二次完成应返回 false")
	assert.False(t, p.SetFailure(errBoom))

	v, ok := p.GetNow()
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.True(t, p.IsSuccess())
	assert.Nil(t, p.Cause())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "监听器只通知一次")
}

func TestPromise_FailureOnce(t *testing.T) {
	p := NewPromise[string]()
	assert.True(t, p.SetFailure(errBoom))
	assert.False(t, p.SetSuccess("late"))

	assert.True(t, p.IsDone())
	assert.False(t, p.IsSuccess())
	assert.ErrorIs(t, p.Cause(), errBoom)
	_, ok := p.GetNow()
	assert.False(t, ok)

	_, err := p.Get(context.Background())
	assert.ErrorIs(t, err, errBoom)
}

func TestPromise_SetFailureNilPanics(t *testing.T) {
	p := NewPromise[int]()
	assert.Panics(t, func() { p.SetFailure(nil) })
}

func TestPromise_AddListenerAfterCompletionIsSynchronous(t *testing.T) {
	p := NewPromise[int]()
	p.SetSuccess(7)

	called := false
	p.AddListener(ListenerFunc(func(f Future[int]) {
		v, _ := f.GetNow()
		assert.Equal(t, 7, v)
		called = true
	}))
	assert.True(t, called, "已完成时应在调用方同步回调")
}

func TestPromise_AddListenerFromCallbackDoesNotDeadlock(t *testing.T) {
	p := NewPromise[int]()
	inner := make(chan struct{})

	p.AddListener(ListenerFunc(func(f Future[int]) {
		f.AddListener(ListenerFunc(func(Future[int]) { close(inner) }))
	}))
	p.SetSuccess(1)

	select {
	case <-inner:
	case <-time.After(time.Second):
		t.Fatal("回调内注册监听器发生死锁")
	}
}

func TestPromise_RemoveListener(t *testing.T) {
	p := NewPromise[int]()
	var calls int32
	l := ListenerFunc(func(Future[int]) { atomic.AddInt32(&calls, 1) })
	p.AddListener(l)
	p.RemoveListener(l)
	p.SetSuccess(1)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestPromise_ListenerPanicIsContained(t *testing.T) {
	p := NewPromise[int]()
	var second int32
	p.AddListener(ListenerFunc(func(Future[int]) { panic("listener") }))
	p.AddListener(ListenerFunc(func(Future[int]) { atomic.StoreInt32(&second, 1) }))

	assert.NotPanics(t, func() { p.SetSuccess(1) })
	assert.Equal(t, int32(1), atomic.LoadInt32(&second))
}

func TestPromise_Await(t *testing.T) {
	p := NewPromise[int]()
	assert.False(t, p.AwaitTimeout(10*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Await(ctx), context.DeadlineExceeded)

	go p.SetSuccess(3)
	v, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.True(t, p.AwaitTimeout(time.Millisecond))
}

func TestPromise_CancelUnsupported(t *testing.T) {
	p := NewPromise[int]()
	assert.False(t, p.Cancel())
	assert.False(t, p.IsDone())
}

func TestPromise_ConcurrentCompletion(t *testing.T) {
	p := NewPromise[int]()
	var calls int32
	p.AddListener(ListenerFunc(func(Future[int]) { atomic.AddInt32(&calls, 1) }))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var ok bool
			if i%2 == 0 {
				ok = p.SetSuccess(i)
			} else {
				ok = p.SetFailure(errBoom)
			}
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// ============================================================================
//                              Join 测试
// ============================================================================

func TestJoin_Empty(t *testing.T) {
	j := Join[int]()
	require.True(t, j.IsDone())
	v, ok := j.GetNow()
	assert.True(t, ok)
	assert.Empty(t, v)
}

func TestJoin_AllSucceed(t *testing.T) {
	a, b, c := NewPromise[int](), NewPromise[int](), NewPromise[int]()
	j := Join[int](a, b, c)

	c.SetSuccess(3)
	a.SetSuccess(1)
	assert.False(t, j.IsDone())
	b.SetSuccess(2)

	v, ok := j.GetNow()
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, v, "结果顺序与参数顺序一致")
}

func TestJoin_FailsOnFirstFailure(t *testing.T) {
	a, b := NewPromise[int](), NewPromise[int]()
	j := Join[int](a, b)

	b.SetFailure(errBoom)
	require.True(t, j.IsDone(), "任一失败立即失败")
	assert.ErrorIs(t, j.Cause(), errBoom)

	a.SetSuccess(1)
	assert.ErrorIs(t, j.Cause(), errBoom)
}

func TestJoin_AlreadyCompletedChildren(t *testing.T) {
	j := Join[string](Succeeded("x"), Succeeded("y"))
	v, ok := j.GetNow()
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, v)

	j = Join[string](Succeeded("x"), Failed[string](errBoom))
	assert.ErrorIs(t, j.Cause(), errBoom)
}
