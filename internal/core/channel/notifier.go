package channel

import (
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-modnet/pkg/types"
)

type eventKind int

const (
	eventEstablished eventKind = iota
	eventClosed
)

type event struct {
	kind eventKind
	peer types.PeerID
}

// notifier 单 goroutine 按入队顺序投递事件
//
// 入队发生在 Registry 锁内，因此同一节点的 established/closed
// 投递顺序与状态变化顺序一致。
type notifier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []event
	stopped bool
	done    chan struct{}

	// 投递批次期间为 true，监听器回调都发生在这段时间内
	delivering atomic.Bool
}

func newNotifier(deliver func(event)) *notifier {
	n := &notifier{done: make(chan struct{})}
	n.cond = sync.NewCond(&n.mu)
	go n.run(deliver)
	return n
}

func (n *notifier) push(e event) {
	n.mu.Lock()
	if !n.stopped {
		n.queue = append(n.queue, e)
		n.cond.Signal()
	}
	n.mu.Unlock()
}

func (n *notifier) run(deliver func(event)) {
	defer close(n.done)
	for {
		n.mu.Lock()
		for len(n.queue) == 0 && !n.stopped {
			n.cond.Wait()
		}
		if len(n.queue) == 0 {
			n.mu.Unlock()
			return
		}
		batch := n.queue
		n.queue = nil
		n.mu.Unlock()

		n.delivering.Store(true)
		for _, e := range batch {
			deliver(e)
		}
		n.delivering.Store(false)
	}
}

// stop 投递完已入队事件后退出
//
// 正在投递时不等待：监听器回调内调用 stop 等待的是自身所在的 goroutine。
// 剩余事件仍由投递 goroutine 投递完。
func (n *notifier) stop() {
	n.mu.Lock()
	n.stopped = true
	n.cond.Broadcast()
	n.mu.Unlock()
	if n.delivering.Load() {
		return
	}
	<-n.done
}
