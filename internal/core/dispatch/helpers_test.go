package dispatch

import (
	"context"
	"sync"

	pkgif "github.com/dep2p/go-modnet/pkg/interfaces"
	"github.com/dep2p/go-modnet/pkg/lib/future"
	"github.com/dep2p/go-modnet/pkg/messages"
	"github.com/dep2p/go-modnet/pkg/types"
)

const (
	kindChat    messages.Kind = "chat"
	kindWhisper messages.Kind = "whisper"
	kindPing    messages.Kind = "ping"
	kindPong    messages.Kind = "pong"
)

// chat 应用消息，whisper 是它的子类型
type chat struct {
	messages.ApplicationBase
	Text string `json:"text"`
}

func (*chat) MessageKind() messages.Kind { return kindChat }

type whisper struct {
	chat
}

func (*whisper) MessageKind() messages.Kind { return kindWhisper }

type ping struct {
	messages.Base
}

func (*ping) MessageKind() messages.Kind { return kindPing }

type pong struct {
	messages.ResponseBase
}

func (*pong) MessageKind() messages.Kind { return kindPong }

func testKinds() *messages.Registry {
	kinds := messages.NewRegistry()
	kinds.MustRegister(kindChat, messages.KindApplication, func() messages.Message { return &chat{} })
	kinds.MustRegister(kindWhisper, kindChat, func() messages.Message { return &whisper{} })
	kinds.MustRegister(kindPing, messages.KindMessage, func() messages.Message { return &ping{} })
	kinds.MustRegister(kindPong, messages.KindResponse, func() messages.Message { return &pong{} })
	return kinds
}

func newWhisper(app types.ApplicationID) *whisper {
	return &whisper{chat{ApplicationBase: messages.NewApplicationBase(app)}}
}

// named 返回固定响应的处理器，用于辨认命中了哪个处理器
type named string

func (n named) HandleMessage(context.Context, types.PeerID, messages.Message) (messages.Response, error) {
	return nil, nil
}

func handlerName(e Entry) string {
	if n, ok := e.Handler.(named); ok {
		return string(n)
	}
	return ""
}

// replyRecorder 记录回送的消息
type replyRecorder struct {
	mu   sync.Mutex
	sent []messages.Message
	fail error
}

func (r *replyRecorder) Send(m messages.Message) future.Future[struct{}] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, m)
	if r.fail != nil {
		return future.Failed[struct{}](r.fail)
	}
	return future.Succeeded(struct{}{})
}

func (r *replyRecorder) snapshot() []messages.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]messages.Message, len(r.sent))
	copy(out, r.sent)
	return out
}

var _ pkgif.MessageHandler = named("")
