package handshake

import (
	"fmt"

	"github.com/dep2p/go-modnet/internal/core/channel"
	"github.com/dep2p/go-modnet/internal/core/metrics"
	"github.com/dep2p/go-modnet/pkg/lib/future"
	"github.com/dep2p/go-modnet/pkg/lib/log"
	"github.com/dep2p/go-modnet/pkg/messages"
	"github.com/dep2p/go-modnet/pkg/types"
)

var logger = log.Logger("core/handshake")

// Handler 握手处理器
//
// 无状态：每个通道的握手进度保存在 channel.Registry 中。
type Handler struct {
	local    types.PeerID
	registry *channel.Registry
	metrics  *metrics.Metrics
}

// New 创建握手处理器，m 可为 nil
func New(local types.PeerID, registry *channel.Registry, m *metrics.Metrics) *Handler {
	return &Handler{local: local, registry: registry, metrics: m}
}

// LocalID 本地节点 ID
func (h *Handler) LocalID() types.PeerID {
	return h.local
}

// Begin 在新通道上发送 Hello
//
// 必须是通道上的第一条出站消息。
func (h *Handler) Begin(ch *channel.Channel) future.Future[struct{}] {
	logger.Debug("发送 Hello", "channel", ch.String())
	return ch.Send(messages.NewHello(h.local, ch.MaxFrameSize()))
}

// Handle 处理握手消息
//
// m 是握手消息时返回 true，调用方不应再分发它。
func (h *Handler) Handle(ch *channel.Channel, m messages.Message) bool {
	switch msg := m.(type) {
	case *messages.Hello:
		h.HandleHello(ch, msg)
		return true
	case *messages.ConnectionEstablished:
		h.HandleConnectionEstablished(ch, msg)
		return true
	default:
		return false
	}
}

// ============================================================================
//                              Hello
// ============================================================================

// HandleHello 处理对端的 Hello
func (h *Handler) HandleHello(ch *channel.Channel, m *messages.Hello) {
	remote := m.ModuleID

	if !ch.MarkHelloReceived() {
		// 重复 Hello 容忍，但不能改变已确立的身份
		if stored, ok := h.registry.RemoteID(ch); ok && stored != remote {
			h.violation(ch, "hello_conflict", fmt.Errorf("%w: %s != %s", ErrIdentityConflict, stored.ShortString(), remote.ShortString()))
			return
		}
		logger.Info("忽略重复 Hello", "channel", ch.String(), "peer", remote.ShortString())
		return
	}

	if err := h.checkRemote(remote); err != nil {
		h.violation(ch, "hello_invalid", err)
		return
	}
	if err := h.registry.SetRemoteID(ch, remote); err != nil {
		h.violation(ch, "hello_conflict", fmt.Errorf("%w: %v", ErrIdentityConflict, err))
		return
	}
	ch.SetRemoteFrameSize(m.FrameSize)
	logger.Debug("身份已交换", "channel", ch.String(), "peer", remote.ShortString(), "framesize", m.FrameSize)

	if !h.local.IsMasterFor(remote) {
		// 从节点等待主节点确认
		return
	}

	// 确认在激活可见之前入队，激活后由其他 goroutine 发出的消息不会抢在它前面
	var confirm future.Future[struct{}]
	won, err := h.registry.SetActiveIfFirst(ch, func() {
		confirm = ch.Send(messages.NewConnectionEstablished(h.local))
	})
	if err != nil {
		logger.Debug("激活失败", "channel", ch.String(), "err", err)
		ch.CloseWithError(err)
		return
	}
	if !won {
		logger.Debug("已有激活通道，关闭重复通道", "channel", ch.String(), "peer", remote.ShortString())
		ch.CloseWithError(ErrDuplicateChannel)
		return
	}
	if confirm == nil {
		return
	}
	confirm.AddListener(future.ListenerFunc(func(f future.Future[struct{}]) {
		if !f.IsSuccess() {
			logger.Debug("发送确认失败", "channel", ch.String(), "err", f.Cause())
		}
	}))
}

// ============================================================================
//                              ConnectionEstablished
// ============================================================================

// HandleConnectionEstablished 处理主节点的确认
func (h *Handler) HandleConnectionEstablished(ch *channel.Channel, m *messages.ConnectionEstablished) {
	remote := m.ModuleID

	if h.registry.IsActive(ch) {
		h.violation(ch, "confirm_invalid", fmt.Errorf("%w: channel already active", ErrUnexpectedConfirmation))
		return
	}
	if err := h.checkRemote(remote); err != nil {
		h.violation(ch, "confirm_invalid", err)
		return
	}
	if stored, ok := h.registry.RemoteID(ch); ok && stored != remote {
		h.violation(ch, "confirm_invalid", fmt.Errorf("%w: %s != %s", ErrIdentityConflict, stored.ShortString(), remote.ShortString()))
		return
	}
	if h.local.IsMasterFor(remote) {
		h.violation(ch, "confirm_invalid", fmt.Errorf("%w: local side is master", ErrUnexpectedConfirmation))
		return
	}

	if err := h.registry.SetRemoteID(ch, remote); err != nil {
		h.violation(ch, "confirm_invalid", err)
		return
	}
	if err := h.registry.SetActive(ch); err != nil {
		logger.Debug("激活失败", "channel", ch.String(), "err", err)
		ch.CloseWithError(err)
	}
}

func (h *Handler) checkRemote(remote types.PeerID) error {
	if remote.IsEmpty() {
		return ErrEmptyPeerID
	}
	if remote == h.local {
		return ErrSelfConnection
	}
	return nil
}

func (h *Handler) violation(ch *channel.Channel, reason string, err error) {
	logger.Warn("握手协议违规，关闭通道", "channel", ch.String(), "reason", reason, "err", err)
	h.metrics.ProtocolViolation(reason)
	ch.CloseWithError(err)
}
