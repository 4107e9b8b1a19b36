package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-modnet/pkg/types"
)

// DefaultNamespace 默认指标命名空间
const DefaultNamespace = "modnet"

// Metrics 连接层指标
type Metrics struct {
	registry *prometheus.Registry

	channelsOpened     *prometheus.CounterVec
	channelsOpen       prometheus.Gauge
	activePeers        prometheus.Gauge
	framesIn           prometheus.Counter
	framesOut          prometheus.Counter
	bytesIn            prometheus.Counter
	bytesOut           prometheus.Counter
	requestsSent       prometheus.Counter
	requestTimeouts    prometheus.Counter
	handlerFailures    prometheus.Counter
	protocolViolations *prometheus.CounterVec

	totalIn    atomic.Int64
	totalOut   atomic.Int64
	framesInN  atomic.Int64
	framesOutN atomic.Int64
}

// New 创建 Metrics 并注册到新的 prometheus.Registry
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		channelsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channels_opened_total",
			Help:      "Channels opened, by direction.",
		}, []string{"direction"}),
		channelsOpen:    gauge("channels_open", "Channels currently open."),
		activePeers:     gauge("active_peers", "Peers with an active channel."),
		framesIn:        counter("frames_in_total", "Frames received."),
		framesOut:       counter("frames_out_total", "Frames sent."),
		bytesIn:         counter("bytes_in_total", "Payload bytes received."),
		bytesOut:        counter("bytes_out_total", "Payload bytes sent."),
		requestsSent:    counter("requests_sent_total", "Requests sent awaiting a response."),
		requestTimeouts: counter("request_timeouts_total", "Requests failed by timeout."),
		handlerFailures: counter("handler_failures_total", "Handlers that returned an error or panicked."),
		protocolViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_violations_total",
			Help:      "Channels closed for protocol violations, by reason.",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		m.channelsOpened,
		m.channelsOpen,
		m.activePeers,
		m.framesIn,
		m.framesOut,
		m.bytesIn,
		m.bytesOut,
		m.requestsSent,
		m.requestTimeouts,
		m.handlerFailures,
		m.protocolViolations,
	)
	return m
}

// Registry 返回 prometheus 注册表
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler 返回 /metrics HTTP 处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ============================================================================
//                              通道与节点
// ============================================================================

// ChannelOpened 记录通道打开
func (m *Metrics) ChannelOpened(dir types.Direction) {
	if m == nil {
		return
	}
	m.channelsOpened.WithLabelValues(dir.String()).Inc()
	m.channelsOpen.Inc()
}

// ChannelClosed 记录通道关闭
func (m *Metrics) ChannelClosed() {
	if m == nil {
		return
	}
	m.channelsOpen.Dec()
}

// PeerEstablished 记录节点连接建立
func (m *Metrics) PeerEstablished() {
	if m == nil {
		return
	}
	m.activePeers.Inc()
}

// PeerClosed 记录节点连接关闭
func (m *Metrics) PeerClosed() {
	if m == nil {
		return
	}
	m.activePeers.Dec()
}

// ProtocolViolation 记录协议违规
func (m *Metrics) ProtocolViolation(reason string) {
	if m == nil {
		return
	}
	m.protocolViolations.WithLabelValues(reason).Inc()
}

// ============================================================================
//                              流量
// ============================================================================

// LogSentMessage 记录出站帧大小
func (m *Metrics) LogSentMessage(size int64) {
	if m == nil {
		return
	}
	m.framesOut.Inc()
	m.bytesOut.Add(float64(size))
	m.framesOutN.Add(1)
	m.totalOut.Add(size)
}

// LogRecvMessage 记录入站帧大小
func (m *Metrics) LogRecvMessage(size int64) {
	if m == nil {
		return
	}
	m.framesIn.Inc()
	m.bytesIn.Add(float64(size))
	m.framesInN.Add(1)
	m.totalIn.Add(size)
}

// Totals 返回流量统计快照
func (m *Metrics) Totals() Stats {
	if m == nil {
		return Stats{}
	}
	return Stats{
		TotalIn:   m.totalIn.Load(),
		TotalOut:  m.totalOut.Load(),
		FramesIn:  m.framesInN.Load(),
		FramesOut: m.framesOutN.Load(),
	}
}

// ============================================================================
//                              请求
// ============================================================================

// RequestSent 记录发出请求
func (m *Metrics) RequestSent() {
	if m == nil {
		return
	}
	m.requestsSent.Inc()
}

// RequestTimedOut 记录请求超时
func (m *Metrics) RequestTimedOut() {
	if m == nil {
		return
	}
	m.requestTimeouts.Inc()
}

// HandlerFailed 记录处理器失败
func (m *Metrics) HandlerFailed() {
	if m == nil {
		return
	}
	m.handlerFailures.Inc()
}
