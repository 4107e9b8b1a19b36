// Package metrics 提供 modnet 的监控指标
//
// 基于 prometheus client_golang，每个 Metrics 实例持有独立的
// prometheus.Registry，便于在同一进程内运行多个节点。
//
// 所有记录方法对 nil 接收者安全，禁用指标时组件可以直接传 nil。
//
// # 指标
//
//   - channels_opened_total{direction}  打开的通道数
//   - channels_open                      当前通道数
//   - active_peers                       拥有激活通道的节点数
//   - frames_{in,out}_total              收发帧数
//   - bytes_{in,out}_total               收发字节数
//   - requests_sent_total                发出的请求数
//   - request_timeouts_total             超时的请求数
//   - handler_failures_total             处理器失败数
//   - protocol_violations_total{reason}  协议违规数
//
// # Fx 模块
//
//	app := fx.New(
//	    fx.Supply(cfg),
//	    metrics.Module,
//	    fx.Invoke(func(m *metrics.Metrics) {
//	        http.Handle("/metrics", m.Handler())
//	    }),
//	)
package metrics
