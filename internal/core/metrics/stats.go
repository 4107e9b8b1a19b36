package metrics

// Stats 流量统计快照
type Stats struct {
	TotalIn   int64 // 总入站字节
	TotalOut  int64 // 总出站字节
	FramesIn  int64 // 入站帧数
	FramesOut int64 // 出站帧数
}
