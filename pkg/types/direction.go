package types

// Direction 通道由哪一端发起
//
// 方向只用于日志和指标标签；握手主从由 PeerID 大小决定，与方向无关。
type Direction int

const (
	// DirUnknown 尚未确定
	DirUnknown Direction = iota
	// DirInbound 由监听器接受
	DirInbound
	// DirOutbound 由本节点拨出
	DirOutbound
)

func (d Direction) String() string {
	switch d {
	case DirInbound:
		return "inbound"
	case DirOutbound:
		return "outbound"
	}
	return "unknown"
}
