package messages

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"github.com/cristalhq/base64"
	"github.com/goccy/go-json"
)

// ============================================================================
//                              辅助值类型
// ============================================================================

// Bytes 二进制字段，线上编码为 base64 文本
type Bytes []byte

// MarshalJSON 实现 json.Marshaler
func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(b))
}

// UnmarshalJSON 实现 json.Unmarshaler
func (b *Bytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	*b = raw
	return nil
}

// Object 任意对象字段
//
// 值先序列化为 JSON，再以 base64 文本出现在线上，
// 接收方必须使用相同的 T 解码。
type Object[T any] struct {
	Value T
}

// NewObject 包装 v
func NewObject[T any](v T) Object[T] {
	return Object[T]{Value: v}
}

// MarshalJSON 实现 json.Marshaler
func (o Object[T]) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(o.Value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(base64.StdEncoding.EncodeToString(raw))
}

// UnmarshalJSON 实现 json.Unmarshaler
func (o *Object[T]) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, &o.Value)
}

// ============================================================================
//                              套接字地址
// ============================================================================

// SocketAddr 套接字地址字段
//
// 线上编码为 {"address": 主机, "port": 端口}，主机可以是 IP 或主机名。
type SocketAddr struct {
	Host string
	Port uint16
}

type socketAddrWire struct {
	Address *string `json:"address"`
	Port    *int    `json:"port"`
}

// ParseSocketAddr 解析 "host:port"
func ParseSocketAddr(s string) (SocketAddr, error) {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return SocketAddr{}, fmt.Errorf("%w: %v", ErrInvalidSocketAddr, err)
	}
	n, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return SocketAddr{}, fmt.Errorf("%w: port %q", ErrInvalidSocketAddr, port)
	}
	return SocketAddr{Host: host, Port: uint16(n)}, nil
}

// SocketAddrFrom 从 netip.AddrPort 构造
func SocketAddrFrom(ap netip.AddrPort) SocketAddr {
	return SocketAddr{Host: ap.Addr().String(), Port: ap.Port()}
}

// AddrPort 主机为 IP 字面量时转换为 netip.AddrPort
func (a SocketAddr) AddrPort() (netip.AddrPort, error) {
	ip, err := netip.ParseAddr(a.Host)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: host %q is not an ip", ErrInvalidSocketAddr, a.Host)
	}
	return netip.AddrPortFrom(ip, a.Port), nil
}

// String 返回 "host:port"，可直接用于拨号
func (a SocketAddr) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

// MarshalJSON 实现 json.Marshaler
func (a SocketAddr) MarshalJSON() ([]byte, error) {
	port := int(a.Port)
	return json.Marshal(socketAddrWire{Address: &a.Host, Port: &port})
}

// UnmarshalJSON 实现 json.Unmarshaler
func (a *SocketAddr) UnmarshalJSON(data []byte) error {
	var w socketAddrWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSocketAddr, err)
	}
	if w.Address == nil || w.Port == nil {
		return fmt.Errorf("%w: address/port missing", ErrInvalidSocketAddr)
	}
	if *w.Port < 0 || *w.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidSocketAddr, *w.Port)
	}
	a.Host = *w.Address
	a.Port = uint16(*w.Port)
	return nil
}
