package tcp

import "errors"

// ErrTransportClosed 传输层已关闭
var ErrTransportClosed = errors.New("tcp: transport closed")
