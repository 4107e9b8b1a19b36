package correlator

import "errors"

var (
	// ErrTimeout 在超时时间内未收到响应
	ErrTimeout = errors.New("correlator: response timeout")

	// ErrClosed 关联器已关闭
	ErrClosed = errors.New("correlator: closed")
)
