package codec

import "errors"

var (
	// ErrFrameTooLarge 帧超过大小上限
	ErrFrameTooLarge = errors.New("codec: frame too large")

	// ErrMalformed payload 不是合法的 JSON 对象
	ErrMalformed = errors.New("codec: malformed payload")

	// ErrMissingType payload 缺少 type 字段
	ErrMissingType = errors.New("codec: missing type field")

	// ErrNilMessage 消息为 nil
	ErrNilMessage = errors.New("codec: nil message")
)
