package messages

import "errors"

var (
	// ErrKindExists 消息类型已注册
	ErrKindExists = errors.New("messages: kind already registered")

	// ErrUnknownKind 未知消息类型
	ErrUnknownKind = errors.New("messages: unknown kind")

	// ErrUnknownParent 父类型未注册
	ErrUnknownParent = errors.New("messages: unknown parent kind")

	// ErrAbstractKind 抽象类型无法实例化
	ErrAbstractKind = errors.New("messages: abstract kind")

	// ErrKindMismatch 工厂产出的消息与注册类型不符
	ErrKindMismatch = errors.New("messages: factory kind mismatch")

	// ErrInvalidSocketAddr 套接字地址非法
	ErrInvalidSocketAddr = errors.New("messages: invalid socket address")
)
