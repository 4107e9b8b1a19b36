package dispatch

import "errors"

// ErrHandlerPanic 处理器 panic
var ErrHandlerPanic = errors.New("dispatch: handler panicked")
