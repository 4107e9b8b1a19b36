package transport

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-modnet/config"
	"github.com/dep2p/go-modnet/internal/core/transport/tcp"
	pkgif "github.com/dep2p/go-modnet/pkg/interfaces"
	"github.com/dep2p/go-modnet/pkg/lib/log"
)

var logger = log.Logger("core/transport")

// ConfigFromUnified 从统一配置创建 TCP 传输配置
func ConfigFromUnified(cfg *config.Config) tcp.Config {
	if cfg == nil {
		return tcp.DefaultConfig()
	}
	return tcp.Config{
		DialTimeout: cfg.Transport.DialTimeout.Duration(),
		KeepAlive:   cfg.Transport.KeepAlive.Duration(),
	}
}

// Params 传输模块依赖
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Lifecycle  fx.Lifecycle
}

// Module 传输层 Fx 模块
//
// 默认提供 TCP 传输，测试可用 fx.Decorate 替换为 memory 传输。
var Module = fx.Module("transport",
	fx.Provide(
		fx.Annotate(
			NewFromParams,
			fx.As(new(pkgif.Transport)),
		),
	),
)

// NewFromParams 创建 TCP 传输并注册关闭钩子
func NewFromParams(p Params) *tcp.Transport {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	t := tcp.NewTransport(cfg)
	logger.Debug("创建 TCP 传输", "dialTimeout", cfg.DialTimeout, "keepAlive", cfg.KeepAlive)

	p.Lifecycle.Append(fx.StopHook(func() error {
		return t.Close()
	}))
	return t
}
