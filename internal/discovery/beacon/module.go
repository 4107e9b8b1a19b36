package beacon

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-modnet/config"
	pkgif "github.com/dep2p/go-modnet/pkg/interfaces"
)

// Params Beacon 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Manager    pkgif.ConnectionManager
	Listener   pkgif.BeaconListener
	Lifecycle  fx.Lifecycle
}

// Module 信标发现 Fx 模块
//
// 未启用时提供 nil *Beacon。
var Module = fx.Module("discovery/beacon",
	fx.Provide(NewFromParams),
	fx.Invoke(func(*Beacon) {}),
)

// NewFromParams 创建信标并注册生命周期
//
// 启动在连接管理器开始监听之后，公布的地址因此已经确定。
func NewFromParams(p Params) (*Beacon, error) {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	if !cfg.Enabled {
		logger.Debug("信标发现未启用")
		return nil, nil
	}

	b, err := New(cfg, p.Manager.LocalID(), WithAddrSource(p.Manager))
	if err != nil {
		return nil, err
	}
	b.AddListener(p.Listener)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return b.Start()
		},
		OnStop: func(_ context.Context) error {
			return b.Close()
		},
	})
	return b, nil
}
