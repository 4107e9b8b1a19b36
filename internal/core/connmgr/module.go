package connmgr

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-modnet/config"
	"github.com/dep2p/go-modnet/internal/core/metrics"
	pkgif "github.com/dep2p/go-modnet/pkg/interfaces"
)

// Params Manager 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Transport  pkgif.Transport
	Metrics    *metrics.Metrics `optional:"true"`
	Lifecycle  fx.Lifecycle
}

// Result Manager 以具体类型和接口两种形式提供
type Result struct {
	fx.Out

	Manager           *Manager
	ConnectionManager pkgif.ConnectionManager
	BeaconListener    pkgif.BeaconListener
}

// Module 连接管理 Fx 模块
var Module = fx.Module("connmgr",
	fx.Provide(NewFromParams),
)

// NewFromParams 创建 Manager 并注册生命周期
//
// 启动时监听配置的地址，停止时关闭 Manager。
func NewFromParams(p Params) (Result, error) {
	cfg, err := ConfigFromUnified(p.UnifiedCfg)
	if err != nil {
		return Result{}, err
	}
	mgr, err := New(cfg, p.Transport, p.Metrics)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			for _, addr := range cfg.ListenAddrs {
				bound, err := mgr.StartListening(addr)
				if err != nil {
					return err
				}
				logger.Info("监听地址", "addr", bound.String())
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			return mgr.Close()
		},
	})

	return Result{Manager: mgr, ConnectionManager: mgr, BeaconListener: mgr}, nil
}
