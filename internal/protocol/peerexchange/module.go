package peerexchange

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-modnet/config"
	"github.com/dep2p/go-modnet/internal/discovery/beacon"
	pkgif "github.com/dep2p/go-modnet/pkg/interfaces"
)

// Params Exchanger 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Manager    pkgif.ConnectionManager
	Dialer     pkgif.BeaconListener
	Beacon     *beacon.Beacon `optional:"true"`
	Lifecycle  fx.Lifecycle
}

// Module 节点交换 Fx 模块
//
// 未启用时提供 nil *Exchanger。
var Module = fx.Module("protocol/peerexchange",
	fx.Provide(NewFromParams),
	fx.Invoke(func(*Exchanger) {}),
)

// NewFromParams 创建 Exchanger 并挂到连接管理器与信标上
func NewFromParams(p Params) *Exchanger {
	if p.UnifiedCfg != nil && !p.UnifiedCfg.PeerExchange.Enable {
		return nil
	}

	e := New(p.Manager, p.Dialer)
	if p.Beacon != nil {
		e.SetLocalAddrs(p.Beacon.AnnounceAddrs)
		p.Beacon.AddListener(e)
	} else {
		e.SetLocalAddrs(func() []string { return listenAddrs(p.Manager) })
	}
	e.Attach()

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			e.Detach()
			if p.Beacon != nil {
				p.Beacon.RemoveListener(e)
			}
			return nil
		},
	})
	return e
}

func listenAddrs(mgr pkgif.ConnectionManager) []string {
	var out []string
	for _, a := range mgr.ListenAddrs() {
		out = append(out, a.String())
	}
	return out
}
