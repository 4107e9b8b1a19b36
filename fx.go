package modnet

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-modnet/config"
	"github.com/dep2p/go-modnet/internal/core/connmgr"
	"github.com/dep2p/go-modnet/internal/core/metrics"
	"github.com/dep2p/go-modnet/internal/core/transport"
	"github.com/dep2p/go-modnet/internal/discovery/beacon"
	"github.com/dep2p/go-modnet/internal/protocol/peerexchange"
	pkgif "github.com/dep2p/go-modnet/pkg/interfaces"
	"github.com/dep2p/go-modnet/pkg/lib/log"
)

var fxLogger = log.Logger("modnet/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. Metrics → Transport → ConnMgr
//  2. Beacon（未启用时提供 nil）
//  3. PeerExchange（未启用时提供 nil）
//  4. 用户 Fx 选项
//
// 构造函数在 fx.New 中执行，因此 New 返回后管理器即可注册处理器，
// 监听在 Start 时开始。
func buildFxApp(cfg *config.Config, o *options, node *Node) *fx.App {
	modules := []fx.Option{
		fx.Supply(cfg),
		metrics.Module,
	}

	if o.transport != nil {
		t := o.transport
		modules = append(modules, fx.Provide(func() pkgif.Transport { return t }))
		fxLogger.Debug("使用自定义传输", "name", t.Name())
	} else {
		modules = append(modules, transport.Module)
	}

	modules = append(modules,
		connmgr.Module,
		beacon.Module,
		peerexchange.Module,
	)

	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}

	modules = append(modules,
		fx.Invoke(injectNodeComponents(node)),
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	return fx.New(modules...)
}

// nodeInjectParams Node 组件注入参数
type nodeInjectParams struct {
	fx.In

	Manager *connmgr.Manager
	Metrics *metrics.Metrics

	// 未启用时为 nil
	Beacon    *beacon.Beacon          `optional:"true"`
	Exchanger *peerexchange.Exchanger `optional:"true"`
}

func injectNodeComponents(node *Node) interface{} {
	return func(p nodeInjectParams) {
		node.manager = p.Manager
		node.metrics = p.Metrics
		node.beacon = p.Beacon
		node.exchanger = p.Exchanger
	}
}
