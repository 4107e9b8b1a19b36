package modnet

import (
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-modnet/config"
	pkgif "github.com/dep2p/go-modnet/pkg/interfaces"
	"github.com/dep2p/go-modnet/pkg/types"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 基础配置：WithConfig 或 WithConfigFile，缺省为 config.NewConfig()
	base *config.Config

	// 预设
	preset *Preset

	// 覆盖项，nil 表示不覆盖
	peerID          *types.PeerID
	listenAddrs     []string
	beacon          *bool
	beaconGroup     string
	announceAddrs   []string
	peerExchange    *bool
	metrics         *bool
	requestTimeout  *time.Duration
	handlerWorkers  *int
	dialSuppression *time.Duration

	// 自定义传输，替换默认 TCP
	transport pkgif.Transport

	// 用户 Fx 选项
	userFxOptions []fx.Option
}

func newOptions() *options {
	return &options{}
}

// toConfig 合并基础配置、预设与覆盖项，并验证
func (o *options) toConfig() (*config.Config, error) {
	cfg := o.base
	if cfg == nil {
		cfg = config.NewConfig()
	} else {
		copied := *cfg
		cfg = &copied
	}

	o.preset.Apply(cfg)

	if o.peerID != nil {
		cfg.Identity.PeerID = o.peerID.String()
	}
	if len(o.listenAddrs) > 0 {
		cfg.Transport.ListenAddrs = append([]string(nil), o.listenAddrs...)
	}
	if o.beacon != nil {
		cfg.Discovery.EnableBeacon = *o.beacon
	}
	if o.beaconGroup != "" {
		cfg.Discovery.BeaconGroup = o.beaconGroup
	}
	if len(o.announceAddrs) > 0 {
		cfg.Discovery.AnnounceAddrs = append([]string(nil), o.announceAddrs...)
	}
	if o.peerExchange != nil {
		cfg.PeerExchange.Enable = *o.peerExchange
	}
	if o.metrics != nil {
		cfg.Metrics.Enable = *o.metrics
	}
	if o.requestTimeout != nil {
		cfg.Messaging.RequestTimeout = config.Duration(*o.requestTimeout)
	}
	if o.handlerWorkers != nil {
		cfg.Messaging.HandlerWorkers = *o.handlerWorkers
	}
	if o.dialSuppression != nil {
		cfg.Discovery.DialSuppression = config.Duration(*o.dialSuppression)
	}

	// 固定节点 ID，使 fx 图中各组件看到同一个身份
	if cfg.Identity.PeerID == "" {
		cfg.Identity.PeerID = types.NewPeerID().String()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置来源
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 以 cfg 为基础配置
//
// cfg 被浅拷贝，后续选项不会修改调用方的值。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("nil config")
		}
		o.base = cfg
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载基础配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		o.base = cfg
		return nil
	}
}

// WithPreset 使用预设配置
//
// 可用预设：
//   - PresetDefault: 节点交换开启，信标关闭
//   - PresetLAN: 组播信标与节点交换
//   - PresetMinimal: 只保留连接管理，用于测试
func WithPreset(preset *Preset) Option {
	return func(o *options) error {
		o.preset = preset
		return nil
	}
}

// WithPresetName 按名称使用预设
func WithPresetName(name string) Option {
	return func(o *options) error {
		p, ok := PresetByName(name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPreset, name)
		}
		o.preset = p
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              身份与传输
// ════════════════════════════════════════════════════════════════════════════

// WithPeerID 指定节点 ID
func WithPeerID(id types.PeerID) Option {
	return func(o *options) error {
		if id.IsEmpty() {
			return fmt.Errorf("empty peer id")
		}
		o.peerID = &id
		return nil
	}
}

// WithListenAddrs 设置启动时监听的地址
func WithListenAddrs(addrs ...string) Option {
	return func(o *options) error {
		o.listenAddrs = append(o.listenAddrs, addrs...)
		return nil
	}
}

// WithTransport 使用自定义传输替换默认 TCP
//
// 主要用于测试：memory.NewNetwork().Transport()。
func WithTransport(t pkgif.Transport) Option {
	return func(o *options) error {
		o.transport = t
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              发现
// ════════════════════════════════════════════════════════════════════════════

// WithBeacon 启用或关闭组播信标
func WithBeacon(enable bool) Option {
	return func(o *options) error {
		o.beacon = &enable
		return nil
	}
}

// WithBeaconGroup 设置信标组播地址
func WithBeaconGroup(addr string) Option {
	return func(o *options) error {
		o.beaconGroup = addr
		return nil
	}
}

// WithAnnounceAddrs 设置信标和节点表中公布的地址
func WithAnnounceAddrs(addrs ...string) Option {
	return func(o *options) error {
		o.announceAddrs = append(o.announceAddrs, addrs...)
		return nil
	}
}

// WithPeerExchange 启用或关闭节点交换
func WithPeerExchange(enable bool) Option {
	return func(o *options) error {
		o.peerExchange = &enable
		return nil
	}
}

// WithDialSuppression 设置同一地址的重复拨号抑制窗口
func WithDialSuppression(d time.Duration) Option {
	return func(o *options) error {
		o.dialSuppression = &d
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              消息与指标
// ════════════════════════════════════════════════════════════════════════════

// WithRequestTimeout 设置请求等待响应的超时
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) error {
		o.requestTimeout = &d
		return nil
	}
}

// WithHandlerWorkers 设置共享处理器执行器的并发上限
func WithHandlerWorkers(n int) Option {
	return func(o *options) error {
		o.handlerWorkers = &n
		return nil
	}
}

// WithMetrics 启用或关闭 prometheus 指标
func WithMetrics(enable bool) Option {
	return func(o *options) error {
		o.metrics = &enable
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}
