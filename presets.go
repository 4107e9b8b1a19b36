package modnet

import (
	"sort"

	"github.com/dep2p/go-modnet/config"
)

// ════════════════════════════════════════════════════════════════════════════
//                              预设配置
// ════════════════════════════════════════════════════════════════════════════

// 预设名称常量
const (
	// PresetNameDefault 默认预设名称
	PresetNameDefault = "default"

	// PresetNameLAN 局域网预设名称
	PresetNameLAN = "lan"

	// PresetNameMinimal 最小预设名称
	PresetNameMinimal = "minimal"
)

// Preset 预设配置
type Preset struct {
	// Name 预设名称
	Name string

	// Description 预设描述
	Description string

	apply func(cfg *config.Config)
}

// Apply 将预设应用到配置
func (p *Preset) Apply(cfg *config.Config) {
	if p != nil && p.apply != nil {
		p.apply(cfg)
	}
}

var (
	// PresetDefault 默认配置：节点交换开启，信标关闭
	PresetDefault = &Preset{
		Name:        PresetNameDefault,
		Description: "节点交换开启，信标关闭",
		apply:       func(*config.Config) {},
	}

	// PresetLAN 局域网配置
	//
	// 开启组播信标和节点交换，同网段节点自动互连。
	PresetLAN = &Preset{
		Name:        PresetNameLAN,
		Description: "组播信标与节点交换，局域网自动互连",
		apply: func(cfg *config.Config) {
			cfg.Discovery.EnableBeacon = true
			cfg.PeerExchange.Enable = true
		},
	}

	// PresetMinimal 最小配置，仅用于测试
	//
	// 关闭信标、节点交换和指标，处理器同步执行。
	PresetMinimal = &Preset{
		Name:        PresetNameMinimal,
		Description: "只保留连接管理，用于测试",
		apply: func(cfg *config.Config) {
			cfg.Discovery.EnableBeacon = false
			cfg.PeerExchange.Enable = false
			cfg.Metrics.Enable = false
			cfg.Messaging.HandlerWorkers = 0
		},
	}
)

var presets = map[string]*Preset{
	PresetNameDefault: PresetDefault,
	PresetNameLAN:     PresetLAN,
	PresetNameMinimal: PresetMinimal,
}

// PresetByName 按名称查找预设
func PresetByName(name string) (*Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// AvailablePresets 返回所有预设名称，有序
func AvailablePresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
