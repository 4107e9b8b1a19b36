package log

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Format 日志输出格式
type Format int

const (
	// FormatText 文本格式（默认）
	FormatText Format = iota
	// FormatJSON JSON 格式
	FormatJSON
)

// 环境变量名
const (
	EnvLevel  = "MODNET_LOG_LEVEL"
	EnvFormat = "MODNET_LOG_FORMAT"
)

// Config 日志配置
type Config struct {
	// DefaultLevel 默认日志级别
	DefaultLevel slog.Level

	// ComponentLevels 各组件的日志级别
	ComponentLevels map[string]slog.Level

	// Format 输出格式
	Format Format
}

// LevelFor 获取指定组件的日志级别
//
// 组件名按前缀匹配，"core" 覆盖 "core/channel"。最长前缀优先。
func (c *Config) LevelFor(component string) slog.Level {
	if lvl, ok := c.ComponentLevels[component]; ok {
		return lvl
	}
	best := -1
	lvl := c.DefaultLevel
	for name, l := range c.ComponentLevels {
		if strings.HasPrefix(component, name+"/") && len(name) > best {
			best = len(name)
			lvl = l
		}
	}
	return lvl
}

var (
	configMu sync.RWMutex
	current  *Config
)

// CurrentConfig 返回当前生效的配置
//
// 首次调用时从环境变量解析。
func CurrentConfig() *Config {
	configMu.RLock()
	cfg := current
	configMu.RUnlock()
	if cfg != nil {
		return cfg
	}

	configMu.Lock()
	defer configMu.Unlock()
	if current == nil {
		current = ConfigFromEnv()
	}
	return current
}

// SetConfig 替换当前配置
func SetConfig(cfg *Config) {
	configMu.Lock()
	current = cfg
	configMu.Unlock()
}

// ConfigFromEnv 从环境变量解析配置
func ConfigFromEnv() *Config {
	cfg := &Config{
		DefaultLevel:    slog.LevelInfo,
		ComponentLevels: make(map[string]slog.Level),
		Format:          FormatText,
	}
	if s := os.Getenv(EnvLevel); s != "" {
		ParseLevels(cfg, s)
	}
	if strings.EqualFold(os.Getenv(EnvFormat), "json") {
		cfg.Format = FormatJSON
	}
	return cfg
}

// ParseLevels 解析级别配置字符串
//
// 格式: component=level,component=level,defaultLevel
// 无法识别的片段被忽略。
func ParseLevels(cfg *Config, s string) {
	if cfg.ComponentLevels == nil {
		cfg.ComponentLevels = make(map[string]slog.Level)
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if name, levelName, ok := strings.Cut(part, "="); ok {
			if level, ok := ParseLevel(levelName); ok {
				cfg.ComponentLevels[strings.TrimSpace(name)] = level
			}
			continue
		}
		if level, ok := ParseLevel(part); ok {
			cfg.DefaultLevel = level
		}
	}
}

// ParseLevel 解析日志级别名称
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
