// Package log 提供 modnet 统一日志接口
//
// 基于 Go 标准库 log/slog 封装，提供按组件命名的懒加载 logger。
//
// 环境变量：
//   - MODNET_LOG_LEVEL: 日志级别，支持按组件配置
//     格式: 组件=级别,组件=级别,默认级别
//     示例: core/channel=debug,warn
//   - MODNET_LOG_FORMAT: text 或 json
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// 日志级别常量（从 slog 导出，方便使用）
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var (
	outputMu sync.RWMutex
	output   io.Writer = os.Stderr
)

// Setup 按配置重建默认 logger
//
// 未出现在 levels 中的组件使用 cfg.DefaultLevel。
func Setup(cfg *Config) {
	SetConfig(cfg)
	outputMu.RLock()
	w := output
	outputMu.RUnlock()
	slog.SetDefault(newLogger(w, cfg))
}

// SetOutput 设置日志输出目标
//
// 保留当前级别与格式配置。
func SetOutput(w io.Writer) {
	outputMu.Lock()
	output = w
	outputMu.Unlock()
	slog.SetDefault(newLogger(w, CurrentConfig()))
}

// SetOutputWithLevel 同时设置日志输出目标和默认级别
//
// 组件级配置保持不变。
func SetOutputWithLevel(w io.Writer, level slog.Level) {
	prev := CurrentConfig()
	cfg := &Config{
		DefaultLevel:    level,
		ComponentLevels: prev.ComponentLevels,
		Format:          prev.Format,
	}
	SetConfig(cfg)
	SetOutput(w)
}

// Default 返回默认 logger
func Default() *slog.Logger {
	return slog.Default()
}

func newLogger(w io.Writer, cfg *Config) *slog.Logger {
	// handler 放行所有级别，组件级过滤由 LazyLogger 完成
	opts := &slog.HandlerOptions{
		Level: minLevel(cfg),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "ts"
			}
			return a
		},
	}
	if cfg.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func minLevel(cfg *Config) slog.Level {
	lvl := cfg.DefaultLevel
	for _, l := range cfg.ComponentLevels {
		if l < lvl {
			lvl = l
		}
	}
	return lvl
}

// ============================================================================
//                              LazyLogger
// ============================================================================

// LazyLogger 懒加载 logger
//
// 每次日志调用时都从 slog.Default() 获取最新的 handler，
// 支持在运行时动态切换日志输出目标。
//
// 使用方式：
//
//	var logger = log.Logger("core/channel")
//	logger.Info("channel active", "peer", id)
type LazyLogger struct {
	component string
}

// Logger 返回带组件名的 LazyLogger
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

// Component 返回组件名
func (l *LazyLogger) Component() string {
	return l.component
}

// Enabled 当前组件是否输出该级别
func (l *LazyLogger) Enabled(level slog.Level) bool {
	return level >= CurrentConfig().LevelFor(l.component)
}

func (l *LazyLogger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	slog.Default().With("component", l.component).Log(ctx, level, msg, args...)
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) {
	l.log(context.Background(), LevelDebug, msg, args...)
}

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) {
	l.log(context.Background(), LevelInfo, msg, args...)
}

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) {
	l.log(context.Background(), LevelWarn, msg, args...)
}

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) {
	l.log(context.Background(), LevelError, msg, args...)
}

// DebugContext 带 context 的 Debug 日志
func (l *LazyLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelDebug, msg, args...)
}

// InfoContext 带 context 的 Info 日志
func (l *LazyLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelInfo, msg, args...)
}

// WarnContext 带 context 的 Warn 日志
func (l *LazyLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelWarn, msg, args...)
}

// ErrorContext 带 context 的 Error 日志
func (l *LazyLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelError, msg, args...)
}

// ============================================================================
//                              工具函数
// ============================================================================

// TruncateID 安全截取 ID 用于日志显示
//
// 如果 ID 长度小于等于 maxLen，返回原 ID；
// 否则返回前 maxLen 个字符。
func TruncateID(id string, maxLen int) string {
	if len(id) <= maxLen {
		return id
	}
	return id[:maxLen]
}

func init() {
	slog.SetDefault(newLogger(os.Stderr, CurrentConfig()))
}
