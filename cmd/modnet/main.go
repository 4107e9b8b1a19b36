// Package main 提供 modnet 命令行入口
//
// 启动一个节点，注册 ping 演示处理器，打印连接变化，
// 可选地在 -metrics-addr 上暴露 prometheus 指标。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dep2p/go-modnet"
	pkgif "github.com/dep2p/go-modnet/pkg/interfaces"
	"github.com/dep2p/go-modnet/pkg/lib/future"
	"github.com/dep2p/go-modnet/pkg/lib/log"
	"github.com/dep2p/go-modnet/pkg/messages"
	"github.com/dep2p/go-modnet/pkg/types"
)

var logger = log.Logger("modnet/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
//	命令行参数：运行时覆盖
//	JSON 配置文件：节点的固定配置
//
// ═══════════════════════════════════════════════════════════════════════════
var (
	configFile   = flag.String("config", "", "配置文件路径")
	preset       = flag.String("preset", modnet.PresetNameDefault, "预设配置 ("+strings.Join(modnet.AvailablePresets(), "/")+")")
	listen       = flag.String("listen", "0.0.0.0:5555", "监听地址，逗号分隔")
	peerID       = flag.String("id", "", "节点 ID（UUID，默认随机）")
	beacon       = flag.Bool("beacon", false, "启用组播信标")
	announce     = flag.String("announce", "", "信标与节点表中公布的地址，逗号分隔")
	connect      = flag.String("connect", "", "启动后拨号的地址，逗号分隔")
	metricsAddr  = flag.String("metrics-addr", "", "prometheus 指标 HTTP 地址（如 :9100）")
	logLevel     = flag.String("log-level", "", "日志级别，如 debug 或 core=debug,info")
	pingInterval = flag.Duration("ping-interval", 10*time.Second, "向已连接节点发送 ping 的间隔，0 关闭")
	showVersion  = flag.Bool("version", false, "显示版本信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Println(modnet.VersionInfo())
		return nil
	}

	if *logLevel != "" {
		cfg := log.ConfigFromEnv()
		log.ParseLevels(cfg, *logLevel)
		log.Setup(cfg)
	}

	opts, err := buildOptions()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	node, err := modnet.New(opts...)
	if err != nil {
		return fmt.Errorf("创建节点失败: %w", err)
	}
	defer func() { _ = node.Close() }()

	if err := registerPing(node); err != nil {
		return err
	}
	node.AddConnectionListener(&pkgif.ConnectionListenerFuncs{
		OnEstablished: func(id types.PeerID) {
			fmt.Printf("+ %s\n", id)
		},
		OnClosed: func(id types.PeerID) {
			fmt.Printf("- %s\n", id)
		},
	})

	if err := node.Start(ctx); err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	printNodeInfo(node)

	if *metricsAddr != "" {
		srv := serveMetrics(node, *metricsAddr)
		defer func() { _ = srv.Close() }()
	}

	for _, addr := range splitList(*connect) {
		dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := node.Connect(dialCtx, addr); err != nil {
			logger.Warn("拨号失败", "addr", addr, "err", err)
		}
		dialCancel()
	}

	if *pingInterval > 0 {
		go pingLoop(ctx, node, *pingInterval)
	}

	fmt.Println("节点已启动，按 Ctrl+C 退出")
	<-ctx.Done()
	fmt.Println("\n正在关闭节点...")
	return nil
}

// buildOptions 构建选项
//
// 优先级：命令行参数 > 配置文件 > 预设默认值。
func buildOptions() ([]modnet.Option, error) {
	var opts []modnet.Option

	if *configFile != "" {
		opts = append(opts, modnet.WithConfigFile(*configFile))
	}
	if *configFile == "" || isFlagSet("preset") {
		opts = append(opts, modnet.WithPresetName(*preset))
	}
	if isFlagSet("listen") || *configFile == "" {
		opts = append(opts, modnet.WithListenAddrs(splitList(*listen)...))
	}
	if *peerID != "" {
		id, err := types.ParsePeerID(*peerID)
		if err != nil {
			return nil, fmt.Errorf("无效的节点 ID %q: %w", *peerID, err)
		}
		opts = append(opts, modnet.WithPeerID(id))
	}
	if isFlagSet("beacon") {
		opts = append(opts, modnet.WithBeacon(*beacon))
	}
	if addrs := splitList(*announce); len(addrs) > 0 {
		opts = append(opts, modnet.WithAnnounceAddrs(addrs...))
	}
	if *metricsAddr != "" {
		opts = append(opts, modnet.WithMetrics(true))
	}
	return opts, nil
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printNodeInfo(node *modnet.Node) {
	fmt.Printf("%s\n", modnet.VersionInfo())
	fmt.Printf("节点 ID: %s\n", node.ID())
	for _, a := range node.ListenAddrs() {
		fmt.Printf("监听: %s\n", a)
	}
	if a := node.BeaconAddr(); a != nil {
		fmt.Printf("信标: %s\n", a)
	}
}

func serveMetrics(node *modnet.Node, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", node.MetricsHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("指标服务退出", "addr", addr, "err", err)
		}
	}()
	fmt.Printf("指标: http://%s/metrics\n", addr)
	return srv
}

// ═══════════════════════════════════════════════════════════════════════════
// ping 演示
// ═══════════════════════════════════════════════════════════════════════════

const (
	kindPing messages.Kind = "ping"
	kindPong messages.Kind = "pong"
)

type ping struct {
	messages.Base
	Sent time.Time `json:"sent"`
}

func (*ping) MessageKind() messages.Kind { return kindPing }

type pong struct {
	messages.ResponseBase
	Sent time.Time `json:"sent"`
}

func (*pong) MessageKind() messages.Kind { return kindPong }

func registerPing(node *modnet.Node) error {
	if err := node.RegisterMessageKind(kindPing, messages.KindMessage, func() messages.Message { return &ping{} }); err != nil {
		return err
	}
	if err := node.RegisterMessageKind(kindPong, messages.KindResponse, func() messages.Message { return &pong{} }); err != nil {
		return err
	}
	node.Handle(kindPing, pkgif.HandlerFunc(func(_ context.Context, _ types.PeerID, m messages.Message) (messages.Response, error) {
		p := m.(*ping)
		return &pong{ResponseBase: messages.NewResponseBase(p.MessageID()), Sent: p.Sent}, nil
	}), pkgif.WithExecutor(node.Executor()))
	return nil
}

func pingLoop(ctx context.Context, node *modnet.Node, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, id := range node.ConnectedPeers() {
			node.Send(id, &ping{Base: messages.NewBase(), Sent: time.Now()}).AddListener(
				future.ListenerFunc(func(f future.Future[messages.Response]) {
					resp, ok := f.GetNow()
					if !ok {
						logger.Debug("ping 失败", "peer", id.ShortString(), "err", f.Cause())
						return
					}
					if p, ok := resp.(*pong); ok {
						fmt.Printf("ping %s: %s\n", id.ShortString(), time.Since(p.Sent).Round(time.Microsecond))
					}
				}))
		}
	}
}
