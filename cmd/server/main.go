package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"skirmish/internal/config"
	"skirmish/internal/logger"
	"skirmish/internal/server"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "skirmish.yaml", "配置文件路径（不存在时使用默认配置）")
	address := flag.String("addr", "", "服务器监听地址")
	proto := flag.String("proto", "", "监听协议: tcp | kcp")
	httpAddr := flag.String("http", "", "WebSocket 与监控接口地址")
	flag.Parse()

	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "加载 .env 失败: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	sc := cfg.Server
	if *address != "" {
		sc.Listen = *address
	}
	if *proto != "" {
		sc.Proto = *proto
	}
	if *httpAddr != "" {
		sc.HTTPListen = *httpAddr
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if os.Getenv("JWT_SECRET") == "" {
		log.Warnw("未设置 JWT_SECRET，使用开发环境默认密钥")
	}

	// 创建服务器
	gameServer := server.NewGameServer(sc, log)
	if err := gameServer.Listen(); err != nil {
		log.Errorw("服务器启动失败", "error", err)
		_ = log.Sync()
		os.Exit(1)
	}

	log.Infow("Skirmish 服务器正在运行",
		"addr", gameServer.Addr(),
		"proto", sc.Proto,
		"http", gameServer.HTTPAddr(),
		"tick_rate", sc.TickRate,
		"broadcast_rate", sc.BroadcastRate,
		"max_players", sc.MaxPlayers)

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	gameServer.Shutdown()
}
