package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skirmish/internal/client"
	"skirmish/internal/config"
	"skirmish/internal/logger"
	"skirmish/internal/view"
	"skirmish/pkg/ai"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "skirmish.yaml", "配置文件路径（不存在时使用默认配置）")
	addr := flag.String("addr", "", "服务器地址（tcp/kcp 为 host:port，ws 为 HTTP 地址）")
	proto := flag.String("proto", "", "传输协议: tcp | kcp | ws")
	name := flag.String("name", "", "玩家名")
	bot := flag.Bool("bot", false, "无界面模式，由脚本驱动输入")
	brain := flag.String("brain", "chase", "无界面模式的行为: circle | wander | chase")
	token := flag.String("token", "", "断线前拿到的会话令牌，用于找回原来的实体")
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
	cc := cfg.Client
	if *addr != "" {
		cc.ServerAddr = *addr
	}
	if *proto != "" {
		cc.Proto = *proto
	}
	if *name != "" {
		cc.Username = *name
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cc, *bot, *brain, *token, log); err != nil {
		if errors.Is(err, client.ErrConnect) {
			log.Errorw("无法连接服务器", "addr", cc.ServerAddr, "proto", cc.Proto, "error", err)
		} else {
			log.Errorw("客户端退出", "error", err)
		}
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cc config.ClientConfig, bot bool, brain, token string, log *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn := &client.Connector{
		Addr:  cc.ServerAddr,
		Proto: cc.Proto,
		Options: client.Options{
			Username:            cc.Username,
			Token:               token,
			MoveSpeed:           cc.MoveSpeed,
			DivergenceThreshold: cc.DivergenceThreshold,
		},
		JoinTimeout: cc.JoinTimeout,
		Log:         log,
	}

	if bot {
		err := client.Rejoin(ctx, conn, cc.Reconnects, cc.ReconnectBackoff,
			func(ctx context.Context, nc *client.NetworkClient, s *client.Session) error {
				intents, err := botIntent(brain, s)
				if err != nil {
					return err
				}
				r := client.NewRunner(s, nc, intents, cc.TickDuration(), cc.PingInterval, log)
				r.OnTick = logStats(log)
				err = r.Run(ctx)
				if errors.Is(err, context.Canceled) {
					log.Infow("收到退出信号", "stats", s.Stats())
					return nil
				}
				return err
			})
		return err
	}

	nc, session, err := conn.Connect(ctx, token)
	if err != nil {
		return err
	}
	defer nc.Close()

	ebiten.SetWindowSize(view.ScreenWidth, view.ScreenHeight)
	ebiten.SetWindowTitle("Skirmish - " + cc.Username)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeDisabled)
	ebiten.SetTPS(cc.TickRate)

	game := view.New(session, nc, cc.PingInterval, log.Named("view"))
	err = ebiten.RunGame(game)
	switch {
	case err == nil, errors.Is(err, ebiten.Termination):
		return nil
	case errors.Is(err, client.ErrDisconnected):
		// 窗口无法重开，提示用令牌在找回窗口内重新加入
		log.Warnw("与服务器断开，可用 -token 重新加入", "token", session.Token())
	}
	return err
}

func botIntent(brain string, s *client.Session) (client.IntentSource, error) {
	seed := time.Now().UnixNano()
	switch brain {
	case "circle":
		return &client.CircleIntent{}, nil
	case "wander":
		return client.NewBotIntent(ai.BotConfigWander, seed, s.Remotes()), nil
	case "chase":
		return client.NewBotIntent(ai.BotConfigChase, seed, s.Remotes()), nil
	}
	return nil, fmt.Errorf("未知的行为: %s", brain)
}

// logStats 无界面模式下每 5 秒输出一次统计
func logStats(log *zap.SugaredLogger) func(*client.Session) {
	var last time.Time
	return func(s *client.Session) {
		if time.Since(last) < 5*time.Second {
			return
		}
		last = time.Now()
		st := s.Stats()
		log.Infow("会话统计",
			"rtt_ms", s.RTT().Milliseconds(),
			"pending", s.Pending(),
			"snapshots", st.SnapshotsApplied,
			"corrections", st.Corrections,
			"replayed", st.InputsReplayed,
			"stale", st.StaleSnapshots)
	}
}
