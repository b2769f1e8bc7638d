package client

import (
	"context"
	"fmt"
	"time"

	"skirmish/internal/logger"
	"skirmish/pkg/core"

	"go.uber.org/zap"
)

// Runner 单线程协作式调度：Tick、心跳与入站消息在同一个 goroutine 上依次执行
type Runner struct {
	session    *Session
	in         Inbound
	dispatcher *Dispatcher
	intents    IntentSource

	tick time.Duration
	ping time.Duration
	log  *zap.SugaredLogger

	// OnTick 每次 Tick 之后调用（可选，用于观测）
	OnTick func(s *Session)
}

// NewRunner 创建调度器并把会话处理器注册到分发器
func NewRunner(s *Session, in Inbound, intents IntentSource, tick, ping time.Duration, log *zap.SugaredLogger) *Runner {
	if tick <= 0 {
		tick = core.TickDuration
	}
	if ping <= 0 {
		ping = core.DefaultPingInterval
	}
	d := NewDispatcher()
	s.Register(d)
	return &Runner{
		session:    s,
		in:         in,
		dispatcher: d,
		intents:    intents,
		tick:       tick,
		ping:       ping,
		log:        logger.OrNop(log),
	}
}

// Run 运行直到 ctx 取消或连接断开；两种情况都会结束会话
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	heartbeat := r.session.StartHeartbeat(r.ping)

	for {
		select {
		case <-ctx.Done():
			r.session.Disconnect(ctx.Err())
			return ctx.Err()

		case <-r.in.Done():
			return disconnected(r.session, r.in.Err())

		case msg := <-r.in.Inbox():
			if err := r.dispatcher.Dispatch(msg); err != nil {
				r.log.Debugw("忽略消息", "error", err)
			}

		case <-ticker.C:
			r.session.Tick(r.intents.Intent(r.session.Local()))
			if r.OnTick != nil {
				r.OnTick(r.session)
			}

		case <-heartbeat:
			r.session.Ping()
		}
	}
}

// Drain 非阻塞地处理最多 limit 条已到达的消息，供自带帧循环的调用方（ebiten）使用。
// 连接已结束时断开会话并返回包装了 ErrDisconnected 的错误。
func Drain(s *Session, in Inbound, d *Dispatcher, limit int, log *zap.SugaredLogger) error {
	for i := 0; i < limit; i++ {
		select {
		case <-in.Done():
			return disconnected(s, in.Err())
		case msg := <-in.Inbox():
			if err := d.Dispatch(msg); err != nil {
				logger.OrNop(log).Debugw("忽略消息", "error", err)
			}
		default:
			return nil
		}
	}
	return nil
}

func disconnected(s *Session, cause error) error {
	s.Disconnect(cause)
	if cause == nil {
		return ErrDisconnected
	}
	return fmt.Errorf("%w: %w", ErrDisconnected, cause)
}
