package client

import (
	"context"
	"errors"
	"time"

	"skirmish/internal/logger"

	"go.uber.org/zap"
)

// Connector 建立连接并完成 player:join
type Connector struct {
	Addr        string
	Proto       string
	Options     Options // Token 在每次连接时覆盖
	JoinTimeout time.Duration
	Log         *zap.SugaredLogger
}

// Connect token 非空时请求服务器找回断线前的实体
func (c *Connector) Connect(ctx context.Context, token string) (*NetworkClient, *Session, error) {
	log := logger.OrNop(c.Log)
	nc := NewNetworkClient(c.Addr, c.Proto, log.Named("net"))
	if err := nc.Connect(ctx); err != nil {
		return nil, nil, err
	}

	opts := c.Options
	opts.Token = token
	if opts.Logger == nil {
		opts.Logger = log.Named("session")
	}
	s := NewSession(nc, opts)
	if err := Join(ctx, s, nc, c.JoinTimeout); err != nil {
		nc.Close()
		return nil, nil, err
	}
	return nc, s, nil
}

// Rejoin 运行 run；连接断开时带着最近的令牌重连，最多 retries 次。
// 首次连接失败、run 因其他原因返回或 ctx 取消时直接返回。
func Rejoin(ctx context.Context, c *Connector, retries int, backoff time.Duration,
	run func(context.Context, *NetworkClient, *Session) error) error {
	log := logger.OrNop(c.Log)
	token := c.Options.Token

	nc, s, err := c.Connect(ctx, token)
	if err != nil {
		return err
	}

	for attempt := 0; ; {
		err = run(ctx, nc, s)
		nc.Close()
		if !errors.Is(err, ErrDisconnected) || ctx.Err() != nil {
			return err
		}
		if t := s.Token(); t != "" {
			token = t
		}

		for {
			if attempt >= retries {
				return err
			}
			attempt++
			log.Infow("连接断开，尝试重新加入", "attempt", attempt, "retries", retries, "error", err)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}

			var cerr error
			nc, s, cerr = c.Connect(ctx, token)
			if cerr == nil {
				log.Infow("已重新加入", "player", s.SelfID())
				break
			}
			log.Warnw("重新加入失败", "attempt", attempt, "error", cerr)
			err = cerr
		}
	}
}
