package client

import (
	"context"
	"time"

	"skirmish/pkg/protocol"
)

// Join 发送 player:join 并等待 game:init
// 在 game:init 之前到达的其他消息被丢弃；失败时返回 *ConnectError
func Join(ctx context.Context, s *Session, in Inbound, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultJoinTimeout
	}
	if err := s.Join(); err != nil {
		return &ConnectError{Proto: "join", Err: err}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return &ConnectError{Proto: "join", Err: ctx.Err()}
		case <-timer.C:
			return &ConnectError{Proto: "join", Err: ErrJoinTimeout}
		case <-in.Done():
			// 连接关闭前已入队的 game:init 仍然有效
			for {
				select {
				case msg := <-in.Inbox():
					if acceptInit(s, msg) {
						return nil
					}
					continue
				default:
				}
				break
			}
			err := in.Err()
			if err == nil {
				err = ErrDisconnected
			}
			return &ConnectError{Proto: "join", Err: err}
		case msg := <-in.Inbox():
			if acceptInit(s, msg) {
				return nil
			}
		}
	}
}

func acceptInit(s *Session, msg protocol.Message) bool {
	gi, ok := msg.(*protocol.GameInit)
	if !ok {
		s.log.Debugw("game:init 之前的消息，丢弃", "type", msg.Type())
		return false
	}
	s.OnGameInit(gi)
	return true
}
