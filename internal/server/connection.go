package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"skirmish/internal/logger"
	"skirmish/internal/transport"
	"skirmish/pkg/protocol"

	"go.uber.org/zap"
)

const (
	sendQueueSize = 256
	// 客户端每 2 秒 ping 一次，超过该时间没有任何数据视为断线
	idleTimeout = 15 * time.Second
)

var (
	ErrSendQueueFull    = errors.New("发送队列满")
	ErrConnectionClosed = errors.New("连接已关闭")
)

// EventHandler 接收连接解码出的事件，回调都在该连接的接收 goroutine 上执行
type EventHandler interface {
	OnJoin(sess Session, ev JoinEvent) error
	OnInput(ev InputEvent)
	OnPing(sess Session, ev PingEvent)
	OnLeave(playerID string)
	OnBadPacket(err error)
}

// Connection 一条客户端连接：一个接收 goroutine、一个发送 goroutine
type Connection struct {
	tr      transport.Transport
	codec   protocol.Codec
	handler EventHandler
	log     *zap.SugaredLogger

	playerID atomic.Value // string，空表示尚未加入
	out      chan []byte

	parent    context.Context
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	notify    atomic.Bool
}

func NewConnection(parent context.Context, tr transport.Transport, handler EventHandler, log *zap.SugaredLogger) *Connection {
	ctx, cancel := context.WithCancel(parent)
	c := &Connection{
		tr:      tr,
		codec:   tr.Codec(),
		handler: handler,
		log:     logger.OrNop(log).With("remote", tr.RemoteAddr()),
		out:     make(chan []byte, sendQueueSize),
		parent:  parent,
		ctx:     ctx,
		cancel:  cancel,
	}
	c.playerID.Store("")
	c.notify.Store(true)
	return c
}

// Serve 阻塞到连接关闭
func (c *Connection) Serve(wg *sync.WaitGroup) {
	defer wg.Done()

	var loops sync.WaitGroup
	loops.Add(2)
	go func() {
		defer loops.Done()
		c.writeLoop()
	}()
	go func() {
		defer loops.Done()
		c.readLoop()
	}()

	<-c.ctx.Done()
	c.shutdown()
	loops.Wait()
}

// Close 关闭连接，房间会把玩家停放等待重连
func (c *Connection) Close() {
	c.cancel()
}

// CloseWithoutNotify 关闭连接但不回调 OnLeave
func (c *Connection) CloseWithoutNotify() {
	c.notify.Store(false)
	c.cancel()
}

func (c *Connection) shutdown() {
	c.closeOnce.Do(func() {
		_ = c.tr.Close()
		id := c.ID()
		// 服务器关闭时不再通知房间
		if id != "" && c.notify.Load() && c.parent.Err() == nil {
			c.handler.OnLeave(id)
		}
		c.log.Infow("连接已关闭", "player", id)
	})
}

// Send 序列化后放入发送队列，不阻塞
func (c *Connection) Send(msg protocol.Message) error {
	if c.ctx.Err() != nil {
		return ErrConnectionClosed
	}
	data, err := c.codec.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case c.out <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (c *Connection) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			if err := c.tr.WritePacket(data); err != nil {
				c.log.Warnw("发送数据失败", "player", c.ID(), "error", err)
				c.Close()
				return
			}
		}
	}
}

func (c *Connection) readLoop() {
	defer c.Close()

	for c.ctx.Err() == nil {
		_ = c.tr.SetReadDeadline(time.Now().Add(idleTimeout))
		data, err := c.tr.ReadPacket()
		if err != nil {
			c.logReadError(err)
			return
		}
		if len(data) == 0 {
			continue
		}
		if err := c.dispatch(data); err != nil {
			c.handler.OnBadPacket(err)
			c.log.Warnw("处理消息失败", "player", c.ID(), "error", err)
		}
	}
}

func (c *Connection) logReadError(err error) {
	var netErr net.Error
	switch {
	case c.ctx.Err() != nil:
	case errors.As(err, &netErr) && netErr.Timeout():
		c.log.Infow("读取超时", "player", c.ID())
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		c.log.Debugw("对端断开", "player", c.ID())
	default:
		c.log.Debugw("读取失败", "player", c.ID(), "error", err)
	}
}

func (c *Connection) dispatch(data []byte) error {
	ev, err := DecodeEvent(c.codec, data)
	if err != nil {
		return err
	}

	switch ev.Kind {
	case EventJoin:
		if id := c.ID(); id != "" {
			return fmt.Errorf("玩家 %s 重复加入", id)
		}
		if err := c.handler.OnJoin(c, *ev.Join); err != nil {
			return fmt.Errorf("加入失败: %w", err)
		}
		c.log.Infow("加入成功", "player", c.ID())
	case EventInput:
		id := c.ID()
		if id == "" {
			return errors.New("加入前收到输入")
		}
		// 以连接绑定的身份为准，忽略客户端自报的 id
		ev.Input.PlayerID = id
		c.handler.OnInput(*ev.Input)
	case EventPing:
		c.handler.OnPing(c, *ev.Ping)
	default:
		return fmt.Errorf("客户端不应发送 %s", ev.Type)
	}
	return nil
}

func (c *Connection) String() string {
	if id := c.ID(); id != "" {
		return fmt.Sprintf("Connection{%s, %s}", id, c.tr.RemoteAddr())
	}
	return fmt.Sprintf("Connection{%s}", c.tr.RemoteAddr())
}

func (c *Connection) ID() string {
	id, _ := c.playerID.Load().(string)
	return id
}

func (c *Connection) SetPlayerID(playerID string) {
	c.playerID.Store(playerID)
}
