package client

import (
	"fmt"

	"skirmish/pkg/protocol"
)

// Channel 会话向服务器发送消息的唯一出口（发送即忘）
type Channel interface {
	Send(msg protocol.Message) error
}

// Inbound 入站消息来源
type Inbound interface {
	Inbox() <-chan protocol.Message
	Done() <-chan struct{}
	Err() error
}

// HandlerFunc 消息处理函数
type HandlerFunc func(msg protocol.Message)

// Dispatcher 按消息名分发，所有处理器在调用方的 goroutine 上同步执行
type Dispatcher struct {
	handlers map[string]HandlerFunc
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

// Handle 注册处理器（对应 onMessage(type, handler)），同名覆盖
func (d *Dispatcher) Handle(msgType string, fn HandlerFunc) {
	d.handlers[msgType] = fn
}

// Dispatch 调用对应处理器
func (d *Dispatcher) Dispatch(msg protocol.Message) error {
	if msg == nil {
		return protocol.ErrNilMessage
	}
	fn, ok := d.handlers[msg.Type()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, msg.Type())
	}
	fn(msg)
	return nil
}
