package client

import (
	"errors"
	"fmt"
)

var (
	// ErrConnect 连接阶段失败（地址错误、握手失败、未收到 game:init）
	ErrConnect = errors.New("连接服务器失败")
	// ErrDisconnected 会话因传输层断开而终止
	ErrDisconnected = errors.New("连接已断开")

	ErrJoinTimeout   = errors.New("等待 game:init 超时")
	ErrSendQueueFull = errors.New("发送队列满")
	ErrNotConnected  = errors.New("未连接")
	ErrNoHandler     = errors.New("没有对应的消息处理器")
)

// ConnectError 连接失败，errors.Is(err, ErrConnect) 为 true
// 上层据此阻止游戏状态初始化并提示用户
type ConnectError struct {
	Addr  string
	Proto string
	Err   error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("%v (%s %s): %v", ErrConnect, e.Proto, e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

func (e *ConnectError) Is(target error) bool { return target == ErrConnect }
