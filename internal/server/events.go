package server

import (
	"fmt"

	"skirmish/pkg/core"
	"skirmish/pkg/protocol"
)

// EventKind 客户端消息在服务器侧的分类
type EventKind int

const (
	EventUnknown EventKind = iota
	EventJoin
	EventInput
	EventPing
)

func (k EventKind) String() string {
	switch k {
	case EventJoin:
		return "join"
	case EventInput:
		return "input"
	case EventPing:
		return "ping"
	default:
		return "unknown"
	}
}

type JoinEvent struct {
	Username string
	Token    string // 断线前下发的会话令牌，用于找回实体
}

type InputEvent struct {
	PlayerID string
	Input    core.Input
}

type PingEvent struct {
	ClientTime int64
}

// ClientEvent 一次解码的结果，Kind 决定哪个字段有效
type ClientEvent struct {
	Kind  EventKind
	Type  string // 原始消息类型
	Join  *JoinEvent
	Input *InputEvent
	Ping  *PingEvent
}

// DecodeEvent 只接受客户端会发送的消息，服务器下行的消息归为 EventUnknown
func DecodeEvent(codec protocol.Codec, data []byte) (*ClientEvent, error) {
	msg, err := codec.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("解析包失败: %w", err)
	}

	ev := &ClientEvent{Type: msg.Type()}
	switch m := msg.(type) {
	case *protocol.PlayerJoin:
		ev.Kind = EventJoin
		ev.Join = &JoinEvent{Username: m.Username, Token: m.Token}
	case *protocol.InputMsg:
		ev.Kind = EventInput
		ev.Input = &InputEvent{PlayerID: m.ClientID, Input: m.Input}
	case *protocol.Ping:
		ev.Kind = EventPing
		ev.Ping = &PingEvent{ClientTime: m.ClientTime}
	}
	return ev, nil
}
