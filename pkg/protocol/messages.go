package protocol

import (
	"fmt"

	"skirmish/pkg/core"
)

// 消息名称（与原始客户端的事件名保持一致）
const (
	MsgPlayerJoin = "player:join"
	MsgInput      = "input"
	MsgPing       = "ping"
	MsgGameInit   = "game:init"
	MsgPlayerNew  = "player:new"
	MsgPlayerLeft = "player:left"
	MsgSnapshot   = "snapshot"
	MsgPong       = "pong"
)

// Message 所有线上消息的封闭联合类型
// 只有本包定义的类型实现它，处理方按 Type() 或类型断言穷举
type Message interface {
	Type() string
	isMessage()
}

// ========== 客户端 -> 服务端 ==========

// PlayerJoin 加入请求；Token 非空时尝试找回断线前的实体
type PlayerJoin struct {
	Username string `json:"username" msgpack:"username"`
	Token    string `json:"token,omitempty" msgpack:"token,omitempty"`
}

// InputMsg 单条输入
type InputMsg struct {
	ClientID string     `json:"clientId" msgpack:"clientId"`
	Input    core.Input `json:"input" msgpack:"input"`
}

// Ping 心跳
type Ping struct {
	ClientTime int64 `json:"clientTime" msgpack:"clientTime"`
}

// ========== 服务端 -> 客户端 ==========

// GameInit 加入成功后下发给本人
type GameInit struct {
	Self     core.PlayerState   `json:"self" msgpack:"self"`
	Players  []core.PlayerState `json:"players" msgpack:"players"`
	Token    string             `json:"token,omitempty" msgpack:"token,omitempty"`
	TickRate int                `json:"tickRate,omitempty" msgpack:"tickRate,omitempty"`
}

// PlayerNew 其他玩家加入
type PlayerNew struct {
	Player core.PlayerState `json:"player" msgpack:"player"`
}

// PlayerLeft 玩家离开
type PlayerLeft struct {
	ID string `json:"id" msgpack:"id"`
}

// SnapshotMsg 权威快照
type SnapshotMsg struct {
	Snapshot core.Snapshot `json:"snapshot" msgpack:"snapshot"`
}

// Pong 心跳响应
type Pong struct {
	ClientTime int64 `json:"clientTime" msgpack:"clientTime"`
	ServerTime int64 `json:"serverTime" msgpack:"serverTime"`
}

func (*PlayerJoin) Type() string { return MsgPlayerJoin }
func (*InputMsg) Type() string { return MsgInput }
func (*Ping) Type() string { return MsgPing }
func (*GameInit) Type() string { return MsgGameInit }
func (*PlayerNew) Type() string { return MsgPlayerNew }
func (*PlayerLeft) Type() string { return MsgPlayerLeft }
func (*SnapshotMsg) Type() string { return MsgSnapshot }
func (*Pong) Type() string { return MsgPong }

func (*PlayerJoin) isMessage() {}
func (*InputMsg) isMessage() {}
func (*Ping) isMessage() {}
func (*GameInit) isMessage() {}
func (*PlayerNew) isMessage() {}
func (*PlayerLeft) isMessage() {}
func (*SnapshotMsg) isMessage() {}
func (*Pong) isMessage() {}

// newMessage 根据类型名构造空消息，用于反序列化
func newMessage(t string) (Message, error) {
	switch t {
	case MsgPlayerJoin:
		return &PlayerJoin{}, nil
	case MsgInput:
		return &InputMsg{}, nil
	case MsgPing:
		return &Ping{}, nil
	case MsgGameInit:
		return &GameInit{}, nil
	case MsgPlayerNew:
		return &PlayerNew{}, nil
	case MsgPlayerLeft:
		return &PlayerLeft{}, nil
	case MsgSnapshot:
		return &SnapshotMsg{}, nil
	case MsgPong:
		return &Pong{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, t)
	}
}
