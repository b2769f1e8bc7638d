package server

import "skirmish/pkg/protocol"

// Session 房间眼中的一条客户端连接
type Session interface {
	ID() string
	Send(msg protocol.Message) error
	Close()
	CloseWithoutNotify()
	SetPlayerID(id string)
}
