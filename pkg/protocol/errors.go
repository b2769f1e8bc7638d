package protocol

import "errors"

var (
	ErrUnknownMessage = errors.New("未知消息类型")
	ErrEmptyPacket    = errors.New("空数据包")
	ErrPacketTooLarge = errors.New("数据包过大")
	ErrNilMessage     = errors.New("消息为空")
)
