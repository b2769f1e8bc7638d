package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/protobuf/encoding/protowire"
)

// Packet 字段编号（与 protobuf 线格式兼容：message Packet { string type = 1; bytes payload = 2; }）
const (
	packetFieldType    protowire.Number = 1
	packetFieldPayload protowire.Number = 2
)

// BinaryCodec 二进制编码，用于 TCP/KCP 流
// 外层是 protobuf 线格式的 Packet，负载使用 msgpack
type BinaryCodec struct{}

// Marshal 序列化消息
func (BinaryCodec) Marshal(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}
	payload, err := msgpack.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("序列化 %s 失败: %w", msg.Type(), err)
	}

	t := msg.Type()
	b := make([]byte, 0, len(t)+len(payload)+8)
	b = protowire.AppendTag(b, packetFieldType, protowire.BytesType)
	b = protowire.AppendString(b, t)
	b = protowire.AppendTag(b, packetFieldPayload, protowire.BytesType)
	b = protowire.AppendBytes(b, payload)
	return b, nil
}

// Unmarshal 反序列化消息
func (BinaryCodec) Unmarshal(data []byte) (Message, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPacket
	}

	var (
		t       string
		payload []byte
	)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("解析包头失败: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == packetFieldType && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("解析消息类型失败: %w", protowire.ParseError(n))
			}
			t = v
			data = data[n:]
		case num == packetFieldPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("解析负载失败: %w", protowire.ParseError(n))
			}
			payload = v
			data = data[n:]
		default:
			// 跳过未知字段，兼容新版本
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("跳过字段 %d 失败: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}

	msg, err := newMessage(t)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return msg, nil
	}
	if err := msgpack.Unmarshal(payload, msg); err != nil {
		return nil, fmt.Errorf("解析 %s 负载失败: %w", t, err)
	}
	return msg, nil
}
