package protocol

import (
	"encoding/json"
	"fmt"
)

// Codec 消息编解码
type Codec interface {
	Marshal(msg Message) ([]byte, error)
	Unmarshal(data []byte) (Message, error)
}

// Envelope JSON 信封：t 为消息名，p 为原始负载
type Envelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p"`
}

// JSONCodec 文本编码，用于 WebSocket
type JSONCodec struct{}

// Marshal 序列化为 {"t":..., "p":...}
func (JSONCodec) Marshal(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("序列化 %s 失败: %w", msg.Type(), err)
	}
	return json.Marshal(Envelope{T: msg.Type(), P: payload})
}

// Unmarshal 解析信封并按类型还原消息
func (JSONCodec) Unmarshal(data []byte) (Message, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPacket
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("解析信封失败: %w", err)
	}
	msg, err := newMessage(env.T)
	if err != nil {
		return nil, err
	}
	if len(env.P) == 0 {
		// 无负载的消息（例如 ping）
		return msg, nil
	}
	if err := json.Unmarshal(env.P, msg); err != nil {
		return nil, fmt.Errorf("解析 %s 负载失败: %w", env.T, err)
	}
	return msg, nil
}
