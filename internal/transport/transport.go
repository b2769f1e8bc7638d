// Package transport 把 TCP/KCP 流与 WebSocket 统一成按包读写的连接
package transport

import (
	"net"
	"time"

	"skirmish/pkg/protocol"

	"github.com/gorilla/websocket"
)

// Transport 一条已建立的连接，每次读写一个完整的数据包
type Transport interface {
	ReadPacket() ([]byte, error)
	WritePacket(data []byte) error
	SetReadDeadline(t time.Time) error
	Close() error
	RemoteAddr() string
	// Codec 该连接使用的消息编码
	Codec() protocol.Codec
}

const writeTimeout = 1 * time.Second

// Stream TCP/KCP 流，4 字节大端长度前缀分帧，负载使用二进制编码
type Stream struct {
	conn net.Conn
}

func NewStream(conn net.Conn) *Stream {
	return &Stream{conn: conn}
}

func (s *Stream) ReadPacket() ([]byte, error) {
	return protocol.ReadFrame(s.conn)
}

func (s *Stream) WritePacket(data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return protocol.WriteFrame(s.conn, data)
}

func (s *Stream) SetReadDeadline(t time.Time) error { return s.conn.SetReadDeadline(t) }
func (s *Stream) Close() error { return s.conn.Close() }
func (s *Stream) RemoteAddr() string { return s.conn.RemoteAddr().String() }
func (s *Stream) Codec() protocol.Codec { return protocol.BinaryCodec{} }

// WS WebSocket，每条文本帧一个 JSON 信封
type WS struct {
	conn *websocket.Conn
}

func NewWS(conn *websocket.Conn) *WS {
	conn.SetReadLimit(protocol.MaxPacketSize)
	return &WS{conn: conn}
}

func (w *WS) ReadPacket() ([]byte, error) {
	for {
		kind, data, err := w.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (w *WS) WritePacket(data []byte) error {
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *WS) SetReadDeadline(t time.Time) error { return w.conn.SetReadDeadline(t) }
func (w *WS) Close() error { return w.conn.Close() }
func (w *WS) RemoteAddr() string { return w.conn.RemoteAddr().String() }
func (w *WS) Codec() protocol.Codec { return protocol.JSONCodec{} }
