package server

import (
	"fmt"
	"net"

	"skirmish/internal/transport"

	kcp "github.com/xtaci/kcp-go/v5"
)

// StreamListener 接受 tcp/kcp 连接，交付已加上长度帧的 Transport
type StreamListener struct {
	proto string
	inner net.Listener
	tune  func(net.Conn) net.Conn
}

// Listen proto 为空时按 tcp 处理
func Listen(proto, addr string) (*StreamListener, error) {
	switch proto {
	case "", "tcp":
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, err
		}
		return &StreamListener{proto: "tcp", inner: ln, tune: tuneTCP}, nil
	case "kcp":
		ln, err := kcp.ListenWithOptions(addr, nil, 0, 0)
		if err != nil {
			return nil, err
		}
		return &StreamListener{proto: "kcp", inner: ln, tune: tuneKCP}, nil
	default:
		return nil, fmt.Errorf("不支持的协议: %s", proto)
	}
}

func (l *StreamListener) Accept() (transport.Transport, error) {
	conn, err := l.inner.Accept()
	if err != nil {
		return nil, err
	}
	return transport.NewStream(l.tune(conn)), nil
}

func (l *StreamListener) Proto() string { return l.proto }
func (l *StreamListener) Addr() net.Addr { return l.inner.Addr() }
func (l *StreamListener) Close() error { return l.inner.Close() }

// 快照与输入都很小，禁用 Nagle
func tuneTCP(conn net.Conn) net.Conn {
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return conn
}

// 与客户端保持一致：流模式 + 快速重传
func tuneKCP(conn net.Conn) net.Conn {
	if sess, ok := conn.(*kcp.UDPSession); ok {
		sess.SetStreamMode(true)
		sess.SetNoDelay(1, 10, 2, 1)
	}
	return conn
}
