package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"skirmish/internal/logger"
	"skirmish/internal/transport"
	"skirmish/pkg/protocol"

	"github.com/gorilla/websocket"
	kcp "github.com/xtaci/kcp-go/v5"
	"go.uber.org/zap"
)

// NetworkClient 网络客户端：后台收发，入站消息进入 Inbox 由会话线程消费
type NetworkClient struct {
	serverAddr string
	proto      string
	log        *zap.SugaredLogger

	mu        sync.Mutex
	tr        transport.Transport
	codec     protocol.Codec
	connected bool

	inbox    chan protocol.Message
	sendChan chan []byte
	done     chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	err       error
}

// NewNetworkClient 创建网络客户端，proto 为 tcp、kcp 或 ws
func NewNetworkClient(serverAddr, proto string, log *zap.SugaredLogger) *NetworkClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &NetworkClient{
		serverAddr: serverAddr,
		proto:      proto,
		log:        logger.OrNop(log),
		inbox:      make(chan protocol.Message, InboxSize),
		sendChan:   make(chan []byte, SendQueueSize),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Connect 建立连接并启动收发循环；失败时返回 *ConnectError
func (nc *NetworkClient) Connect(ctx context.Context) error {
	nc.log.Infow("连接到服务器", "addr", nc.serverAddr, "proto", nc.proto)

	tr, err := nc.dial(ctx)
	if err != nil {
		return &ConnectError{Addr: nc.serverAddr, Proto: nc.proto, Err: err}
	}

	nc.mu.Lock()
	nc.tr = tr
	nc.codec = tr.Codec()
	nc.connected = true
	nc.mu.Unlock()

	nc.log.Infow("已连接到服务器", "remote", tr.RemoteAddr())

	nc.wg.Add(2)
	go nc.receiveLoop()
	go nc.sendLoop()
	return nil
}

func (nc *NetworkClient) dial(ctx context.Context) (transport.Transport, error) {
	if nc.serverAddr == "" {
		return nil, errors.New("服务器地址为空")
	}
	dialCtx, cancel := context.WithTimeout(ctx, DialTimeout)
	defer cancel()

	switch nc.proto {
	case "", "tcp":
		var d net.Dialer
		conn, err := d.DialContext(dialCtx, "tcp", nc.serverAddr)
		if err != nil {
			return nil, err
		}
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			_ = tcpConn.SetNoDelay(true)
		}
		return transport.NewStream(conn), nil
	case "kcp":
		conn, err := dialKCP(dialCtx, nc.serverAddr)
		if err != nil {
			return nil, err
		}
		return transport.NewStream(conn), nil
	case "ws":
		conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL(nc.serverAddr), nil)
		if err != nil {
			return nil, err
		}
		return transport.NewWS(conn), nil
	default:
		return nil, fmt.Errorf("不支持的协议: %s", nc.proto)
	}
}

// dialKCP kcp-go 的拨号不接受 context，放到 goroutine 里按 ctx 超时；
// 超时后才完成的会话直接关闭
func dialKCP(ctx context.Context, addr string) (*kcp.UDPSession, error) {
	type result struct {
		sess *kcp.UDPSession
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		sess, err := kcp.DialWithOptions(addr, nil, 0, 0)
		ch <- result{sess, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		r.sess.SetStreamMode(true)
		r.sess.SetNoDelay(1, 10, 2, 1)
		return r.sess, nil
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.sess != nil {
				_ = r.sess.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// wsURL 补全 ws://host/ws
func wsURL(addr string) string {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return addr
	}
	return "ws://" + addr + "/ws"
}

// Close 关闭连接，可重复调用
func (nc *NetworkClient) Close() {
	nc.shutdown(nil)
	nc.wg.Wait()
}

func (nc *NetworkClient) shutdown(err error) {
	nc.closeOnce.Do(func() {
		nc.mu.Lock()
		nc.err = err
		nc.connected = false
		tr := nc.tr
		nc.mu.Unlock()

		nc.cancel()
		if tr != nil {
			_ = tr.Close()
		}
		close(nc.done)
		if err != nil {
			nc.log.Warnw("网络连接中断", "error", err)
		} else {
			nc.log.Infow("网络客户端已关闭")
		}
	})
}

// IsConnected 是否已连接
func (nc *NetworkClient) IsConnected() bool {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	return nc.connected
}

// Inbox 入站消息
func (nc *NetworkClient) Inbox() <-chan protocol.Message { return nc.inbox }

// Done 连接结束时关闭
func (nc *NetworkClient) Done() <-chan struct{} { return nc.done }

// Err 连接结束的原因；主动关闭时为 nil
func (nc *NetworkClient) Err() error {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	return nc.err
}

// ========== 消息接收 ==========

func (nc *NetworkClient) receiveLoop() {
	defer nc.wg.Done()

	for {
		data, err := nc.tr.ReadPacket()
		if err != nil {
			if nc.ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			nc.shutdown(fmt.Errorf("读取失败: %w", err))
			return
		}
		if len(data) == 0 {
			continue
		}

		msg, err := nc.codec.Unmarshal(data)
		if err != nil {
			nc.log.Warnw("处理消息失败", "error", err)
			continue
		}

		if !nc.deliver(msg) {
			return
		}
	}
}

// deliver 队列满时只丢弃快照，它会被下一份快照覆盖；
// 其余消息（game:init、player:left 等）丢了无法恢复，阻塞等待消费。
// 返回 false 表示客户端已关闭。
func (nc *NetworkClient) deliver(msg protocol.Message) bool {
	select {
	case nc.inbox <- msg:
		return true
	case <-nc.ctx.Done():
		return false
	default:
	}

	if _, ok := msg.(*protocol.SnapshotMsg); ok {
		nc.log.Debugw("入站队列满，丢弃快照")
		return true
	}
	select {
	case nc.inbox <- msg:
		return true
	case <-nc.ctx.Done():
		return false
	}
}

// ========== 消息发送 ==========

func (nc *NetworkClient) sendLoop() {
	defer nc.wg.Done()

	for {
		select {
		case <-nc.ctx.Done():
			return
		case data := <-nc.sendChan:
			if err := nc.tr.WritePacket(data); err != nil {
				nc.shutdown(fmt.Errorf("发送失败: %w", err))
				return
			}
		}
	}
}

// Send 序列化并放入发送队列，不阻塞
func (nc *NetworkClient) Send(msg protocol.Message) error {
	nc.mu.Lock()
	connected, codec := nc.connected, nc.codec
	nc.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	data, err := codec.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case nc.sendChan <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}
