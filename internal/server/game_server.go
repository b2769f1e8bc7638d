package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"skirmish/internal/config"
	"skirmish/internal/logger"
	"skirmish/internal/transport"
	"skirmish/pkg/protocol"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// GameServer 游戏服务器：TCP/KCP 监听 + HTTP（WebSocket、监控）
type GameServer struct {
	cfg     config.ServerConfig
	log     *zap.SugaredLogger
	room    *Room
	metrics *RoomMetrics

	// 网络
	listener     *StreamListener
	httpListener net.Listener
	httpServer   *http.Server
	upgrader     websocket.Upgrader

	// 控制
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewGameServer 创建新的游戏服务器
func NewGameServer(cfg config.ServerConfig, log *zap.SugaredLogger) *GameServer {
	ctx, cancel := context.WithCancel(context.Background())

	return &GameServer{
		cfg:      cfg,
		log:      logger.OrNop(log),
		metrics:  &RoomMetrics{},
		ctx:      ctx,
		cancel:   cancel,
		shutdown: make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 演示环境：允许所有来源
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Listen 绑定端口并启动房间、接入循环与 HTTP 服务，不阻塞
func (s *GameServer) Listen() error {
	listener, err := Listen(s.cfg.Proto, s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("监听失败: %w", err)
	}
	s.listener = listener

	if s.cfg.HTTPListen != "" {
		hl, err := net.Listen("tcp", s.cfg.HTTPListen)
		if err != nil {
			_ = listener.Close()
			return fmt.Errorf("HTTP 监听失败: %w", err)
		}
		s.httpListener = hl
		s.httpServer = &http.Server{
			Handler:           s.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	s.room = NewRoom(s.ctx, s.cfg, s.log.Named("room"), s.metrics)

	// 启动房间循环
	s.wg.Add(1)
	go s.room.Run(&s.wg)

	// 启动连接接受循环
	s.wg.Add(1)
	go s.acceptLoop()

	if s.httpServer != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Errorw("HTTP 服务异常退出", "error", err)
			}
		}()
	}

	s.log.Infow("服务器监听中", "addr", listener.Addr().String(), "proto", listener.Proto(), "http", s.HTTPAddr())
	return nil
}

// Start 启动服务器并阻塞到 Shutdown
func (s *GameServer) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	<-s.shutdown
	return nil
}

// Addr 游戏端口的实际地址
func (s *GameServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// HTTPAddr HTTP 端口的实际地址，未启用时为空
func (s *GameServer) HTTPAddr() string {
	if s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// Metrics 房间指标
func (s *GameServer) Metrics() *RoomMetrics {
	return s.metrics
}

// Shutdown 优雅关闭服务器，可重复调用
func (s *GameServer) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.log.Infow("正在关闭服务器...")

		// 取消上下文，房间与连接随之退出
		s.cancel()

		if s.listener != nil {
			_ = s.listener.Close()
		}
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			_ = s.httpServer.Shutdown(ctx)
			cancel()
		}

		close(s.shutdown)

		// 等待所有 goroutine 结束
		s.wg.Wait()

		s.log.Infow("服务器已关闭")
	})
}

// acceptLoop 接受客户端连接
func (s *GameServer) acceptLoop() {
	defer s.wg.Done()

	for {
		tr, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				s.log.Debugw("停止接受新连接")
				return
			default:
				s.log.Warnw("接受连接失败", "error", err)
				if errors.Is(err, net.ErrClosed) {
					return
				}
				continue
			}
		}

		s.log.Debugw("新连接", "remote", tr.RemoteAddr(), "proto", s.listener.Proto())
		s.serve(tr)
	}
}

// serve 为一条已建立的连接启动处理循环
func (s *GameServer) serve(tr transport.Transport) {
	conn := NewConnection(s.ctx, tr, s, s.log.Named("conn"))
	s.wg.Add(1)
	go conn.Serve(&s.wg)
}

// Handler HTTP 路由：/ws、/metrics、/healthz
func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// handleWS WebSocket 接入，消息使用 JSON 信封
func (s *GameServer) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("WebSocket 升级失败", "error", err)
		return
	}
	if s.ctx.Err() != nil {
		_ = ws.Close()
		return
	}
	s.serve(transport.NewWS(ws))
}

// handleMetrics GET /metrics
func (s *GameServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"tick_rate":      s.cfg.TickRate,
		"broadcast_rate": s.cfg.BroadcastRate,
		"metrics":        s.metrics.Snapshot(),
	})
}

// OnJoin 加入请求交给房间循环处理
func (s *GameServer) OnJoin(sess Session, ev JoinEvent) error {
	if s.room == nil {
		return errors.New("房间未初始化")
	}
	return s.room.Join(sess, ev)
}

func (s *GameServer) OnInput(ev InputEvent) {
	if s.room != nil {
		s.room.EnqueueInput(ev)
	}
}

// OnPing 直接回复 pong，不经过房间循环
func (s *GameServer) OnPing(sess Session, ev PingEvent) {
	pong := &protocol.Pong{ClientTime: ev.ClientTime, ServerTime: time.Now().UnixMilli()}
	if err := sess.Send(pong); err != nil {
		s.log.Debugw("发送 pong 失败", "player", sess.ID(), "error", err)
	}
}

func (s *GameServer) OnLeave(playerID string) {
	if s.room != nil {
		s.room.Leave(playerID)
	}
}

func (s *GameServer) OnBadPacket(error) {
	s.metrics.IncDecodeErrors()
}
