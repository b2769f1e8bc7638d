package client

import (
	"fmt"
	"time"

	"skirmish/internal/logger"
	"skirmish/pkg/core"
	"skirmish/pkg/protocol"

	"go.uber.org/zap"
)

// SessionState 会话生命周期
type SessionState int32

const (
	StateUninitialized SessionState = iota
	StatePredicting
	StateReconciling
	StateDisconnected // 终态
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StatePredicting:
		return "predicting"
	case StateReconciling:
		return "reconciling"
	case StateDisconnected:
		return "disconnected"
	}
	return fmt.Sprintf("SessionState(%d)", int32(s))
}

// Options 会话参数
type Options struct {
	Username            string
	Token               string // 断线前拿到的会话令牌，可为空
	MoveSpeed           float64
	DivergenceThreshold float64
	Now                 func() time.Time
	Logger              *zap.SugaredLogger
}

// Session 单个客户端会话，独占本地状态、输入队列与远端实体
// 所有方法必须在同一个 goroutine 上调用（由 Runner 或渲染循环保证）
type Session struct {
	ch  Channel
	log *zap.SugaredLogger
	now func() time.Time

	username string
	token    string
	state    SessionState
	selfID   string
	local    core.PlayerState
	tickRate int

	sampler *Sampler
	queue   *InputQueue
	recon   *Reconciler
	remotes *RemoteTracker
	stats   Stats

	heartbeat      *time.Ticker
	lastPingSentAt time.Time
	rtt            time.Duration
	disconnectErr  error
}

// NewSession 创建会话，ch 为注入的消息通道
func NewSession(ch Channel, opts Options) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := logger.OrNop(opts.Logger)
	return &Session{
		ch:       ch,
		log:      log,
		now:      now,
		username: opts.Username,
		token:    opts.Token,
		state:    StateUninitialized,
		sampler:  NewSampler(opts.MoveSpeed),
		queue:    NewInputQueue(),
		recon:    NewReconciler(opts.DivergenceThreshold, log),
		remotes:  NewRemoteTracker(),
	}
}

// Register 把服务端消息处理器注册到分发器
func (s *Session) Register(d *Dispatcher) {
	d.Handle(protocol.MsgGameInit, func(m protocol.Message) { s.OnGameInit(m.(*protocol.GameInit)) })
	d.Handle(protocol.MsgPlayerNew, func(m protocol.Message) { s.OnPlayerNew(m.(*protocol.PlayerNew)) })
	d.Handle(protocol.MsgPlayerLeft, func(m protocol.Message) { s.OnPlayerLeft(m.(*protocol.PlayerLeft)) })
	d.Handle(protocol.MsgSnapshot, func(m protocol.Message) { s.OnSnapshot(m.(*protocol.SnapshotMsg)) })
	d.Handle(protocol.MsgPong, func(m protocol.Message) { s.OnPong(m.(*protocol.Pong)) })
}

// Join 发送加入请求
func (s *Session) Join() error {
	if s.state != StateUninitialized {
		return fmt.Errorf("会话状态 %s 下不能加入", s.state)
	}
	return s.ch.Send(&protocol.PlayerJoin{Username: s.username, Token: s.token})
}

// ========== 周期任务 ==========

// Tick 采样 -> 预测 -> 入队 -> 发送，整体在一次调用内完成
// 返回本帧生成的输入
func (s *Session) Tick(intent Intent) (core.Input, bool) {
	if s.state != StatePredicting {
		return core.Input{}, false
	}

	in, ok := s.sampler.Sample(intent, s.local, s.now().UnixMilli())
	if !ok {
		return core.Input{}, false
	}

	s.local = core.ApplyInput(s.local, in)
	s.queue.Push(in)

	if err := s.ch.Send(&protocol.InputMsg{ClientID: s.selfID, Input: in}); err != nil {
		// 丢失的输入不重发：服务器按序号容忍空洞，预测会在下一次快照中被纠正
		s.stats.SendFailures.Add(1)
		s.log.Warnw("发送输入失败", "seq", in.Seq, "error", err)
	} else {
		s.stats.InputsSent.Add(1)
	}
	return in, true
}

// StartHeartbeat 启动心跳定时器，返回触发通道；会话结束时自动停止
func (s *Session) StartHeartbeat(interval time.Duration) <-chan time.Time {
	if s.state == StateDisconnected {
		return nil
	}
	if interval <= 0 {
		interval = core.DefaultPingInterval
	}
	if s.heartbeat != nil {
		s.heartbeat.Stop()
	}
	s.heartbeat = time.NewTicker(interval)
	return s.heartbeat.C
}

// HeartbeatActive 心跳是否仍在运行
func (s *Session) HeartbeatActive() bool {
	return s.heartbeat != nil
}

// Ping 发送心跳并记录发送时间
func (s *Session) Ping() {
	if s.state == StateDisconnected {
		return
	}
	sentAt := s.now()
	if err := s.ch.Send(&protocol.Ping{ClientTime: sentAt.UnixMilli()}); err != nil {
		s.log.Debugw("发送心跳失败", "error", err)
		return
	}
	s.lastPingSentAt = sentAt
}

// ========== 服务端消息 ==========

// OnGameInit 创建本地玩家与已有的远端玩家
func (s *Session) OnGameInit(msg *protocol.GameInit) {
	if s.state != StateUninitialized {
		s.stats.ProtocolErrors.Add(1)
		s.log.Warnw("重复的 game:init，忽略", "state", s.state, "self", msg.Self.ID)
		return
	}

	s.selfID = msg.Self.ID
	s.local = msg.Self
	s.recon.Reset(msg.Self)
	if msg.Token != "" {
		s.token = msg.Token
	}
	s.tickRate = msg.TickRate

	for _, p := range msg.Players {
		if p.ID == s.selfID {
			continue
		}
		s.remotes.OnSnapshotEntity(p.ID, p)
	}

	s.state = StatePredicting
	s.log.Infow("已加入游戏", "self", s.selfID, "x", s.local.X, "y", s.local.Y, "players", s.remotes.Len())
}

// OnPlayerNew 其他玩家加入
func (s *Session) OnPlayerNew(msg *protocol.PlayerNew) {
	if !s.ready("player:new") {
		return
	}
	if msg.Player.ID == s.selfID {
		return
	}
	s.remotes.OnSnapshotEntity(msg.Player.ID, msg.Player)
	s.log.Infow("玩家加入", "id", msg.Player.ID, "name", msg.Player.Name)
}

// OnPlayerLeft 玩家离开；未知 id 无操作
func (s *Session) OnPlayerLeft(msg *protocol.PlayerLeft) {
	if !s.ready("player:left") {
		return
	}
	if s.remotes.OnDeparture(msg.ID) {
		s.log.Infow("玩家离开", "id", msg.ID)
	}
}

// OnSnapshot 对账：丢弃过期快照 -> 裁剪已确认输入 -> 偏差检测 -> 重放 -> 更新远端
func (s *Session) OnSnapshot(msg *protocol.SnapshotMsg) Reconciliation {
	if !s.ready("snapshot") {
		return Reconciliation{}
	}
	snap := &msg.Snapshot

	if !s.recon.Accept(snap.Tick) {
		s.stats.StaleSnapshots.Add(1)
		s.log.Debugw("丢弃过期快照", "tick", snap.Tick)
		return Reconciliation{Stale: true}
	}

	s.state = StateReconciling
	local, res := s.recon.Reconcile(snap, s.selfID, s.local, s.queue, s.sampler.NextSeq())
	s.local = local
	s.state = StatePredicting

	if res.Clamped {
		s.stats.UnknownAcks.Add(1)
	}
	if res.Snapped {
		s.stats.Corrections.Add(1)
	}
	s.stats.InputsReplayed.Add(uint64(res.Replayed))
	s.stats.SnapshotsApplied.Add(1)

	for id, p := range snap.Players {
		if id == s.selfID {
			continue
		}
		s.remotes.OnSnapshotEntity(id, p)
	}
	return res
}

// OnPong 计算往返延迟
func (s *Session) OnPong(*protocol.Pong) {
	if s.state == StateDisconnected || s.lastPingSentAt.IsZero() {
		return
	}
	s.rtt = s.now().Sub(s.lastPingSentAt)
}

// Disconnect 停止心跳、清空队列、释放远端实体并进入终态
func (s *Session) Disconnect(cause error) {
	if s.state == StateDisconnected {
		return
	}
	if s.heartbeat != nil {
		s.heartbeat.Stop()
		s.heartbeat = nil
	}
	s.queue.Clear()
	s.remotes.Clear()
	s.state = StateDisconnected
	s.disconnectErr = cause
	s.log.Infow("会话结束", "self", s.selfID, "cause", cause)
}

func (s *Session) ready(what string) bool {
	switch s.state {
	case StatePredicting, StateReconciling:
		return true
	case StateUninitialized:
		s.stats.ProtocolErrors.Add(1)
		s.log.Debugw("game:init 之前收到消息，忽略", "type", what)
	}
	return false
}

// ========== 只读访问 ==========

func (s *Session) State() SessionState { return s.state }
func (s *Session) SelfID() string { return s.selfID }
func (s *Session) Token() string { return s.token }
func (s *Session) Username() string { return s.username }
func (s *Session) Local() core.PlayerState { return s.local }
func (s *Session) Remotes() *RemoteTracker { return s.remotes }
func (s *Session) Pending() int { return s.queue.Len() }
func (s *Session) PendingInputs() []core.Input { return s.queue.Pending() }
func (s *Session) RTT() time.Duration { return s.rtt }
func (s *Session) Stats() StatsSnapshot { return s.stats.Snapshot() }
func (s *Session) Threshold() float64 { return s.recon.Threshold() }
func (s *Session) ServerTickRate() int { return s.tickRate }
func (s *Session) Err() error { return s.disconnectErr }
