package server

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"skirmish/internal/config"
	"skirmish/internal/logger"
	"skirmish/pkg/core"
	"skirmish/pkg/protocol"

	uuid "github.com/satori/go.uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrRoomClosed = errors.New("房间已关闭")
	ErrRoomFull   = errors.New("房间已满")
)

// 玩家颜色，按加入顺序循环分配
var palette = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231",
	"#911eb4", "#42d4f4", "#f032e6", "#bfef45",
}

// spawnRadius 出生点围绕世界中心分布的半径
const spawnRadius = 200.0

// Room 唯一的权威世界：所有状态只在 Run 所在的 goroutine 上修改
type Room struct {
	ctx     context.Context
	cancel  context.CancelFunc
	cfg     config.ServerConfig
	log     *zap.SugaredLogger
	metrics *RoomMetrics
	tokens  *Tokens
	now     func() time.Time

	frame          uint64
	broadcastEvery uint64
	joinCount      int

	players map[string]*roomPlayer
	parked  map[string]parkedPlayer

	joinCh  chan joinRequest
	inputCh chan InputEvent
	leaveCh chan string
}

type roomPlayer struct {
	state   core.PlayerState
	sess    Session
	limiter *rate.Limiter

	pending   []core.Input
	lastSeq   uint64
	hasSeq    bool
	processed []uint64 // 自上次广播以来处理过的序号
}

// parkedPlayer 断线后保留的实体，令牌有效且未过期时可以找回
type parkedPlayer struct {
	state   core.PlayerState
	expires time.Time
}

type joinRequest struct {
	sess   Session
	ev     JoinEvent
	respCh chan error
}

func NewRoom(parent context.Context, cfg config.ServerConfig, log *zap.SugaredLogger, metrics *RoomMetrics) *Room {
	ctx, cancel := context.WithCancel(parent)
	if metrics == nil {
		metrics = &RoomMetrics{}
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = core.TickRate
	}
	if cfg.BroadcastRate <= 0 || cfg.BroadcastRate > cfg.TickRate {
		cfg.BroadcastRate = cfg.TickRate
	}
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = math.MaxInt
	}

	return &Room{
		ctx:            ctx,
		cancel:         cancel,
		cfg:            cfg,
		log:            logger.OrNop(log),
		metrics:        metrics,
		tokens:         TokensFromEnv(cfg.ReclaimWindow),
		now:            time.Now,
		broadcastEvery: uint64(cfg.TickRate / cfg.BroadcastRate),
		players:        make(map[string]*roomPlayer),
		parked:         make(map[string]parkedPlayer),
		joinCh:         make(chan joinRequest),
		inputCh:        make(chan InputEvent, 1024),
		leaveCh:        make(chan string, 256),
	}
}

func (r *Room) Run(wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(r.cfg.TickRate))
	defer ticker.Stop()

	r.log.Infow("房间循环启动", "tick_rate", r.cfg.TickRate, "broadcast_rate", r.cfg.BroadcastRate)

	for {
		select {
		case <-r.ctx.Done():
			r.closeAllConnections()
			r.log.Infow("房间循环停止")
			return

		case req := <-r.joinCh:
			req.respCh <- r.handleJoin(req.sess, req.ev)

		case ev := <-r.inputCh:
			r.handleInput(ev)

		case playerID := <-r.leaveCh:
			r.handleLeave(playerID)

		case <-ticker.C:
			r.tick()
		}
	}
}

func (r *Room) Shutdown() {
	r.cancel()
}

// Join 在房间 goroutine 上完成加入，返回结果
func (r *Room) Join(sess Session, ev JoinEvent) error {
	respCh := make(chan error, 1)

	select {
	case <-r.ctx.Done():
		return ErrRoomClosed
	case r.joinCh <- joinRequest{sess: sess, ev: ev, respCh: respCh}:
	}

	select {
	case <-r.ctx.Done():
		return ErrRoomClosed
	case err := <-respCh:
		return err
	}
}

// EnqueueInput 不阻塞；队列满时丢弃
func (r *Room) EnqueueInput(ev InputEvent) {
	select {
	case r.inputCh <- ev:
	default:
		r.metrics.IncChanFullDiscarded()
	}
}

func (r *Room) Leave(playerID string) {
	select {
	case <-r.ctx.Done():
	case r.leaveCh <- playerID:
	}
}

// ========== 房间 goroutine ==========

func (r *Room) tick() {
	start := r.now()
	r.frame++

	for _, p := range r.players {
		r.applyInputs(p)
	}

	if r.frame%r.broadcastEvery == 0 {
		r.broadcastSnapshot()
		r.expireParked(start)
	}

	r.metrics.AddTick(time.Since(start).Nanoseconds())
}

// applyInputs 按序号升序应用本帧收到的输入，重复或过期的序号跳过
func (r *Room) applyInputs(p *roomPlayer) {
	if len(p.pending) == 0 {
		return
	}
	slices.SortFunc(p.pending, func(a, b core.Input) int { return cmp.Compare(a.Seq, b.Seq) })

	for _, in := range p.pending {
		if p.hasSeq && in.Seq <= p.lastSeq {
			continue
		}
		p.state = core.ApplyInput(p.state, in)
		p.lastSeq = in.Seq
		p.hasSeq = true
		p.processed = append(p.processed, in.Seq)
		r.metrics.IncApplied()
	}
	p.pending = p.pending[:0]
}

func (r *Room) handleJoin(sess Session, ev JoinEvent) error {
	if len(r.players) >= r.cfg.MaxPlayers {
		return fmt.Errorf("%w (%d/%d)", ErrRoomFull, len(r.players), r.cfg.MaxPlayers)
	}

	state, reclaimed := r.reclaim(ev.Token)
	if !reclaimed {
		state = r.spawn(uuid.NewV4().String())
	}
	if ev.Username != "" {
		state.Name = ev.Username
	}

	token, err := r.tokens.Issue(state.ID)
	if err != nil {
		return fmt.Errorf("生成会话令牌失败: %w", err)
	}

	sess.SetPlayerID(state.ID)
	gi := &protocol.GameInit{
		Self:     state,
		Players:  r.playerStates(),
		Token:    token,
		TickRate: r.cfg.TickRate,
	}
	if err := sess.Send(gi); err != nil {
		sess.SetPlayerID("")
		if reclaimed {
			r.parked[state.ID] = parkedPlayer{state: state, expires: r.now().Add(r.cfg.ReclaimWindow)}
		}
		return fmt.Errorf("发送 game:init 失败: %w", err)
	}

	r.players[state.ID] = &roomPlayer{
		state:   state,
		sess:    sess,
		limiter: r.newLimiter(),
	}
	r.broadcastExcept(state.ID, &protocol.PlayerNew{Player: state})

	r.metrics.IncJoins()
	if reclaimed {
		r.metrics.IncReclaims()
	}
	r.metrics.SetPlayers(len(r.players))
	r.log.Infow("玩家加入",
		"player", state.ID, "name", state.Name, "reclaimed", reclaimed,
		"x", state.X, "y", state.Y, "players", len(r.players))
	return nil
}

// reclaim 凭令牌取回停放的实体；序号从零开始重新计算
func (r *Room) reclaim(token string) (core.PlayerState, bool) {
	if token == "" {
		return core.PlayerState{}, false
	}
	id, err := r.tokens.Verify(token)
	if err != nil {
		r.log.Debugw("令牌无效，按新玩家处理", "error", err)
		return core.PlayerState{}, false
	}
	parked, ok := r.parked[id]
	if !ok || r.now().After(parked.expires) {
		return core.PlayerState{}, false
	}
	delete(r.parked, id)
	return parked.state, true
}

func (r *Room) spawn(id string) core.PlayerState {
	n := r.joinCount
	r.joinCount++

	angle := float64(n) * 2 * math.Pi / float64(len(palette))
	x := core.WorldWidth/2 + spawnRadius*math.Cos(angle)
	y := core.WorldHeight/2 + spawnRadius*math.Sin(angle)
	return core.NewPlayerState(id, math.Round(x), math.Round(y), palette[n%len(palette)])
}

func (r *Room) newLimiter() *rate.Limiter {
	if r.cfg.InputRate <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := r.cfg.InputBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(r.cfg.InputRate), burst)
}

func (r *Room) handleInput(ev InputEvent) {
	p, ok := r.players[ev.PlayerID]
	if !ok {
		return
	}
	if !p.limiter.Allow() {
		r.metrics.IncRateLimited()
		return
	}
	if !ev.Input.Kind.Valid() {
		r.metrics.IncInvalidInputs()
		return
	}
	if p.hasSeq && ev.Input.Seq <= p.lastSeq {
		r.metrics.IncOldSeqIgnored()
		return
	}
	p.pending = append(p.pending, ev.Input)
	r.metrics.IncAccepted()
}

func (r *Room) handleLeave(playerID string) {
	p, ok := r.players[playerID]
	if !ok {
		return
	}
	delete(r.players, playerID)

	if r.cfg.ReclaimWindow > 0 {
		r.parked[playerID] = parkedPlayer{state: p.state, expires: r.now().Add(r.cfg.ReclaimWindow)}
	}

	r.metrics.IncLeaves()
	r.metrics.SetPlayers(len(r.players))
	r.log.Infow("玩家离开", "player", playerID, "players", len(r.players))

	r.broadcastExcept("", &protocol.PlayerLeft{ID: playerID})
}

func (r *Room) expireParked(now time.Time) {
	for id, parked := range r.parked {
		if now.After(parked.expires) {
			delete(r.parked, id)
		}
	}
}

func (r *Room) closeAllConnections() {
	for _, p := range r.players {
		p.sess.CloseWithoutNotify()
	}
}

// buildSnapshot 当前帧的全量快照
// 每个玩家附带自上次广播以来处理过的序号；没有新输入时重复最后一个已处理的序号
func (r *Room) buildSnapshot() core.Snapshot {
	snap := core.Snapshot{
		Tick:            r.frame,
		Players:         make(map[string]core.PlayerState, len(r.players)),
		ProcessedInputs: make(map[string][]uint64, len(r.players)),
	}
	for id, p := range r.players {
		snap.Players[id] = p.state
		switch {
		case len(p.processed) > 0:
			snap.ProcessedInputs[id] = p.processed
			p.processed = nil
		case p.hasSeq:
			snap.ProcessedInputs[id] = []uint64{p.lastSeq}
		}
	}
	return snap
}

func (r *Room) broadcastSnapshot() {
	if len(r.players) == 0 {
		return
	}
	r.broadcastExcept("", &protocol.SnapshotMsg{Snapshot: r.buildSnapshot()})
	r.metrics.IncSnapshotsSent()
}

func (r *Room) broadcastExcept(skip string, msg protocol.Message) {
	for id, p := range r.players {
		if id == skip {
			continue
		}
		if err := p.sess.Send(msg); err != nil {
			r.log.Warnw("发送消息失败", "player", id, "type", msg.Type(), "error", err)
		}
	}
}

// playerStates 按 id 排序的全部玩家
func (r *Room) playerStates() []core.PlayerState {
	out := make([]core.PlayerState, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p.state)
	}
	slices.SortFunc(out, func(a, b core.PlayerState) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
