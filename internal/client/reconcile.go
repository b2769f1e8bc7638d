package client

import (
	"skirmish/internal/logger"
	"skirmish/pkg/core"

	"go.uber.org/zap"
)

// Reconciliation 一次快照处理的结果
type Reconciliation struct {
	Stale    bool   // 快照过期，整体丢弃
	Acked    bool   // 快照包含本客户端的确认
	LastAck  uint64 // 服务器确认的最大序号
	Clamped  bool   // 确认了从未发送的序号
	Pruned   int    // 本次移除的已确认输入数
	Replayed int    // 重放的未确认输入数
	DX, DY   float64
	Snapped  bool // 偏差超过阈值，回拉到权威状态
}

// Reconciler 用权威快照纠正本地预测
//
// base 是只应用了已确认输入的预测状态，始终满足：
// 本地预测状态 == Replay(base, 队列中未确认的输入)
type Reconciler struct {
	threshold float64
	base      core.PlayerState
	lastTick  uint64
	seenTick  bool
	log       *zap.SugaredLogger
}

func NewReconciler(threshold float64, log *zap.SugaredLogger) *Reconciler {
	if threshold <= 0 {
		threshold = core.DefaultDivergenceThreshold
	}
	return &Reconciler{threshold: threshold, log: logger.OrNop(log)}
}

// Reset 以 game:init 的状态作为新的起点
func (r *Reconciler) Reset(base core.PlayerState) {
	r.base = base
	r.lastTick = 0
	r.seenTick = false
}

// Base 已确认部分的预测状态
func (r *Reconciler) Base() core.PlayerState {
	return r.base
}

// Threshold 回拉阈值
func (r *Reconciler) Threshold() float64 {
	return r.threshold
}

// Accept 检查快照是否比上一个已处理的更新；过期或重复的快照返回 false
func (r *Reconciler) Accept(tick uint64) bool {
	if r.seenTick && tick <= r.lastTick {
		return false
	}
	r.lastTick = tick
	r.seenTick = true
	return true
}

// Reconcile 处理本客户端在快照中的部分
// nextSeq 是采样器下一个将分配的序号，用于识别从未发送过的确认
// 返回新的本地预测状态；未收到确认时原样返回 local
func (r *Reconciler) Reconcile(snap *core.Snapshot, selfID string, local core.PlayerState, q *InputQueue, nextSeq uint64) (core.PlayerState, Reconciliation) {
	var res Reconciliation

	lastAck, ok := snap.LastProcessed(selfID)
	if !ok {
		// 还没有任何确认，保持预测
		return local, res
	}
	if nextSeq == 0 {
		r.log.Warnw("收到确认但尚未发送任何输入", "ack", lastAck, "tick", snap.Tick)
		return local, res
	}
	if lastAck >= nextSeq {
		r.log.Warnw("确认了从未发送的序号，按已发送的最大序号处理", "ack", lastAck, "next", nextSeq)
		lastAck = nextSeq - 1
		res.Clamped = true
	}
	res.Acked = true
	res.LastAck = lastAck

	// 已确认的输入并入 base
	pruned := q.PruneUpTo(lastAck)
	res.Pruned = len(pruned)
	r.base = core.Replay(r.base, pruned)

	if auth, ok := snap.Player(selfID); ok {
		res.DX, res.DY = core.Divergence(r.base, auth)
		if core.Exceeds(res.DX, res.DY, r.threshold) {
			r.log.Debugw("预测偏差超过阈值，回拉到权威状态",
				"ack", lastAck, "dx", res.DX, "dy", res.DY,
				"predicted_x", r.base.X, "predicted_y", r.base.Y,
				"server_x", auth.X, "server_y", auth.Y)
			r.base = core.WithPose(r.base, auth)
			res.Snapped = true
		}
	} else {
		r.log.Warnw("快照缺少本地玩家", "self", selfID, "tick", snap.Tick)
	}

	// 无论是否回拉都重放未确认输入
	pending := q.Pending()
	res.Replayed = len(pending)
	return core.Replay(r.base, pending), res
}
