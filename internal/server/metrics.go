package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（/metrics 输出）
type RoomMetrics struct {
	TickCount         int64 // 统计的 Tick 次数
	TotalTickNs       int64 // Tick 累计耗时（纳秒）
	InputsAccepted    int64 // 被接受的输入数
	InputsApplied     int64 // 实际应用到状态上的输入数
	RateLimited       int64 // 因限流被拒绝的输入数
	OldSeqIgnored     int64 // 因旧序号被忽略的输入数
	InvalidInputs     int64 // 未知输入类型
	ChanFullDiscarded int64 // 因通道满被丢弃的输入数
	DecodeErrors      int64 // 无法解析或处理的数据包
	SnapshotsSent     int64 // 广播的快照数
	Joins             int64
	Reclaims          int64 // 凭令牌找回实体的加入
	Leaves            int64
	Players           int64 // 当前在线人数
}

func (m *RoomMetrics) IncAccepted() { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *RoomMetrics) IncApplied() { atomic.AddInt64(&m.InputsApplied, 1) }
func (m *RoomMetrics) IncRateLimited() { atomic.AddInt64(&m.RateLimited, 1) }
func (m *RoomMetrics) IncOldSeqIgnored() { atomic.AddInt64(&m.OldSeqIgnored, 1) }
func (m *RoomMetrics) IncInvalidInputs() { atomic.AddInt64(&m.InvalidInputs, 1) }
func (m *RoomMetrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *RoomMetrics) IncDecodeErrors() { atomic.AddInt64(&m.DecodeErrors, 1) }
func (m *RoomMetrics) IncSnapshotsSent() { atomic.AddInt64(&m.SnapshotsSent, 1) }
func (m *RoomMetrics) IncJoins() { atomic.AddInt64(&m.Joins, 1) }
func (m *RoomMetrics) IncReclaims() { atomic.AddInt64(&m.Reclaims, 1) }
func (m *RoomMetrics) IncLeaves() { atomic.AddInt64(&m.Leaves, 1) }
func (m *RoomMetrics) SetPlayers(n int) { atomic.StoreInt64(&m.Players, int64(n)) }
func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"avg_tick_ms":         avgMs,
		"inputs_accepted":     atomic.LoadInt64(&m.InputsAccepted),
		"inputs_applied":      atomic.LoadInt64(&m.InputsApplied),
		"rate_limited":        atomic.LoadInt64(&m.RateLimited),
		"old_seq_ignored":     atomic.LoadInt64(&m.OldSeqIgnored),
		"invalid_inputs":      atomic.LoadInt64(&m.InvalidInputs),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"decode_errors":       atomic.LoadInt64(&m.DecodeErrors),
		"snapshots_sent":      atomic.LoadInt64(&m.SnapshotsSent),
		"joins":               atomic.LoadInt64(&m.Joins),
		"reclaims":            atomic.LoadInt64(&m.Reclaims),
		"leaves":              atomic.LoadInt64(&m.Leaves),
		"players":             atomic.LoadInt64(&m.Players),
	}
}
