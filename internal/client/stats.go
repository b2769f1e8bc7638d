package client

import "sync/atomic"

// Stats 会话运行指标（HUD 与日志读取，可跨 goroutine）
type Stats struct {
	InputsSent       atomic.Uint64
	SendFailures     atomic.Uint64
	SnapshotsApplied atomic.Uint64
	StaleSnapshots   atomic.Uint64
	Corrections      atomic.Uint64 // 超过阈值后的强制回拉
	InputsReplayed   atomic.Uint64
	UnknownAcks      atomic.Uint64
	ProtocolErrors   atomic.Uint64
}

// StatsSnapshot 只读副本
type StatsSnapshot struct {
	InputsSent       uint64 `json:"inputsSent"`
	SendFailures     uint64 `json:"sendFailures"`
	SnapshotsApplied uint64 `json:"snapshotsApplied"`
	StaleSnapshots   uint64 `json:"staleSnapshots"`
	Corrections      uint64 `json:"corrections"`
	InputsReplayed   uint64 `json:"inputsReplayed"`
	UnknownAcks      uint64 `json:"unknownAcks"`
	ProtocolErrors   uint64 `json:"protocolErrors"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		InputsSent:       s.InputsSent.Load(),
		SendFailures:     s.SendFailures.Load(),
		SnapshotsApplied: s.SnapshotsApplied.Load(),
		StaleSnapshots:   s.StaleSnapshots.Load(),
		Corrections:      s.Corrections.Load(),
		InputsReplayed:   s.InputsReplayed.Load(),
		UnknownAcks:      s.UnknownAcks.Load(),
		ProtocolErrors:   s.ProtocolErrors.Load(),
	}
}
