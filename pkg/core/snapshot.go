package core

// Snapshot 服务端定期广播的权威世界状态
// Tick 单调递增，客户端据此丢弃过期快照
type Snapshot struct {
	Tick            uint64                 `json:"tick" msgpack:"tick"`
	Players         map[string]PlayerState `json:"players" msgpack:"players"`
	ProcessedInputs map[string][]uint64    `json:"processedInputs" msgpack:"processedInputs"`
}

// LastProcessed 返回服务端已处理的某客户端最大序号
func (s *Snapshot) LastProcessed(clientID string) (uint64, bool) {
	if s == nil {
		return 0, false
	}
	seqs := s.ProcessedInputs[clientID]
	if len(seqs) == 0 {
		return 0, false
	}
	max := seqs[0]
	for _, seq := range seqs[1:] {
		if seq > max {
			max = seq
		}
	}
	return max, true
}

// Player 查找快照中的玩家
func (s *Snapshot) Player(id string) (PlayerState, bool) {
	if s == nil {
		return PlayerState{}, false
	}
	p, ok := s.Players[id]
	return p, ok
}
