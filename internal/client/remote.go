package client

import (
	"sort"

	"skirmish/pkg/core"
)

// RemoteTracker 非本地实体的状态，快照直接覆盖（不做插值）
type RemoteTracker struct {
	players map[string]core.PlayerState
}

func NewRemoteTracker() *RemoteTracker {
	return &RemoteTracker{players: make(map[string]core.PlayerState)}
}

// OnSnapshotEntity 未知 id 视为隐式加入；已知则覆盖位置和朝向
// 返回是否新建
func (t *RemoteTracker) OnSnapshotEntity(id string, state core.PlayerState) bool {
	cur, ok := t.players[id]
	if !ok {
		state.ID = id
		t.players[id] = state
		return true
	}
	t.players[id] = core.WithPose(cur, state)
	return false
}

// OnDeparture 移除实体；未知 id 无操作
func (t *RemoteTracker) OnDeparture(id string) bool {
	if _, ok := t.players[id]; !ok {
		return false
	}
	delete(t.players, id)
	return true
}

func (t *RemoteTracker) Get(id string) (core.PlayerState, bool) {
	p, ok := t.players[id]
	return p, ok
}

func (t *RemoteTracker) Len() int {
	return len(t.players)
}

// Each 按 id 排序遍历，保证绘制顺序稳定
func (t *RemoteTracker) Each(fn func(core.PlayerState)) {
	ids := make([]string, 0, len(t.players))
	for id := range t.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fn(t.players[id])
	}
}

// Clear 释放全部远端实体
func (t *RemoteTracker) Clear() {
	clear(t.players)
}
