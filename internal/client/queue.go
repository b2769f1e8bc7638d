package client

import (
	"fmt"
	"sort"

	"skirmish/pkg/core"
)

// InputQueue 未被服务器确认的输入，按序号升序，从不重排
type InputQueue struct {
	items   []core.Input
	lastSeq uint64
	pushed  bool
}

func NewInputQueue() *InputQueue {
	return &InputQueue{items: make([]core.Input, 0, InputBufferSize)}
}

// Push 追加输入；序号必须严格大于之前所有入队的序号，否则是程序缺陷
func (q *InputQueue) Push(in core.Input) {
	if q.pushed && in.Seq <= q.lastSeq {
		panic(fmt.Sprintf("client: 输入序号非单调递增: %d <= %d", in.Seq, q.lastSeq))
	}
	q.items = append(q.items, in)
	q.lastSeq = in.Seq
	q.pushed = true
}

// PruneUpTo 移除并返回所有序号 <= lastProcessed 的输入，重复调用无副作用
func (q *InputQueue) PruneUpTo(lastProcessed uint64) []core.Input {
	idx := sort.Search(len(q.items), func(i int) bool {
		return q.items[i].Seq > lastProcessed
	})
	if idx == 0 {
		return nil
	}
	removed := make([]core.Input, idx)
	copy(removed, q.items[:idx])

	n := copy(q.items, q.items[idx:])
	q.items = q.items[:n]
	return removed
}

// Each 按升序遍历，fn 返回 false 时停止
func (q *InputQueue) Each(fn func(core.Input) bool) {
	for _, in := range q.items {
		if !fn(in) {
			return
		}
	}
}

// Pending 返回剩余输入的副本
func (q *InputQueue) Pending() []core.Input {
	out := make([]core.Input, len(q.items))
	copy(out, q.items)
	return out
}

func (q *InputQueue) Len() int {
	return len(q.items)
}

// Clear 清空队列，序号单调性仍然保留
func (q *InputQueue) Clear() {
	q.items = q.items[:0]
}
