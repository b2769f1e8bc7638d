package client

import (
	"math"

	"skirmish/pkg/core"
)

// Intent 一帧的控制意图（来自键盘与指针，指针为世界坐标）
type Intent struct {
	Up, Down, Left, Right bool
	PointerX, PointerY    float64
}

// IntentSource 每个 Tick 提供一次意图
type IntentSource interface {
	Intent(local core.PlayerState) Intent
}

// IntentFunc 函数适配
type IntentFunc func(local core.PlayerState) Intent

func (f IntentFunc) Intent(local core.PlayerState) Intent { return f(local) }

// Sampler 把意图转换为带序号的 Input
type Sampler struct {
	moveSpeed   float64
	nextSeq     uint64
	lastHeading float64
	committed   bool
}

func NewSampler(moveSpeed float64) *Sampler {
	if moveSpeed <= 0 {
		moveSpeed = core.DefaultMoveSpeed
	}
	return &Sampler{moveSpeed: moveSpeed}
}

// Sample 生成候选输入；意图与上一次提交相同（无位移且朝向未变）时不生成
// 生成时分配下一个序号，序号永不复用
func (s *Sampler) Sample(intent Intent, local core.PlayerState, nowMs int64) (core.Input, bool) {
	vx, vy := s.velocity(intent)
	heading := core.RadToDeg(math.Atan2(intent.PointerY-local.Y, intent.PointerX-local.X))

	moving := vx != 0 || vy != 0
	if !moving && s.committed && heading == s.lastHeading {
		return core.Input{}, false
	}

	kind := core.InputRotate
	if moving {
		kind = core.InputMove
	}

	in := core.Input{
		Seq:        s.nextSeq,
		Kind:       kind,
		VX:         vx,
		VY:         vy,
		HeadingDeg: heading,
		SentAtX:    local.X,
		SentAtY:    local.Y,
		Timestamp:  nowMs,
	}
	s.nextSeq++
	s.lastHeading = heading
	s.committed = true
	return in, true
}

// NextSeq 下一个将被分配的序号
func (s *Sampler) NextSeq() uint64 {
	return s.nextSeq
}

// velocity 计算单个 Tick 的位移，斜向移动归一化
func (s *Sampler) velocity(intent Intent) (float64, float64) {
	var vx, vy float64
	if intent.Left {
		vx -= s.moveSpeed
	}
	if intent.Right {
		vx += s.moveSpeed
	}
	if intent.Up {
		vy -= s.moveSpeed
	}
	if intent.Down {
		vy += s.moveSpeed
	}
	if vx != 0 && vy != 0 {
		vx /= math.Sqrt2
		vy /= math.Sqrt2
	}
	return vx, vy
}
