package ai

import (
	"math/rand"

	"skirmish/pkg/core"
)

// Blackboard 行为树共享的数据
type Blackboard struct {
	Self   core.PlayerState
	Others []core.PlayerState
	RNG    *rand.Rand
	Config *Config
	Frame  int

	// 本次思考的输出
	Steer Steering

	// 游荡方向（弧度），跨帧保持
	WanderAngle  float64
	WanderFrames int
}

// Steering 移动方向（单位向量或零）与瞄准点
type Steering struct {
	DX, DY     float64
	AimX, AimY float64
}

func (bb *Blackboard) reset(self core.PlayerState, others []core.PlayerState) {
	bb.Self = self
	bb.Others = others
	bb.Frame++
	bb.Steer = Steering{AimX: self.X + 1, AimY: self.Y}
}
