package core

import (
	"fmt"
	"math"
)

// InputKind 输入类型（封闭枚举）
type InputKind uint8

const (
	InputMove   InputKind = iota + 1 // 位移（可附带朝向）
	InputRotate                      // 仅朝向
)

func (k InputKind) String() string {
	switch k {
	case InputMove:
		return "move"
	case InputRotate:
		return "rotate"
	}
	return fmt.Sprintf("InputKind(%d)", uint8(k))
}

// Valid 是否为已知类型
func (k InputKind) Valid() bool {
	return k == InputMove || k == InputRotate
}

// Input 客户端一帧的输入，创建后不可修改
// VX/VY 已经是单个 Tick 的位移，不是需要再积分的速度
type Input struct {
	Seq        uint64    `json:"seq" msgpack:"seq"`
	Kind       InputKind `json:"kind" msgpack:"kind"`
	VX         float64   `json:"vx" msgpack:"vx"`
	VY         float64   `json:"vy" msgpack:"vy"`
	HeadingDeg float64   `json:"heading" msgpack:"heading"`
	SentAtX    float64   `json:"x" msgpack:"x"`
	SentAtY    float64   `json:"y" msgpack:"y"`
	Timestamp  int64     `json:"ts" msgpack:"ts"`
}

// HasMovement 是否带有位移
func (in Input) HasMovement() bool {
	return in.VX != 0 || in.VY != 0
}

// ApplyInput 将输入应用到玩家状态（纯函数）
// 客户端预测、重放以及服务端权威模拟使用同一个函数，相同起点 + 相同输入 => 相同结果
func ApplyInput(state PlayerState, in Input) PlayerState {
	switch in.Kind {
	case InputMove:
		state.X += in.VX
		state.Y += in.VY
	case InputRotate:
		// 只改朝向
	default:
		return state
	}

	// 朝向是绝对值，不是增量
	state.Rotation = DegToRad(in.HeadingDeg)

	state.X = clamp(state.X, 0, WorldWidth)
	state.Y = clamp(state.Y, 0, WorldHeight)
	return state
}

// Replay 按顺序重放一组输入
func Replay(state PlayerState, inputs []Input) PlayerState {
	for _, in := range inputs {
		state = ApplyInput(state, in)
	}
	return state
}

// DegToRad 角度转弧度
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg 弧度转角度
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
