package core

import "math"

// PlayerState 玩家状态（纯逻辑，不包含渲染）
// Rotation 内部统一使用弧度
type PlayerState struct {
	ID       string  `json:"id" msgpack:"id"`
	X        float64 `json:"x" msgpack:"x"`
	Y        float64 `json:"y" msgpack:"y"`
	Rotation float64 `json:"rotation" msgpack:"rotation"`
	Color    string  `json:"color" msgpack:"color"`
	Name     string  `json:"name,omitempty" msgpack:"name,omitempty"`
}

// NewPlayerState 创建玩家状态
func NewPlayerState(id string, x, y float64, color string) PlayerState {
	if color == "" {
		color = DefaultPlayerColor
	}
	return PlayerState{
		ID:    id,
		X:     clamp(x, 0, WorldWidth),
		Y:     clamp(y, 0, WorldHeight),
		Color: color,
	}
}

// Divergence 返回两个状态在各轴上的绝对偏差
func Divergence(a, b PlayerState) (dx, dy float64) {
	return math.Abs(a.X - b.X), math.Abs(a.Y - b.Y)
}

// Exceeds 任一轴的偏差超过阈值
func Exceeds(dx, dy, threshold float64) bool {
	return dx > threshold || dy > threshold
}

// WithPose 用 src 的位置和朝向覆盖 dst，保留身份信息
func WithPose(dst, src PlayerState) PlayerState {
	dst.X = src.X
	dst.Y = src.Y
	dst.Rotation = src.Rotation
	return dst
}
