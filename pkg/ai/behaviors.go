package ai

import (
	"math"

	"skirmish/pkg/ai/bt"
	"skirmish/pkg/core"
)

type node = bt.Node[*Blackboard]

// buildTree 贴墙时回到中心 > 追逐最近的玩家 > 游荡
func buildTree() node {
	return bt.Sel[*Blackboard](
		bt.Seq[*Blackboard](bt.If(nearWall), bt.Do(actReturnToCenter)),
		bt.Seq[*Blackboard](bt.If(hasTarget), bt.Do(actChase)),
		bt.Do(actWander),
	)
}

func nearWall(bb *Blackboard) bool {
	m := bb.Config.WallMargin
	if m <= 0 {
		return false
	}
	p := bb.Self
	return p.X < m || p.Y < m || p.X > core.WorldWidth-m || p.Y > core.WorldHeight-m
}

func actReturnToCenter(bb *Blackboard) bt.Status {
	cx, cy := core.WorldWidth/2, core.WorldHeight/2
	bb.Steer = steerTo(bb.Self, cx, cy)
	// 游荡方向也朝向中心，离开边缘后不会立即折返
	bb.WanderAngle = math.Atan2(cy-bb.Self.Y, cx-bb.Self.X)
	bb.WanderFrames = bb.Config.WanderFrames
	return bt.StatusRunning
}

func hasTarget(bb *Blackboard) bool {
	_, ok := nearest(bb)
	return ok
}

// nearest ChaseRange 内最近的其他玩家
func nearest(bb *Blackboard) (core.PlayerState, bool) {
	var (
		best  core.PlayerState
		found bool
		bestD = bb.Config.ChaseRange
	)
	for _, o := range bb.Others {
		if o.ID == bb.Self.ID {
			continue
		}
		if d := math.Hypot(o.X-bb.Self.X, o.Y-bb.Self.Y); d <= bestD {
			best, bestD, found = o, d, true
		}
	}
	return best, found
}

func actChase(bb *Blackboard) bt.Status {
	target, ok := nearest(bb)
	if !ok {
		return bt.StatusFailure
	}
	if math.Hypot(target.X-bb.Self.X, target.Y-bb.Self.Y) <= bb.Config.StopRange {
		bb.Steer = Steering{AimX: target.X, AimY: target.Y}
		return bt.StatusSuccess
	}
	bb.Steer = steerTo(bb.Self, target.X, target.Y)
	return bt.StatusRunning
}

func actWander(bb *Blackboard) bt.Status {
	if bb.WanderFrames <= 0 {
		bb.WanderAngle = bb.RNG.Float64() * 2 * math.Pi
		bb.WanderFrames = max(bb.Config.WanderFrames, 1)
	}
	bb.WanderFrames--

	dx, dy := math.Cos(bb.WanderAngle), math.Sin(bb.WanderAngle)
	bb.Steer = Steering{
		DX: dx, DY: dy,
		AimX: bb.Self.X + dx*100, AimY: bb.Self.Y + dy*100,
	}
	return bt.StatusRunning
}

func steerTo(self core.PlayerState, x, y float64) Steering {
	dx, dy := x-self.X, y-self.Y
	d := math.Hypot(dx, dy)
	if d == 0 {
		return Steering{AimX: x + 1, AimY: y}
	}
	return Steering{DX: dx / d, DY: dy / d, AimX: x, AimY: y}
}
