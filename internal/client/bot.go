package client

import (
	"math"

	"skirmish/pkg/ai"
	"skirmish/pkg/core"
)

// deadZone 方向分量超过约 sin(22.5°) 才按下对应方向键，圆周被分成 8 段
const deadZone = 0.38

// CircleIntent 无界面模式下的脚本意图：绕圈行走，指针指向前进方向
type CircleIntent struct {
	// Period 每绕一圈的 Tick 数
	Period int
	tick   int
}

func (c *CircleIntent) Intent(local core.PlayerState) Intent {
	period := c.Period
	if period <= 0 {
		period = 240
	}
	c.tick++

	angle := 2 * math.Pi * float64(c.tick%period) / float64(period)
	dx, dy := math.Cos(angle), math.Sin(angle)

	return Intent{
		Right:    dx > deadZone,
		Left:     dx < -deadZone,
		Down:     dy > deadZone,
		Up:       dy < -deadZone,
		PointerX: local.X + dx*100,
		PointerY: local.Y + dy*100,
	}
}

// BotIntent 行为树驱动的意图：游荡、追逐其他玩家、远离边缘
type BotIntent struct {
	ctrl    *ai.Controller
	remotes *RemoteTracker
	others  []core.PlayerState
}

// NewBotIntent remotes 为会话的远端实体，只在调度线程上读取
func NewBotIntent(cfg ai.Config, seed int64, remotes *RemoteTracker) *BotIntent {
	return &BotIntent{ctrl: ai.NewController(cfg, seed), remotes: remotes}
}

func (b *BotIntent) Intent(local core.PlayerState) Intent {
	b.others = b.others[:0]
	if b.remotes != nil {
		b.remotes.Each(func(p core.PlayerState) { b.others = append(b.others, p) })
	}
	s := b.ctrl.Think(local, b.others)

	return Intent{
		Right:    s.DX > deadZone,
		Left:     s.DX < -deadZone,
		Down:     s.DY > deadZone,
		Up:       s.DY < -deadZone,
		PointerX: s.AimX,
		PointerY: s.AimY,
	}
}
