package ai

import (
	"math/rand"

	"skirmish/pkg/ai/bt"
	"skirmish/pkg/core"
)

// Controller 机器人控制器：每隔 ThinkIntervalFrames 帧评估一次行为树
type Controller struct {
	config *Config
	tree   bt.Node[*Blackboard]
	bb     Blackboard

	thinkCounter int
	cached       Steering
	thought      bool
}

// NewController 创建控制器，seed 固定时行为可复现
func NewController(cfg Config, seed int64) *Controller {
	if cfg.ThinkIntervalFrames <= 0 {
		cfg.ThinkIntervalFrames = 1
	}
	c := &Controller{config: &cfg, tree: buildTree()}
	c.bb.RNG = rand.New(rand.NewSource(seed))
	c.bb.Config = c.config
	return c
}

// Think 返回本帧的移动方向与瞄准点
func (c *Controller) Think(self core.PlayerState, others []core.PlayerState) Steering {
	if c.thought && c.thinkCounter > 0 {
		c.thinkCounter--
		return c.cached
	}
	c.thinkCounter = c.config.ThinkIntervalFrames - 1
	c.thought = true

	c.bb.reset(self, others)
	c.tree.Tick(&c.bb)
	c.cached = c.bb.Steer
	return c.cached
}
