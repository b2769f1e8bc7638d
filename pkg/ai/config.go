package ai

// Config 机器人行为参数
type Config struct {
	// ThinkIntervalFrames 重新评估行为树的间隔（帧），之间沿用上次的决策
	ThinkIntervalFrames int

	// ChaseRange 在该距离内发现其他玩家时追过去
	ChaseRange float64

	// StopRange 追到该距离内停下，只转向
	StopRange float64

	// WallMargin 距离世界边缘小于该值时转向中心
	WallMargin float64

	// WanderFrames 游荡时保持同一方向的帧数
	WanderFrames int
}

// 预设配置：只游荡，不追人
var BotConfigWander = Config{
	ThinkIntervalFrames: 6,
	ChaseRange:          0,
	StopRange:           0,
	WallMargin:          80,
	WanderFrames:        45,
}

// 预设配置：追逐附近的玩家
var BotConfigChase = Config{
	ThinkIntervalFrames: 3,
	ChaseRange:          500,
	StopRange:           60,
	WallMargin:          80,
	WanderFrames:        30,
}
