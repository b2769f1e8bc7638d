package core

import "time"

// 世界配置（与原客户端的物理边界一致）
const (
	WorldWidth  = 2400.0
	WorldHeight = 1800.0
	PlayerSize  = 32
)

// 客户端采样频率
const (
	TickRate     = 60
	TickDuration = time.Second / TickRate // ≈16.7ms
)

// 预测与纠错
const (
	DefaultMoveSpeed           = 4.0 // 每个 Tick 的位移（像素）
	DefaultDivergenceThreshold = 5.0 // 预测与权威位置的容差（像素）
	DefaultPingInterval        = 2 * time.Second
)

// DefaultPlayerColor 未分配颜色时使用
const DefaultPlayerColor = "#000000"
