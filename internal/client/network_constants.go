package client

import "time"

// ===== 客户端网络与预测配置 =====
const (
	// 未确认输入队列的初始容量（60Hz 下约 2 秒）
	InputBufferSize = 128

	// 入站消息缓冲，满时只丢弃快照
	InboxSize = 256

	// 发送队列大小
	SendQueueSize = 256

	// 等待 game:init 的默认超时
	DefaultJoinTimeout = 10 * time.Second

	// 建立连接的超时
	DialTimeout = 5 * time.Second
)
