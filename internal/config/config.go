package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"skirmish/internal/logger"
	"skirmish/pkg/core"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Client  ClientConfig  `yaml:"client"`
	Logging logger.Config `yaml:"logging"`
}

type ServerConfig struct {
	Listen        string        `yaml:"listen"`         // TCP/KCP 监听地址
	Proto         string        `yaml:"proto"`          // tcp | kcp
	HTTPListen    string        `yaml:"http_listen"`    // WebSocket 与监控接口
	TickRate      int           `yaml:"tick_rate"`      // 模拟频率
	BroadcastRate int           `yaml:"broadcast_rate"` // 快照广播频率
	MaxPlayers    int           `yaml:"max_players"`
	InputRate     float64       `yaml:"input_rate"`  // 每个玩家每秒最多接受的输入
	InputBurst    int           `yaml:"input_burst"` // 突发容量
	ReclaimWindow time.Duration `yaml:"reclaim_window"`
}

type ClientConfig struct {
	ServerAddr          string        `yaml:"server_addr"`
	Proto               string        `yaml:"proto"` // tcp | kcp | ws
	Username            string        `yaml:"username"`
	TickRate            int           `yaml:"tick_rate"`
	PingInterval        time.Duration `yaml:"ping_interval"`
	MoveSpeed           float64       `yaml:"move_speed"`
	DivergenceThreshold float64       `yaml:"divergence_threshold"`
	JoinTimeout         time.Duration `yaml:"join_timeout"`
	Reconnects          int           `yaml:"reconnects"` // 断线后带令牌重新加入的次数，仅无界面模式
	ReconnectBackoff    time.Duration `yaml:"reconnect_backoff"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:        ":8080",
			Proto:         "tcp",
			HTTPListen:    ":8081",
			TickRate:      core.TickRate,
			BroadcastRate: 20,
			MaxPlayers:    32,
			InputRate:     90,
			InputBurst:    30,
			ReclaimWindow: 30 * time.Second,
		},
		Client: ClientConfig{
			ServerAddr:          "127.0.0.1:8080",
			Proto:               "tcp",
			Username:            "player",
			TickRate:            core.TickRate,
			PingInterval:        core.DefaultPingInterval,
			MoveSpeed:           core.DefaultMoveSpeed,
			DivergenceThreshold: core.DefaultDivergenceThreshold,
			JoinTimeout:         10 * time.Second,
			Reconnects:          3,
			ReconnectBackoff:    time.Second,
		},
		Logging: logger.Config{
			Level: "info",
		},
	}
}

// Load 读取 YAML 文件并覆盖默认值
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault 文件不存在时使用默认配置
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate 校验取值
func (c *Config) Validate() error {
	if c.Server.TickRate <= 0 || c.Server.BroadcastRate <= 0 {
		return fmt.Errorf("server tick_rate/broadcast_rate 必须为正数")
	}
	if c.Server.BroadcastRate > c.Server.TickRate {
		return fmt.Errorf("broadcast_rate (%d) 不能大于 tick_rate (%d)", c.Server.BroadcastRate, c.Server.TickRate)
	}
	if c.Client.TickRate <= 0 {
		return fmt.Errorf("client tick_rate 必须为正数")
	}
	if c.Client.PingInterval <= 0 {
		return fmt.Errorf("client ping_interval 必须为正数")
	}
	if c.Client.Reconnects < 0 {
		return fmt.Errorf("client reconnects 不能为负数")
	}
	if c.Client.DivergenceThreshold <= 0 {
		return fmt.Errorf("client divergence_threshold 必须为正数")
	}
	return nil
}

// TickDuration 客户端采样间隔
func (c ClientConfig) TickDuration() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// LoadEnv 加载 .env（可选），文件不存在不算错误
func LoadEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
