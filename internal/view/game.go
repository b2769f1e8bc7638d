// Package view 用 ebiten 驱动客户端会话：每帧读取键盘与鼠标，推进会话并绘制世界
package view

import (
	"image/color"
	"math"
	"time"

	"skirmish/internal/client"
	"skirmish/internal/logger"
	"skirmish/pkg/core"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"
)

const (
	ScreenWidth  = 960
	ScreenHeight = 640

	// 每帧最多处理的入站消息，避免积压时卡住一帧
	maxMessagesPerFrame = 64
)

// Game 实现 ebiten.Game；Update 即会话的单线程调度器
type Game struct {
	session    *client.Session
	in         client.Inbound
	dispatcher *client.Dispatcher
	heartbeat  <-chan time.Time
	log        *zap.SugaredLogger

	camX, camY float64
}

// New 创建界面并启动心跳
func New(s *client.Session, in client.Inbound, pingInterval time.Duration, log *zap.SugaredLogger) *Game {
	d := client.NewDispatcher()
	s.Register(d)
	g := &Game{
		session:    s,
		in:         in,
		dispatcher: d,
		heartbeat:  s.StartHeartbeat(pingInterval),
		log:        logger.OrNop(log),
	}
	g.follow()
	return g
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.session.Disconnect(nil)
		return ebiten.Termination
	}

	if err := client.Drain(g.session, g.in, g.dispatcher, maxMessagesPerFrame, g.log); err != nil {
		g.log.Warnw("连接已断开，关闭窗口", "error", err)
		return err
	}

	select {
	case <-g.heartbeat:
		g.session.Ping()
	default:
	}

	g.session.Tick(g.readIntent())
	g.follow()
	return nil
}

// readIntent WASD/方向键移动，鼠标决定朝向（换算为世界坐标）
func (g *Game) readIntent() client.Intent {
	mx, my := ebiten.CursorPosition()
	return client.Intent{
		Up:       ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp),
		Down:     ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown),
		Left:     ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft),
		Right:    ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight),
		PointerX: float64(mx) + g.camX,
		PointerY: float64(my) + g.camY,
	}
}

// follow 镜头跟随本地玩家，并限制在世界范围内
func (g *Game) follow() {
	local := g.session.Local()
	g.camX = clampCamera(local.X-ScreenWidth/2, core.WorldWidth-ScreenWidth)
	g.camY = clampCamera(local.Y-ScreenHeight/2, core.WorldHeight-ScreenHeight)
}

func clampCamera(v, hi float64) float64 {
	return math.Max(0, math.Min(v, math.Max(0, hi)))
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}

var backgroundColor = color.RGBA{236, 236, 236, 255}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)
	drawGrid(screen, g.camX, g.camY)

	g.session.Remotes().Each(func(p core.PlayerState) {
		drawPlayer(screen, p, g.camX, g.camY, false)
	})
	if g.session.State() != client.StateUninitialized {
		drawPlayer(screen, g.session.Local(), g.camX, g.camY, true)
	}

	drawHUD(screen, g.session)
}
