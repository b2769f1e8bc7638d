package view

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"skirmish/internal/client"
	"skirmish/pkg/core"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"
)

const gridSize = 100

var (
	hudFont     = text.NewGoXFace(basicfont.Face7x13)
	gridColor   = color.RGBA{210, 210, 210, 255}
	borderColor = color.RGBA{90, 90, 90, 255}
	textColor   = color.RGBA{30, 30, 30, 255}
	warnColor   = color.RGBA{200, 40, 40, 255}
)

func drawGrid(screen *ebiten.Image, camX, camY float64) {
	startX := math.Floor(camX/gridSize) * gridSize
	for x := startX; x <= camX+ScreenWidth && x <= core.WorldWidth; x += gridSize {
		sx := float32(x - camX)
		vector.StrokeLine(screen, sx, 0, sx, ScreenHeight, 1, gridColor, false)
	}
	startY := math.Floor(camY/gridSize) * gridSize
	for y := startY; y <= camY+ScreenHeight && y <= core.WorldHeight; y += gridSize {
		sy := float32(y - camY)
		vector.StrokeLine(screen, 0, sy, ScreenWidth, sy, 1, gridColor, false)
	}
	vector.StrokeRect(screen, float32(-camX), float32(-camY),
		float32(core.WorldWidth), float32(core.WorldHeight), 3, borderColor, false)
}

// drawPlayer 方块表示玩家，线段表示朝向
func drawPlayer(screen *ebiten.Image, p core.PlayerState, camX, camY float64, self bool) {
	half := float32(core.PlayerSize / 2)
	cx := float32(p.X - camX)
	cy := float32(p.Y - camY)

	vector.DrawFilledRect(screen, cx-half, cy-half, half*2, half*2, parseColor(p.Color), false)
	if self {
		vector.StrokeRect(screen, cx-half, cy-half, half*2, half*2, 2, color.Black, false)
	}

	hx := cx + float32(math.Cos(p.Rotation))*half*1.6
	hy := cy + float32(math.Sin(p.Rotation))*half*1.6
	vector.StrokeLine(screen, cx, cy, hx, hy, 3, color.Black, false)

	if p.Name != "" {
		drawText(screen, int(cx-half), int(cy-half)-4, p.Name, textColor)
	}
}

func drawHUD(screen *ebiten.Image, s *client.Session) {
	st := s.Stats()
	lines := []string{
		fmt.Sprintf("Ping: %d ms", s.RTT().Milliseconds()),
		fmt.Sprintf("User: %s", s.Username()),
		fmt.Sprintf("State: %s  Pending: %d", s.State(), s.Pending()),
		fmt.Sprintf("Snapshots: %d  Stale: %d", st.SnapshotsApplied, st.StaleSnapshots),
		fmt.Sprintf("Corrections: %d  Replayed: %d", st.Corrections, st.InputsReplayed),
		fmt.Sprintf("Players: %d  Server tick: %d Hz", s.Remotes().Len()+1, s.ServerTickRate()),
		fmt.Sprintf("Threshold: %.1f px", s.Threshold()),
	}
	y := 16
	for _, line := range lines {
		drawText(screen, 8, y, line, textColor)
		y += 16
	}

	if s.State() == client.StateDisconnected {
		msg := "Disconnected"
		if err := s.Err(); err != nil {
			msg += ": " + err.Error()
		}
		drawText(screen, 8, ScreenHeight-12, msg+" (Esc to quit)", warnColor)
	}
}

func drawText(screen *ebiten.Image, x, y int, msg string, clr color.Color) {
	options := &text.DrawOptions{}
	options.GeoM.Translate(float64(x), float64(y-13))
	options.ColorScale.ScaleWithColor(clr)
	text.Draw(screen, msg, hudFont, options)
}

// parseColor 解析 #rrggbb，失败时返回黑色
func parseColor(s string) color.RGBA {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
	if err != nil || len(strings.TrimPrefix(s, "#")) != 6 {
		return color.RGBA{0, 0, 0, 255}
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 255}
}
