package render

import (
	"fmt"
	"math"

	"github.com/vovakirdan/padclash/internal/config"
	"github.com/vovakirdan/padclash/internal/game"
)

const (
	runePlatform   = '█'
	runeLava       = '~'
	runePad        = '='
	runeCannon     = 'Y'
	runeProjectile = '|'
)

// playerStyle is how each seat is drawn.
var playerStyle = [2]struct {
	r     rune
	color Color
}{
	{'@', ColorCyan},
	{'&', ColorMagenta},
}

// HUD is the status line above the arena.
type HUD struct {
	Score   [2]int
	Message string
}

// Scene projects display units onto a canvas. The top row holds the HUD;
// the rest is the arena with y pointing up.
type Scene struct {
	arena config.Arena
}

// NewScene creates a scene for arena.
func NewScene(arena config.Arena) *Scene {
	return &Scene{arena: arena}
}

// Draw clears c and paints d onto it.
func (s *Scene) Draw(c *Canvas, d game.DisplayState, hud HUD) {
	c.Clear()
	if c.Width() == 0 || c.Height() < 2 {
		return
	}

	a := s.arena
	for _, r := range a.Layout.Mirrored(a.Layout.Platforms) {
		s.fill(c, r, runePlatform, ColorGray)
	}
	for _, r := range a.Layout.Mirrored(a.Layout.Lava) {
		s.fill(c, r, runeLava, ColorRed)
	}

	for _, id := range game.Players {
		p := s.padPoint(id, d.Pads[id.Seat()])
		color := ColorGray
		if d.Advantage.HeldBy(id) {
			color = playerStyle[id.Seat()].color
		}
		s.fill(c, config.Rect{X: p.X, Y: p.Y, W: a.Pads.Size.W, H: a.Pads.Size.H}, runePad, color)
	}

	cannonColor := ColorOrange
	if holder, ok := d.Advantage.Holder(); ok {
		cannonColor = playerStyle[holder.Seat()].color
	}
	s.plot(c, d.CannonX, a.Cannon.MuzzleY, runeCannon, cannonColor)

	for _, p := range d.Projectiles {
		s.plot(c, p.Translation.X(), p.Translation.Y(), runeProjectile, ColorYellow)
	}

	for _, id := range game.Players {
		pos := d.Players[id.Seat()].Translation
		st := playerStyle[id.Seat()]
		s.plot(c, pos.X(), pos.Y(), st.r, st.color)
	}

	s.drawHUD(c, d, hud)
}

func (s *Scene) drawHUD(c *Canvas, d game.DisplayState, hud HUD) {
	c.DrawText(0, 0, fmt.Sprintf("P1 %d", hud.Score[0]), playerStyle[0].color)
	right := fmt.Sprintf("%d P2", hud.Score[1])
	c.DrawText(c.Width()-len(right), 0, right, playerStyle[1].color)

	status := fmt.Sprintf("round %d  cannon %s", d.Round, d.Advantage)
	if hud.Message != "" {
		status = hud.Message
	}
	c.DrawTextCentered(0, status, ColorBrightWhite)
}

func (s *Scene) padPoint(id game.PlayerID, status game.PadStatus) config.Point {
	track := s.arena.Pads.Bottom
	if id == game.Player2 {
		track = s.arena.Pads.Top
	}
	if status == game.PadRight {
		return track.Right
	}
	return track.Left
}

// cell maps a display position to a canvas cell. ok is false outside the
// arena rows.
func (s *Scene) cell(c *Canvas, x, y float32) (col, row int, ok bool) {
	size := float64(s.arena.Layout.Size)
	rows := c.Height() - 1
	col = int(math.Floor(float64(x) / size * float64(c.Width())))
	up := int(math.Floor(float64(y) / size * float64(rows)))
	row = rows - up // row 0 is the HUD
	return col, row, col >= 0 && col < c.Width() && row >= 1 && row <= rows
}

func (s *Scene) plot(c *Canvas, x, y float32, r rune, color Color) {
	if col, row, ok := s.cell(c, x, y); ok {
		c.Set(col, row, r, color)
	}
}

// fill paints every cell a centre-anchored rect touches, at least one.
func (s *Scene) fill(c *Canvas, r config.Rect, ch rune, color Color) {
	x0, y0, _ := s.cell(c, r.X-r.W/2, r.Y+r.H/2)
	x1, y1, _ := s.cell(c, r.X+r.W/2, r.Y-r.H/2)
	for row := max(y0, 1); row <= min(y1, c.Height()-1); row++ {
		for col := max(x0, 0); col <= min(x1, c.Width()-1); col++ {
			c.Set(col, row, ch, color)
		}
	}
}
