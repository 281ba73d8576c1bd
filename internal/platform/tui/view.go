package tui

import (
	"fmt"
	"time"

	"github.com/vovakirdan/padclash/internal/config"
	"github.com/vovakirdan/padclash/internal/game"
	"github.com/vovakirdan/padclash/internal/multiplayer"
	"github.com/vovakirdan/padclash/internal/render"
)

// arenaView keeps the last two display states and draws the blend of
// them. Rows below the arena are left for the help bar.
type arenaView struct {
	scene    *render.Scene
	canvas   *render.Canvas
	prev     game.DisplayState
	cur      game.DisplayState
	lastTick time.Time
	now      time.Time
	tickRate int
}

const helpRows = 1

func newArenaView(arena config.Arena, tickRate, width, height int) arenaView {
	return arenaView{
		scene:    render.NewScene(arena),
		canvas:   render.NewCanvas(width, max(height-helpRows, 0)),
		tickRate: tickRate,
	}
}

// push records the state produced by a tick.
func (v *arenaView) push(d game.DisplayState, at time.Time) {
	if v.lastTick.IsZero() {
		v.prev = d
	} else {
		v.prev = v.cur
	}
	v.cur = d
	v.lastTick = at
	v.now = at
}

func (v *arenaView) resize(width, height int) {
	if v.canvas == nil {
		return
	}
	v.canvas.Resize(width, max(height-helpRows, 0))
}

// render draws the interpolated frame.
func (v arenaView) render(hud render.HUD) string {
	d := game.Interpolate(v.prev, v.cur, blend(v.lastTick, v.now, v.tickRate))
	v.scene.Draw(v.canvas, d, hud)
	return v.canvas.Render()
}

// resultText describes a final score.
func resultText(s multiplayer.Score) string {
	if p, ok := s.Leader(); ok {
		return fmt.Sprintf("%s wins %d-%d", p, s[0], s[1])
	}
	return fmt.Sprintf("draw %d-%d", s[0], s[1])
}
