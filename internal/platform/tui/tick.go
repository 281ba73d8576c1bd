// Package tui provides the Bubble Tea front end for padclash: menus, local
// and online matches, match history and the SSH server.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TickMsg is sent to trigger a simulation tick. Owner is the match that
// scheduled it, so a loop left over from a previous match dies out.
type TickMsg struct {
	Owner string
	Time  time.Time
}

// FrameMsg is sent to redraw between ticks.
type FrameMsg struct {
	Owner string
	Time  time.Time
}

// tickCmd returns a Bubble Tea command that sends tick messages at the specified rate.
func tickCmd(owner string, tickRate int) tea.Cmd {
	return tea.Tick(interval(tickRate), func(t time.Time) tea.Msg {
		return TickMsg{Owner: owner, Time: t}
	})
}

// frameCmd redraws at twice the tick rate so motion is interpolated.
func frameCmd(owner string, tickRate int) tea.Cmd {
	return tea.Tick(interval(tickRate)/2, func(t time.Time) tea.Msg {
		return FrameMsg{Owner: owner, Time: t}
	})
}

func interval(tickRate int) time.Duration {
	return time.Second / time.Duration(max(tickRate, 1))
}

// blend returns how far now is between the last tick and the next one.
func blend(last, now time.Time, tickRate int) float64 {
	if last.IsZero() {
		return 1
	}
	return min(float64(now.Sub(last))/float64(interval(tickRate)), 1)
}
