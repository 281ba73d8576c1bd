package rollback

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/vovakirdan/padclash/internal/game"
)

// ScheduledCommand is a command and the tick it was applied on.
type ScheduledCommand struct {
	Tick    uint64
	Command game.Command
}

// Hooks observe a replay. Either may be nil.
type Hooks struct {
	// BeforeTick runs with the world at the start of each tick, before its
	// commands are applied. Returning an error stops the replay.
	BeforeTick func(w *game.World) error
	// AfterTick receives each tick's result.
	AfterTick func(res game.StepResult)
}

// Play steps w until it reaches tick until, applying cmds on their ticks
// in the same order a live Timeline does. cmds must keep the order they
// were recorded in; it is stable-sorted by tick. Commands scheduled at or
// after until never run.
func Play(w *game.World, cmds []ScheduledCommand, until uint64, hooks Hooks) error {
	cmds = slices.Clone(cmds)
	slices.SortStableFunc(cmds, func(a, b ScheduledCommand) int {
		return cmp.Compare(a.Tick, b.Tick)
	})
	if len(cmds) > 0 && cmds[0].Tick < w.Tick() {
		return fmt.Errorf("%w: command for tick %d, replay starts at %d", ErrTooOld, cmds[0].Tick, w.Tick())
	}

	tl := NewTimeline(w, 1)
	next := 0
	for tl.Tick() < until {
		now := tl.Tick()
		for ; next < len(cmds) && cmds[next].Tick == now; next++ {
			if err := tl.Submit(now, cmds[next].Command); err != nil {
				return err
			}
		}
		if hooks.BeforeTick != nil {
			if err := hooks.BeforeTick(w); err != nil {
				return err
			}
		}
		res := tl.Advance()
		if hooks.AfterTick != nil {
			hooks.AfterTick(res)
		}
	}
	return nil
}
