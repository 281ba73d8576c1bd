// Package rollback drives a game.World with late-arriving input.
//
// A Timeline keeps the snapshot taken at the start of each recent tick and
// the commands scheduled for it. When a command arrives for a tick that has
// already been simulated, the world is restored to that tick and stepped
// forward again with the corrected command log.
package rollback

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/padclash/internal/game"
)

var (
	// ErrTooOld is returned for commands older than the history window.
	ErrTooOld = errors.New("rollback: command is older than the history window")
	// ErrTooNew is returned for commands scheduled too far ahead.
	ErrTooNew = errors.New("rollback: command is too far in the future")
)

type entry struct {
	cmd game.Command
	seq uint64
}

type frame struct {
	tick  uint64
	valid bool
	snap  game.Snapshot
	res   game.StepResult
}

// Rewind describes one resimulation. Replaced holds the results the ticks
// From..To-1 produced before the late command, Replayed what they produce
// now. Both are in tick order.
type Rewind struct {
	From, To uint64
	Replaced []game.StepResult
	Replayed []game.StepResult
}

// Timeline owns a world and its recent history.
type Timeline struct {
	world    *game.World
	history  []frame
	log      map[uint64][]entry
	seq      uint64
	resims   int
	onRewind func(Rewind)
	logger   *log.Logger
}

// Option configures a Timeline.
type Option func(*Timeline)

// WithLogger sets the logger used for rewind diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(tl *Timeline) {
		if l != nil {
			tl.logger = l
		}
	}
}

// WithRewindHook registers fn to be called after every resimulation, so
// callers that accumulate per-tick results can correct them.
func WithRewindHook(fn func(Rewind)) Option {
	return func(tl *Timeline) { tl.onRewind = fn }
}

// NewTimeline wraps world. historyLen is how many ticks back a command may
// land; values below 1 are raised to 1.
func NewTimeline(world *game.World, historyLen int, opts ...Option) *Timeline {
	historyLen = max(historyLen, 1)
	tl := &Timeline{
		world:   world,
		history: make([]frame, historyLen),
		log:     make(map[uint64][]entry),
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(tl)
	}
	return tl
}

// World returns the wrapped world. Callers must not step it directly.
func (tl *Timeline) World() *game.World { return tl.world }

// Tick returns the next tick to be simulated.
func (tl *Timeline) Tick() uint64 { return tl.world.Tick() }

// HistoryLen returns the rewind window in ticks.
func (tl *Timeline) HistoryLen() int { return len(tl.history) }

// Oldest returns the earliest tick a command can still be submitted for.
func (tl *Timeline) Oldest() uint64 {
	now, n := tl.Tick(), uint64(len(tl.history))
	if now < n {
		return 0
	}
	return now - n
}

// Resimulations counts how many rewinds have happened.
func (tl *Timeline) Resimulations() int { return tl.resims }

// Submit schedules cmd for tick. Commands for the current tick or later are
// queued. Commands for a past tick inside the window rewind the world and
// replay every tick up to the present.
func (tl *Timeline) Submit(tick uint64, cmd game.Command) error {
	now := tl.Tick()
	switch {
	case tick+uint64(len(tl.history)) < now:
		return fmt.Errorf("%w: tick %d, now %d", ErrTooOld, tick, now)
	case tick > now+uint64(len(tl.history)):
		return fmt.Errorf("%w: tick %d, now %d", ErrTooNew, tick, now)
	}

	if tick < now {
		if _, ok := tl.Snapshot(tick); !ok {
			return fmt.Errorf("%w: tick %d predates the timeline", ErrTooOld, tick)
		}
	}

	tl.seq++
	tl.log[tick] = append(tl.log[tick], entry{cmd: cmd, seq: tl.seq})

	if tick < now {
		tl.resimulate(tick)
	}
	return nil
}

// Advance simulates the current tick and returns its result.
func (tl *Timeline) Advance() game.StepResult {
	res := tl.step()
	if old := tl.Oldest(); old > 0 {
		delete(tl.log, old-1)
	}
	return res
}

// Snapshot returns the state at the start of tick, if still in history.
func (tl *Timeline) Snapshot(tick uint64) (game.Snapshot, bool) {
	f := tl.history[tick%uint64(len(tl.history))]
	if !f.valid || f.tick != tick {
		return game.Snapshot{}, false
	}
	return f.snap, true
}

// Hash returns the hash of the state at the start of tick, if known.
func (tl *Timeline) Hash(tick uint64) (uint64, bool) {
	s, ok := tl.Snapshot(tick)
	if !ok {
		return 0, false
	}
	return s.Hash(), true
}

// Commands returns the commands scheduled for tick in application order.
func (tl *Timeline) Commands(tick uint64) []game.Command {
	entries := tl.ordered(tick)
	out := make([]game.Command, len(entries))
	for i, e := range entries {
		out[i] = e.cmd
	}
	return out
}

func (tl *Timeline) ordered(tick uint64) []entry {
	entries := slices.Clone(tl.log[tick])
	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Or(
			cmp.Compare(a.cmd.Player, b.cmd.Player),
			cmp.Compare(a.cmd.Field, b.cmd.Field),
			cmp.Compare(a.seq, b.seq),
		)
	})
	return entries
}

func (tl *Timeline) step() game.StepResult {
	tick := tl.Tick()
	f := &tl.history[tick%uint64(len(tl.history))]
	*f = frame{tick: tick, valid: true, snap: tl.world.Snapshot()}
	for _, e := range tl.ordered(tick) {
		tl.world.ApplyCommand(e.cmd)
	}
	f.res = tl.world.Step()
	return f.res
}

func (tl *Timeline) resimulate(from uint64) {
	now := tl.Tick()
	snap, _ := tl.Snapshot(from)
	tl.resims++
	tl.logger.Debug("rewinding", "from", from, "to", now, "ticks", now-from)

	rw := Rewind{From: from, To: now}
	if tl.onRewind != nil {
		for tick := from; tick < now; tick++ {
			rw.Replaced = append(rw.Replaced, tl.history[tick%uint64(len(tl.history))].res)
		}
	}

	tl.world.Restore(snap)
	for tl.Tick() < now {
		res := tl.step()
		if tl.onRewind != nil {
			rw.Replayed = append(rw.Replayed, res)
		}
	}
	if tl.onRewind != nil {
		tl.onRewind(rw)
	}
}
