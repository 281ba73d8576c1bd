package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/padclash/internal/config"
	"github.com/vovakirdan/padclash/internal/game"
	"github.com/vovakirdan/padclash/internal/rollback"
	"github.com/vovakirdan/padclash/internal/storage"
)

var replayCmd = &cobra.Command{
	Use:   "replay <match-id>",
	Short: "Re-run a recorded match and verify it",
	Long: `Re-run a recorded match from a fresh world using its recorded commands.

Every keyframe snapshot is compared with the replayed world at its tick, and
the final state hash with the one stored when the match ended. A mismatch
means the simulation is not deterministic for this match.

The arena must be the one the match was played with: pass the same
--config and --preset.

Examples:
  padclash replay sim-1760000000000000000
  padclash replay match-ABC234-1760000000000000000 --preset blitz`,
	Args: cobra.ExactArgs(1),
	Run:  runReplay,
}

// ErrDesync is returned when a replayed hash differs from the recorded one.
var ErrDesync = errors.New("replay diverged from recording")

// replayReport summarizes a verified replay.
type replayReport struct {
	Match     storage.MatchRecord
	Commands  int
	Keyframes int
	Hash      uint64
}

// replay verifies a recorded match against cfg's arena.
func replay(cfg config.Config, store *storage.Store, matchID string, logger *log.Logger) (replayReport, error) {
	var rep replayReport
	if logger == nil {
		logger = log.New(io.Discard)
	}

	rec, err := store.Match(matchID)
	if err != nil {
		return rep, err
	}
	rep.Match = rec
	if !rec.Finished() {
		return rep, fmt.Errorf("match %s has not finished", matchID)
	}
	if fp := cfg.Arena.Fingerprint(); fp != rec.Fingerprint {
		return rep, fmt.Errorf("match %s was played on arena %016x, config is %016x", matchID, rec.Fingerprint, fp)
	}

	recorded, err := store.Commands(matchID)
	if err != nil {
		return rep, err
	}
	cmds := make([]rollback.ScheduledCommand, len(recorded))
	for i, c := range recorded {
		cmds[i] = rollback.ScheduledCommand{Tick: c.Tick, Command: c.Command}
	}
	rep.Commands = len(cmds)

	keyframes, err := store.Keyframes(matchID)
	if err != nil {
		return rep, err
	}
	want := make(map[uint64]uint64, len(keyframes))
	for _, kf := range keyframes {
		if got := kf.Snapshot.Hash(); got != kf.Hash {
			return rep, fmt.Errorf("%w: keyframe at tick %d is corrupt (%016x, stored %016x)", ErrDesync, kf.Tick, got, kf.Hash)
		}
		want[kf.Tick] = kf.Hash
	}

	w, err := game.New(cfg.Arena, game.WithLogger(logger))
	if err != nil {
		return rep, fmt.Errorf("cannot create world: %w", err)
	}
	check := func(w *game.World) error {
		h, ok := want[w.Tick()]
		if !ok {
			return nil
		}
		if got := w.Snapshot().Hash(); got != h {
			return fmt.Errorf("%w: tick %d hash %016x, recorded %016x", ErrDesync, w.Tick(), got, h)
		}
		rep.Keyframes++
		return nil
	}

	if err := rollback.Play(w, cmds, rec.Ticks, rollback.Hooks{BeforeTick: check}); err != nil {
		return rep, err
	}
	if err := check(w); err != nil {
		return rep, err
	}

	rep.Hash = w.Snapshot().Hash()
	if rep.Hash != rec.FinalHash {
		return rep, fmt.Errorf("%w: final hash %016x, recorded %016x", ErrDesync, rep.Hash, rec.FinalHash)
	}
	logger.Debug("replay verified", "match", matchID, "ticks", rec.Ticks, "keyframes", rep.Keyframes)
	return rep, nil
}

func runReplay(_ *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger, err := newLogger(os.Stderr, "replay")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening match database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	rep, err := replay(cfg, store, args[0], logger)
	if err != nil {
		store.Close()
		if errors.Is(err, storage.ErrMatchNotFound) {
			fmt.Fprintln(os.Stderr, "Run 'padclash matches' to list recorded matches.")
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Replay of %s (%s, %s)\n", rep.Match.MatchID, rep.Match.Mode, rep.Match.EndReason)
	fmt.Println()
	fmt.Printf("  %-10s %d\n", "Ticks", rep.Match.Ticks)
	fmt.Printf("  %-10s %d\n", "Commands", rep.Commands)
	fmt.Printf("  %-10s %d verified\n", "Keyframes", rep.Keyframes)
	fmt.Printf("  %-10s %d-%d\n", "Score", rep.Match.Score1, rep.Match.Score2)
	fmt.Printf("  %-10s %016x\n", "Hash", rep.Hash)
	fmt.Println()
	fmt.Println("OK: replay matches the recording.")
}
