package main

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/padclash/internal/config"
	"github.com/vovakirdan/padclash/internal/game"
	"github.com/vovakirdan/padclash/internal/multiplayer"
	"github.com/vovakirdan/padclash/internal/rollback"
	"github.com/vovakirdan/padclash/internal/storage"
)

var (
	flagScript string
	flagTicks  uint64
	flagRecord bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a scripted match headless",
	Long: `Run a match without a terminal, driven by a YAML script of timed
commands, and print the final state and its hash.

Script format:
  ticks: 600           # optional, --ticks overrides
  commands:
    - {tick: 0,  player: P1, field: right, value: true}
    - {tick: 30, player: P1, field: right, value: false}
    - {tick: 31, player: P2, field: action, value: true}

Fields are action, left and right. Without --script both players stand
still. The match stops early when match.round_limit is reached.

Examples:
  padclash simulate --ticks 600
  padclash simulate --script duel.yaml --record
  padclash simulate --script duel.yaml --preset siege`,
	Run: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&flagScript, "script", "", "Path to YAML command script")
	simulateCmd.Flags().Uint64Var(&flagTicks, "ticks", 0, "Ticks to simulate (default: script's ticks, or 600)")
	simulateCmd.Flags().BoolVar(&flagRecord, "record", false, "Record the run to the match database")
}

// defaultTicks is ten seconds at the reference tick rate.
const defaultTicks = 600

// Script is a headless match input.
type Script struct {
	Ticks    uint64          `yaml:"ticks"`
	Commands []ScriptCommand `yaml:"commands"`
}

// ScriptCommand is one timed command of a Script.
type ScriptCommand struct {
	Tick   uint64 `yaml:"tick"`
	Player string `yaml:"player"`
	Field  string `yaml:"field"`
	Value  bool   `yaml:"value"`
}

// LoadScript reads and validates a script file.
func LoadScript(path string) (Script, error) {
	var s Script
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse script %s: %w", path, err)
	}
	if _, err := s.Schedule(); err != nil {
		return s, fmt.Errorf("invalid script %s: %w", path, err)
	}
	return s, nil
}

// Schedule converts the script to timed commands in file order.
func (s Script) Schedule() ([]rollback.ScheduledCommand, error) {
	out := make([]rollback.ScheduledCommand, 0, len(s.Commands))
	for i, c := range s.Commands {
		player, err := game.ParsePlayerID(c.Player)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		field, err := game.ParseInputField(c.Field)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		out = append(out, rollback.ScheduledCommand{
			Tick:    c.Tick,
			Command: game.Command{Player: player, Field: field, Value: c.Value},
		})
	}
	return out, nil
}

// simResult is what a headless run ends with.
type simResult struct {
	MatchID string // empty unless recorded
	Ticks   uint64
	Rounds  int
	Score   multiplayer.Score
	Display game.DisplayState
	Hash    uint64
}

var errRoundLimit = errors.New("round limit reached")

// simulate runs script for up to ticks ticks. rec may be nil.
func simulate(cfg config.Config, script Script, ticks uint64, rec multiplayer.MatchRecorder, logger *log.Logger) (simResult, error) {
	var res simResult
	if logger == nil {
		logger = log.New(io.Discard)
	}
	cmds, err := script.Schedule()
	if err != nil {
		return res, err
	}
	slices.SortStableFunc(cmds, func(a, b rollback.ScheduledCommand) int {
		return cmp.Compare(a.Tick, b.Tick)
	})
	w, err := game.New(cfg.Arena, game.WithLogger(logger))
	if err != nil {
		return res, fmt.Errorf("cannot create world: %w", err)
	}

	if rec != nil {
		res.MatchID = fmt.Sprintf("sim-%d", time.Now().UnixNano())
	}
	recording := multiplayer.NewOfflineRecording(rec, multiplayer.MatchStartData{
		MatchID:     res.MatchID,
		Mode:        multiplayer.MatchModeSimulated.String(),
		Fingerprint: cfg.Arena.Fingerprint(),
	}, logger)

	next := 0
	hooks := rollback.Hooks{
		BeforeTick: func(w *game.World) error {
			if limit := cfg.Match.RoundLimit; limit > 0 && res.Rounds >= limit {
				return errRoundLimit
			}
			tick := w.Tick()
			if every := cfg.Match.KeyframeEvery; every > 0 && tick%uint64(every) == 0 { //nolint:gosec // positive
				recording.Keyframe(w.Snapshot())
			}
			for ; next < len(cmds) && cmds[next].Tick <= tick; next++ {
				if cmds[next].Tick == tick {
					recording.Command(tick, cmds[next].Command)
				}
			}
			return nil
		},
		AfterTick: func(r game.StepResult) {
			if res.Score.Record(r) {
				res.Rounds++
				logger.Debug("round over", "tick", w.Tick(), "score", fmt.Sprintf("%d-%d", res.Score[0], res.Score[1]))
			}
		},
	}

	if err := rollback.Play(w, cmds, ticks, hooks); err != nil && !errors.Is(err, errRoundLimit) {
		recording.Finish(multiplayer.MatchResultData{EndReason: multiplayer.MatchEndReasonCancelled.String()})
		return res, err
	}

	res.Ticks = w.Tick()
	res.Display = w.DisplayState()
	res.Hash = w.Snapshot().Hash()
	recording.Finish(multiplayer.MatchResultData{
		EndReason: multiplayer.MatchEndReasonCompleted.String(),
		Rounds:    res.Rounds,
		Ticks:     res.Ticks,
		FinalHash: res.Hash,
		Score1:    res.Score[0],
		Score2:    res.Score[1],
	})
	return res, nil
}

func runSimulate(_ *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger, err := newLogger(os.Stderr, "simulate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var script Script
	if flagScript != "" {
		if script, err = LoadScript(flagScript); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	ticks := flagTicks
	if ticks == 0 {
		ticks = script.Ticks
	}
	if ticks == 0 {
		ticks = defaultTicks
	}

	var store *storage.Store
	var rec multiplayer.MatchRecorder
	if flagRecord {
		store, err = storage.Open(flagDBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening match database: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		rec = store
	}

	res, err := simulate(cfg, script, ticks, rec, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	printSimResult(os.Stdout, res)
}

func printSimResult(out io.Writer, res simResult) {
	fmt.Fprintf(out, "  %-10s %d\n", "Ticks", res.Ticks)
	fmt.Fprintf(out, "  %-10s %d\n", "Round", res.Display.Round)
	fmt.Fprintf(out, "  %-10s %d-%d\n", "Score", res.Score[0], res.Score[1])
	fmt.Fprintf(out, "  %-10s %s\n", "Cannon", res.Display.Advantage)
	fmt.Fprintf(out, "  %-10s %s / %s\n", "Pads", res.Display.Pads[0], res.Display.Pads[1])
	fmt.Fprintf(out, "  %-10s %d\n", "Shots", len(res.Display.Projectiles))
	fmt.Fprintf(out, "  %-10s %016x\n", "Hash", res.Hash)
	if res.MatchID != "" {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Recorded as %s. Verify with 'padclash replay %s'.\n", res.MatchID, res.MatchID)
	}
}
