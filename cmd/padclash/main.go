// padclash is a two-player mirrored arena game for the terminal.
//
// Usage:
//
//	padclash play              - Play on this terminal (menu, local match, history)
//	padclash serve             - Start SSH server for online matches
//	padclash simulate          - Run a scripted match headless
//	padclash replay <match-id> - Re-run a recorded match and verify it
//	padclash matches           - List recorded matches
//	padclash presets           - List rule presets
//	padclash config            - Print the effective configuration
//
// Global flags:
//
//	--config <path>     - Arena/match YAML (default: search path, then embedded)
//	--preset <name>     - Rule preset layered over the config
//	--tick-rate <n>     - Override the match tick rate
//	--db <path>         - Set database path (default: ~/.padclash/padclash.db)
//	--log-level <level> - debug, info, warn or error
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/padclash/internal/config"
)

var (
	// Global flags
	flagConfig   string
	flagPreset   string
	flagTickRate int
	flagDBPath   string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "padclash",
	Short: "padclash - mirrored arena duels in your terminal",
	Long: `padclash is a two-player arena game. Each player lives on one half of a
mirrored arena with its own gravity, dodges lava and cannon fire, and claims
power pads to turn the cannon against the opponent.

Available commands:
  play      - Play on this terminal
  serve     - Start SSH server for online matches
  simulate  - Run a scripted match headless
  replay    - Re-run a recorded match and verify its hashes
  matches   - List recorded matches
  presets   - List rule presets
  config    - Print the effective configuration

Examples:
  padclash play
  padclash play --preset best-of-5
  padclash serve --ssh :2222
  padclash simulate --script duel.yaml --ticks 1200 --record
  padclash replay sim-1760000000000000000`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to padclash YAML config")
	rootCmd.PersistentFlags().StringVar(&flagPreset, "preset", "", "Rule preset (see 'padclash presets')")
	rootCmd.PersistentFlags().IntVar(&flagTickRate, "tick-rate", 0, "Tick rate override (0 = from config)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "~/.padclash/padclash.db", "Path to match database")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(matchesCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig resolves the config file, preset and tick rate flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	preset, err := config.ParsePreset(flagPreset)
	if err != nil {
		return cfg, err
	}
	config.ApplyPreset(&cfg, preset)
	if flagTickRate < 0 {
		return cfg, fmt.Errorf("tick rate must not be negative, got %d", flagTickRate)
	}
	if flagTickRate > 0 {
		cfg.Match.TickRate = flagTickRate
	}
	return cfg, nil
}

// newLogger creates a logger at the --log-level level.
func newLogger(w io.Writer, prefix string) (*log.Logger, error) {
	level, err := log.ParseLevel(flagLogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
		Level:           level,
	}), nil
}
