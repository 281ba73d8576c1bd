package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/padclash/internal/platform/tui"
	"github.com/vovakirdan/padclash/internal/storage"
)

var (
	flagLocal   bool
	flagLogFile string
	flagNoStore bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play on this terminal",
	Long: `Start padclash on this terminal with the main menu.

Local matches share one keyboard. Terminals only report key presses, so a
press counts as held for a few ticks (match.input_hold_ticks) and keeps
being held while the key repeats.

Controls:
  A/D, W         - Player 1 left/right, jump or claim a pad
  Left/Right, Up - Player 2 left/right, jump or claim a pad
  Esc            - Back to menu
  ?              - Toggle help
  Ctrl+C         - Quit

Local matches are recorded to the database and can be replayed with
'padclash replay'.

Examples:
  padclash play
  padclash play --local --preset best-of-5
  padclash play --log-file ./padclash.log --log-level debug`,
	Run: runPlay,
}

func init() {
	playCmd.Flags().BoolVar(&flagLocal, "local", false, "Start a local match right away")
	playCmd.Flags().StringVar(&flagLogFile, "log-file", "", "Write logs to this file (the screen is in use)")
	playCmd.Flags().BoolVar(&flagNoStore, "no-record", false, "Do not record matches")
}

func runPlay(_ *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	var logOut io.Writer = io.Discard
	if flagLogFile != "" {
		f, openErr := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if openErr != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", openErr)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger, err := newLogger(logOut, "padclash")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Open match storage
	var store *storage.Store
	if !flagNoStore {
		store, err = storage.Open(flagDBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not open match database: %v\n", err)
			// Continue without storage - matches are just not recorded
			store = nil
		}
	}

	width, height := terminalSize()
	opts := tui.Options{
		Config: cfg,
		Store:  store,
		Logger: logger,
		Width:  width,
		Height: height,
	}
	if flagLocal {
		opts.Start = tui.ScreenLocal
	}
	logger.Info("starting", "preset", flagPreset, "fingerprint", fmt.Sprintf("%016x", cfg.Arena.Fingerprint()))

	runErr := tui.Run(opts)

	// Close store before potential exit
	if store != nil {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("closing match database", "error", closeErr)
		}
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error running padclash: %v\n", runErr)
		os.Exit(1)
	}
}

// terminalSize returns the size of stdout, or 80x24 when it is not a terminal.
func terminalSize() (int, int) {
	width, height := 80, 24 // Defaults
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width = w
		height = h
	}
	return width, height
}
