package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/padclash/internal/platform/tui"
	"github.com/vovakirdan/padclash/internal/storage"
)

var (
	flagLimit int
	flagPlain bool
)

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "List recorded matches",
	Long: `List recorded matches, newest first.

On a terminal this opens the interactive history table; otherwise (or with
--plain) it prints a table to stdout.

Examples:
  padclash matches
  padclash matches --plain --limit 5`,
	Run: runMatches,
}

func init() {
	matchesCmd.Flags().IntVar(&flagLimit, "limit", 20, "Number of matches to print with --plain")
	matchesCmd.Flags().BoolVar(&flagPlain, "plain", false, "Print instead of opening the interactive table")
}

func runMatches(_ *cobra.Command, _ []string) {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening match database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if !flagPlain && term.IsTerminal(int(os.Stdout.Fd())) {
		width, height := terminalSize()
		if err := tui.RunHistory(store, width, height); err != nil {
			store.Close()
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	matches, err := store.RecentMatches(flagLimit)
	if err != nil {
		store.Close()
		fmt.Fprintf(os.Stderr, "Error retrieving matches: %v\n", err)
		os.Exit(1)
	}
	printMatches(os.Stdout, matches)
}

// printMatches writes a plain table of recordings.
func printMatches(out io.Writer, matches []storage.MatchRecord) {
	if len(matches) == 0 {
		fmt.Fprintln(out, "No matches recorded yet.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Play 'padclash play' or run 'padclash simulate --record' to record one.")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(tui.HistoryHeaders()...)
	for _, rec := range matches {
		t.Row(tui.HistoryRow(rec)...)
	}
	fmt.Fprintln(out, t.Render())
}
