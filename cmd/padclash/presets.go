package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/padclash/internal/config"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List rule presets",
	Long:  `Shows the rule presets that can be passed with --preset.`,
	Run:   runPresets,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after --config, --preset and --tick-rate are
applied, as YAML, together with the arena fingerprint. Both sides of an
online match need the same fingerprint.

Examples:
  padclash config > ~/.padclash/padclash.yaml
  padclash config --preset blitz`,
	Run: runConfig,
}

func runPresets(_ *cobra.Command, _ []string) {
	presets := config.Presets()

	fmt.Println("Available presets:")
	fmt.Println()

	// Calculate column widths
	maxLen := 4 // "Name" header
	for _, p := range presets {
		maxLen = max(maxLen, len(p))
	}

	fmt.Printf("  %-*s  %s\n", maxLen, "Name", "Rules")
	fmt.Printf("  %-*s  %s\n", maxLen, "----", "-----")
	for _, p := range presets {
		fmt.Printf("  %-*s  %s\n", maxLen, p, p.Describe())
	}

	fmt.Println()
	fmt.Println("Run 'padclash play --preset <name>' to use one.")
}

func runConfig(_ *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("# arena fingerprint %016x\n", cfg.Arena.Fingerprint())
	os.Stdout.Write(data)
}
