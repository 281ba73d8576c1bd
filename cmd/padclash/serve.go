package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/padclash/internal/multiplayer"
	"github.com/vovakirdan/padclash/internal/platform/tui"
	"github.com/vovakirdan/padclash/internal/storage"
)

var (
	flagSSHAddr     string
	flagHostKey     string
	flagIdleTimeout int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the padclash SSH server",
	Long: `Start an SSH server for online matches.

Each SSH connection gets its own session with the main menu. One player
hosts a match and shares the six letter code, the other joins with it.
The server runs the simulation; clients only send key presses and draw
the frames they receive. Every online match is recorded.

Both players use the server's arena config, so --config and --preset
apply to every match it hosts.

Host key handling:
  - If --host-key is provided, uses that key file
  - Otherwise, auto-generates a key at ~/.padclash/host_key

Examples:
  padclash serve                           # Listen on :23234 with auto-generated key
  padclash serve --ssh :2222               # Listen on port 2222
  padclash serve --preset blitz            # Host blitz matches
  padclash serve --host-key ./my_host_key  # Use specific host key

Users can connect with:
  ssh localhost -p 23234`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", ":23234", "SSH server address (host:port)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file (auto-generated if not specified)")
	serveCmd.Flags().IntVar(&flagIdleTimeout, "idle-timeout", 30, "Idle timeout in minutes before disconnecting")
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger, err := newLogger(os.Stderr, "padclash")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.Open(flagDBPath)
	if err != nil {
		logger.Warn("could not open match database, matches will not be recorded", "error", err)
		store = nil
	}

	sessions := multiplayer.NewSessionRegistry()
	coordinator := multiplayer.NewCoordinator(multiplayer.DefaultCoordinatorConfig(cfg), sessions)
	coordinator.SetLogger(logger.WithPrefix("coordinator"))
	if store != nil {
		coordinator.SetRecorder(store)
	}
	coordinator.Start()

	sshCfg := tui.SSHServerConfig{
		Address:     flagSSHAddr,
		HostKeyPath: flagHostKey,
		IdleTimeout: time.Duration(flagIdleTimeout) * time.Minute,
	}
	server, err := tui.NewSSHServer(sshCfg, cfg, store, coordinator, sessions, logger)
	if err != nil {
		coordinator.Stop()
		fmt.Fprintf(os.Stderr, "Error creating server: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Starting padclash SSH server on %s (arena %016x)\n", sshCfg.Address, cfg.Arena.Fingerprint())
	fmt.Println("Connect with: ssh localhost -p 23234")
	fmt.Println("Press Ctrl+C to stop")

	serveErr := server.ListenAndServe()
	coordinator.Stop()
	if store != nil {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("closing match database", "error", closeErr)
		}
	}
	if serveErr != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", serveErr)
		os.Exit(1)
	}
}
