package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceWire/internal/config"
)

var (
	// Global flags
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "otw",
	Short: "OpenTraceWire - keeps schematic wires and the netlist in sync",
	Long: `OpenTraceWire (otw) drives the wire/netlist synchronization engine:
  - replay editing scripts against a headless canvas
  - convert and export saved netlists
  - index KiCad symbol libraries
  - serve the engine to browser canvases over websockets

Examples:
  otw run blinky.otw --out blinky.json     # Replay a script, save the session
  otw netlist blinky.json --format kicad   # Export a KiCad netlist
  otw symbols index -o symbols.json        # Index the stock symbol libraries
  otw serve --addr :8090                   # Start the websocket bridge
  otw view blinky.json                     # Open a session in a window`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = c

		level, _ := cfg.Level()
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/opentracewire/config.yaml)")
}
