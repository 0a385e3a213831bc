package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/persist"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/script"
)

var (
	runOut     string
	runSymbols string
)

var runCmd = &cobra.Command{
	Use:   "run <script.otw>",
	Short: "Replay an editing script on a headless canvas",
	Long: `Run parses an editing script and executes it against an in-memory canvas.

Statements place components, connect pins, drag, delete, copy/paste, settle,
save and restore sessions, and check wire/dot/net counts with expect. Relative
save/restore paths resolve against the script's directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "save the final session to this file")
	runCmd.Flags().StringVar(&runSymbols, "symbols", "", "KiCad symbol directory (default from config)")
}

func runScript(cmd *cobra.Command, args []string) error {
	parser, err := script.NewParser()
	if err != nil {
		return err
	}
	s, err := parser.ParseFile(args[0])
	if err != nil {
		return err
	}

	env, err := newEnv(symbolsFrom(runSymbols))
	if err != nil {
		return err
	}
	env.Dir = filepath.Dir(args[0])

	if err := env.Run(s); err != nil {
		return err
	}

	ctrl := env.Ctrl
	fmt.Printf("Components: %d\n", len(ctrl.Registry().Components()))
	fmt.Printf("Nets:       %d\n", ctrl.Model().Len())
	fmt.Printf("Wires:      %d\n", len(ctrl.Renderer().Wires()))
	fmt.Printf("Dots:       %d\n", ctrl.Renderer().DotCount())
	if diags := ctrl.Diagnostics(); len(diags) > 0 {
		fmt.Printf("Skipped links: %d\n", len(diags))
		for _, d := range diags {
			fmt.Printf("  %s %s %s: %s\n", d.Op, d.NetID, d.Link, d.Reason)
		}
	}

	if runOut != "" {
		if err := persist.SaveFile(runOut, env.Session()); err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", runOut)
	}
	return nil
}
