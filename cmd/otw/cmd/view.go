package cmd

import (
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceWire/internal/viewer"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/persist"
)

var (
	viewSymbols string
	viewSave    string
)

var viewCmd = &cobra.Command{
	Use:   "view [session]",
	Short: "Open a session in an interactive window",
	Long: `View restores a session onto a canvas and opens it in a window.

Controls: drag a pin to move its component | drag empty space to pan |
scroll to zoom | F to fit | Ctrl+S to save | Q or Esc to quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)
	viewCmd.Flags().StringVar(&viewSymbols, "symbols", "", "KiCad symbol directory (default from config)")
	viewCmd.Flags().StringVar(&viewSave, "save", "", "where Ctrl+S writes the session (default: the opened file)")
}

func runView(cmd *cobra.Command, args []string) error {
	env, err := newEnv(symbolsFrom(viewSymbols))
	if err != nil {
		return err
	}

	title := "OpenTraceWire"
	save := viewSave
	if len(args) == 1 {
		sess, err := persist.ReadFile(args[0])
		if err != nil {
			return err
		}
		rep, err := env.Restore(sess)
		if err != nil {
			return err
		}
		logger.Info("session restored", "nets", rep.Nets, "wires", rep.Wires, "skipped", len(rep.Skipped))
		title += " - " + args[0]
		if save == "" {
			save = args[0]
		}
	}

	viewer.Run(env, title, save)
	return nil
}
