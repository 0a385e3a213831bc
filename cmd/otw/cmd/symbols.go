package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/kicad/symlib"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/persist"
)

var (
	symbolsOut string
	symbolsAll bool
	symbolsDir string
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "KiCad symbol library operations",
	Long:  `Commands for working with KiCad symbol libraries (.kicad_sym)`,
}

var symbolsIndexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Write a JSON index of every symbol's pins and bounding box",
	Long: `Parse the symbol libraries in dir (default from config) and write one entry
per symbol, keyed by "Library:Symbol". Symbols that extend another symbol get
the base symbol's pins and bounding box. Only the stock category allow-list
is read unless --all is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSymbolsIndex,
}

var symbolsShowCmd = &cobra.Command{
	Use:   "show <Library:Symbol>",
	Short: "Show one resolved symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runSymbolsShow,
}

func init() {
	rootCmd.AddCommand(symbolsCmd)
	symbolsCmd.AddCommand(symbolsIndexCmd)
	symbolsCmd.AddCommand(symbolsShowCmd)

	symbolsIndexCmd.Flags().StringVarP(&symbolsOut, "output", "o", "", "output file (default stdout)")
	symbolsIndexCmd.Flags().BoolVar(&symbolsAll, "all", false, "index every library, not just the allow-list")
	symbolsShowCmd.Flags().StringVar(&symbolsDir, "symbols", "", "KiCad symbol directory (default from config)")
}

func runSymbolsIndex(cmd *cobra.Command, args []string) error {
	dir := cfg.Library.Dir
	if len(args) == 1 {
		dir = args[0]
	}
	categories := cfg.Categories()
	if symbolsAll {
		categories = nil
	}

	idx, err := symlib.NewIndex(cfg.Library.CacheSize)
	if err != nil {
		return err
	}
	n, err := idx.LoadDir(dir, categories)
	if err != nil {
		return err
	}
	all := idx.ResolveAll()
	logger.Info("symbols indexed", "libraries", n, "symbols", len(all))

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	if symbolsOut == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := persist.WriteFile(symbolsOut, data); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %d symbols from %d libraries to %s\n", len(all), n, symbolsOut)
	return nil
}

func runSymbolsShow(cmd *cobra.Command, args []string) error {
	sym, err := symbolsFrom(symbolsDir).Resolve(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Symbol: %s\n", sym.ID)
	if sym.Extends != "" {
		fmt.Printf("Extends: %s\n", sym.Extends)
	}
	if sym.BBox != nil {
		fmt.Printf("BBox: (%.2f, %.2f) to (%.2f, %.2f)\n", sym.BBox.MinX, sym.BBox.MinY, sym.BBox.MaxX, sym.BBox.MaxY)
	}

	pins := append([]symlib.Pin(nil), sym.Pins...)
	sort.Slice(pins, func(i, j int) bool { return pins[i].Number < pins[j].Number })
	fmt.Printf("Pins: %d\n", len(pins))
	for _, p := range pins {
		fmt.Printf("  %-4s %-12s %-14s (%.2f, %.2f)\n", p.Number, p.Name, p.ElectricalType, p.X, p.Y)
	}
	return nil
}
