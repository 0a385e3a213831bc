package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/persist"
)

var (
	netlistFormat string
	netlistOut    string
)

var netlistCmd = &cobra.Command{
	Use:   "netlist <session>",
	Short: "Export or convert a saved netlist",
	Long: `Read a saved session (.json or .msgpack) and write its netlist.

Formats:
  kicad    KiCad netlist (export version D), one node per electrical net
  text     one line per chain net
  json     the whole session as JSON
  msgpack  the whole session as msgpack`,
	Args: cobra.ExactArgs(1),
	RunE: runNetlist,
}

func init() {
	rootCmd.AddCommand(netlistCmd)
	netlistCmd.Flags().StringVarP(&netlistFormat, "format", "f", "kicad", "output format: kicad, text, json, msgpack")
	netlistCmd.Flags().StringVarP(&netlistOut, "output", "o", "", "output file (default stdout)")
}

func runNetlist(cmd *cobra.Command, args []string) error {
	sess, err := persist.ReadFile(args[0])
	if err != nil {
		return err
	}
	m := netlist.New()
	if dropped := m.Load(sess.Netlist()); dropped > 0 {
		logger.Warn("empty nets dropped", "count", dropped)
	}

	var data []byte
	switch strings.ToLower(netlistFormat) {
	case "kicad":
		source := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		data = []byte(m.ExportKiCad(source))
	case "text":
		data = []byte(netText(m))
	default:
		codec, err := persist.CodecFor(netlistFormat)
		if err != nil {
			return err
		}
		sess.Nets = m.Snapshot().Nets
		if data, err = codec.Marshal(sess); err != nil {
			return err
		}
	}

	if netlistOut == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := persist.WriteFile(netlistOut, data); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %s (%d nets)\n", netlistOut, m.Len())
	return nil
}

func netText(m *netlist.Model) string {
	var b strings.Builder
	for _, n := range m.Nets() {
		ids := make([]string, len(n.Connections))
		for i, c := range n.Connections {
			ids[i] = c.PinID()
		}
		fmt.Fprintf(&b, "%s: %s\n", n.ID, strings.Join(ids, " - "))
	}
	return b.String()
}
