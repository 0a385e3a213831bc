package netlist

import (
	"fmt"
	"sort"
	"strings"
)

// ExportKiCad writes the electrical nodes as a KiCad netlist (version D).
// Nodes with fewer than two members are skipped.
func (m *Model) ExportKiCad(source string) string {
	if source == "" {
		source = "OpenTraceWire"
	}
	groups := m.Groups()

	var b strings.Builder
	b.WriteString("(export (version D)\n")
	b.WriteString("  (design\n")
	fmt.Fprintf(&b, "    (source %q)\n", source)
	b.WriteString("  )\n")

	comps := make(map[string]bool)
	for _, g := range groups {
		for _, c := range g {
			comps[c.ComponentID] = true
		}
	}
	refs := make([]string, 0, len(comps))
	for ref := range comps {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	b.WriteString("  (components\n")
	for _, ref := range refs {
		fmt.Fprintf(&b, "    (comp (ref %s))\n", ref)
	}
	b.WriteString("  )\n")

	b.WriteString("  (nets\n")
	for i, g := range groups {
		code := i + 1
		fmt.Fprintf(&b, "    (net (code %d) (name Net-%d)\n", code, code)
		for _, c := range g {
			fmt.Fprintf(&b, "      (node (ref %s) (pin %s))\n", c.ComponentID, c.PinNumber)
		}
		b.WriteString("    )\n")
	}
	b.WriteString("  )\n")
	b.WriteString(")\n")
	return b.String()
}
