package config

import "github.com/OpenTraceLab/OpenTraceWire/pkg/kicad/symlib"

func symlibDefaults() map[string]bool {
	out := make(map[string]bool, len(symlib.DefaultCategories))
	for k, v := range symlib.DefaultCategories {
		out[k] = v
	}
	return out
}
