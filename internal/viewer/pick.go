package viewer

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/pins"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/scene/gioscene"
)

// Pick returns the component owning the pin nearest to screen point (x, y),
// if one lies within radius screen pixels.
func Pick(reg *pins.Registry, cam gioscene.Camera, x, y, radius float64) (string, bool) {
	best, bestDist := "", math.Inf(1)
	for _, id := range reg.Components() {
		ps, err := reg.Pins(id)
		if err != nil {
			continue
		}
		for _, p := range ps {
			sx, sy := cam.WorldToScreen(p.Position)
			if d := math.Hypot(sx-x, sy-y); d <= radius && d < bestDist {
				best, bestDist = id, d
			}
		}
	}
	return best, best != ""
}
