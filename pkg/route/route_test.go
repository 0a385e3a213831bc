package route

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/geom"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		name     string
		from, to geom.Point
		want     []geom.Point
	}{
		{"horizontal first", geom.Pt(0, 0), geom.Pt(100, 20), []geom.Point{geom.Pt(0, 0), geom.Pt(100, 0), geom.Pt(100, 20)}},
		{"vertical first", geom.Pt(0, 0), geom.Pt(20, 100), []geom.Point{geom.Pt(0, 0), geom.Pt(0, 100), geom.Pt(20, 100)}},
		{"tie goes vertical", geom.Pt(0, 0), geom.Pt(50, 50), []geom.Point{geom.Pt(0, 0), geom.Pt(0, 50), geom.Pt(50, 50)}},
		{"small dy dropped", geom.Pt(0, 0), geom.Pt(100, 1), []geom.Point{geom.Pt(0, 0), geom.Pt(100, 1)}},
		{"small dx dropped", geom.Pt(0, 0), geom.Pt(-0.5, -80), []geom.Point{geom.Pt(0, 0), geom.Pt(-0.5, -80)}},
		{"coincident", geom.Pt(3, 3), geom.Pt(3, 3), []geom.Point{geom.Pt(3, 3), geom.Pt(3, 3)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Route(tt.from, tt.to))
		})
	}
}

func TestRouteOrthogonalAndDeterministic(t *testing.T) {
	from, to := geom.Pt(12.5, -7), geom.Pt(-40, 33)
	a := Route(from, to)
	b := Route(from, to)
	assert.Equal(t, a, b)

	for i := 0; i+1 < len(a); i++ {
		assert.True(t, a[i].X == a[i+1].X || a[i].Y == a[i+1].Y, "segment %d not axis aligned", i)
	}
	assert.Equal(t, from, a[0])
	assert.Equal(t, to, a[len(a)-1])
}

func TestRouterThreshold(t *testing.T) {
	r := Router{Threshold: 5}
	assert.Len(t, r.Route(geom.Pt(0, 0), geom.Pt(100, 4)), 2)
	assert.Len(t, r.Route(geom.Pt(0, 0), geom.Pt(100, 6)), 3)
}
