package netsync

import (
	"log/slog"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/offset"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/pins"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/route"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/wire"
)

// Config holds the drawing parameters of the engine.
type Config struct {
	OffsetRadius   float64 `yaml:"offset_radius"`
	OffsetSlots    int     `yaml:"offset_slots"`
	RouteThreshold float64 `yaml:"route_threshold"`
	DotRadius      float64 `yaml:"dot_radius"`
	PinRadius      float64 `yaml:"pin_radius"`
	HidePinsOnDrag bool    `yaml:"hide_pins_on_drag"`
}

// DefaultConfig returns the stock parameters.
func DefaultConfig() Config {
	return Config{
		OffsetRadius:   offset.DefaultRadius,
		OffsetSlots:    offset.DefaultSlots,
		RouteThreshold: route.DefaultThreshold,
		DotRadius:      wire.DefaultDotRadius,
		PinRadius:      pins.DefaultPinRadius,
		HidePinsOnDrag: true,
	}
}

// withDefaults fills zero numeric fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.OffsetRadius <= 0 {
		c.OffsetRadius = d.OffsetRadius
	}
	if c.OffsetSlots <= 0 {
		c.OffsetSlots = d.OffsetSlots
	}
	if c.RouteThreshold <= 0 {
		c.RouteThreshold = d.RouteThreshold
	}
	if c.DotRadius <= 0 {
		c.DotRadius = d.DotRadius
	}
	if c.PinRadius <= 0 {
		c.PinRadius = d.PinRadius
	}
	return c
}

// Context is everything a Controller needs besides the scene.
type Context struct {
	Config Config
	Logger *slog.Logger

	// NewNetID generates net ids. Nil means random uuids.
	NewNetID func() string
}

func (c Context) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
