// Package hatch generates raw infill lines over the extent of a boundary.
// Lines are not clipped here; the scan package trims them to the solid.
package hatch

import (
	"fmt"
	"math"

	"github.com/philipparndt/goslm/pkg/faults"
	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/params"
)

// Line is one raw hatch line
type Line struct {
	Start geometry.Vector2
	End   geometry.Vector2
	// Group orders lines for sequencing: stripe band or island cell
	Group int
	// Row is the row index inside the group
	Row int
	// MaxLength caps how far spot compensation may extend the line, zero for
	// no cap beyond the raw line
	MaxLength float64
}

// Length returns the length of the line
func (l Line) Length() float64 {
	return l.Start.Distance(l.End)
}

// Reverse swaps the line direction
func (l Line) Reverse() Line {
	l.Start, l.End = l.End, l.Start
	return l
}

// Params are the per-layer hatch settings
type Params struct {
	Angle       float64 // degrees
	Spacing     float64
	StripeWidth float64
	IslandWidth float64
}

// ParamsFor resolves the hatch settings of one layer
func ParamsFor(p params.Parameters, layerIndex int) Params {
	return Params{
		Angle:       p.LayerAngle(layerIndex),
		Spacing:     p.HatchSpacing,
		StripeWidth: p.StripeWidth,
		IslandWidth: p.IslandWidth,
	}
}

// Strategy fills a boundary with raw lines
type Strategy interface {
	Kind() params.HatchStrategy
	Hatch(b geometry.Boundary, hp Params) []Line
}

// New returns the strategy for kind
func New(kind params.HatchStrategy) (Strategy, error) {
	switch kind {
	case params.StrategyAlternating, "":
		return Alternating{}, nil
	case params.StrategyStripe:
		return Stripe{}, nil
	case params.StrategyIsland:
		return Island{}, nil
	default:
		return nil, faults.NewParameterError("hatchStrategy", kind, fmt.Sprintf("unknown strategy %q", kind))
	}
}

// frame maps between the world and a frame in which hatch lines run along +X
type frame struct {
	angle  float64 // radians
	extent geometry.Rect
}

func newFrame(b geometry.Boundary, degrees float64) frame {
	f := frame{angle: degrees * math.Pi / 180, extent: geometry.NewRect()}
	for _, ring := range b.Rings() {
		for _, p := range ring {
			f.extent.Extend(f.in(p))
		}
	}
	return f
}

// in maps a world point into the hatch frame
func (f frame) in(p geometry.Vector2) geometry.Vector2 {
	return p.Rotate(-f.angle)
}

// out maps a frame point back to the world
func (f frame) out(p geometry.Vector2) geometry.Vector2 {
	return p.Rotate(f.angle)
}

func (f frame) line(x0, x1, y float64) (geometry.Vector2, geometry.Vector2) {
	return f.out(geometry.NewVector2(x0, y)), f.out(geometry.NewVector2(x1, y))
}

// rows returns the row positions covering [min, max] at the given spacing,
// starting half a spacing in plus shift
func rows(min, max, spacing, shift float64) []float64 {
	if spacing <= 0 || max < min {
		return nil
	}
	var out []float64
	for i := 0; ; i++ {
		y := min + spacing/2 + shift + float64(i)*spacing
		if y > max+1e-9 {
			break
		}
		out = append(out, y)
	}
	return out
}
