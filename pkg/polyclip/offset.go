package polyclip

import (
	"math"

	clipper "github.com/ctessum/go.clipper"

	"github.com/philipparndt/goslm/pkg/geometry"
)

// OffsetOptions controls corner handling during offsetting
type OffsetOptions struct {
	// MiterLimit is the largest miter length, in multiples of the offset
	// distance, a ring may have before it is offset with round joins
	MiterLimit float64
	// ArcTolerance is the largest deviation of a rounded join from the true arc
	ArcTolerance float64
}

// DefaultOffsetOptions returns Clipper's miter limit and a 5 micron arc tolerance
func DefaultOffsetOptions() OffsetOptions {
	return OffsetOptions{MiterLimit: 2, ArcTolerance: 0.005}
}

// Offset grows (delta > 0) or shrinks (delta < 0) oriented rings
func Offset(rings []geometry.Polygon, delta float64, opts OffsetOptions) (regions []geometry.Region, err error) {
	defer recoverClipper(&err)

	if delta == 0 {
		return Union(rings)
	}

	co := clipper.NewClipperOffset()
	co.MiterLimit = opts.MiterLimit
	co.ArcTolerance = opts.ArcTolerance * Scale

	for _, ring := range rings {
		path := ToPath(ring)
		if len(path) < 3 {
			continue
		}
		join := clipper.JtMiter
		if MaxMiterRatio(ring) > opts.MiterLimit {
			join = clipper.JtRound
		}
		co.AddPath(path, join, clipper.EtClosedPolygon)
	}

	tree := co.Execute2(delta * Scale)
	if tree == nil {
		return nil, ErrClipFailed
	}
	return TreeRegions(tree), nil
}

// MaxMiterRatio returns the largest miter length of the ring's corners
// relative to the offset distance
func MaxMiterRatio(p geometry.Polygon) float64 {
	worst := 1.0
	n := len(p)
	for i := 0; i < n; i++ {
		in := p[i].Sub(p[(i+n-1)%n]).Normalize()
		out := p[(i+1)%n].Sub(p[i]).Normalize()
		cosTurn := in.Dot(out)
		half := math.Sqrt(math.Max(0, (1+cosTurn)/2))
		if half < 1e-9 {
			return math.Inf(1)
		}
		worst = math.Max(worst, 1/half)
	}
	return worst
}
