// Package contour offsets and combines layer boundaries while keeping the
// solid/hole hierarchy intact.
package contour

import (
	"go.uber.org/zap"

	"github.com/philipparndt/goslm/pkg/faults"
	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/params"
	"github.com/philipparndt/goslm/pkg/polyclip"
)

// Options configures a Processor
type Options struct {
	Offset polyclip.OffsetOptions
	// MinRingArea drops outlines and holes that shrink below this area
	MinRingArea float64
	Logger      *zap.Logger
}

// OptionsFrom derives processor options from build parameters
func OptionsFrom(p params.Parameters) Options {
	return Options{
		Offset: polyclip.OffsetOptions{
			MiterLimit:   p.OffsetMiterLimit,
			ArcTolerance: p.ArcTolerance,
		},
		MinRingArea: 1e-6,
	}
}

// Processor runs offset and boolean passes over boundaries
type Processor struct {
	opts Options
	log  *zap.Logger
}

// New creates a processor
func New(opts Options) *Processor {
	if opts.Offset.MiterLimit < 1 {
		opts.Offset = polyclip.DefaultOffsetOptions()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{opts: opts, log: log.Named("contour")}
}

// Offset grows (delta > 0) or shrinks (delta < 0) the solid area of b
func (p *Processor) Offset(b geometry.Boundary, delta float64) (geometry.Boundary, error) {
	if b.IsEmpty() {
		return geometry.EmptyBoundary(b.Z), nil
	}
	regions, err := polyclip.Offset(b.Rings(), delta, p.opts.Offset)
	if err != nil {
		return geometry.Boundary{}, faults.NewGeometryError(faults.ComponentContour, b.Z, "offset", err)
	}
	out := p.filter(b.Z, regions)
	holes := b.HoleCount() - out.HoleCount()
	islands := len(b.Regions) - len(out.Regions)
	if holes > 0 || islands > 0 {
		p.log.Warn("rings collapsed during offset",
			zap.Float64("z", b.Z),
			zap.Float64("delta", delta),
			zap.Int("holes", holes),
			zap.Int("islands", islands))
	}
	return out, nil
}

// Subtract removes every exclusion from b
func (p *Processor) Subtract(b geometry.Boundary, exclusions ...geometry.Boundary) (geometry.Boundary, error) {
	var clip []geometry.Polygon
	for _, e := range exclusions {
		clip = append(clip, e.Rings()...)
	}
	if b.IsEmpty() {
		return geometry.EmptyBoundary(b.Z), nil
	}
	if len(clip) == 0 {
		return b, nil
	}
	regions, err := polyclip.Difference(b.Rings(), clip)
	if err != nil {
		return geometry.Boundary{}, faults.NewGeometryError(faults.ComponentContour, b.Z, "subtract", err)
	}
	return p.filter(b.Z, regions), nil
}

// Union merges boundaries. The result takes the height of the first one.
func (p *Processor) Union(boundaries ...geometry.Boundary) (geometry.Boundary, error) {
	if len(boundaries) == 0 {
		return geometry.EmptyBoundary(faults.NoHeight), nil
	}
	z := boundaries[0].Z
	var rings []geometry.Polygon
	for _, b := range boundaries {
		rings = append(rings, b.Rings()...)
	}
	if len(rings) == 0 {
		return geometry.EmptyBoundary(z), nil
	}
	regions, err := polyclip.Union(rings)
	if err != nil {
		return geometry.Boundary{}, faults.NewGeometryError(faults.ComponentContour, z, "union", err)
	}
	return p.filter(z, regions), nil
}

// Intersect keeps the area covered by both a and b
func (p *Processor) Intersect(a, b geometry.Boundary) (geometry.Boundary, error) {
	if a.IsEmpty() || b.IsEmpty() {
		return geometry.EmptyBoundary(a.Z), nil
	}
	regions, err := polyclip.Intersection(a.Rings(), b.Rings())
	if err != nil {
		return geometry.Boundary{}, faults.NewGeometryError(faults.ComponentContour, a.Z, "intersect", err)
	}
	return p.filter(a.Z, regions), nil
}

// filter drops rings below the minimum area
func (p *Processor) filter(z float64, regions []geometry.Region) geometry.Boundary {
	b := geometry.Boundary{Z: z}
	for _, r := range regions {
		if r.Outer.Area() < p.opts.MinRingArea {
			p.log.Warn("dropped collapsed island", zap.Float64("z", z), zap.Float64("area", r.Outer.Area()))
			continue
		}
		kept := geometry.Region{Outer: r.Outer}
		for _, h := range r.Holes {
			if h.Area() < p.opts.MinRingArea {
				p.log.Warn("dropped collapsed hole", zap.Float64("z", z), zap.Float64("area", h.Area()))
				continue
			}
			kept.Holes = append(kept.Holes, h)
		}
		b.Regions = append(b.Regions, kept)
	}
	return b
}
