// Package scan turns raw hatch lines and boundary rings into ordered scan
// vectors: lines are clipped to the solid, filtered, spot compensated,
// sequenced and tagged with their build style.
package scan

import (
	"math"
	"sort"

	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/hatch"
	"github.com/philipparndt/goslm/pkg/layer"
	"github.com/philipparndt/goslm/pkg/params"
)

// Options configures a Trimmer
type Options struct {
	// MinLength discards pieces not longer than this
	MinLength float64
	// SpotCompensation moves both ends of a piece inward, negative extends
	SpotCompensation float64
}

// OptionsFrom derives trimmer options from build parameters
func OptionsFrom(p params.Parameters) Options {
	return Options{
		MinLength:        p.MinVectorLength,
		SpotCompensation: p.SpotCompensation,
	}
}

// Trimmer clips and orders vectors for one layer
type Trimmer struct {
	opts Options
}

// NewTrimmer creates a trimmer
func NewTrimmer(opts Options) *Trimmer {
	return &Trimmer{opts: opts}
}

// Hatches clips lines to b and returns them as ordered scan vectors
func (t *Trimmer) Hatches(b geometry.Boundary, lines []hatch.Line, typ layer.VectorType, style *layer.BuildStyle) []layer.ScanVector {
	pieces := t.Compensate(t.Clip(b, lines))
	ordered := Sequence(pieces)

	vectors := make([]layer.ScanVector, len(ordered))
	for i, l := range ordered {
		vectors[i] = layer.ScanVector{
			Type:   typ,
			Points: []geometry.Vector2{l.Start, l.End},
			Style:  style,
		}
	}
	return vectors
}

// Clip splits every line into the pieces inside b, dropping pieces shorter
// than the minimum length. Pieces keep the direction of their line.
func (t *Trimmer) Clip(b geometry.Boundary, lines []hatch.Line) []hatch.Line {
	if b.IsEmpty() {
		return nil
	}
	rings := b.Rings()
	bounds := b.Bounds()

	var out []hatch.Line
	for _, l := range lines {
		lb := geometry.NewRect()
		lb.Extend(l.Start)
		lb.Extend(l.End)
		if !lb.Overlaps(bounds) {
			continue
		}
		for _, piece := range clipLine(l, rings, b) {
			if piece.Length() < t.opts.MinLength {
				continue
			}
			out = append(out, piece)
		}
	}
	return out
}

// clipLine returns the pieces of l inside b in line order. Crossings are
// collected against every ring and each interval between consecutive
// crossings is classified by its midpoint.
func clipLine(l hatch.Line, rings []geometry.Polygon, b geometry.Boundary) []hatch.Line {
	d := l.End.Sub(l.Start)
	if d.Length() == 0 {
		return nil
	}

	ts := []float64{0, 1}
	for _, ring := range rings {
		n := len(ring)
		for i := 0; i < n; i++ {
			a, c := ring[i], ring[(i+1)%n]
			sa := d.Cross(a.Sub(l.Start))
			sc := d.Cross(c.Sub(l.Start))
			if (sa > 0) == (sc > 0) {
				continue
			}
			e := c.Sub(a)
			denom := d.Cross(e)
			if denom == 0 {
				continue
			}
			tt := a.Sub(l.Start).Cross(e) / denom
			if tt > 0 && tt < 1 {
				ts = append(ts, tt)
			}
		}
	}
	sort.Float64s(ts)

	var pieces []hatch.Line
	open := -1.0
	for i := 1; i < len(ts); i++ {
		t0, t1 := ts[i-1], ts[i]
		if t1-t0 < 1e-12 {
			continue
		}
		inside := b.Contains(l.Start.Add(d.Mul((t0 + t1) / 2)))
		switch {
		case inside && open < 0:
			open = t0
		case !inside && open >= 0:
			pieces = append(pieces, piece(l, d, open, t0))
			open = -1
		}
	}
	if open >= 0 {
		pieces = append(pieces, piece(l, d, open, 1))
	}
	return pieces
}

func piece(l hatch.Line, d geometry.Vector2, t0, t1 float64) hatch.Line {
	p := l
	p.Start = l.Start.Add(d.Mul(t0))
	p.End = l.Start.Add(d.Mul(t1))
	return p
}

// Compensate moves the ends of every piece inward by the spot compensation.
// A negative value extends pieces, but never beyond their MaxLength.
// Pieces that end up no longer than the minimum length are dropped.
func (t *Trimmer) Compensate(lines []hatch.Line) []hatch.Line {
	c := t.opts.SpotCompensation
	out := lines[:0:0]
	for _, l := range lines {
		length := l.Length()
		shift := c
		if c < 0 && l.MaxLength > 0 {
			// limit the extension so the piece stays within MaxLength
			room := math.Max(0, (l.MaxLength-length)/2)
			shift = math.Max(c, -room)
		}
		if length-2*shift <= t.opts.MinLength {
			continue
		}
		if shift != 0 {
			u := l.End.Sub(l.Start).Mul(1 / length)
			l.Start = l.Start.Add(u.Mul(shift))
			l.End = l.End.Sub(u.Mul(shift))
		}
		out = append(out, l)
	}
	return out
}
