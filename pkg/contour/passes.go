package contour

import (
	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/params"
)

// Passes is the result of the contour stage for one layer
type Passes struct {
	// Outer holds the outer contour passes, outermost first
	Outer []geometry.Boundary
	// Inner holds the inner contour passes following the outer ones
	Inner []geometry.Boundary
	// HatchRegion is the area left for infill
	HatchRegion geometry.Boundary
}

// All returns every contour pass in scan order
func (ps Passes) All() []geometry.Boundary {
	all := make([]geometry.Boundary, 0, len(ps.Outer)+len(ps.Inner))
	all = append(all, ps.Outer...)
	return append(all, ps.Inner...)
}

// Passes offsets b inward once per requested contour. Each pass starts from
// the previous one; the hatch region is the last pass shrunk by HatchOffset.
func (p *Processor) Passes(b geometry.Boundary, pp params.Parameters) (Passes, error) {
	var out Passes
	current := b

	for i := 0; i < pp.NumOuterContours+pp.NumInnerContours; i++ {
		next, err := p.Offset(current, -pp.ContourOffset)
		if err != nil {
			return Passes{}, err
		}
		if i < pp.NumOuterContours {
			out.Outer = append(out.Outer, next)
		} else {
			out.Inner = append(out.Inner, next)
		}
		current = next
	}

	if pp.HatchOffset == 0 {
		out.HatchRegion = current
		return out, nil
	}
	region, err := p.Offset(current, -pp.HatchOffset)
	if err != nil {
		return Passes{}, err
	}
	out.HatchRegion = region
	return out, nil
}
