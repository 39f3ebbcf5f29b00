package hatch

import (
	"math"

	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/params"
)

// Stripe cuts the extent into bands of StripeWidth across the hatch
// direction and hatches each band separately
type Stripe struct{}

// Kind returns the strategy name
func (Stripe) Kind() params.HatchStrategy { return params.StrategyStripe }

// Hatch generates the band pieces, band by band along the hatch direction
func (Stripe) Hatch(b geometry.Boundary, hp Params) []Line {
	if b.IsEmpty() || hp.StripeWidth <= 0 {
		return nil
	}
	f := newFrame(b, hp.Angle)
	e := f.extent

	bands := int(math.Ceil(e.Width() / hp.StripeWidth))
	if bands == 0 {
		bands = 1
	}

	var lines []Line
	for band := 0; band < bands; band++ {
		x0 := e.Min.X + float64(band)*hp.StripeWidth
		x1 := math.Min(x0+hp.StripeWidth, e.Max.X)
		if x1-x0 < 1e-9 {
			continue
		}

		// stagger odd bands so the seams of neighbouring bands do not line up
		shift := 0.0
		if band%2 == 1 {
			shift = hp.Spacing / 2
		}
		for row, y := range rows(e.Min.Y, e.Max.Y, hp.Spacing, shift) {
			start, end := f.line(x0, x1, y)
			l := Line{Start: start, End: end, Group: band, Row: row, MaxLength: hp.StripeWidth}
			if row%2 == 1 {
				l = l.Reverse()
			}
			lines = append(lines, l)
		}
	}
	return lines
}
