package hatch

import (
	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/params"
)

// Alternating scans the whole extent with parallel lines whose direction
// reverses on every other row
type Alternating struct{}

// Kind returns the strategy name
func (Alternating) Kind() params.HatchStrategy { return params.StrategyAlternating }

// Hatch generates one line per row across the full extent
func (Alternating) Hatch(b geometry.Boundary, hp Params) []Line {
	if b.IsEmpty() {
		return nil
	}
	f := newFrame(b, hp.Angle)
	e := f.extent

	var lines []Line
	for row, y := range rows(e.Min.Y, e.Max.Y, hp.Spacing, 0) {
		start, end := f.line(e.Min.X, e.Max.X, y)
		l := Line{Start: start, End: end, Row: row}
		if row%2 == 1 {
			l = l.Reverse()
		}
		lines = append(lines, l)
	}
	return lines
}
