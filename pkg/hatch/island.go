package hatch

import (
	"math"

	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/params"
)

// Island partitions the extent into square cells and hatches each cell on
// its own, rotating every other cell by 90 degrees
type Island struct{}

// Cell is one island of the partition
type Cell struct {
	// Index is the position in the visiting order
	Index  int
	Column int
	Row    int
	// Bounds is the cell rectangle in the hatch frame
	Bounds geometry.Rect
	// Outline is the cell in world coordinates
	Outline geometry.Polygon
	// Rotated marks cells hatched perpendicular to the layer angle
	Rotated bool
}

// Kind returns the strategy name
func (Island) Kind() params.HatchStrategy { return params.StrategyIsland }

// Cells returns the partition of the extent in serpentine visiting order
func (Island) Cells(b geometry.Boundary, hp Params) []Cell {
	if b.IsEmpty() || hp.IslandWidth <= 0 {
		return nil
	}
	f := newFrame(b, hp.Angle)
	return cells(f, hp.IslandWidth)
}

func cells(f frame, width float64) []Cell {
	e := f.extent
	cols := max(1, int(math.Ceil(e.Width()/width)))
	rowsN := max(1, int(math.Ceil(e.Height()/width)))

	out := make([]Cell, 0, cols*rowsN)
	for r := 0; r < rowsN; r++ {
		for k := 0; k < cols; k++ {
			c := k
			if r%2 == 1 {
				c = cols - 1 - k
			}
			bounds := geometry.Rect{
				Min: geometry.NewVector2(e.Min.X+float64(c)*width, e.Min.Y+float64(r)*width),
				Max: geometry.NewVector2(
					math.Min(e.Min.X+float64(c+1)*width, e.Max.X),
					math.Min(e.Min.Y+float64(r+1)*width, e.Max.Y),
				),
			}
			outline := geometry.RectPolygon(bounds)
			for i, p := range outline {
				outline[i] = f.out(p)
			}
			out = append(out, Cell{
				Index:   len(out),
				Column:  c,
				Row:     r,
				Bounds:  bounds,
				Outline: outline,
				Rotated: (c+r)%2 == 1,
			})
		}
	}
	return out
}

// Hatch generates an alternating hatch per cell. Cell n is group n.
func (Island) Hatch(b geometry.Boundary, hp Params) []Line {
	if b.IsEmpty() || hp.IslandWidth <= 0 {
		return nil
	}
	f := newFrame(b, hp.Angle)

	var lines []Line
	for _, cell := range cells(f, hp.IslandWidth) {
		c := cell.Bounds
		if !cell.Rotated {
			for row, y := range rows(c.Min.Y, c.Max.Y, hp.Spacing, 0) {
				start, end := f.line(c.Min.X, c.Max.X, y)
				lines = append(lines, cellLine(start, end, cell.Index, row))
			}
			continue
		}
		for row, x := range rows(c.Min.X, c.Max.X, hp.Spacing, 0) {
			start := f.out(geometry.NewVector2(x, c.Min.Y))
			end := f.out(geometry.NewVector2(x, c.Max.Y))
			lines = append(lines, cellLine(start, end, cell.Index, row))
		}
	}
	return lines
}

func cellLine(start, end geometry.Vector2, group, row int) Line {
	l := Line{Start: start, End: end, Group: group, Row: row}
	if row%2 == 1 {
		return l.Reverse()
	}
	return l
}
