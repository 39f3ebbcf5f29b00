package geometry

import (
	"errors"
	"fmt"
)

// ErrOrphanHole is returned when a hole ring has no enclosing solid ring
var ErrOrphanHole = errors.New("hole is not enclosed by any solid loop")

// Region is one solid outline together with the holes it encloses.
// Outer is counter-clockwise, holes are clockwise.
type Region struct {
	Outer Polygon
	Holes []Polygon
}

// Area returns the solid area of the region
func (r Region) Area() float64 {
	area := r.Outer.Area()
	for _, h := range r.Holes {
		area -= h.Area()
	}
	return area
}

// Contains reports whether pt is inside the outline and outside every hole
func (r Region) Contains(pt Vector2) bool {
	if !r.Outer.Contains(pt) {
		return false
	}
	for _, h := range r.Holes {
		if h.Contains(pt) {
			return false
		}
	}
	return true
}

// Rings returns the outline followed by the holes
func (r Region) Rings() []Polygon {
	rings := make([]Polygon, 0, len(r.Holes)+1)
	rings = append(rings, r.Outer)
	return append(rings, r.Holes...)
}

// Boundary is the cross-section of a part at one build height.
// Islands inside holes are separate regions.
type Boundary struct {
	Z       float64
	Regions []Region
}

// EmptyBoundary returns a boundary with no material at height z
func EmptyBoundary(z float64) Boundary {
	return Boundary{Z: z}
}

// IsEmpty reports whether the boundary has no regions
func (b Boundary) IsEmpty() bool {
	return len(b.Regions) == 0
}

// Rings returns every ring of every region
func (b Boundary) Rings() []Polygon {
	var rings []Polygon
	for _, r := range b.Regions {
		rings = append(rings, r.Rings()...)
	}
	return rings
}

// HoleCount returns the number of holes over all regions
func (b Boundary) HoleCount() int {
	n := 0
	for _, r := range b.Regions {
		n += len(r.Holes)
	}
	return n
}

// Area returns the total solid area
func (b Boundary) Area() float64 {
	area := 0.0
	for _, r := range b.Regions {
		area += r.Area()
	}
	return area
}

// Bounds returns the bounding rectangle of all outlines
func (b Boundary) Bounds() Rect {
	rect := NewRect()
	for _, r := range b.Regions {
		rect = rect.Union(r.Outer.Bounds())
	}
	return rect
}

// Contains reports whether pt lies in solid material
func (b Boundary) Contains(pt Vector2) bool {
	for _, r := range b.Regions {
		if r.Contains(pt) {
			return true
		}
	}
	return false
}

// NewBoundary organises oriented loops into regions. Counter-clockwise loops
// are solid, clockwise loops are holes. A hole belongs to the smallest solid
// that contains it; equal areas resolve to the earlier loop.
func NewBoundary(z float64, loops []Polygon, tolerance float64) (Boundary, error) {
	b := Boundary{Z: z}

	var solids []int
	var holes []int
	for i, loop := range loops {
		if loop.IsSolid() {
			solids = append(solids, i)
		} else {
			holes = append(holes, i)
		}
	}

	index := make(map[int]int, len(solids))
	for _, i := range solids {
		index[i] = len(b.Regions)
		b.Regions = append(b.Regions, Region{Outer: loops[i]})
	}

	for _, h := range holes {
		owner := -1
		ownerArea := 0.0
		for _, s := range solids {
			if !loops[s].ContainsPolygon(loops[h], tolerance) {
				continue
			}
			area := loops[s].Area()
			if owner < 0 || area < ownerArea {
				owner, ownerArea = s, area
			}
		}
		if owner < 0 {
			return Boundary{}, fmt.Errorf("loop %d: %w", h, ErrOrphanHole)
		}
		r := &b.Regions[index[owner]]
		r.Holes = append(r.Holes, loops[h])
	}

	return b, nil
}
