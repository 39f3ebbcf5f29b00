package geometry

import "math"

// Polygon is a closed ring of points. The closing edge from the last point
// back to the first is implicit.
type Polygon []Vector2

// SignedArea returns the shoelace area, positive for counter-clockwise rings
func (p Polygon) SignedArea() float64 {
	if len(p) < 3 {
		return 0
	}
	sum := 0.0
	for i := range p {
		j := (i + 1) % len(p)
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return sum / 2.0
}

// Area returns the absolute enclosed area
func (p Polygon) Area() float64 {
	return math.Abs(p.SignedArea())
}

// IsSolid reports whether the ring is counter-clockwise
func (p Polygon) IsSolid() bool {
	return p.SignedArea() > 0
}

// Perimeter returns the length of the closed ring
func (p Polygon) Perimeter() float64 {
	if len(p) < 2 {
		return 0
	}
	total := 0.0
	for i := range p {
		total += p[i].Distance(p[(i+1)%len(p)])
	}
	return total
}

// Reverse returns the ring with opposite orientation
func (p Polygon) Reverse() Polygon {
	out := make(Polygon, len(p))
	for i, v := range p {
		out[len(p)-1-i] = v
	}
	return out
}

// Bounds returns the bounding rectangle of the ring
func (p Polygon) Bounds() Rect {
	r := NewRect()
	for _, v := range p {
		r.Extend(v)
	}
	return r
}

// Contains reports whether pt lies inside the ring (crossing number test)
func (p Polygon) Contains(pt Vector2) bool {
	inside := false
	n := len(p)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p[i], p[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := a.X + (pt.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if pt.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// DistanceToEdge returns the shortest distance from pt to the ring outline
func (p Polygon) DistanceToEdge(pt Vector2) float64 {
	best := math.MaxFloat64
	for i := range p {
		best = math.Min(best, SegmentDistance(pt, p[i], p[(i+1)%len(p)]))
	}
	return best
}

// ContainsPolygon reports whether other lies inside p. The first vertex of
// other that is clear of p's outline decides; rings touching everywhere
// count as outside.
func (p Polygon) ContainsPolygon(other Polygon, tolerance float64) bool {
	if !p.Bounds().Overlaps(other.Bounds()) {
		return false
	}
	for _, v := range other {
		if p.DistanceToEdge(v) > tolerance {
			return p.Contains(v)
		}
	}
	return false
}

// Translate returns the ring shifted by offset
func (p Polygon) Translate(offset Vector2) Polygon {
	out := make(Polygon, len(p))
	for i, v := range p {
		out[i] = v.Add(offset)
	}
	return out
}

// Rotate returns the ring rotated around the origin
func (p Polygon) Rotate(radians float64) Polygon {
	out := make(Polygon, len(p))
	for i, v := range p {
		out[i] = v.Rotate(radians)
	}
	return out
}

// SegmentDistance returns the distance from pt to the segment a-b
func SegmentDistance(pt, a, b Vector2) float64 {
	ab := b.Sub(a)
	lenSq := ab.Dot(ab)
	if lenSq == 0 {
		return pt.Distance(a)
	}
	t := math.Max(0, math.Min(1, pt.Sub(a).Dot(ab)/lenSq))
	return pt.Distance(a.Add(ab.Mul(t)))
}

// Circle returns a counter-clockwise ring approximating a circle
func Circle(center Vector2, radius float64, segments int) Polygon {
	if segments < 3 {
		segments = 3
	}
	out := make(Polygon, segments)
	for i := range out {
		angle := 2 * math.Pi * float64(i) / float64(segments)
		out[i] = Vector2{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		}
	}
	return out
}

// RectPolygon returns the rectangle as a counter-clockwise ring
func RectPolygon(r Rect) Polygon {
	c := r.Corners()
	return Polygon{c[0], c[1], c[2], c[3]}
}
