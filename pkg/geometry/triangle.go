package geometry

import "math"

// Triangle represents a triangular facet in 3D space
type Triangle struct {
	Normal     Vector3
	V1, V2, V3 Vector3
}

// NewTriangle creates a new triangle
func NewTriangle(normal, v1, v2, v3 Vector3) Triangle {
	return Triangle{
		Normal: normal,
		V1:     v1,
		V2:     v2,
		V3:     v3,
	}
}

// CalculateNormal computes the normal vector for the triangle from its winding
func (t Triangle) CalculateNormal() Vector3 {
	edge1 := t.V2.Sub(t.V1)
	edge2 := t.V3.Sub(t.V1)
	return edge1.Cross(edge2).Normalize()
}

// FaceNormal returns the outward unit normal.
// The winding is authoritative; the stored normal is only used when the
// triangle is too thin to give a direction.
func (t Triangle) FaceNormal() Vector3 {
	n := t.CalculateNormal()
	if n.Length() > 0.5 {
		return n
	}
	return t.Normal.Normalize()
}

// Vertices returns the three corners in winding order
func (t Triangle) Vertices() [3]Vector3 {
	return [3]Vector3{t.V1, t.V2, t.V3}
}

// Area returns the surface area of the triangle
func (t Triangle) Area() float64 {
	edge1 := t.V2.Sub(t.V1)
	edge2 := t.V3.Sub(t.V1)
	cross := edge1.Cross(edge2)
	return cross.Length() / 2.0
}

// ZRange returns the lowest and highest Z of the triangle
func (t Triangle) ZRange() (float64, float64) {
	lo := math.Min(t.V1.Z, math.Min(t.V2.Z, t.V3.Z))
	hi := math.Max(t.V1.Z, math.Max(t.V2.Z, t.V3.Z))
	return lo, hi
}
