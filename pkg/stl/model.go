package stl

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/philipparndt/goslm/pkg/geometry"
)

// Model represents a complete triangle mesh. It is treated as read-only once
// handed to the pipeline.
type Model struct {
	Name      string
	Triangles []geometry.Triangle
}

// NewModel creates a new STL model
func NewModel(name string) *Model {
	return &Model{
		Name:      name,
		Triangles: make([]geometry.Triangle, 0),
	}
}

// AddTriangle adds a triangle to the model
func (m *Model) AddTriangle(triangle geometry.Triangle) {
	m.Triangles = append(m.Triangles, triangle)
}

// TriangleCount returns the number of triangles in the model
func (m *Model) TriangleCount() int {
	return len(m.Triangles)
}

// BoundingBox calculates the bounding box of the entire model
func (m *Model) BoundingBox() geometry.BoundingBox {
	bbox := geometry.NewBoundingBox()
	for _, triangle := range m.Triangles {
		bbox.Extend(triangle.V1)
		bbox.Extend(triangle.V2)
		bbox.Extend(triangle.V3)
	}
	return bbox
}

// SurfaceArea calculates the total surface area of the model
func (m *Model) SurfaceArea() float64 {
	totalArea := 0.0
	for _, triangle := range m.Triangles {
		totalArea += triangle.Area()
	}
	return totalArea
}

// Volume returns the enclosed volume using signed tetrahedra.
// Only meaningful for closed meshes with outward winding.
func (m *Model) Volume() float64 {
	total := 0.0
	for _, t := range m.Triangles {
		total += t.V1.Dot(t.V2.Cross(t.V3)) / 6.0
	}
	return total
}

// Fingerprint hashes the vertex coordinates in triangle order
func (m *Model) Fingerprint() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, t := range m.Triangles {
		for _, v := range t.Vertices() {
			for _, c := range [3]float64{v.X, v.Y, v.Z} {
				binary.LittleEndian.PutUint64(buf[:], math.Float64bits(c))
				h.Write(buf[:])
			}
		}
	}
	return h.Sum64()
}
