// Package layer assembles the scan vectors of one build height and derives
// their metadata.
package layer

import (
	"github.com/samber/lo"

	"github.com/philipparndt/goslm/pkg/geometry"
)

// VectorType classifies scan vectors
type VectorType string

// Vector types in scan order
const (
	TypeContour VectorType = "contour"
	TypeHatch   VectorType = "hatch"
	TypeSupport VectorType = "support"
)

// ScanVector is an ordered run of points scanned with one style. Hatch and
// support moves have two points; contours are closed polylines.
type ScanVector struct {
	Type   VectorType
	Points []geometry.Vector2
	Closed bool
	Style  *BuildStyle
}

// Length returns the scanned length, including the closing edge
func (v ScanVector) Length() float64 {
	total := 0.0
	for i := 1; i < len(v.Points); i++ {
		total += v.Points[i-1].Distance(v.Points[i])
	}
	if v.Closed && len(v.Points) > 2 {
		total += v.Points[len(v.Points)-1].Distance(v.Points[0])
	}
	return total
}

// Start returns the first point
func (v ScanVector) Start() geometry.Vector2 {
	return v.Points[0]
}

// End returns the point the beam rests on after the vector
func (v ScanVector) End() geometry.Vector2 {
	if v.Closed {
		return v.Points[0]
	}
	return v.Points[len(v.Points)-1]
}

// Metadata summarises a layer
type Metadata struct {
	Bounds geometry.Rect
	// TotalLength is the scanned length of all vectors
	TotalLength float64
	// ExposureTime estimates the beam-on time in seconds
	ExposureTime float64
	// JumpLength is the beam-off travel between consecutive vectors
	JumpLength float64
	Counts     map[VectorType]int
}

// Layer holds the vectors of one build height in emission order
type Layer struct {
	Index    int
	Z        float64
	Vectors  []ScanVector
	Metadata Metadata
}

// IsEmpty reports whether nothing is scanned in the layer
func (l *Layer) IsEmpty() bool {
	return len(l.Vectors) == 0
}

// OfType returns the vectors of one type in emission order
func (l *Layer) OfType(t VectorType) []ScanVector {
	return lo.Filter(l.Vectors, func(v ScanVector, _ int) bool {
		return v.Type == t
	})
}

// Assembler merges the vector lists of one height into a Layer
type Assembler struct{}

// Assemble concatenates contour, hatch and support vectors in that order,
// keeping each list's order, and computes the metadata
func (Assembler) Assemble(index int, z float64, contours, hatches, supports []ScanVector) *Layer {
	l := &Layer{
		Index:   index,
		Z:       z,
		Vectors: lo.Flatten([][]ScanVector{contours, hatches, supports}),
	}
	l.Metadata = Measure(l.Vectors)
	return l
}

// Measure computes metadata for vectors in scan order
func Measure(vectors []ScanVector) Metadata {
	m := Metadata{
		Bounds: geometry.NewRect(),
		TotalLength: lo.SumBy(vectors, func(v ScanVector) float64 {
			return v.Length()
		}),
		Counts: lo.CountValuesBy(vectors, func(v ScanVector) VectorType {
			return v.Type
		}),
	}
	for i, v := range vectors {
		for _, p := range v.Points {
			m.Bounds.Extend(p)
		}
		if v.Style != nil {
			m.ExposureTime += v.Length() / v.Style.ScanSpeed()
		}
		if i > 0 {
			m.JumpLength += vectors[i-1].End().Distance(v.Start())
		}
	}
	return m
}
