// Package analysis summarises a mesh before it is sliced: size, edge
// statistics, manifold check and how much of it needs support.
package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/philipparndt/goslm/internal/parallel"
	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/params"
	"github.com/philipparndt/goslm/pkg/slicer"
	"github.com/philipparndt/goslm/pkg/stl"
	"github.com/philipparndt/goslm/pkg/support"
)

// Report contains the statistics shown by goslm info
type Report struct {
	BoundingBox   geometry.BoundingBox
	Dimensions    geometry.Vector3
	Volume        float64
	SurfaceArea   float64
	TriangleCount int
	EdgeCount     int
	MinEdgeLength float64
	MaxEdgeLength float64
	AvgEdgeLength float64
	// Degenerate counts faces that collapse after welding
	Degenerate int
	// ManifoldErr is nil for a closed, consistently wound mesh
	ManifoldErr error
	Layers      int
	Sections    SectionReport
	Overhang    OverhangReport
}

// SectionReport summarises the cross sections at every build height. It
// stays empty for meshes that are not manifold.
type SectionReport struct {
	MaxArea  float64
	MaxHoles int
	// Failed holds the indices of heights that could not be sliced
	Failed []int
}

// OverhangReport describes the faces that need support
type OverhangReport struct {
	Faces       int
	Surfaces    int
	Area        float64
	LargestArea float64
	Edges       int
	Points      int
}

// Analyze measures model as it would be built with p. The model is aligned
// with the build axis first.
func Analyze(ctx context.Context, model *stl.Model, p params.Parameters) (*Report, error) {
	part := model.AlignAxis(p.BuildAxis)
	r := &Report{
		BoundingBox:   part.BoundingBox(),
		SurfaceArea:   part.SurfaceArea(),
		Volume:        part.Volume(),
		TriangleCount: part.TriangleCount(),
		ManifoldErr:   part.Validate(),
	}
	r.Dimensions = r.BoundingBox.Size()
	if p.LayerThickness > 0 {
		r.Layers = len(p.LayerHeights(r.BoundingBox.Max.Z))
	}

	if r.ManifoldErr == nil && r.Layers > 0 {
		sections, err := sections(ctx, part, p.LayerHeights(r.BoundingBox.Max.Z))
		if err != nil {
			return nil, err
		}
		r.Sections = sections
	}

	topo := part.Topology(stl.DefaultWeldTolerance)
	r.Degenerate = len(topo.Degenerate)
	edges := topo.Edges()
	r.EdgeCount = len(edges)
	if len(edges) > 0 {
		lengths := lo.Map(edges, func(e stl.Edge, _ int) float64 {
			return topo.Vertices[e.A].Distance(topo.Vertices[e.B])
		})
		r.MinEdgeLength = lo.Min(lengths)
		r.MaxEdgeLength = lo.Max(lengths)
		r.AvgEdgeLength = lo.Sum(lengths) / float64(len(lengths))
	}

	o, err := support.DetectOverhangs(part, topo, p.OverhangAngleThreshold, p.PlatformZ, p.MinSupportArea)
	if err != nil {
		return nil, fmt.Errorf("overhang detection: %w", err)
	}
	r.Overhang = OverhangReport{
		Faces:    len(o.Flagged),
		Surfaces: len(o.Surfaces),
		Edges:    len(o.Edges),
		Points:   len(o.Points),
	}
	for _, s := range o.Surfaces {
		r.Overhang.Area += s.Area
		r.Overhang.LargestArea = math.Max(r.Overhang.LargestArea, s.Area)
	}
	return r, nil
}

func sections(ctx context.Context, part *stl.Model, heights []float64) (SectionReport, error) {
	pool := parallel.NewWorkerPool(0)
	defer pool.Close()

	var r SectionReport
	boundaries, errs := slicer.New(part, slicer.DefaultOptions()).SliceMany(ctx, pool, heights)
	if err := ctx.Err(); err != nil {
		return r, err
	}
	for i, b := range boundaries {
		if errs[i] != nil {
			r.Failed = append(r.Failed, i)
			continue
		}
		r.MaxArea = math.Max(r.MaxArea, b.Area())
		r.MaxHoles = max(r.MaxHoles, b.HoleCount())
	}
	return r, nil
}

// FormatVector formats a 3D vector
func FormatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", v.X, v.Y, v.Z)
}
