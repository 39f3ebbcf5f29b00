// Package slicer intersects a triangle mesh with horizontal planes and
// stitches the intersection segments into oriented boundary loops.
package slicer

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/philipparndt/goslm/internal/parallel"
	"github.com/philipparndt/goslm/pkg/faults"
	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/polyclip"
	"github.com/philipparndt/goslm/pkg/stl"
)

// Options tunes loop stitching
type Options struct {
	// MatchTolerance is the distance under which segment endpoints join
	MatchTolerance float64
	// GapTolerance is the largest gap that is bridged to close a loop
	GapTolerance float64
	// MinLoopArea drops loops enclosing less area than this
	MinLoopArea float64
	Logger      *zap.Logger
}

// DefaultOptions returns tolerances suited to millimetre meshes
func DefaultOptions() Options {
	return Options{
		MatchTolerance: 1e-6,
		GapTolerance:   1e-3,
		MinLoopArea:    1e-8,
	}
}

// Slicer cuts one mesh at arbitrary heights. It never modifies the mesh and
// is safe for concurrent use.
type Slicer struct {
	mesh *stl.Model
	opts Options
	log  *zap.Logger

	// byMinZ orders triangle indices by their lowest vertex
	byMinZ []int
	minZ   []float64
	maxZ   []float64
	bounds geometry.BoundingBox
}

// New indexes the mesh for slicing
func New(mesh *stl.Model, opts Options) *Slicer {
	if opts.MatchTolerance <= 0 {
		opts.MatchTolerance = DefaultOptions().MatchTolerance
	}
	if opts.GapTolerance < opts.MatchTolerance {
		opts.GapTolerance = opts.MatchTolerance
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Slicer{
		mesh:   mesh,
		opts:   opts,
		log:    log.Named("slicer"),
		byMinZ: make([]int, len(mesh.Triangles)),
		minZ:   make([]float64, len(mesh.Triangles)),
		maxZ:   make([]float64, len(mesh.Triangles)),
		bounds: mesh.BoundingBox(),
	}
	for i, t := range mesh.Triangles {
		s.byMinZ[i] = i
		s.minZ[i], s.maxZ[i] = t.ZRange()
	}
	sort.SliceStable(s.byMinZ, func(a, b int) bool {
		return s.minZ[s.byMinZ[a]] < s.minZ[s.byMinZ[b]]
	})
	return s
}

// Bounds returns the bounding box of the sliced mesh
func (s *Slicer) Bounds() geometry.BoundingBox {
	return s.bounds
}

// Slice returns the cross-section at height z. Heights outside the mesh give
// an empty boundary and no error.
func (s *Slicer) Slice(z float64) (geometry.Boundary, error) {
	if s.bounds.IsEmpty() || z < s.bounds.Min.Z || z > s.bounds.Max.Z {
		return geometry.EmptyBoundary(z), nil
	}

	segments, crossing := s.segments(z)
	if crossing > 0 && len(segments) == 0 {
		return geometry.Boundary{}, faults.NewGeometryError(faults.ComponentSlicer, z,
			fmt.Sprintf("degenerate edge set: %d triangles touch the plane without a measurable cut", crossing), nil)
	}

	loops, err := stitch(segments, s.opts)
	if err != nil {
		return geometry.Boundary{}, faults.NewGeometryError(faults.ComponentSlicer, z, "loop stitching failed", err)
	}

	kept := loops[:0]
	for _, loop := range loops {
		cleaned := polyclip.Clean(loop, s.opts.MatchTolerance)
		if cleaned == nil || cleaned.Area() < s.opts.MinLoopArea {
			s.log.Debug("dropped sliver loop", zap.Float64("z", z), zap.Int("points", len(loop)))
			continue
		}
		kept = append(kept, cleaned)
	}

	boundary, err := geometry.NewBoundary(z, kept, s.opts.MatchTolerance)
	if err != nil {
		return geometry.Boundary{}, faults.NewGeometryError(faults.ComponentSlicer, z, "containment", err)
	}
	return boundary, nil
}

// SliceMany slices every height on the pool. Boundaries and errors are
// returned by height index.
func (s *Slicer) SliceMany(ctx context.Context, pool *parallel.WorkerPool, heights []float64) ([]geometry.Boundary, []error) {
	out := make([]geometry.Boundary, len(heights))
	errs := pool.Map(ctx, len(heights), func(_ context.Context, i int) error {
		b, err := s.Slice(heights[i])
		out[i] = b
		return err
	})
	return out, errs
}

// Slice is a convenience wrapper for one-off cuts
func Slice(mesh *stl.Model, z float64, opts Options) (geometry.Boundary, error) {
	return New(mesh, opts).Slice(z)
}

// segment is a directed cut through one triangle with solid on its left
type segment struct {
	a, b geometry.Vector2
	face int
}

// segments cuts every triangle spanning z. A vertex at exactly z counts as
// above the plane, so each crossing triangle yields exactly one segment.
// It also returns how many triangles crossed the plane.
func (s *Slicer) segments(z float64) ([]segment, int) {
	// triangles with minZ < z are candidates
	n := sort.Search(len(s.byMinZ), func(i int) bool {
		return s.minZ[s.byMinZ[i]] >= z
	})
	candidates := make([]int, 0, n)
	for _, face := range s.byMinZ[:n] {
		if s.maxZ[face] >= z {
			candidates = append(candidates, face)
		}
	}
	sort.Ints(candidates)

	var out []segment
	for _, face := range candidates {
		t := s.mesh.Triangles[face]
		v := t.Vertices()

		var above [3]bool
		count := 0
		for i := range v {
			above[i] = v[i].Z >= z
			if above[i] {
				count++
			}
		}
		if count == 0 || count == 3 {
			continue
		}

		// the lone vertex is the one on the minority side
		lone := 0
		for i := range v {
			if (count == 1) == above[i] {
				lone = i
			}
		}
		p := cut(v[lone], v[(lone+1)%3], z)
		q := cut(v[lone], v[(lone+2)%3], z)

		n := t.FaceNormal()
		dir := geometry.NewVector2(-n.Y, n.X)
		if q.Sub(p).Dot(dir) < 0 {
			p, q = q, p
		}
		if p.Distance(q) < s.opts.MatchTolerance {
			continue
		}
		out = append(out, segment{a: p, b: q, face: face})
	}
	return out, len(candidates)
}

// cut intersects edge a-b with the plane. Endpoints are ordered canonically
// so that both triangles sharing the edge compute the identical point.
func cut(a, b geometry.Vector3, z float64) geometry.Vector2 {
	if a.Z > b.Z || (a.Z == b.Z && (a.X > b.X || (a.X == b.X && a.Y > b.Y))) {
		a, b = b, a
	}
	if b.Z == a.Z {
		return a.XY()
	}
	t := (z - a.Z) / (b.Z - a.Z)
	return a.Lerp(b, t).XY()
}
