package support

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/philipparndt/goslm/pkg/faults"
	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/params"
	"github.com/philipparndt/goslm/pkg/polyclip"
	"github.com/philipparndt/goslm/pkg/stl"
)

// Section is the cross-section of a support volume at one layer
type Section struct {
	Index   int
	Z       float64
	Regions []geometry.Region
}

// Area returns the area of the section
func (s Section) Area() float64 {
	return polyclip.Area(s.Regions)
}

// Boundary returns the section as a layer boundary
func (s Section) Boundary() geometry.Boundary {
	return geometry.Boundary{Z: s.Z, Regions: s.Regions}
}

// Request is one surface to project down to the platform
type Request struct {
	Mesh    *stl.Model
	Surface Surface
	// Heights are the layer heights in ascending order
	Heights []float64
	// Boundaries holds the part boundary of every layer, nil where the layer
	// could not be sliced
	Boundaries []*geometry.Boundary
	Params     params.Parameters
}

// Projector computes support sections for an overhang surface
type Projector interface {
	Name() string
	// Reentrant reports whether Project may run concurrently
	Reentrant() bool
	Project(ctx context.Context, req Request) ([]Section, error)
}

var (
	projectorMu sync.RWMutex
	projector   Projector
)

// RegisterProjector replaces the approximate projector used by every
// Dispatcher, for example with an accelerated implementation
func RegisterProjector(p Projector) error {
	if p == nil {
		return errors.New("support: projector must not be nil")
	}
	projectorMu.Lock()
	projector = p
	projectorMu.Unlock()
	return nil
}

// RegisteredProjector returns the registered projector, or nil
func RegisteredProjector() Projector {
	projectorMu.RLock()
	p := projector
	projectorMu.RUnlock()
	return p
}

// Dispatcher is the single path to the approximate projector. Calls are
// serialised unless the projector is reentrant.
type Dispatcher struct {
	mu       sync.Mutex
	fallback Projector
}

// NewDispatcher returns a dispatcher that uses the height map projector
// when none is registered
func NewDispatcher() *Dispatcher {
	return &Dispatcher{fallback: HeightMap{}}
}

// Projector returns the projector calls are dispatched to
func (d *Dispatcher) Projector() Projector {
	if p := RegisteredProjector(); p != nil {
		return p
	}
	return d.fallback
}

// Project runs the approximate projection for req
func (d *Dispatcher) Project(ctx context.Context, req Request) ([]Section, error) {
	p := d.Projector()
	if !p.Reentrant() {
		d.mu.Lock()
		defer d.mu.Unlock()
	}
	return p.Project(ctx, req)
}

// Exact projects by cascading polygon booleans down through every layer
// boundary
type Exact struct{}

// Name returns the projector name
func (Exact) Name() string { return "exact" }

// Reentrant reports true, the cascade keeps no state
func (Exact) Reentrant() bool { return true }

// Project walks the layers top-down. The region carried down is joined with
// the part of the surface first exposed at each layer and reduced by the
// part boundary there; the emitted section keeps the outer gap to the part.
func (Exact) Project(ctx context.Context, req Request) ([]Section, error) {
	s := req.Surface
	top := -1
	for i, z := range req.Heights {
		if z < s.MaxZ {
			top = i
		}
	}
	if top < 0 {
		return nil, nil
	}
	opts := polyclip.OffsetOptions{MiterLimit: req.Params.OffsetMiterLimit, ArcTolerance: req.Params.ArcTolerance}

	var carried []geometry.Polygon
	var sections []Section
	for i := top; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		z := req.Heights[i]
		if z <= req.Params.PlatformZ {
			break
		}
		b := req.Boundaries[i]
		if b == nil {
			return nil, faults.NewSupportError(z, s.ID, "layer boundary missing", nil)
		}

		ceiling := math.Inf(1)
		if i < top {
			ceiling = req.Heights[i+1]
		}
		subject := make([]geometry.Polygon, 0, len(carried))
		subject = append(subject, carried...)
		subject = append(subject, exposed(req.Mesh, s.Faces, z, ceiling)...)
		if len(subject) == 0 {
			if z < s.MinZ {
				break
			}
			continue
		}

		regions, err := polyclip.Difference(subject, b.Rings())
		if err != nil {
			return nil, faults.NewSupportError(z, s.ID, "carry region", err)
		}
		carried = polyclip.Rings(regions)
		if len(carried) == 0 {
			continue
		}

		emitted := regions
		if req.Params.OuterSupportGap > 0 && !b.IsEmpty() {
			gap, err := polyclip.Offset(b.Rings(), req.Params.OuterSupportGap, opts)
			if err != nil {
				return nil, faults.NewSupportError(z, s.ID, "outer gap", err)
			}
			emitted, err = polyclip.Difference(carried, polyclip.Rings(gap))
			if err != nil {
				return nil, faults.NewSupportError(z, s.ID, "outer gap", err)
			}
		}
		if len(emitted) > 0 {
			sections = append(sections, Section{Index: i, Z: z, Regions: emitted})
		}
	}

	for l, r := 0, len(sections)-1; l < r; l, r = l+1, r-1 {
		sections[l], sections[r] = sections[r], sections[l]
	}
	return sections, nil
}

// exposed projects the parts of faces with floor <= z < ceiling
func exposed(mesh *stl.Model, faces []int, floor, ceiling float64) []geometry.Polygon {
	var rings []geometry.Polygon
	for _, f := range faces {
		t := mesh.Triangles[f]
		zmin, zmax := t.ZRange()
		if zmax < floor || zmin >= ceiling {
			continue
		}
		part := clipZ(t.Vertices(), floor, ceiling)
		if len(part) < 3 {
			continue
		}
		ring := make(geometry.Polygon, len(part))
		for i, v := range part {
			ring[i] = v.XY()
		}
		if ring.Area() < 1e-12 {
			continue
		}
		if !ring.IsSolid() {
			ring = ring.Reverse()
		}
		rings = append(rings, ring)
	}
	return rings
}

// clipZ clips a triangle to the slab floor <= z <= ceiling
func clipZ(tri [3]geometry.Vector3, floor, ceiling float64) []geometry.Vector3 {
	poly := tri[:]
	poly = clipPlane(poly, func(v geometry.Vector3) float64 { return v.Z - floor })
	if !math.IsInf(ceiling, 1) {
		poly = clipPlane(poly, func(v geometry.Vector3) float64 { return ceiling - v.Z })
	}
	return poly
}

// clipPlane keeps the part of a convex polygon where side >= 0
func clipPlane(poly []geometry.Vector3, side func(geometry.Vector3) float64) []geometry.Vector3 {
	var out []geometry.Vector3
	n := len(poly)
	for i := 0; i < n; i++ {
		a, b := poly[i], poly[(i+1)%n]
		da, db := side(a), side(b)
		if da >= 0 {
			out = append(out, a)
		}
		if (da >= 0) != (db >= 0) {
			out = append(out, a.Lerp(b, da/(da-db)))
		}
	}
	return out
}
