package support

import (
	"context"
	"errors"
	"fmt"

	"github.com/deadsy/sdfx/sdf"
	"go.uber.org/zap"

	"github.com/philipparndt/goslm/internal/parallel"
	"github.com/philipparndt/goslm/pkg/faults"
	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/layer"
	"github.com/philipparndt/goslm/pkg/params"
	"github.com/philipparndt/goslm/pkg/stl"
)

// Options configures a Generator
type Options struct {
	Logger *zap.Logger
	// Dispatcher reaches the approximate projector, a new one when nil
	Dispatcher *Dispatcher
	// Pool projects surfaces concurrently when set
	Pool *parallel.WorkerPool
}

// Generator derives support volumes for a part
type Generator struct {
	params     params.Parameters
	log        *zap.Logger
	dispatcher *Dispatcher
	pool       *parallel.WorkerPool
}

// NewGenerator creates a generator for one parameter set
func NewGenerator(p params.Parameters, opts Options) *Generator {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	d := opts.Dispatcher
	if d == nil {
		d = NewDispatcher()
	}
	return &Generator{params: p, log: log.Named("support"), dispatcher: d, pool: opts.Pool}
}

// Slices are the part boundaries of every layer, bottom to top
type Slices struct {
	Heights []float64
	// Boundaries is aligned with Heights, nil where slicing failed
	Boundaries []*geometry.Boundary
}

// Result holds the supports of one part
type Result struct {
	Overhangs Overhangs
	Volumes   []*Volume
	mode      params.SupportMode
}

// Generate finds the overhangs of mesh and projects each surface down to the
// platform. The mesh must already be oriented with its build axis along +Z.
// A failed projection returns the detected overhangs without volumes along
// with the error.
func (g *Generator) Generate(ctx context.Context, mesh *stl.Model, slices Slices) (*Result, error) {
	if len(slices.Boundaries) != len(slices.Heights) {
		return nil, fmt.Errorf("support: %d boundaries for %d heights", len(slices.Boundaries), len(slices.Heights))
	}
	p := g.params
	topo := mesh.Topology(stl.DefaultWeldTolerance)
	overhangs, err := DetectOverhangs(mesh, topo, p.OverhangAngleThreshold, p.PlatformZ, p.MinSupportArea)
	if err != nil {
		return nil, faults.NewSupportError(faults.NoHeight, -1, "overhang footprint", err)
	}
	g.log.Debug("overhangs detected",
		zap.Int("faces", len(overhangs.Flagged)),
		zap.Int("surfaces", len(overhangs.Surfaces)),
		zap.Int("edges", len(overhangs.Edges)),
		zap.Int("points", len(overhangs.Points)))

	sections := make([][]Section, len(overhangs.Surfaces))
	project := func(ctx context.Context, i int) error {
		req := Request{
			Mesh:       mesh,
			Surface:    overhangs.Surfaces[i],
			Heights:    slices.Heights,
			Boundaries: slices.Boundaries,
			Params:     p,
		}
		s, err := g.project(ctx, req)
		sections[i] = s
		return err
	}

	partial := &Result{Overhangs: overhangs, mode: p.SupportMode}
	if g.pool != nil {
		for _, err := range g.pool.Map(ctx, len(sections), project) {
			if err != nil {
				return partial, err
			}
		}
	} else {
		for i := range sections {
			if err := project(ctx, i); err != nil {
				return partial, err
			}
		}
	}

	var volumes []*Volume
	for i, s := range sections {
		if len(s) == 0 {
			continue
		}
		v, err := newVolume([]int{overhangs.Surfaces[i].ID}, s)
		if err != nil {
			return partial, faults.NewSupportError(faults.NoHeight, overhangs.Surfaces[i].ID, "volume footprint", err)
		}
		volumes = append(volumes, v)
	}

	volumes, err = Merge(volumes, p)
	if err != nil {
		return partial, err
	}
	if p.SupportMode == params.SupportTruss {
		for _, v := range volumes {
			if v.Truss, err = NewTruss(v, p); err != nil {
				return partial, err
			}
		}
	}
	return &Result{Overhangs: overhangs, Volumes: volumes, mode: p.SupportMode}, nil
}

// project runs the projection selected by SupportPrecision. In auto mode a
// failed exact projection is retried approximately.
func (g *Generator) project(ctx context.Context, req Request) ([]Section, error) {
	switch g.params.SupportPrecision {
	case params.PrecisionExact:
		return Exact{}.Project(ctx, req)
	case params.PrecisionApproximate:
		return g.dispatcher.Project(ctx, req)
	}

	sections, err := Exact{}.Project(ctx, req)
	var supportErr *faults.SupportGenerationError
	if err == nil || !errors.As(err, &supportErr) {
		return sections, err
	}
	g.log.Warn("exact projection failed, using approximate projection",
		zap.Int("surface", req.Surface.ID),
		zap.Error(err))

	sections, approxErr := g.dispatcher.Project(ctx, req)
	if approxErr != nil {
		return nil, fmt.Errorf("%w (exact projection: %v)", approxErr, err)
	}
	return sections, nil
}

// Vectors returns the support vectors of every volume at one layer in
// volume order
func (r *Result) Vectors(index int, p params.Parameters, style *layer.BuildStyle) ([]layer.ScanVector, error) {
	if r == nil {
		return nil, nil
	}
	var out []layer.ScanVector
	for _, v := range r.Volumes {
		vectors, err := v.Vectors(index, p, style)
		if err != nil {
			s, _ := v.SectionAt(index)
			return nil, faults.NewSupportError(s.Z, v.ID, "support vectors", err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// Mesh tessellates every volume for export. Truss volumes are exported as
// their struts and connector, block volumes as stacked sections.
func (r *Result) Mesh(layerThickness float64, cells int) (*stl.Model, error) {
	var models []*stl.Model
	for _, v := range r.Volumes {
		var solid sdf.SDF3
		var err error
		if r.mode == params.SupportTruss && v.Truss != nil {
			solid, err = v.Truss.Solid()
		} else {
			solid, err = v.Solid(layerThickness)
		}
		if errors.Is(err, ErrEmptySolid) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("volume %d: %w", v.ID, err)
		}
		models = append(models, ToMesh(solid, cells, fmt.Sprintf("support-%d", v.ID)))
	}
	return stl.Merge("supports", models...), nil
}
