// Package pipeline runs slicing, contouring, hatching and support generation
// over every build height of a part and assembles the layers.
//
// A run has three phases. Per-layer work (slice, contour passes, hatch,
// trim) runs as independent tasks on a worker pool. Support generation then
// needs every boundary at once and acts as a barrier. Finally the support
// vectors are injected and each layer is assembled, again on the pool.
package pipeline

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/philipparndt/goslm/internal/parallel"
	"github.com/philipparndt/goslm/pkg/contour"
	"github.com/philipparndt/goslm/pkg/faults"
	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/hatch"
	"github.com/philipparndt/goslm/pkg/layer"
	"github.com/philipparndt/goslm/pkg/params"
	"github.com/philipparndt/goslm/pkg/scan"
	"github.com/philipparndt/goslm/pkg/slicer"
	"github.com/philipparndt/goslm/pkg/stl"
	"github.com/philipparndt/goslm/pkg/support"
)

// Options configures a Pipeline
type Options struct {
	// Workers bounds the pool, GOMAXPROCS when zero
	Workers int
	// FailFast aborts the run on the first error instead of excluding the
	// failing layer
	FailFast bool
	Logger   *zap.Logger
	// Styles defaults to layer.DefaultStyles
	Styles *layer.Styles
	// Slicer defaults to slicer.DefaultOptions
	Slicer *slicer.Options
	// Memo enables caching of per-layer work across runs
	Memo *Memo
	// Dispatcher is shared by runs that should serialise on one projector
	Dispatcher *support.Dispatcher
}

// LayerOutcome tells apart assembled, empty and failed layers
type LayerOutcome int

const (
	OutcomeOK LayerOutcome = iota
	// OutcomeEmpty is a valid layer without vectors
	OutcomeEmpty
	// OutcomeFailed layers are excluded and listed in Result.Failures
	OutcomeFailed
)

func (o LayerOutcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Result is the output of one run
type Result struct {
	// Heights holds every build height, Outcomes is aligned with it
	Heights  []float64
	Outcomes []LayerOutcome
	// Layers are the assembled layers in height order, failed ones excluded
	Layers   []*layer.Layer
	Failures []*faults.LayerError
	// Support is nil when supports are disabled or failed
	Support *support.Result
	Styles  layer.Styles
}

// Document returns the serialisable form of the result
func (r *Result) Document() layer.Document {
	return layer.NewDocument(r.Styles, r.Layers)
}

// Count returns how many layers ended with outcome o
func (r *Result) Count(o LayerOutcome) int {
	return lo.Count(r.Outcomes, o)
}

// Pipeline holds the validated configuration of a run. It is safe to run
// several parts concurrently.
type Pipeline struct {
	params    params.Parameters
	opts      Options
	log       *zap.Logger
	styles    layer.Styles
	processor *contour.Processor
	strategy  hatch.Strategy
	trimmer   *scan.Trimmer
	slicer    slicer.Options

	paramsKey uint64
	stylesKey uint64
}

// New validates p and prepares a pipeline
func New(p params.Parameters, opts Options) (*Pipeline, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	strategy, err := hatch.New(p.HatchStrategy)
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	styles := layer.DefaultStyles()
	if opts.Styles != nil {
		styles = *opts.Styles
	}
	sl := slicer.DefaultOptions()
	if opts.Slicer != nil {
		sl = *opts.Slicer
	}
	sl.Logger = log

	co := contour.OptionsFrom(p)
	co.Logger = log
	return &Pipeline{
		params:    p,
		opts:      opts,
		log:       log,
		styles:    styles,
		processor: contour.New(co),
		strategy:  strategy,
		trimmer:   scan.NewTrimmer(scan.OptionsFrom(p)),
		slicer:    sl,
		paramsKey: p.Fingerprint(),
		stylesKey: stylesFingerprint(styles),
	}, nil
}

// Params returns the parameters of the pipeline
func (pl *Pipeline) Params() params.Parameters {
	return pl.params
}

// Run produces the layers of mesh. The mesh is validated, rotated so the
// build axis points along +Z and left otherwise untouched. Per-layer
// failures are reported in the result unless FailFast is set; cancelling
// ctx aborts the run and discards every layer.
func (pl *Pipeline) Run(ctx context.Context, mesh *stl.Model) (*Result, error) {
	start := time.Now()
	if err := mesh.Validate(); err != nil {
		return nil, err
	}
	part := mesh.AlignAxis(pl.params.BuildAxis)
	heights := pl.params.LayerHeights(part.BoundingBox().Max.Z)
	n := len(heights)

	pool := parallel.NewWorkerPool(pl.opts.Workers)
	defer pool.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pl.log.Info("run started",
		zap.String("part", part.Name),
		zap.Int("triangles", part.TriangleCount()),
		zap.Int("layers", n),
		zap.Int("workers", pool.Workers()))

	// phase A: slice, contour, hatch and trim every layer
	sl := slicer.New(part, pl.slicer)
	meshKey := part.Fingerprint()
	partials := make([]*partial, n)
	errs := pool.Map(runCtx, n, func(_ context.Context, i int) error {
		pt, err := pl.layer(sl, meshKey, i, heights[i])
		if err != nil {
			if pl.opts.FailFast {
				cancel()
			}
			return &faults.LayerError{Index: i, Height: heights[i], Err: err}
		}
		partials[i] = pt
		return nil
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	failures, err := pl.collect(errs)
	if err != nil {
		return nil, err
	}
	pl.log.Debug("layers prepared",
		zap.Int("failed", len(lo.Compact(failures))),
		zap.Duration("elapsed", time.Since(start)))

	// phase B: supports need the boundaries of the whole build
	var sup *support.Result
	if pl.params.GenerateSupports {
		slices := support.Slices{Heights: heights, Boundaries: make([]*geometry.Boundary, n)}
		for i, pt := range partials {
			if pt != nil {
				slices.Boundaries[i] = &pt.boundary
			}
		}
		gen := support.NewGenerator(pl.params, support.Options{
			Logger:     pl.log,
			Dispatcher: pl.opts.Dispatcher,
			Pool:       pool,
		})
		res, err := gen.Generate(runCtx, part, slices)
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil && pl.opts.FailFast:
			return nil, err
		case err != nil:
			top := supportTop(res)
			pl.log.Error("support generation failed",
				zap.Float64("below", top),
				zap.Error(err))
			for i, z := range heights {
				if z < top && failures[i] == nil {
					failures[i] = &faults.LayerError{Index: i, Height: z, Err: err}
				}
			}
		default:
			sup = res
			pl.log.Debug("supports generated",
				zap.Int("surfaces", len(res.Overhangs.Surfaces)),
				zap.Int("volumes", len(res.Volumes)))
		}
	}

	// phase C: inject supports and assemble
	layers := make([]*layer.Layer, n)
	errs = pool.Map(runCtx, n, func(_ context.Context, i int) error {
		if failures[i] != nil {
			return nil
		}
		supports, err := sup.Vectors(i, pl.params, pl.styles.Support)
		if err != nil {
			if pl.opts.FailFast {
				cancel()
			}
			return &faults.LayerError{Index: i, Height: heights[i], Err: err}
		}
		pt := partials[i]
		layers[i] = layer.Assembler{}.Assemble(i, heights[i], pt.contours, pt.hatches, supports)
		return nil
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	late, err := pl.collect(errs)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Heights:  heights,
		Outcomes: make([]LayerOutcome, n),
		Support:  sup,
		Styles:   pl.styles,
	}
	for i := range heights {
		if failures[i] == nil {
			failures[i] = late[i]
		}
		switch {
		case failures[i] != nil:
			result.Outcomes[i] = OutcomeFailed
			result.Failures = append(result.Failures, failures[i])
			pl.log.Warn("layer excluded",
				zap.Int("layer", i),
				zap.Float64("z", heights[i]),
				zap.String("kind", faults.Kind(failures[i].Err)),
				zap.Error(failures[i].Err))
			continue
		case layers[i].IsEmpty():
			result.Outcomes[i] = OutcomeEmpty
		}
		result.Layers = append(result.Layers, layers[i])
	}

	pl.log.Info("run finished",
		zap.Int("ok", result.Count(OutcomeOK)),
		zap.Int("empty", result.Count(OutcomeEmpty)),
		zap.Int("failed", result.Count(OutcomeFailed)),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// layer computes everything of one layer that does not depend on supports
func (pl *Pipeline) layer(sl *slicer.Slicer, meshKey uint64, index int, z float64) (*partial, error) {
	key := MemoKey{Mesh: meshKey, Height: z, Params: pl.paramsKey, Styles: pl.stylesKey}
	if pt, ok := pl.opts.Memo.get(key); ok {
		return pt, nil
	}

	b, err := sl.Slice(z)
	if err != nil {
		return nil, err
	}
	passes, err := pl.processor.Passes(b, pl.params)
	if err != nil {
		return nil, err
	}

	pt := &partial{boundary: b}
	for _, pass := range passes.All() {
		pt.contours = append(pt.contours, pl.trimmer.Contours(pass, layer.TypeContour, pl.styles.Contour)...)
	}
	lines := pl.strategy.Hatch(passes.HatchRegion, hatch.ParamsFor(pl.params, index))
	pt.hatches = pl.trimmer.Hatches(passes.HatchRegion, lines, layer.TypeHatch, pl.styles.Hatch)

	pl.opts.Memo.put(key, pt)
	return pt, nil
}

// collect sorts task errors by layer. In fail-fast mode the first layer
// error is returned; tasks skipped after it report only the cancellation.
func (pl *Pipeline) collect(errs []error) ([]*faults.LayerError, error) {
	failures := make([]*faults.LayerError, len(errs))
	for i, err := range errs {
		if err == nil {
			continue
		}
		var le *faults.LayerError
		if !errors.As(err, &le) {
			if pl.opts.FailFast && errors.Is(err, context.Canceled) {
				continue
			}
			return nil, err
		}
		if pl.opts.FailFast {
			return nil, le
		}
		failures[i] = le
	}
	return failures, nil
}

// supportTop is the height below which a failed support run leaves layers
// unsupported
func supportTop(res *support.Result) float64 {
	if res == nil {
		return math.Inf(1)
	}
	top := math.Inf(-1)
	for _, s := range res.Overhangs.Surfaces {
		top = math.Max(top, s.MaxZ)
	}
	return top
}
