package support

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/philipparndt/goslm/internal/parallel"
	"github.com/philipparndt/goslm/pkg/faults"
	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/layer"
	"github.com/philipparndt/goslm/pkg/params"
	"github.com/philipparndt/goslm/pkg/slicer"
	"github.com/philipparndt/goslm/pkg/stl"
)

func vec3(x, y, z float64) geometry.Vector3 { return geometry.NewVector3(x, y, z) }

func rect(x0, y0, x1, y1 float64) []geometry.Region {
	return []geometry.Region{{Outer: geometry.RectPolygon(geometry.Rect{
		Min: geometry.NewVector2(x0, y0),
		Max: geometry.NewVector2(x1, y1),
	})}}
}

// lShape is a pillar on x 0..2 carrying an arm out to x 6 between z 5 and 6
func lShape() *stl.Model {
	profile := geometry.Polygon{
		geometry.NewVector2(0, 0),
		geometry.NewVector2(2, 0),
		geometry.NewVector2(2, 5),
		geometry.NewVector2(6, 5),
		geometry.NewVector2(6, 6),
		geometry.NewVector2(0, 6),
	}
	return stl.Profile(profile, 0, 2)
}

func testParams() params.Parameters {
	p := params.Default()
	p.LayerThickness = 0.5
	p.OuterSupportGap = 0.3
	p.InnerSupportGap = 0.5
	p.RayProjectionResolution = 0.05
	return p
}

func slices(t *testing.T, mesh *stl.Model, p params.Parameters) Slices {
	t.Helper()
	heights := p.LayerHeights(mesh.BoundingBox().Max.Z)
	s := Slices{Heights: heights, Boundaries: make([]*geometry.Boundary, len(heights))}
	sl := slicer.New(mesh, slicer.DefaultOptions())
	for i, z := range heights {
		b, err := sl.Slice(z)
		require.NoError(t, err)
		s.Boundaries[i] = &b
	}
	return s
}

func surfaceRequest(t *testing.T, mesh *stl.Model, p params.Parameters) Request {
	t.Helper()
	o, err := DetectOverhangs(mesh, mesh.Topology(stl.DefaultWeldTolerance), p.OverhangAngleThreshold, p.PlatformZ, p.MinSupportArea)
	require.NoError(t, err)
	require.Len(t, o.Surfaces, 1)
	s := slices(t, mesh, p)
	return Request{Mesh: mesh, Surface: o.Surfaces[0], Heights: s.Heights, Boundaries: s.Boundaries, Params: p}
}

func TestOverhangThreshold(t *testing.T) {
	tilted := func(deg float64) geometry.Vector3 {
		rad := deg * math.Pi / 180
		return vec3(math.Cos(rad), 0, -math.Sin(rad))
	}
	assert.InDelta(t, 50, TiltFromVertical(tilted(50)), 1e-9)
	assert.True(t, IsOverhang(tilted(50), 45), "50 degrees from vertical must be flagged")
	assert.False(t, IsOverhang(tilted(40), 45), "40 degrees from vertical must not be flagged")
	assert.False(t, IsOverhang(vec3(0, 0, 1), 45), "upward faces never need support")
	assert.Equal(t, 0.0, TiltFromVertical(vec3(1, 0, 0)))
}

func TestDetectOverhangs(t *testing.T) {
	mesh := lShape()
	o, err := DetectOverhangs(mesh, mesh.Topology(stl.DefaultWeldTolerance), 45, 0, 0.1)
	require.NoError(t, err)

	require.Len(t, o.Surfaces, 1)
	s := o.Surfaces[0]
	assert.Equal(t, 0, s.ID)
	assert.Len(t, s.Faces, 2)
	assert.InDelta(t, 8, s.Area, 1e-6)
	assert.InDelta(t, 5, s.MinZ, 1e-12)
	assert.InDelta(t, 5, s.MaxZ, 1e-12)
	assert.Len(t, o.Flagged, 2, "the platform face must not be flagged")

	o, err = DetectOverhangs(mesh, mesh.Topology(stl.DefaultWeldTolerance), 45, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, o.Surfaces, "surfaces below the minimum area are dropped")
	assert.Len(t, o.Flagged, 2)
}

func TestOverhangEdge(t *testing.T) {
	keel := stl.Profile(geometry.Polygon{
		geometry.NewVector2(0, 4),
		geometry.NewVector2(1, 2),
		geometry.NewVector2(2, 4),
	}, 0, 4)
	o, err := DetectOverhangs(keel, keel.Topology(stl.DefaultWeldTolerance), 45, 0, 0.1)
	require.NoError(t, err)
	assert.Empty(t, o.Flagged)
	require.Len(t, o.Edges, 1)
	for _, end := range o.Edges[0] {
		assert.InDelta(t, 1, end.X, 1e-12)
		assert.InDelta(t, 2, end.Z, 1e-12)
	}
}

func TestOverhangPoint(t *testing.T) {
	corners := []geometry.Vector3{vec3(0, 0, 3), vec3(1, 0, 3), vec3(1, 1, 3), vec3(0, 1, 3)}
	apex := vec3(0.5, 0.5, 1)
	m := stl.NewModel("spike")
	m.AddTriangle(geometry.Triangle{V1: corners[0], V2: corners[1], V3: corners[2]})
	m.AddTriangle(geometry.Triangle{V1: corners[0], V2: corners[2], V3: corners[3]})
	for i := range corners {
		m.AddTriangle(geometry.Triangle{V1: corners[(i+1)%4], V2: corners[i], V3: apex})
	}
	require.NoError(t, m.Validate())

	o, err := DetectOverhangs(m, m.Topology(stl.DefaultWeldTolerance), 45, 0, 0.1)
	require.NoError(t, err)
	require.Len(t, o.Points, 1)
	assert.Equal(t, apex, o.Points[0])
}

func TestExactProjection(t *testing.T) {
	p := testParams()
	req := surfaceRequest(t, lShape(), p)

	sections, err := Exact{}.Project(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, sections, 10, "every layer below the arm gets a section")
	for i, s := range sections {
		assert.Equal(t, i, s.Index)
		assert.InDelta(t, 3.7*2, s.Area(), 1e-6, "section %d keeps the outer gap to the pillar", i)
	}
}

func TestExactMissingBoundary(t *testing.T) {
	p := testParams()
	req := surfaceRequest(t, lShape(), p)
	req.Boundaries[4] = nil

	_, err := Exact{}.Project(context.Background(), req)
	var supportErr *faults.SupportGenerationError
	require.ErrorAs(t, err, &supportErr)
	assert.Equal(t, req.Heights[4], supportErr.Height)
	assert.Equal(t, faults.ComponentSupport, supportErr.Component)
}

func TestHeightMapProjection(t *testing.T) {
	p := testParams()
	req := surfaceRequest(t, lShape(), p)

	sections, err := HeightMap{}.Project(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, sections, 10)
	for _, s := range sections {
		assert.InDelta(t, 3.7*2, s.Area(), 0.05)
	}
}

func TestHeightMapDownwardHit(t *testing.T) {
	floating := stl.Box(vec3(0, 0, 3), vec3(4, 4, 4))
	flipped := stl.Box(vec3(0, 0, 0), vec3(4, 4, 1))
	for i, tri := range flipped.Triangles {
		flipped.Triangles[i] = geometry.Triangle{V1: tri.V1, V2: tri.V3, V3: tri.V2}
	}
	mesh := stl.Merge("broken", floating, flipped)

	p := testParams()
	o, err := DetectOverhangs(mesh, mesh.Topology(stl.DefaultWeldTolerance), 45, 0, 0.1)
	require.NoError(t, err)

	var upper *Surface
	for i := range o.Surfaces {
		if o.Surfaces[i].MinZ == 3 {
			upper = &o.Surfaces[i]
		}
	}
	require.NotNil(t, upper)

	heights := p.LayerHeights(4)
	req := Request{
		Mesh:       mesh,
		Surface:    *upper,
		Heights:    heights,
		Boundaries: make([]*geometry.Boundary, len(heights)),
		Params:     p,
	}
	_, err = HeightMap{}.Project(context.Background(), req)
	var supportErr *faults.SupportGenerationError
	require.ErrorAs(t, err, &supportErr)
	assert.Equal(t, upper.ID, supportErr.Surface)
}

func TestGeneratorAutoFallsBack(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := testParams()
	p.SupportPrecision = params.PrecisionAuto
	mesh := lShape()
	s := slices(t, mesh, p)
	s.Boundaries[3] = nil

	pool := parallel.NewWorkerPool(2)
	defer pool.Close()

	result, err := NewGenerator(p, Options{Logger: zap.New(core), Pool: pool}).Generate(context.Background(), mesh, s)
	require.NoError(t, err)
	require.Len(t, result.Volumes, 1)
	assert.Len(t, result.Volumes[0].Sections, 10)
	assert.Equal(t, 1, logs.FilterMessage("exact projection failed, using approximate projection").Len())

	p.SupportPrecision = params.PrecisionExact
	_, err = NewGenerator(p, Options{}).Generate(context.Background(), mesh, s)
	var supportErr *faults.SupportGenerationError
	assert.ErrorAs(t, err, &supportErr)
}

func TestGeneratorTruss(t *testing.T) {
	p := testParams()
	p.SupportPrecision = params.PrecisionExact
	p.SupportMode = params.SupportTruss
	mesh := lShape()

	result, err := NewGenerator(p, Options{}).Generate(context.Background(), mesh, slices(t, mesh, p))
	require.NoError(t, err)
	require.Len(t, result.Volumes, 1)

	v := result.Volumes[0]
	require.NotNil(t, v.Truss)
	assert.NotEmpty(t, v.Truss.Struts)
	for _, s := range v.Truss.Struts {
		assert.True(t, s.Center.X > 2.3 && s.Center.X < 6, "strut %v must stand in the footprint", s.Center)
	}

	bottom, err := result.Vectors(0, p, layer.DefaultStyles().Support)
	require.NoError(t, err)
	assert.Len(t, bottom, len(v.Truss.Struts), "one ring per strut below the connector")
	for _, vec := range bottom {
		assert.Equal(t, layer.TypeSupport, vec.Type)
		assert.True(t, vec.Closed)
	}

	top, err := result.Vectors(9, p, layer.DefaultStyles().Support)
	require.NoError(t, err)
	assert.Greater(t, len(top), len(bottom), "connector band adds plate vectors")

	none, err := result.Vectors(11, p, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBlockVectors(t *testing.T) {
	p := testParams()
	p.SupportMode = params.SupportBlock
	p.SupportHatchSpacing = 0.5
	v, err := newVolume([]int{0}, []Section{{Index: 2, Z: 1.25, Regions: rect(0, 0, 4, 2)}})
	require.NoError(t, err)

	vectors, err := v.Vectors(2, p, nil)
	require.NoError(t, err)
	require.NotEmpty(t, vectors)
	assert.True(t, vectors[0].Closed, "the section outline comes first")
	hatches := 0
	for _, vec := range vectors[1:] {
		if !vec.Closed {
			hatches++
		}
	}
	assert.NotZero(t, hatches)
}

func TestMergeVolumes(t *testing.T) {
	build := func() []*Volume {
		a, err := newVolume([]int{0}, []Section{
			{Index: 0, Z: 0.5, Regions: rect(0, 0, 4, 4)},
			{Index: 1, Z: 1.0, Regions: rect(0, 0, 4, 4)},
		})
		require.NoError(t, err)
		b, err := newVolume([]int{1}, []Section{
			{Index: 0, Z: 0.5, Regions: rect(3, 0, 7, 4)},
			{Index: 1, Z: 1.0, Regions: rect(3, 0, 7, 4)},
		})
		require.NoError(t, err)
		return []*Volume{a, b}
	}

	p := testParams()
	p.SupportMergeArea = 1
	merged, err := Merge(build(), p)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, []int{0, 1}, merged[0].Sources)
	assert.InDelta(t, 28, merged[0].Area(), 1e-6)

	p.SupportMergeArea = 10
	kept, err := Merge(build(), p)
	require.NoError(t, err)
	require.Len(t, kept, 2)
	assert.InDelta(t, 16, kept[0].Area(), 1e-6, "the earlier volume is untouched")
	for _, s := range kept[1].Sections {
		assert.InDelta(t, 2.5*4, s.Area(), 1e-6, "the later volume keeps the inner gap")
	}
	assert.Equal(t, 1, kept[1].ID)
}

func TestTrussSpacing(t *testing.T) {
	p := testParams()
	p.SupportGridSpacing = 2
	p.MinStrutSpacing = 2.5
	p.PerforationSize = 0.5
	v, err := newVolume([]int{0}, []Section{
		{Index: 0, Z: 0.25, Regions: rect(0, 0, 10, 10)},
		{Index: 1, Z: 0.75, Regions: rect(0, 0, 10, 10)},
	})
	require.NoError(t, err)

	truss, err := NewTruss(v, p)
	require.NoError(t, err)
	require.NotEmpty(t, truss.Struts)
	assert.Equal(t, geometry.NewVector2(1, 1), truss.Struts[0].Center)
	for i, a := range truss.Struts {
		for _, b := range truss.Struts[i+1:] {
			assert.GreaterOrEqual(t, a.Center.Distance(b.Center), p.MinStrutSpacing)
		}
		assert.Equal(t, 0.25, a.Bottom)
		assert.Equal(t, 0.75, a.Top)
	}

	area := 0.0
	for _, r := range truss.Connector {
		area += r.Area()
	}
	assert.Less(t, area, 100.0)
	assert.Greater(t, area, 90.0)
	assert.InDelta(t, 0.25, truss.ConnectorBottom, 1e-12)
}

func TestToMesh(t *testing.T) {
	truss := &Truss{
		Struts:          []Strut{{Center: geometry.NewVector2(0, 0), Diameter: 1, Bottom: 0, Top: 4}},
		Connector:       rect(-1, -1, 1, 1),
		ConnectorBottom: 3.5,
		Top:             4,
	}
	solid, err := truss.Solid()
	require.NoError(t, err)

	m := ToMesh(solid, 40, "truss")
	require.NotZero(t, m.TriangleCount())
	bbox := m.BoundingBox()
	assert.InDelta(t, 0, bbox.Min.Z, 0.3)
	assert.InDelta(t, 4, bbox.Max.Z, 0.3)
	assert.InDelta(t, 1, bbox.Max.X, 0.3)

	_, err = (&Truss{}).Solid()
	assert.True(t, errors.Is(err, ErrEmptySolid))
}

type countingProjector struct {
	active  atomic.Int32
	maximum atomic.Int32
}

func (c *countingProjector) Name() string    { return "counting" }
func (c *countingProjector) Reentrant() bool { return false }

func (c *countingProjector) Project(context.Context, Request) ([]Section, error) {
	n := c.active.Add(1)
	for {
		m := c.maximum.Load()
		if n <= m || c.maximum.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	c.active.Add(-1)
	return nil, nil
}

func TestDispatcherSerialises(t *testing.T) {
	counter := &countingProjector{}
	require.NoError(t, RegisterProjector(counter))
	t.Cleanup(func() {
		projectorMu.Lock()
		projector = nil
		projectorMu.Unlock()
	})

	d := NewDispatcher()
	assert.Equal(t, "counting", d.Projector().Name())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.Project(context.Background(), Request{})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), counter.maximum.Load())

	assert.Error(t, RegisterProjector(nil))
}
