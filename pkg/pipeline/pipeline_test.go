package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/philipparndt/goslm/pkg/faults"
	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/layer"
	"github.com/philipparndt/goslm/pkg/params"
	"github.com/philipparndt/goslm/pkg/stl"
)

func v3(x, y, z float64) geometry.Vector3 { return geometry.NewVector3(x, y, z) }

func testParams() params.Parameters {
	p := params.Default()
	p.LayerThickness = 0.5
	p.HatchSpacing = 0.5
	p.HatchAngleIncrement = 0
	p.GenerateSupports = false
	return p
}

func run(t *testing.T, p params.Parameters, opts Options, mesh *stl.Model) *Result {
	t.Helper()
	pl, err := New(p, opts)
	require.NoError(t, err)
	res, err := pl.Run(context.Background(), mesh)
	require.NoError(t, err)
	return res
}

// inverted returns a box with every face wound inside out
func inverted(min, max geometry.Vector3) *stl.Model {
	m := stl.Box(min, max)
	for i, tri := range m.Triangles {
		m.Triangles[i] = geometry.Triangle{V1: tri.V1, V2: tri.V3, V3: tri.V2}
	}
	return m
}

func lShape() *stl.Model {
	return stl.Profile(geometry.Polygon{
		geometry.NewVector2(0, 0),
		geometry.NewVector2(2, 0),
		geometry.NewVector2(2, 3),
		geometry.NewVector2(5, 3),
		geometry.NewVector2(5, 4),
		geometry.NewVector2(0, 4),
	}, 0, 3)
}

func TestRunBox(t *testing.T) {
	res := run(t, testParams(), Options{Workers: 2}, stl.Box(v3(0, 0, 0), v3(10, 10, 2)))

	assert.Equal(t, []float64{0.25, 0.75, 1.25, 1.75}, res.Heights)
	assert.Empty(t, res.Failures)
	assert.Nil(t, res.Support)
	require.Len(t, res.Layers, 4)
	for i, l := range res.Layers {
		assert.Equal(t, OutcomeOK, res.Outcomes[i])
		assert.Equal(t, i, l.Index)
		assert.Equal(t, res.Heights[i], l.Z)

		require.Len(t, l.OfType(layer.TypeContour), 2, "one outer and one inner pass")
		assert.NotEmpty(t, l.OfType(layer.TypeHatch))
		assert.Empty(t, l.OfType(layer.TypeSupport))
		assert.Equal(t, layer.TypeContour, l.Vectors[0].Type, "contours are emitted first")
		assert.Equal(t, layer.TypeHatch, l.Vectors[len(l.Vectors)-1].Type)
		assert.Greater(t, l.Metadata.ExposureTime, 0.0)
	}
}

func TestRunOutsideExtentIsEmpty(t *testing.T) {
	res := run(t, testParams(), Options{}, stl.Box(v3(0, 0, 1), v3(4, 4, 3)))

	require.Len(t, res.Heights, 6)
	assert.Empty(t, res.Failures)
	require.Len(t, res.Layers, 6, "empty layers are kept")
	for i := 0; i < 2; i++ {
		assert.Equal(t, OutcomeEmpty, res.Outcomes[i], "layer %d lies below the part", i)
		assert.True(t, res.Layers[i].IsEmpty())
	}
	assert.Equal(t, 2, res.Count(OutcomeEmpty))
	assert.Equal(t, 4, res.Count(OutcomeOK))
}

func TestRunSupportsFloatingBox(t *testing.T) {
	p := testParams()
	p.GenerateSupports = true
	p.SupportPrecision = params.PrecisionExact
	p.SupportMode = params.SupportBlock

	res := run(t, p, Options{}, stl.Box(v3(2, 2, 1), v3(8, 8, 3)))
	require.NotNil(t, res.Support)
	require.Len(t, res.Support.Volumes, 1)

	for i := 0; i < 2; i++ {
		assert.Equal(t, OutcomeOK, res.Outcomes[i])
		l := res.Layers[i]
		assert.NotEmpty(t, l.Vectors)
		assert.Len(t, l.OfType(layer.TypeSupport), len(l.Vectors), "only supports below the part")
	}
	for _, l := range res.Layers[2:] {
		assert.Empty(t, l.OfType(layer.TypeSupport))
	}
}

func TestRunIsolatesFailingLayers(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	mesh := stl.Merge("mixed", stl.Box(v3(0, 0, 0), v3(4, 4, 2)), inverted(v3(10, 0, 0), v3(14, 4, 1)))

	res := run(t, testParams(), Options{Logger: zap.New(core)}, mesh)
	require.Len(t, res.Failures, 2)
	for i, f := range res.Failures {
		assert.Equal(t, i, f.Index)
		assert.Equal(t, "geometry", faults.Kind(f.Err))
		assert.Equal(t, OutcomeFailed, res.Outcomes[i])
	}
	require.Len(t, res.Layers, 2)
	assert.Equal(t, 2, res.Layers[0].Index)
	assert.Equal(t, 2, logs.FilterMessage("layer excluded").Len())
}

func TestRunFailFast(t *testing.T) {
	mesh := stl.Merge("mixed", stl.Box(v3(0, 0, 0), v3(4, 4, 2)), inverted(v3(10, 0, 0), v3(14, 4, 1)))
	pl, err := New(testParams(), Options{FailFast: true, Workers: 1})
	require.NoError(t, err)

	_, err = pl.Run(context.Background(), mesh)
	var le *faults.LayerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 0, le.Index)
	var ge *faults.GeometryError
	assert.ErrorAs(t, err, &ge)
}

func TestRunRejectsOpenMesh(t *testing.T) {
	mesh := stl.Box(v3(0, 0, 0), v3(1, 1, 1))
	mesh.Triangles = mesh.Triangles[1:]
	pl, err := New(testParams(), Options{})
	require.NoError(t, err)

	_, err = pl.Run(context.Background(), mesh)
	var ge *faults.GeometryError
	assert.ErrorAs(t, err, &ge)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pl, err := New(testParams(), Options{})
	require.NoError(t, err)

	res, err := pl.Run(ctx, stl.Box(v3(0, 0, 0), v3(1, 1, 1)))
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewRejectsInvalidParameters(t *testing.T) {
	p := testParams()
	p.HatchSpacing = -1
	_, err := New(p, Options{})
	var pe *faults.ParameterError
	require.ErrorAs(t, err, &pe)

	p = testParams()
	p.HatchStrategy = "spiral"
	_, err = New(p, Options{})
	assert.ErrorAs(t, err, &pe)
}

func TestRunBuildAxis(t *testing.T) {
	p := testParams()
	p.BuildAxis = v3(1, 0, 0)
	res := run(t, p, Options{}, stl.Box(v3(0, 0, 0), v3(2, 2, 10)))

	require.Len(t, res.Heights, 4, "the part is two units long along the build axis")
	for _, l := range res.Layers {
		assert.Greater(t, l.Metadata.Bounds.Width()+l.Metadata.Bounds.Height(), 11.0)
	}
}

func TestRunDeterministic(t *testing.T) {
	p := testParams()
	p.GenerateSupports = true
	p.HatchStrategy = params.StrategyIsland
	p.IslandWidth = 1

	encode := func(workers int) []byte {
		res := run(t, p, Options{Workers: workers}, lShape())
		var buf bytes.Buffer
		require.NoError(t, res.Document().Write(&buf))
		return buf.Bytes()
	}
	first := encode(1)
	assert.Equal(t, first, encode(4))
	assert.Equal(t, first, encode(8))
}

func TestRunMemo(t *testing.T) {
	memo := NewMemo(0)
	mesh := stl.Box(v3(0, 0, 0), v3(5, 5, 2))
	p := testParams()

	first := run(t, p, Options{Memo: memo}, mesh)
	assert.Equal(t, uint64(0), memo.Stats().Hits)
	assert.Equal(t, uint64(4), memo.Stats().Misses)

	second := run(t, p, Options{Memo: memo}, mesh)
	assert.Equal(t, uint64(4), memo.Stats().Hits)
	assert.Equal(t, first.Layers[3].Vectors, second.Layers[3].Vectors)

	p.HatchSpacing = 0.25
	run(t, p, Options{Memo: memo}, mesh)
	assert.Equal(t, uint64(4), memo.Stats().Hits, "other parameters miss")
}
