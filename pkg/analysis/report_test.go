package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/params"
	"github.com/philipparndt/goslm/pkg/stl"
)

const tolerance = 1e-9

func TestAnalyzeBox(t *testing.T) {
	p := params.Default()
	p.LayerThickness = 0.5
	model := stl.Box(geometry.NewVector3(0, 0, 0), geometry.NewVector3(2, 3, 4))

	r, err := Analyze(context.Background(), model, p)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if r.TriangleCount != 12 {
		t.Errorf("expected 12 triangles, got %d", r.TriangleCount)
	}
	// 12 cube edges plus one diagonal per face
	if r.EdgeCount != 18 {
		t.Errorf("expected 18 edges, got %d", r.EdgeCount)
	}
	if math.Abs(r.Volume-24) > tolerance {
		t.Errorf("expected volume 24, got %f", r.Volume)
	}
	if math.Abs(r.SurfaceArea-52) > tolerance {
		t.Errorf("expected surface area 52, got %f", r.SurfaceArea)
	}
	if math.Abs(r.MinEdgeLength-2) > tolerance || math.Abs(r.MaxEdgeLength-5) > tolerance {
		t.Errorf("unexpected edge range %f..%f", r.MinEdgeLength, r.MaxEdgeLength)
	}
	if r.ManifoldErr != nil {
		t.Errorf("box should be manifold: %v", r.ManifoldErr)
	}
	if r.Layers != 8 {
		t.Errorf("expected 8 layers, got %d", r.Layers)
	}
	if math.Abs(r.Sections.MaxArea-6) > 1e-6 {
		t.Errorf("expected 6 mm² sections, got %f", r.Sections.MaxArea)
	}
	if r.Sections.MaxHoles != 0 || len(r.Sections.Failed) != 0 {
		t.Errorf("unexpected sections %+v", r.Sections)
	}
	if r.Overhang.Faces != 0 {
		t.Errorf("a box on the platform has no overhangs, got %d faces", r.Overhang.Faces)
	}
}

func TestAnalyzeOverhang(t *testing.T) {
	model := stl.Box(geometry.NewVector3(0, 0, 1), geometry.NewVector3(2, 3, 2))

	r, err := Analyze(context.Background(), model, params.Default())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if r.Overhang.Faces != 2 || r.Overhang.Surfaces != 1 {
		t.Errorf("expected the floating bottom as one surface, got %d faces in %d surfaces",
			r.Overhang.Faces, r.Overhang.Surfaces)
	}
	if math.Abs(r.Overhang.Area-6) > 1e-6 {
		t.Errorf("expected overhang area 6, got %f", r.Overhang.Area)
	}
}

func TestAnalyzeOpenMesh(t *testing.T) {
	model := stl.Box(geometry.NewVector3(0, 0, 0), geometry.NewVector3(1, 1, 1))
	model.Triangles = model.Triangles[:11]

	r, err := Analyze(context.Background(), model, params.Default())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if r.ManifoldErr == nil {
		t.Error("expected a manifold error for an open mesh")
	}
}
