package slicer

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/philipparndt/goslm/internal/parallel"
	"github.com/philipparndt/goslm/pkg/faults"
	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/stl"
)

func box() *stl.Model {
	return stl.Box(geometry.NewVector3(0, 0, 0), geometry.NewVector3(10, 10, 5))
}

func TestSliceBox(t *testing.T) {
	b, err := Slice(box(), 2.5, DefaultOptions())
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	if len(b.Regions) != 1 {
		t.Fatalf("expected 1 region, got %d", len(b.Regions))
	}
	if b.HoleCount() != 0 {
		t.Errorf("expected no holes, got %d", b.HoleCount())
	}
	if math.Abs(b.Area()-100) > 1e-6 {
		t.Errorf("expected area 100, got %f", b.Area())
	}
	if !b.Regions[0].Outer.IsSolid() {
		t.Error("outer loop should be counter-clockwise")
	}
	if b.Z != 2.5 {
		t.Errorf("expected z 2.5, got %f", b.Z)
	}
}

func TestSliceOutsideMesh(t *testing.T) {
	s := New(box(), DefaultOptions())
	for _, z := range []float64{-1, 5.0001, 100} {
		b, err := s.Slice(z)
		if err != nil {
			t.Errorf("z=%f: unexpected error %v", z, err)
		}
		if !b.IsEmpty() {
			t.Errorf("z=%f: expected empty boundary", z)
		}
	}
}

func TestSliceTubeHasHole(t *testing.T) {
	tube := stl.Tube(geometry.NewVector2(0, 0), 5, 2, 0, 4, 64)
	b, err := Slice(tube, 1.3, DefaultOptions())
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	if len(b.Regions) != 1 || b.HoleCount() != 1 {
		t.Fatalf("expected 1 region with 1 hole, got %d regions %d holes", len(b.Regions), b.HoleCount())
	}

	polygonArea := func(r float64) float64 {
		return 32 * r * r * math.Sin(2*math.Pi/64)
	}
	want := polygonArea(5) - polygonArea(2)
	if math.Abs(b.Area()-want) > 1e-3 {
		t.Errorf("expected area %f, got %f", want, b.Area())
	}
	if b.Contains(geometry.NewVector2(0, 0)) {
		t.Error("centre of the tube should be empty")
	}
	if !b.Contains(geometry.NewVector2(3.5, 0)) {
		t.Error("wall of the tube should be solid")
	}
}

func TestSliceTwoBodies(t *testing.T) {
	m := stl.Merge("pair",
		stl.Box(geometry.NewVector3(0, 0, 0), geometry.NewVector3(2, 2, 2)),
		stl.Box(geometry.NewVector3(5, 0, 0), geometry.NewVector3(7, 2, 3)),
	)
	s := New(m, DefaultOptions())

	b, err := s.Slice(1)
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	if len(b.Regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(b.Regions))
	}
	if b.Regions[0].Outer.Bounds().Min.X > b.Regions[1].Outer.Bounds().Min.X {
		t.Error("regions should be ordered left to right")
	}

	b, err = s.Slice(2.5)
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	if len(b.Regions) != 1 {
		t.Errorf("expected only the taller box above 2, got %d regions", len(b.Regions))
	}
}

func TestSliceOpenMesh(t *testing.T) {
	m := box()
	// drop one side facet
	var kept []geometry.Triangle
	for _, tri := range m.Triangles {
		if tri.FaceNormal().X > 0.5 && tri.Center().Y < 5 {
			continue
		}
		kept = append(kept, tri)
	}
	m.Triangles = kept

	_, err := Slice(m, 2.5, DefaultOptions())
	if err == nil {
		t.Fatal("expected an error for an open mesh")
	}
	var geomErr *faults.GeometryError
	if !errors.As(err, &geomErr) {
		t.Fatalf("expected GeometryError, got %T", err)
	}
	if geomErr.Component != faults.ComponentSlicer || geomErr.Height != 2.5 {
		t.Errorf("unexpected origin %+v", geomErr.Origin)
	}
	if !errors.Is(err, ErrOpenLoop) {
		t.Errorf("expected ErrOpenLoop in chain, got %v", err)
	}
}

func TestSliceApexIsDegenerate(t *testing.T) {
	base := geometry.NewVector3(0, 0, 0)
	apex := geometry.NewVector3(0.5, 0.5, 1)
	m := stl.NewModel("pyramid")
	corners := []geometry.Vector3{
		base,
		geometry.NewVector3(1, 0, 0),
		geometry.NewVector3(1, 1, 0),
		geometry.NewVector3(0, 1, 0),
	}
	for i := range corners {
		a, b := corners[i], corners[(i+1)%4]
		m.AddTriangle(geometry.NewTriangle(geometry.Vector3{}, a, b, apex))
	}
	m.AddTriangle(geometry.NewTriangle(geometry.Vector3{}, corners[0], corners[2], corners[1]))
	m.AddTriangle(geometry.NewTriangle(geometry.Vector3{}, corners[0], corners[3], corners[2]))

	_, err := Slice(m, 1, DefaultOptions())
	var geomErr *faults.GeometryError
	if !errors.As(err, &geomErr) {
		t.Fatalf("expected GeometryError at the apex, got %v", err)
	}

	b, err := Slice(m, 0.5, DefaultOptions())
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	if math.Abs(b.Area()-0.25) > 1e-6 {
		t.Errorf("expected area 0.25 at half height, got %f", b.Area())
	}
}

func TestSliceManyOrdered(t *testing.T) {
	pool := parallel.NewWorkerPool(4)
	defer pool.Close()

	m := stl.Merge("pair",
		stl.Box(geometry.NewVector3(0, 0, 0), geometry.NewVector3(2, 2, 2)),
		stl.Box(geometry.NewVector3(5, 0, 0), geometry.NewVector3(7, 2, 3)),
	)
	heights := []float64{0.5, 2.5, 1.5, 10}
	boundaries, errs := New(m, DefaultOptions()).SliceMany(context.Background(), pool, heights)

	wantRegions := []int{2, 1, 2, 0}
	for i := range heights {
		if errs[i] != nil {
			t.Errorf("height %f: %v", heights[i], errs[i])
		}
		if boundaries[i].Z != heights[i] {
			t.Errorf("index %d: expected z %f, got %f", i, heights[i], boundaries[i].Z)
		}
		if len(boundaries[i].Regions) != wantRegions[i] {
			t.Errorf("index %d: expected %d regions, got %d", i, wantRegions[i], len(boundaries[i].Regions))
		}
	}
}

func TestSliceDeterministic(t *testing.T) {
	tube := stl.Tube(geometry.NewVector2(1, 1), 3, 1, 0, 2, 32)
	s := New(tube, DefaultOptions())
	a, err := s.Slice(0.7)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := s.Slice(0.7)
	ra, rb := a.Rings(), b.Rings()
	if len(ra) != len(rb) {
		t.Fatalf("ring count differs")
	}
	for i := range ra {
		if len(ra[i]) != len(rb[i]) {
			t.Fatalf("ring %d length differs", i)
		}
		for j := range ra[i] {
			if ra[i][j] != rb[i][j] {
				t.Fatalf("ring %d point %d differs", i, j)
			}
		}
	}
}
