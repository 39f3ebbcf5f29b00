package contour

import (
	"math"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/params"
)

func square(x0, y0, x1, y1 float64) geometry.Polygon {
	return geometry.RectPolygon(geometry.Rect{
		Min: geometry.NewVector2(x0, y0),
		Max: geometry.NewVector2(x1, y1),
	})
}

func annulus(outer, inner float64) geometry.Boundary {
	return geometry.Boundary{Z: 1, Regions: []geometry.Region{{
		Outer: geometry.Circle(geometry.NewVector2(0, 0), outer, 128),
		Holes: []geometry.Polygon{geometry.Circle(geometry.NewVector2(0, 0), inner, 128).Reverse()},
	}}}
}

func processor() *Processor {
	return New(OptionsFrom(params.Default()))
}

func TestOffsetSquare(t *testing.T) {
	b := geometry.Boundary{Z: 2, Regions: []geometry.Region{{Outer: square(0, 0, 10, 10)}}}
	p := processor()

	shrunk, err := p.Offset(b, -1)
	if err != nil {
		t.Fatalf("Offset failed: %v", err)
	}
	if math.Abs(shrunk.Area()-64) > 1e-6 {
		t.Errorf("expected area 64, got %f", shrunk.Area())
	}
	if shrunk.Z != 2 {
		t.Errorf("offset should keep the height, got %f", shrunk.Z)
	}

	grown, err := p.Offset(shrunk, 1)
	if err != nil {
		t.Fatalf("Offset failed: %v", err)
	}
	if math.Abs(grown.Area()-b.Area()) > 1e-6 {
		t.Errorf("round trip should restore area %f, got %f", b.Area(), grown.Area())
	}
}

func TestOffsetRoundTripTolerance(t *testing.T) {
	shapes := []geometry.Boundary{
		{Regions: []geometry.Region{{Outer: square(0, 0, 4, 3)}}},
		{Regions: []geometry.Region{{
			Outer: square(0, 0, 10, 10),
			Holes: []geometry.Polygon{square(4, 4, 6, 6).Reverse()},
		}}},
		{Regions: []geometry.Region{{Outer: geometry.Polygon{
			geometry.NewVector2(0, 0),
			geometry.NewVector2(6, 0),
			geometry.NewVector2(6, 2),
			geometry.NewVector2(2, 2),
			geometry.NewVector2(2, 6),
			geometry.NewVector2(0, 6),
		}}}},
	}
	p := processor()
	const d = 0.2
	for i, b := range shapes {
		for _, delta := range []float64{d, -d} {
			there, err := p.Offset(b, delta)
			if err != nil {
				t.Fatalf("shape %d: %v", i, err)
			}
			back, err := p.Offset(there, -delta)
			if err != nil {
				t.Fatalf("shape %d: %v", i, err)
			}
			// corner rounding bounds the error by perimeter times offset
			bound := b.Regions[0].Outer.Perimeter() * d
			if diff := math.Abs(back.Area() - b.Area()); diff > bound {
				t.Errorf("shape %d delta %f: area changed by %f, bound %f", i, delta, diff, bound)
			}
			if back.HoleCount() != b.HoleCount() {
				t.Errorf("shape %d delta %f: hole count changed from %d to %d", i, delta, b.HoleCount(), back.HoleCount())
			}
		}
	}
}

func TestPassesAnnulus(t *testing.T) {
	pp := params.Default()
	pp.NumOuterContours = 1
	pp.NumInnerContours = 2
	pp.ContourOffset = 0.1
	pp.HatchOffset = 0.1

	b := annulus(5, 2)
	passes, err := processor().Passes(b, pp)
	if err != nil {
		t.Fatalf("Passes failed: %v", err)
	}
	all := passes.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 contour passes, got %d", len(all))
	}
	if len(passes.Outer) != 1 || len(passes.Inner) != 2 {
		t.Errorf("expected 1 outer and 2 inner passes, got %d and %d", len(passes.Outer), len(passes.Inner))
	}

	previous := b.Area()
	for i, pass := range all {
		if len(pass.Regions) != 1 || pass.HoleCount() != 1 {
			t.Fatalf("pass %d: expected one region with one hole, got %d/%d", i, len(pass.Regions), pass.HoleCount())
		}
		d := 0.1 * float64(i+1)
		want := math.Pi * (math.Pow(5-d, 2) - math.Pow(2+d, 2))
		if math.Abs(pass.Area()-want) > 0.1 {
			t.Errorf("pass %d: expected area near %f, got %f", i, want, pass.Area())
		}
		if pass.Area() >= previous {
			t.Errorf("pass %d: area should shrink", i)
		}
		previous = pass.Area()
	}

	hatch := passes.HatchRegion
	if hatch.HoleCount() != 1 {
		t.Fatalf("hatch region lost its hole")
	}
	if hatch.Contains(geometry.NewVector2(0, 0)) || hatch.Contains(geometry.NewVector2(2.3, 0)) {
		t.Error("hatch region must exclude the hole and the contour band")
	}
	if !hatch.Contains(geometry.NewVector2(3.5, 0)) {
		t.Error("hatch region should cover the middle of the wall")
	}
}

func TestPassesWithoutContours(t *testing.T) {
	pp := params.Default()
	pp.NumOuterContours = 0
	pp.NumInnerContours = 0
	pp.HatchOffset = 0

	b := geometry.Boundary{Z: 1, Regions: []geometry.Region{{Outer: square(0, 0, 10, 10)}}}
	passes, err := processor().Passes(b, pp)
	if err != nil {
		t.Fatal(err)
	}
	if len(passes.All()) != 0 {
		t.Errorf("expected no contour passes")
	}
	if passes.HatchRegion.Area() != 100 {
		t.Errorf("hatch region should be the boundary itself, got area %f", passes.HatchRegion.Area())
	}
}

func TestPassesCollapse(t *testing.T) {
	pp := params.Default()
	pp.NumOuterContours = 3
	pp.NumInnerContours = 0
	pp.ContourOffset = 0.5

	b := geometry.Boundary{Z: 1, Regions: []geometry.Region{{Outer: square(0, 0, 2, 2)}}}
	passes, err := processor().Passes(b, pp)
	if err != nil {
		t.Fatal(err)
	}
	if passes.Outer[0].Area() <= 0 {
		t.Error("first pass should survive")
	}
	if !passes.Outer[2].IsEmpty() || !passes.HatchRegion.IsEmpty() {
		t.Error("passes beyond the half width should be empty")
	}
}

func TestOffsetLogsCollapsedHole(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	opts := OptionsFrom(params.Default())
	opts.Logger = zap.New(core)
	p := New(opts)

	b := geometry.Boundary{Z: 3, Regions: []geometry.Region{{
		Outer: square(0, 0, 10, 10),
		Holes: []geometry.Polygon{square(5, 5, 5.2, 5.2).Reverse()},
	}}}
	out, err := p.Offset(b, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	if out.HoleCount() != 0 {
		t.Fatalf("expected the hole to close, %d left", out.HoleCount())
	}
	entries := logs.FilterMessage("rings collapsed during offset").All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning, got %d", len(entries))
	}
	if entries[0].ContextMap()["holes"] != int64(1) {
		t.Errorf("unexpected fields %v", entries[0].ContextMap())
	}
}

func TestBooleans(t *testing.T) {
	p := processor()
	a := geometry.Boundary{Z: 1, Regions: []geometry.Region{{Outer: square(0, 0, 10, 10)}}}
	b := geometry.Boundary{Z: 1, Regions: []geometry.Region{{Outer: square(5, 5, 15, 15)}}}

	u, err := p.Union(a, b)
	if err != nil || math.Abs(u.Area()-175) > 1e-6 {
		t.Errorf("union: area %f err %v", u.Area(), err)
	}
	i, err := p.Intersect(a, b)
	if err != nil || math.Abs(i.Area()-25) > 1e-6 {
		t.Errorf("intersect: area %f err %v", i.Area(), err)
	}
	d, err := p.Subtract(a, b)
	if err != nil || math.Abs(d.Area()-75) > 1e-6 {
		t.Errorf("subtract: area %f err %v", d.Area(), err)
	}

	inner := geometry.Boundary{Z: 1, Regions: []geometry.Region{{Outer: square(3, 3, 7, 7)}}}
	ring, err := p.Subtract(a, inner)
	if err != nil {
		t.Fatal(err)
	}
	if ring.HoleCount() != 1 || math.Abs(ring.Area()-84) > 1e-6 {
		t.Errorf("expected a square ring of area 84 with one hole, got %f with %d holes", ring.Area(), ring.HoleCount())
	}
}
