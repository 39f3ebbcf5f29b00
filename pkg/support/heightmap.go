package support

import (
	"context"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/vector"

	"github.com/philipparndt/goslm/pkg/faults"
	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/polyclip"
)

// maxGridCells bounds the size of one height map
const maxGridCells = 1 << 22

// HeightMap projects surfaces by casting one vertical ray per grid cell.
// The top of each ray is the overhang surface and the bottom is the highest
// part face below it, or the platform.
type HeightMap struct{}

// Name returns the projector name
func (HeightMap) Name() string { return "heightmap" }

// Reentrant reports true, every call allocates its own buffers
func (HeightMap) Reentrant() bool { return true }

// Project rasterises the surface and the mesh below it and turns the ray
// spans into per-layer sections built from row runs of cells
func (HeightMap) Project(ctx context.Context, req Request) ([]Section, error) {
	s := req.Surface
	p := req.Params

	g, err := newGrid(s.Bounds, p.RayProjectionResolution)
	if err != nil {
		return nil, faults.NewSupportError(faults.NoHeight, s.ID, "height map", err)
	}
	mask := g.coverage(s.Footprint)

	top := make([]float64, g.w*g.h)
	for i := range top {
		top[i] = math.Inf(1)
	}
	own := make(map[int]bool, len(s.Faces))
	for _, f := range s.Faces {
		own[f] = true
		t := req.Mesh.Triangles[f]
		g.fill(t.V1, t.V2, t.V3, func(idx int, z float64) {
			if mask[idx] && z < top[idx] {
				top[idx] = z
			}
		})
	}

	for idx := range mask {
		mask[idx] = mask[idx] && !math.IsInf(top[idx], 1)
	}

	bottom := make([]float64, g.w*g.h)
	hit := make([]int, g.w*g.h)
	for i := range bottom {
		bottom[i] = p.PlatformZ
		hit[i] = -1
	}
	area := g.bounds()
	for f, t := range req.Mesh.Triangles {
		if own[f] {
			continue
		}
		if zmin, _ := t.ZRange(); zmin >= s.MaxZ {
			continue
		}
		tb := geometry.Polygon{t.V1.XY(), t.V2.XY(), t.V3.XY()}.Bounds()
		if !tb.Overlaps(area) {
			continue
		}
		g.fill(t.V1, t.V2, t.V3, func(idx int, z float64) {
			if mask[idx] && z < top[idx]-rayEpsilon && z > bottom[idx] {
				bottom[idx] = z
				hit[idx] = f
			}
		})
	}

	for idx, f := range hit {
		if f < 0 {
			continue
		}
		if req.Mesh.Triangles[f].FaceNormal().Z < 0 {
			c := g.center(idx%g.w, idx/g.w)
			return nil, faults.NewSupportError(bottom[idx], s.ID,
				fmt.Sprintf("ray at (%.3f, %.3f) ends on downward face %d", c.X, c.Y, f), nil)
		}
	}

	opts := polyclip.OffsetOptions{MiterLimit: p.OffsetMiterLimit, ArcTolerance: p.ArcTolerance}
	var sections []Section
	for i, z := range req.Heights {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if z <= p.PlatformZ || z >= s.MaxZ {
			continue
		}
		rects := g.runs(func(idx int) bool {
			return mask[idx] && top[idx] > z && bottom[idx] < z
		})
		if len(rects) == 0 {
			continue
		}
		regions, err := polyclip.Union(rects)
		if err != nil {
			return nil, faults.NewSupportError(z, s.ID, "merge ray runs", err)
		}
		if b := req.Boundaries[i]; b != nil && !b.IsEmpty() && p.OuterSupportGap > 0 {
			gap, err := polyclip.Offset(b.Rings(), p.OuterSupportGap, opts)
			if err != nil {
				return nil, faults.NewSupportError(z, s.ID, "outer gap", err)
			}
			regions, err = polyclip.Difference(polyclip.Rings(regions), polyclip.Rings(gap))
			if err != nil {
				return nil, faults.NewSupportError(z, s.ID, "outer gap", err)
			}
		}
		if len(regions) > 0 {
			sections = append(sections, Section{Index: i, Z: z, Regions: regions})
		}
	}
	return sections, nil
}

// rayEpsilon separates the surface itself from faces below it
const rayEpsilon = 1e-6

// grid is a regular raster over the XY plane. Cell (x, y) covers
// [origin + x*res, origin + (x+1)*res] and is sampled at its centre.
type grid struct {
	origin geometry.Vector2
	res    float64
	w, h   int
}

func newGrid(bounds geometry.Rect, res float64) (grid, error) {
	if res <= 0 {
		return grid{}, fmt.Errorf("resolution %f must be positive", res)
	}
	g := grid{
		origin: bounds.Min.Sub(geometry.NewVector2(res, res)),
		res:    res,
		w:      int(math.Ceil(bounds.Width()/res)) + 2,
		h:      int(math.Ceil(bounds.Height()/res)) + 2,
	}
	if g.w*g.h > maxGridCells {
		return grid{}, fmt.Errorf("%dx%d cells at resolution %f exceed the limit", g.w, g.h, res)
	}
	return g, nil
}

func (g grid) bounds() geometry.Rect {
	return geometry.Rect{
		Min: g.origin,
		Max: g.origin.Add(geometry.NewVector2(float64(g.w)*g.res, float64(g.h)*g.res)),
	}
}

func (g grid) center(x, y int) geometry.Vector2 {
	return g.origin.Add(geometry.NewVector2((float64(x)+0.5)*g.res, (float64(y)+0.5)*g.res))
}

// coverage rasterises regions into a per-cell mask. A cell is covered when
// at least half of it lies inside.
func (g grid) coverage(regions []geometry.Region) []bool {
	r := vector.NewRasterizer(g.w, g.h)
	for _, region := range regions {
		for _, ring := range region.Rings() {
			for i, p := range ring {
				x := float32((p.X - g.origin.X) / g.res)
				y := float32((p.Y - g.origin.Y) / g.res)
				if i == 0 {
					r.MoveTo(x, y)
				} else {
					r.LineTo(x, y)
				}
			}
			r.ClosePath()
		}
	}
	dst := image.NewAlpha(image.Rect(0, 0, g.w, g.h))
	r.Draw(dst, dst.Bounds(), image.Opaque, image.Point{})

	mask := make([]bool, g.w*g.h)
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			mask[y*g.w+x] = dst.Pix[y*dst.Stride+x] >= 128
		}
	}
	return mask
}

// fill calls fn for every cell whose centre lies inside the projected
// triangle, with the triangle's z interpolated at that centre
func (g grid) fill(a, b, c geometry.Vector3, fn func(idx int, z float64)) {
	// grid coordinates with cell centres on integers
	to := func(v geometry.Vector3) [3]float64 {
		return [3]float64{(v.X-g.origin.X)/g.res - 0.5, (v.Y-g.origin.Y)/g.res - 0.5, v.Z}
	}
	vertices := [3][3]float64{to(a), to(b), to(c)}

	// Sort vertices by Y coordinate (top to bottom)
	if vertices[0][1] > vertices[1][1] {
		vertices[0], vertices[1] = vertices[1], vertices[0]
	}
	if vertices[1][1] > vertices[2][1] {
		vertices[1], vertices[2] = vertices[2], vertices[1]
	}
	if vertices[0][1] > vertices[1][1] {
		vertices[0], vertices[1] = vertices[1], vertices[0]
	}

	x1, y1, z1 := vertices[0][0], vertices[0][1], vertices[0][2]
	x2, y2, z2 := vertices[1][0], vertices[1][1], vertices[1][2]
	x3, y3, z3 := vertices[2][0], vertices[2][1], vertices[2][2]
	if y3 == y1 {
		return
	}

	for y := int(math.Max(0, math.Ceil(y1))); y <= int(math.Min(float64(g.h-1), math.Floor(y3))); y++ {
		fy := float64(y)

		// the long edge 1-3 bounds one side, 1-2 or 2-3 the other
		t := (fy - y1) / (y3 - y1)
		xLong, zLong := x1+t*(x3-x1), z1+t*(z3-z1)

		var xShort, zShort float64
		if fy < y2 || y2 == y3 {
			if y2 == y1 {
				xShort, zShort = x2, z2
			} else {
				t := (fy - y1) / (y2 - y1)
				xShort, zShort = x1+t*(x2-x1), z1+t*(z2-z1)
			}
		} else {
			t := (fy - y2) / (y3 - y2)
			xShort, zShort = x2+t*(x3-x2), z2+t*(z3-z2)
		}

		xStart, xEnd, zStart, zEnd := xLong, xShort, zLong, zShort
		if xStart > xEnd {
			xStart, xEnd = xEnd, xStart
			zStart, zEnd = zEnd, zStart
		}

		for x := int(math.Max(0, math.Ceil(xStart))); x <= int(math.Min(float64(g.w-1), math.Floor(xEnd))); x++ {
			t := 0.0
			if xEnd != xStart {
				t = (float64(x) - xStart) / (xEnd - xStart)
			}
			fn(y*g.w+x, zStart+t*(zEnd-zStart))
		}
	}
}

// runs returns one rectangle per horizontal run of active cells
func (g grid) runs(active func(idx int) bool) []geometry.Polygon {
	var rects []geometry.Polygon
	for y := 0; y < g.h; y++ {
		start := -1
		for x := 0; x <= g.w; x++ {
			on := x < g.w && active(y*g.w+x)
			switch {
			case on && start < 0:
				start = x
			case !on && start >= 0:
				rects = append(rects, geometry.RectPolygon(geometry.Rect{
					Min: g.origin.Add(geometry.NewVector2(float64(start)*g.res, float64(y)*g.res)),
					Max: g.origin.Add(geometry.NewVector2(float64(x)*g.res, float64(y+1)*g.res)),
				}))
				start = -1
			}
		}
	}
	return rects
}
