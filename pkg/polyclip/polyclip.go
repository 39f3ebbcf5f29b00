// Package polyclip bridges float geometry to the integer Clipper library.
// Coordinates are scaled by Scale and rounded, so results are exact to
// 1/Scale millimetres.
package polyclip

import (
	"errors"
	"fmt"
	"math"

	clipper "github.com/ctessum/go.clipper"

	"github.com/philipparndt/goslm/pkg/geometry"
)

// Scale converts millimetres to Clipper integer units (10 nm)
const Scale = 1e5

// ErrClipFailed is returned when Clipper reports an unsuccessful execution
var ErrClipFailed = errors.New("polygon clipping failed")

// Op is a boolean operation
type Op int

// Boolean operations
const (
	OpUnion Op = iota
	OpDifference
	OpIntersection
	OpXor
)

func (op Op) clipType() clipper.ClipType {
	switch op {
	case OpDifference:
		return clipper.CtDifference
	case OpIntersection:
		return clipper.CtIntersection
	case OpXor:
		return clipper.CtXor
	default:
		return clipper.CtUnion
	}
}

func (op Op) String() string {
	return [...]string{"union", "difference", "intersection", "xor"}[op]
}

// ToPath converts a ring to Clipper units, dropping repeated points
func ToPath(p geometry.Polygon) clipper.Path {
	path := make(clipper.Path, 0, len(p))
	for _, v := range p {
		pt := &clipper.IntPoint{X: toUnit(v.X), Y: toUnit(v.Y)}
		if n := len(path); n > 0 && path[n-1].X == pt.X && path[n-1].Y == pt.Y {
			continue
		}
		path = append(path, pt)
	}
	if n := len(path); n > 1 && path[0].X == path[n-1].X && path[0].Y == path[n-1].Y {
		path = path[:n-1]
	}
	return path
}

// FromPath converts a Clipper path back to millimetres
func FromPath(path clipper.Path) geometry.Polygon {
	p := make(geometry.Polygon, len(path))
	for i, pt := range path {
		p[i] = geometry.NewVector2(float64(pt.X)/Scale, float64(pt.Y)/Scale)
	}
	return p
}

// ToPaths converts rings, skipping those with fewer than three points
func ToPaths(rings []geometry.Polygon) clipper.Paths {
	paths := make(clipper.Paths, 0, len(rings))
	for _, r := range rings {
		if path := ToPath(r); len(path) >= 3 {
			paths = append(paths, path)
		}
	}
	return paths
}

func toUnit(v float64) clipper.CInt {
	return clipper.CInt(math.Round(v * Scale))
}

// Boolean applies op to subject and clip rings using non-zero filling, so
// holes must wind clockwise inside counter-clockwise outlines.
func Boolean(op Op, subject, clip []geometry.Polygon) (regions []geometry.Region, err error) {
	defer recoverClipper(&err)

	c := clipper.NewClipper(clipper.IoNone)
	c.AddPaths(ToPaths(subject), clipper.PtSubject, true)
	c.AddPaths(ToPaths(clip), clipper.PtClip, true)

	tree, ok := c.Execute2(op.clipType(), clipper.PftNonZero, clipper.PftNonZero)
	if !ok || tree == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrClipFailed)
	}
	return TreeRegions(tree), nil
}

// Union merges all rings into non-overlapping regions
func Union(rings []geometry.Polygon) ([]geometry.Region, error) {
	return Boolean(OpUnion, rings, nil)
}

// Difference removes clip from subject
func Difference(subject, clip []geometry.Polygon) ([]geometry.Region, error) {
	if len(clip) == 0 {
		return Union(subject)
	}
	return Boolean(OpDifference, subject, clip)
}

// Intersection keeps the area covered by both subject and clip
func Intersection(subject, clip []geometry.Polygon) ([]geometry.Region, error) {
	return Boolean(OpIntersection, subject, clip)
}

// TreeRegions walks a PolyTree. Outlines at even depth start a region, their
// direct children are its holes. Orientation is normalised on the way out.
func TreeRegions(tree *clipper.PolyTree) []geometry.Region {
	var regions []geometry.Region
	var walk func(nodes []*clipper.PolyNode)
	walk = func(nodes []*clipper.PolyNode) {
		for _, node := range nodes {
			if node.IsOpen {
				continue
			}
			outer := orient(FromPath(node.Contour()), true)
			if len(outer) < 3 {
				continue
			}
			region := geometry.Region{Outer: outer}
			for _, child := range node.Childs() {
				if hole := orient(FromPath(child.Contour()), false); len(hole) >= 3 {
					region.Holes = append(region.Holes, hole)
				}
				walk(child.Childs())
			}
			regions = append(regions, region)
		}
	}
	walk(tree.Childs())
	return regions
}

// Rings flattens regions back to oriented rings
func Rings(regions []geometry.Region) []geometry.Polygon {
	var rings []geometry.Polygon
	for _, r := range regions {
		rings = append(rings, r.Rings()...)
	}
	return rings
}

// Area returns the solid area of regions
func Area(regions []geometry.Region) float64 {
	total := 0.0
	for _, r := range regions {
		total += r.Area()
	}
	return total
}

// Clean removes vertices closer than distance to their neighbours and
// nearly collinear vertices
func Clean(p geometry.Polygon, distance float64) geometry.Polygon {
	c := clipper.NewClipper(clipper.IoNone)
	cleaned := FromPath(c.CleanPolygon(ToPath(p), distance*Scale))
	if len(cleaned) < 3 {
		return nil
	}
	return orient(cleaned, p.IsSolid())
}

func orient(p geometry.Polygon, solid bool) geometry.Polygon {
	if p.IsSolid() != solid {
		return p.Reverse()
	}
	return p
}

// recoverClipper turns a Clipper panic into an error
func recoverClipper(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrClipFailed, r)
	}
}
