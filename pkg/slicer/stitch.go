package slicer

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/philipparndt/goslm/pkg/geometry"
)

// ErrOpenLoop is returned when a chain of segments cannot be closed
var ErrOpenLoop = errors.New("open loop")

// endpoint indexes the start of a segment in the R-tree
type endpoint struct {
	seg int
	at  geometry.Vector2
}

func (e *endpoint) Bounds() rtreego.Rect {
	return rtreego.Point{e.at.X, e.at.Y}.ToRect(1e-9)
}

// starts is a spatial index of unused segment start points
type starts struct {
	tree  *rtreego.Rtree
	nodes []*endpoint
	used  []bool
}

func newStarts(segments []segment) *starts {
	s := &starts{
		tree:  rtreego.NewTree(2, 8, 32),
		nodes: make([]*endpoint, len(segments)),
		used:  make([]bool, len(segments)),
	}
	for i, seg := range segments {
		s.nodes[i] = &endpoint{seg: i, at: seg.a}
		s.tree.Insert(s.nodes[i])
	}
	return s
}

func (s *starts) take(i int) {
	if s.used[i] {
		return
	}
	s.used[i] = true
	s.tree.Delete(s.nodes[i])
}

// near returns the unused segment whose start is closest to pt within tol.
// Ties resolve to the lower segment index.
func (s *starts) near(pt geometry.Vector2, tol float64) (int, bool) {
	hits := s.tree.SearchIntersect(rtreego.Point{pt.X, pt.Y}.ToRect(tol))
	best := -1
	bestDist := 0.0
	for _, h := range hits {
		e := h.(*endpoint)
		d := e.at.Distance(pt)
		if d > tol {
			continue
		}
		if best < 0 || d < bestDist || (d == bestDist && e.seg < best) {
			best, bestDist = e.seg, d
		}
	}
	return best, best >= 0
}

// stitch chains directed segments head to tail into closed loops. Endpoints
// join within MatchTolerance first and GapTolerance second. A chain that
// cannot be continued or closed is an error.
func stitch(segments []segment, opts Options) ([]geometry.Polygon, error) {
	index := newStarts(segments)
	var loops []geometry.Polygon

	for first := range segments {
		if index.used[first] {
			continue
		}
		index.take(first)
		origin := segments[first].a
		loop := geometry.Polygon{origin}
		end := segments[first].b

		for {
			if end.Distance(origin) <= opts.MatchTolerance {
				break
			}
			next, ok := index.near(end, opts.MatchTolerance)
			if !ok && end.Distance(origin) <= opts.GapTolerance {
				break
			}
			if !ok {
				next, ok = index.near(end, opts.GapTolerance)
			}
			if !ok {
				return nil, fmt.Errorf("%w: chain from face %d ends at (%.6f, %.6f) with %d points",
					ErrOpenLoop, segments[first].face, end.X, end.Y, len(loop))
			}
			index.take(next)
			loop = append(loop, end)
			end = segments[next].b
		}

		if len(loop) >= 3 {
			loops = append(loops, loop)
		}
	}

	sort.SliceStable(loops, func(i, j int) bool {
		return lowest(loops[i]).Less(lowest(loops[j]))
	})
	return loops, nil
}

// point is a comparable key for ordering loops deterministically
type point struct{ x, y float64 }

func (p point) Less(o point) bool {
	if p.x != o.x {
		return p.x < o.x
	}
	return p.y < o.y
}

func lowest(p geometry.Polygon) point {
	best := point{p[0].X, p[0].Y}
	for _, v := range p[1:] {
		if c := (point{v.X, v.Y}); c.Less(best) {
			best = c
		}
	}
	return best
}
