package scan

import (
	"math"
	"sort"

	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/hatch"
	"github.com/philipparndt/goslm/pkg/layer"
)

// Sequence orders pieces group by group. Inside a group the next piece is
// the one with an endpoint nearest to the current beam position, reversed
// when its end is nearer; ties go to the earlier piece. The very first piece
// keeps its direction.
func Sequence(lines []hatch.Line) []hatch.Line {
	if len(lines) == 0 {
		return nil
	}

	byGroup := map[int][]int{}
	var groups []int
	for i, l := range lines {
		if _, ok := byGroup[l.Group]; !ok {
			groups = append(groups, l.Group)
		}
		byGroup[l.Group] = append(byGroup[l.Group], i)
	}
	sort.Ints(groups)

	out := make([]hatch.Line, 0, len(lines))
	var pos geometry.Vector2
	for gi, g := range groups {
		members := byGroup[g]
		used := make([]bool, len(members))

		if gi == 0 {
			first := lines[members[0]]
			out = append(out, first)
			used[0] = true
			pos = first.End
		}

		for {
			best := -1
			bestDist := math.Inf(1)
			reverse := false
			for k, idx := range members {
				if used[k] {
					continue
				}
				l := lines[idx]
				if d := pos.Distance(l.Start); d < bestDist {
					best, bestDist, reverse = k, d, false
				}
				if d := pos.Distance(l.End); d < bestDist {
					best, bestDist, reverse = k, d, true
				}
			}
			if best < 0 {
				break
			}
			used[best] = true
			l := lines[members[best]]
			if reverse {
				l = l.Reverse()
			}
			out = append(out, l)
			pos = l.End
		}
	}
	return out
}

// Contours turns every ring of b into a closed scan vector. Rings are visited
// nearest first and each starts at its vertex closest to the beam.
func (t *Trimmer) Contours(b geometry.Boundary, typ layer.VectorType, style *layer.BuildStyle) []layer.ScanVector {
	rings := b.Rings()
	var out []layer.ScanVector
	used := make([]bool, len(rings))

	var pos geometry.Vector2
	for n := 0; n < len(rings); n++ {
		best, vertex := -1, 0
		if n == 0 {
			best = 0
		} else {
			bestDist := math.Inf(1)
			for i, ring := range rings {
				if used[i] {
					continue
				}
				for j, p := range ring {
					if d := pos.Distance(p); d < bestDist {
						best, vertex, bestDist = i, j, d
					}
				}
			}
		}
		used[best] = true

		ring := rings[best]
		points := make([]geometry.Vector2, 0, len(ring))
		points = append(points, ring[vertex:]...)
		points = append(points, ring[:vertex]...)

		v := layer.ScanVector{Type: typ, Points: points, Closed: true, Style: style}
		if v.Length() <= t.opts.MinLength {
			continue
		}
		out = append(out, v)
		pos = v.End()
	}
	return out
}
