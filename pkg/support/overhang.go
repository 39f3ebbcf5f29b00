// Package support finds overhanging regions of a part and derives support
// volumes, truss lattices and per-layer support scan vectors for them.
package support

import (
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/polyclip"
	"github.com/philipparndt/goslm/pkg/stl"
)

// platformTolerance is how close to the platform a face must be to rest on it
const platformTolerance = 1e-4

// Surface is a connected set of overhanging faces
type Surface struct {
	ID    int
	Faces []int
	// Footprint is the projection of the faces onto the platform
	Footprint []geometry.Region
	// Area is the projected area
	Area   float64
	MinZ   float64
	MaxZ   float64
	Bounds geometry.Rect
}

// Overhangs is the result of overhang detection
type Overhangs struct {
	// Flagged lists every overhanging face in ascending order
	Flagged  []int
	Surfaces []Surface
	// Edges are downward pointing ridges between faces that are not flagged
	Edges [][2]geometry.Vector3
	// Points are vertices lower than all of their neighbours
	Points []geometry.Vector3
}

// TiltFromVertical returns the angle in degrees between a face and the
// vertical for downward facing normals, and zero otherwise
func TiltFromVertical(normal geometry.Vector3) float64 {
	n := normal.Normalize()
	if n.Z >= 0 {
		return 0
	}
	return math.Asin(math.Min(1, -n.Z)) * 180 / math.Pi
}

// IsOverhang reports whether a face with this normal needs support
func IsOverhang(normal geometry.Vector3, threshold float64) bool {
	return TiltFromVertical(normal) > threshold
}

func onPlatform(t geometry.Triangle, platformZ float64) bool {
	for _, v := range t.Vertices() {
		if math.Abs(v.Z-platformZ) > platformTolerance {
			return false
		}
	}
	return true
}

// DetectOverhangs flags overhanging faces and groups them into surfaces.
// Surfaces with a projected area below minArea are dropped.
func DetectOverhangs(mesh *stl.Model, topo *stl.Topology, threshold, platformZ, minArea float64) (Overhangs, error) {
	var out Overhangs
	flagged := make([]bool, len(mesh.Triangles))
	for i, t := range mesh.Triangles {
		if topo.IsDegenerate(i) || onPlatform(t, platformZ) {
			continue
		}
		if IsOverhang(t.FaceNormal(), threshold) {
			flagged[i] = true
			out.Flagged = append(out.Flagged, i)
		}
	}

	uf := newUnionFind(len(mesh.Triangles))
	for _, i := range out.Flagged {
		for _, j := range topo.Neighbors(i) {
			if flagged[j] {
				uf.union(i, j)
			}
		}
	}

	// group by root; groups are numbered by their lowest face index
	groups := lo.GroupBy(out.Flagged, uf.find)
	roots := lo.Keys(groups)
	sort.Slice(roots, func(a, b int) bool {
		return groups[roots[a]][0] < groups[roots[b]][0]
	})

	for _, root := range roots {
		s, err := newSurface(mesh, groups[root])
		if err != nil {
			return Overhangs{}, err
		}
		if s.Area < minArea || len(s.Footprint) == 0 {
			continue
		}
		s.ID = len(out.Surfaces)
		out.Surfaces = append(out.Surfaces, s)
	}

	out.Edges = overhangEdges(mesh, topo, flagged, threshold, platformZ)
	out.Points = overhangPoints(topo, platformZ)
	return out, nil
}

func newSurface(mesh *stl.Model, faces []int) (Surface, error) {
	s := Surface{
		Faces:  faces,
		MinZ:   math.Inf(1),
		MaxZ:   math.Inf(-1),
		Bounds: geometry.NewRect(),
	}
	rings := make([]geometry.Polygon, 0, len(faces))
	for _, f := range faces {
		t := mesh.Triangles[f]
		zmin, zmax := t.ZRange()
		s.MinZ = math.Min(s.MinZ, zmin)
		s.MaxZ = math.Max(s.MaxZ, zmax)
		ring := geometry.Polygon{t.V1.XY(), t.V2.XY(), t.V3.XY()}
		if !ring.IsSolid() {
			ring = ring.Reverse()
		}
		rings = append(rings, ring)
	}
	footprint, err := polyclip.Union(rings)
	if err != nil {
		return Surface{}, err
	}
	s.Footprint = footprint
	s.Area = polyclip.Area(footprint)
	for _, r := range footprint {
		s.Bounds = s.Bounds.Union(r.Outer.Bounds())
	}
	return s, nil
}

// overhangEdges finds ridges pointing down between two downward facing faces
// that are not flagged themselves. The edge must be flatter than the
// threshold allows and both faces must rise away from it.
func overhangEdges(mesh *stl.Model, topo *stl.Topology, flagged []bool, threshold, platformZ float64) [][2]geometry.Vector3 {
	var out [][2]geometry.Vector3
	for _, e := range topo.Edges() {
		if len(e.Faces) != 2 || flagged[e.Faces[0]] || flagged[e.Faces[1]] {
			continue
		}
		a, b := topo.Vertices[e.A], topo.Vertices[e.B]
		if math.Abs(a.Z-platformZ) <= platformTolerance && math.Abs(b.Z-platformZ) <= platformTolerance {
			continue
		}
		d := b.Sub(a)
		slope := math.Asin(math.Min(1, math.Abs(d.Z)/d.Length())) * 180 / math.Pi
		if slope > 90-threshold {
			continue
		}

		ridge := true
		for _, f := range e.Faces {
			if mesh.Triangles[f].FaceNormal().Z >= 0 {
				ridge = false
				break
			}
			apex := opposite(topo.Faces[f], e.A, e.B)
			if topo.Vertices[apex].Z <= math.Max(a.Z, b.Z) {
				ridge = false
				break
			}
		}
		if ridge {
			out = append(out, [2]geometry.Vector3{a, b})
		}
	}
	return out
}

func opposite(face [3]int, a, b int) int {
	for _, v := range face {
		if v != a && v != b {
			return v
		}
	}
	return face[0]
}

// overhangPoints returns vertices strictly below every neighbour
func overhangPoints(topo *stl.Topology, platformZ float64) []geometry.Vector3 {
	var out []geometry.Vector3
	for i, neighbours := range topo.VertexNeighbors() {
		v := topo.Vertices[i]
		if len(neighbours) == 0 || math.Abs(v.Z-platformZ) <= platformTolerance {
			continue
		}
		lowest := lo.EveryBy(neighbours, func(n int) bool {
			return topo.Vertices[n].Z > v.Z
		})
		if lowest {
			out = append(out, v)
		}
	}
	return out
}

// unionFind is a disjoint set over integer ids with path halving
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// union joins the sets of a and b, keeping the smaller root
func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		uf.parent[rb] = ra
	} else {
		uf.parent[ra] = rb
	}
}
