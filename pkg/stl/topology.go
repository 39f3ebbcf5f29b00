package stl

import (
	"fmt"
	"math"
	"sort"

	"github.com/philipparndt/goslm/pkg/faults"
	"github.com/philipparndt/goslm/pkg/geometry"
)

// DefaultWeldTolerance is the distance under which vertices are merged
const DefaultWeldTolerance = 1e-6

type edgeKey struct{ a, b int }

func undirected(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// Topology is the welded, indexed form of a Model
type Topology struct {
	Vertices []geometry.Vector3
	// Faces index Vertices in winding order, aligned with Model.Triangles
	Faces [][3]int
	// Degenerate lists faces that collapse to a line or point after welding
	Degenerate []int

	edges map[edgeKey][]int
}

// Topology welds coincident vertices and indexes edge adjacency
func (m *Model) Topology(tolerance float64) *Topology {
	if tolerance <= 0 {
		tolerance = DefaultWeldTolerance
	}

	t := &Topology{
		Faces: make([][3]int, len(m.Triangles)),
		edges: make(map[edgeKey][]int, len(m.Triangles)*3/2),
	}

	type cell struct{ x, y, z int64 }
	lookup := make(map[cell]int, len(m.Triangles)/2)
	weld := func(v geometry.Vector3) int {
		key := cell{
			x: int64(math.Round(v.X / tolerance)),
			y: int64(math.Round(v.Y / tolerance)),
			z: int64(math.Round(v.Z / tolerance)),
		}
		if id, ok := lookup[key]; ok {
			return id
		}
		id := len(t.Vertices)
		t.Vertices = append(t.Vertices, v)
		lookup[key] = id
		return id
	}

	for i, tri := range m.Triangles {
		f := [3]int{weld(tri.V1), weld(tri.V2), weld(tri.V3)}
		t.Faces[i] = f
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			t.Degenerate = append(t.Degenerate, i)
			continue
		}
		for j := 0; j < 3; j++ {
			k := undirected(f[j], f[(j+1)%3])
			t.edges[k] = append(t.edges[k], i)
		}
	}

	return t
}

// IsDegenerate reports whether face collapsed during welding
func (t *Topology) IsDegenerate(face int) bool {
	f := t.Faces[face]
	return f[0] == f[1] || f[1] == f[2] || f[0] == f[2]
}

// Neighbors returns the faces sharing an edge with face, in ascending order
func (t *Topology) Neighbors(face int) []int {
	if t.IsDegenerate(face) {
		return nil
	}
	f := t.Faces[face]
	var out []int
	for j := 0; j < 3; j++ {
		for _, other := range t.edges[undirected(f[j], f[(j+1)%3])] {
			if other != face {
				out = append(out, other)
			}
		}
	}
	sort.Ints(out)
	return out
}

// EdgeFaces returns the faces that use the undirected edge a-b
func (t *Topology) EdgeFaces(a, b int) []int {
	return t.edges[undirected(a, b)]
}

// Edge is an undirected welded edge and the faces that use it
type Edge struct {
	A, B  int
	Faces []int
}

// Edges returns every edge ordered by its vertex ids
func (t *Topology) Edges() []Edge {
	out := make([]Edge, 0, len(t.edges))
	for k, faces := range t.edges {
		out = append(out, Edge{A: k.a, B: k.b, Faces: faces})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// VertexNeighbors returns, for every vertex, the ids of vertices sharing an edge
func (t *Topology) VertexNeighbors() [][]int {
	out := make([][]int, len(t.Vertices))
	keys := make([]edgeKey, 0, len(t.edges))
	for k := range t.edges {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})
	for _, k := range keys {
		out[k.a] = append(out[k.a], k.b)
		out[k.b] = append(out[k.b], k.a)
	}
	return out
}

// Validate checks that the mesh is a closed, consistently wound 2-manifold.
// Every edge must be used by exactly two faces, traversed in opposite
// directions.
func (m *Model) Validate() error {
	if len(m.Triangles) == 0 {
		return faults.NewGeometryError(faults.ComponentMesh, faults.NoHeight, "mesh has no triangles", nil)
	}

	t := m.Topology(DefaultWeldTolerance)
	for k, faces := range t.edges {
		if len(faces) != 2 {
			return faults.NewGeometryError(faults.ComponentMesh, faults.NoHeight,
				fmt.Sprintf("edge %v-%v is shared by %d faces", t.Vertices[k.a], t.Vertices[k.b], len(faces)), nil)
		}
		if t.traverses(faces[0], k.a, k.b) == t.traverses(faces[1], k.a, k.b) {
			return faults.NewGeometryError(faults.ComponentMesh, faults.NoHeight,
				fmt.Sprintf("faces %d and %d have inconsistent winding", faces[0], faces[1]), nil)
		}
	}
	return nil
}

// traverses reports whether face walks the edge from a to b
func (t *Topology) traverses(face, a, b int) bool {
	f := t.Faces[face]
	for j := 0; j < 3; j++ {
		if f[j] == a && f[(j+1)%3] == b {
			return true
		}
	}
	return false
}
