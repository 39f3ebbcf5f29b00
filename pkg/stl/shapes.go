package stl

import (
	"github.com/philipparndt/goslm/pkg/geometry"
)

// Box returns a closed axis-aligned box with outward winding
func Box(min, max geometry.Vector3) *Model {
	base := geometry.RectPolygon(geometry.Rect{Min: min.XY(), Max: max.XY()})
	m := Prism(base, min.Z, max.Z)
	m.Name = "box"
	return m
}

// Prism extrudes a simple counter-clockwise polygon between z0 and z1
func Prism(base geometry.Polygon, z0, z1 float64) *Model {
	m := NewModel("prism")
	at := func(p geometry.Vector2, z float64) geometry.Vector3 {
		return geometry.NewVector3(p.X, p.Y, z)
	}

	for _, tri := range base.Triangulate() {
		a, b, c := base[tri[0]], base[tri[1]], base[tri[2]]
		m.addFacet(at(a, z1), at(b, z1), at(c, z1))
		m.addFacet(at(a, z0), at(c, z0), at(b, z0))
	}

	for i := range base {
		a := base[i]
		b := base[(i+1)%len(base)]
		m.addFacet(at(a, z0), at(b, z0), at(b, z1))
		m.addFacet(at(a, z0), at(b, z1), at(a, z1))
	}
	return m
}

// Profile extrudes a counter-clockwise profile drawn in the XZ plane along
// +Y between y0 and y1. Useful for parts with overhanging faces.
func Profile(profile geometry.Polygon, y0, y1 float64) *Model {
	prism := Prism(profile, y0, y1)
	m := NewModel("profile")
	swap := func(v geometry.Vector3) geometry.Vector3 {
		return geometry.NewVector3(v.X, v.Z, v.Y)
	}
	// swapping two axes mirrors the part, so the winding is reversed
	for _, t := range prism.Triangles {
		m.addFacet(swap(t.V1), swap(t.V3), swap(t.V2))
	}
	return m
}

// Tube returns a vertical tube, or a cylinder when inner is zero
func Tube(center geometry.Vector2, outer, inner, z0, z1 float64, segments int) *Model {
	outerRing := geometry.Circle(center, outer, segments)
	if inner <= 0 {
		m := Prism(outerRing, z0, z1)
		m.Name = "cylinder"
		return m
	}

	innerRing := geometry.Circle(center, inner, segments)
	m := NewModel("tube")
	at := func(p geometry.Vector2, z float64) geometry.Vector3 {
		return geometry.NewVector3(p.X, p.Y, z)
	}
	for i := range outerRing {
		j := (i + 1) % len(outerRing)
		oa, ob := outerRing[i], outerRing[j]
		ia, ib := innerRing[i], innerRing[j]

		m.addFacet(at(oa, z0), at(ob, z0), at(ob, z1))
		m.addFacet(at(oa, z0), at(ob, z1), at(oa, z1))

		m.addFacet(at(ia, z0), at(ib, z1), at(ib, z0))
		m.addFacet(at(ia, z0), at(ia, z1), at(ib, z1))

		m.addFacet(at(oa, z1), at(ob, z1), at(ib, z1))
		m.addFacet(at(oa, z1), at(ib, z1), at(ia, z1))

		m.addFacet(at(oa, z0), at(ib, z0), at(ob, z0))
		m.addFacet(at(oa, z0), at(ia, z0), at(ib, z0))
	}
	return m
}

// Merge concatenates the triangles of several disjoint models
func Merge(name string, models ...*Model) *Model {
	out := NewModel(name)
	for _, m := range models {
		out.Triangles = append(out.Triangles, m.Triangles...)
	}
	return out
}

func (m *Model) addFacet(a, b, c geometry.Vector3) {
	t := geometry.Triangle{V1: a, V2: b, V3: c}
	t.Normal = t.CalculateNormal()
	m.AddTriangle(t)
}
