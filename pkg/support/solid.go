package support

import (
	"errors"
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/stl"
)

// DefaultMeshCells controls the marching cubes resolution of exported supports
const DefaultMeshCells = 200

// ErrEmptySolid is returned when there is nothing to build a solid from
var ErrEmptySolid = errors.New("support: empty solid")

// regionSolid builds a 2D solid of a region with its holes cut out
func regionSolid(r geometry.Region) (sdf.SDF2, error) {
	outer, err := polygon2D(r.Outer)
	if err != nil {
		return nil, err
	}
	for _, h := range r.Holes {
		hole, err := polygon2D(h)
		if err != nil {
			return nil, err
		}
		outer = sdf.Difference2D(outer, hole)
	}
	return outer, nil
}

func polygon2D(p geometry.Polygon) (sdf.SDF2, error) {
	vertices := make([]v2.Vec, len(p))
	for i, v := range p {
		vertices[i] = v2.Vec{X: v.X, Y: v.Y}
	}
	return sdf.Polygon2D(vertices)
}

// slab extrudes regions between z0 and z1
func slab(regions []geometry.Region, z0, z1 float64) (sdf.SDF3, error) {
	if z1 <= z0 {
		return nil, fmt.Errorf("slab %f..%f: %w", z0, z1, ErrEmptySolid)
	}
	var parts []sdf.SDF2
	for _, r := range regions {
		s, err := regionSolid(r)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return nil, ErrEmptySolid
	}
	// Extrude3D centres the solid on z = 0
	extruded := sdf.Extrude3D(sdf.Union2D(parts...), z1-z0)
	return sdf.Transform3D(extruded, sdf.Translate3d(v3.Vec{Z: (z0 + z1) / 2})), nil
}

// Solid stacks the sections of v, each as thick as one layer
func (v *Volume) Solid(layerThickness float64) (sdf.SDF3, error) {
	var parts []sdf.SDF3
	for _, s := range v.Sections {
		part, err := slab(s.Regions, s.Z-layerThickness/2, s.Z+layerThickness/2)
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", s.Index, err)
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return nil, ErrEmptySolid
	}
	return sdf.Union3D(parts...), nil
}

// Solid builds the struts as cylinders joined by the connector plate
func (t *Truss) Solid() (sdf.SDF3, error) {
	var parts []sdf.SDF3
	for _, s := range t.Struts {
		height := s.Top - s.Bottom
		if height <= 0 {
			continue
		}
		c, err := sdf.Cylinder3D(height, s.Diameter/2, 0)
		if err != nil {
			return nil, err
		}
		// Cylinder3D is centred on the origin
		parts = append(parts, sdf.Transform3D(c, sdf.Translate3d(v3.Vec{
			X: s.Center.X,
			Y: s.Center.Y,
			Z: (s.Bottom + s.Top) / 2,
		})))
	}
	if len(t.Connector) > 0 && t.Top > t.ConnectorBottom {
		plate, err := slab(t.Connector, t.ConnectorBottom, t.Top)
		if err != nil {
			return nil, err
		}
		parts = append(parts, plate)
	}
	if len(parts) == 0 {
		return nil, ErrEmptySolid
	}
	return sdf.Union3D(parts...), nil
}

// ToMesh tessellates a solid with marching cubes
func ToMesh(s sdf.SDF3, cells int, name string) *stl.Model {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	m := stl.NewModel(name)
	for _, tri := range render.ToTriangles(s, render.NewMarchingCubesUniform(cells)) {
		a := geometry.NewVector3(tri[0].X, tri[0].Y, tri[0].Z)
		b := geometry.NewVector3(tri[1].X, tri[1].Y, tri[1].Z)
		c := geometry.NewVector3(tri[2].X, tri[2].Y, tri[2].Z)
		t := geometry.Triangle{V1: a, V2: b, V3: c}
		t.Normal = t.CalculateNormal()
		m.AddTriangle(t)
	}
	return m
}
