package support

import (
	"github.com/philipparndt/goslm/pkg/faults"
	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/params"
	"github.com/philipparndt/goslm/pkg/polyclip"
)

// strutSegments is the number of sides of a strut cross-section
const strutSegments = 16

// Strut is one vertical column of a truss
type Strut struct {
	Center   geometry.Vector2
	Diameter float64
	Bottom   float64
	Top      float64
}

// Outline returns the strut cross-section
func (s Strut) Outline() geometry.Polygon {
	return geometry.Circle(s.Center, s.Diameter/2, strutSegments)
}

// Truss is a lattice of struts under a perforated connector plate
type Truss struct {
	Spacing float64
	Struts  []Strut
	// Connector is the plate at the top of the volume, perforated between struts
	Connector       []geometry.Region
	ConnectorBottom float64
	Top             float64
}

// NewTruss lays a strut grid over the footprint of v. Grid nodes inside the
// footprint are kept in row order unless a kept strut is closer than
// MinStrutSpacing.
func NewTruss(v *Volume, p params.Parameters) (*Truss, error) {
	t := &Truss{
		Spacing:         p.SupportGridSpacing,
		Top:             v.Top,
		ConnectorBottom: v.Top - p.ConnectorHeight,
	}
	bounds := geometry.NewRect()
	for _, r := range v.Footprint {
		bounds = bounds.Union(r.Outer.Bounds())
	}
	if bounds.IsEmpty() {
		return t, nil
	}
	fp := geometry.Boundary{Regions: v.Footprint}

	g := p.SupportGridSpacing
	var perforations []geometry.Polygon
	for y := bounds.Min.Y + g/2; y <= bounds.Max.Y; y += g {
		for x := bounds.Min.X + g/2; x <= bounds.Max.X; x += g {
			node := geometry.NewVector2(x, y)
			if p.PerforationSize > 0 {
				perforations = append(perforations, square(node.Add(geometry.NewVector2(g/2, g/2)), p.PerforationSize))
			}
			if !fp.Contains(node) || t.crowded(node, p.MinStrutSpacing) {
				continue
			}
			t.Struts = append(t.Struts, Strut{Center: node, Diameter: p.StrutDiameter, Bottom: v.Bottom, Top: v.Top})
		}
	}
	if len(t.Struts) == 0 {
		// footprint smaller than one cell, try the centre of its bounds
		if c := bounds.Min.Lerp(bounds.Max, 0.5); fp.Contains(c) {
			t.Struts = append(t.Struts, Strut{Center: c, Diameter: p.StrutDiameter, Bottom: v.Bottom, Top: v.Top})
		}
	}

	connector := v.Footprint
	if len(perforations) > 0 {
		var err error
		connector, err = polyclip.Difference(polyclip.Rings(v.Footprint), perforations)
		if err != nil {
			return nil, faults.NewSupportError(v.Top, v.Sources[0], "perforate connector", err)
		}
	}
	t.Connector = connector
	return t, nil
}

func (t *Truss) crowded(node geometry.Vector2, spacing float64) bool {
	for _, s := range t.Struts {
		if s.Center.Distance(node) < spacing {
			return true
		}
	}
	return false
}

// InConnector reports whether z lies in the connector band
func (t *Truss) InConnector(z float64) bool {
	return z >= t.ConnectorBottom && z <= t.Top
}

func square(center geometry.Vector2, size float64) geometry.Polygon {
	h := geometry.NewVector2(size/2, size/2)
	return geometry.RectPolygon(geometry.Rect{Min: center.Sub(h), Max: center.Add(h)})
}
