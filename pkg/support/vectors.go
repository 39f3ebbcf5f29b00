package support

import (
	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/hatch"
	"github.com/philipparndt/goslm/pkg/layer"
	"github.com/philipparndt/goslm/pkg/params"
	"github.com/philipparndt/goslm/pkg/polyclip"
	"github.com/philipparndt/goslm/pkg/scan"
)

// Vectors returns the support scan vectors of v at one layer. Block mode
// scans the section outline and a hatch; truss mode scans the strut
// outlines inside the section and fills the connector band.
func (v *Volume) Vectors(index int, p params.Parameters, style *layer.BuildStyle) ([]layer.ScanVector, error) {
	s, ok := v.SectionAt(index)
	if !ok {
		return nil, nil
	}
	tr := scan.NewTrimmer(scan.Options{MinLength: p.MinVectorLength})
	hp := hatch.Params{Angle: p.LayerAngle(index), Spacing: p.SupportHatchSpacing}

	fill := func(b geometry.Boundary) []layer.ScanVector {
		out := tr.Contours(b, layer.TypeSupport, style)
		lines := hatch.Alternating{}.Hatch(b, hp)
		return append(out, tr.Hatches(b, lines, layer.TypeSupport, style)...)
	}

	if p.SupportMode == params.SupportBlock || v.Truss == nil {
		return fill(s.Boundary()), nil
	}

	section := polyclip.Rings(s.Regions)
	var out []layer.ScanVector
	for _, strut := range v.Truss.Struts {
		regions, err := polyclip.Intersection([]geometry.Polygon{strut.Outline()}, section)
		if err != nil {
			return nil, err
		}
		out = append(out, tr.Contours(geometry.Boundary{Z: s.Z, Regions: regions}, layer.TypeSupport, style)...)
	}

	if v.Truss.InConnector(s.Z) && len(v.Truss.Connector) > 0 {
		regions, err := polyclip.Intersection(polyclip.Rings(v.Truss.Connector), section)
		if err != nil {
			return nil, err
		}
		out = append(out, fill(geometry.Boundary{Z: s.Z, Regions: regions})...)
	}
	return out, nil
}
