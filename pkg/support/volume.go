package support

import (
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/philipparndt/goslm/pkg/faults"
	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/params"
	"github.com/philipparndt/goslm/pkg/polyclip"
)

// Volume is the support below one or more overhang surfaces
type Volume struct {
	ID int
	// Sources are the ids of the surfaces the volume supports
	Sources []int
	// Sections are ordered by layer index
	Sections  []Section
	Footprint []geometry.Region
	Bottom    float64
	Top       float64
	Truss     *Truss
}

func newVolume(sources []int, sections []Section) (*Volume, error) {
	v := &Volume{Sources: sources}
	if err := v.setSections(sections); err != nil {
		return nil, err
	}
	return v, nil
}

// setSections replaces the sections and recomputes footprint and extent
func (v *Volume) setSections(sections []Section) error {
	v.Sections = lo.Filter(sections, func(s Section, _ int) bool {
		return len(s.Regions) > 0
	})
	sort.Slice(v.Sections, func(i, j int) bool {
		return v.Sections[i].Index < v.Sections[j].Index
	})

	v.Footprint = nil
	v.Bottom, v.Top = math.Inf(1), math.Inf(-1)
	if len(v.Sections) == 0 {
		return nil
	}
	var rings []geometry.Polygon
	for _, s := range v.Sections {
		rings = append(rings, polyclip.Rings(s.Regions)...)
		v.Bottom = math.Min(v.Bottom, s.Z)
		v.Top = math.Max(v.Top, s.Z)
	}
	footprint, err := polyclip.Union(rings)
	if err != nil {
		return err
	}
	v.Footprint = footprint
	return nil
}

// IsEmpty reports whether the volume has no sections left
func (v *Volume) IsEmpty() bool {
	return len(v.Sections) == 0
}

// SectionAt returns the section of a layer
func (v *Volume) SectionAt(index int) (Section, bool) {
	i := sort.Search(len(v.Sections), func(i int) bool {
		return v.Sections[i].Index >= index
	})
	if i < len(v.Sections) && v.Sections[i].Index == index {
		return v.Sections[i], true
	}
	return Section{}, false
}

// Area returns the footprint area
func (v *Volume) Area() float64 {
	return polyclip.Area(v.Footprint)
}

func (v *Volume) overlapsInZ(o *Volume) bool {
	return v.Bottom <= o.Top && o.Bottom <= v.Top
}

func footprintOverlap(a, b *Volume) (float64, error) {
	regions, err := polyclip.Intersection(polyclip.Rings(a.Footprint), polyclip.Rings(b.Footprint))
	if err != nil {
		return 0, err
	}
	return polyclip.Area(regions), nil
}

// Merge combines volumes whose extents overlap in z and whose footprints
// share more than SupportMergeArea. Volumes that overlap less keep their
// identity; the later one gives way to the earlier one by InnerSupportGap.
// Volumes are renumbered in order of their first source.
func Merge(volumes []*Volume, p params.Parameters) ([]*Volume, error) {
	uf := newUnionFind(len(volumes))
	touching := make(map[[2]int]bool)
	for i := range volumes {
		for j := i + 1; j < len(volumes); j++ {
			if !volumes[i].overlapsInZ(volumes[j]) {
				continue
			}
			area, err := footprintOverlap(volumes[i], volumes[j])
			if err != nil {
				return nil, faults.NewSupportError(faults.NoHeight, volumes[i].Sources[0], "merge overlap", err)
			}
			if area > p.SupportMergeArea {
				uf.union(i, j)
			} else if area > 0 {
				touching[[2]int{i, j}] = true
			}
		}
	}

	groups := lo.GroupBy(lo.Range(len(volumes)), uf.find)
	roots := lo.Keys(groups)
	sort.Ints(roots)

	merged := make([]*Volume, 0, len(roots))
	owner := make([]int, len(volumes))
	for _, root := range roots {
		members := groups[root]
		for _, m := range members {
			owner[m] = len(merged)
		}
		if len(members) == 1 {
			merged = append(merged, volumes[members[0]])
			continue
		}
		v, err := union(lo.Map(members, func(m int, _ int) *Volume { return volumes[m] }))
		if err != nil {
			return nil, err
		}
		merged = append(merged, v)
	}

	pairs := lo.Keys(touching)
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a][0] != pairs[b][0] {
			return pairs[a][0] < pairs[b][0]
		}
		return pairs[a][1] < pairs[b][1]
	})
	for _, pair := range pairs {
		earlier, later := merged[owner[pair[0]]], merged[owner[pair[1]]]
		if earlier == later {
			continue
		}
		if err := giveWay(later, earlier, p); err != nil {
			return nil, err
		}
	}

	out := lo.Filter(merged, func(v *Volume, _ int) bool { return !v.IsEmpty() })
	for i, v := range out {
		v.ID = i
	}
	return out, nil
}

// union joins the sections of several volumes layer by layer
func union(volumes []*Volume) (*Volume, error) {
	byIndex := map[int][]geometry.Polygon{}
	heights := map[int]float64{}
	var sources []int
	for _, v := range volumes {
		sources = append(sources, v.Sources...)
		for _, s := range v.Sections {
			byIndex[s.Index] = append(byIndex[s.Index], polyclip.Rings(s.Regions)...)
			heights[s.Index] = s.Z
		}
	}
	sort.Ints(sources)

	var sections []Section
	for _, index := range lo.Keys(byIndex) {
		regions, err := polyclip.Union(byIndex[index])
		if err != nil {
			return nil, faults.NewSupportError(heights[index], sources[0], "merge volumes", err)
		}
		sections = append(sections, Section{Index: index, Z: heights[index], Regions: regions})
	}
	v, err := newVolume(sources, sections)
	if err != nil {
		return nil, faults.NewSupportError(faults.NoHeight, sources[0], "merge volumes", err)
	}
	return v, nil
}

// giveWay removes from later every section of earlier grown by the inner gap
func giveWay(later, earlier *Volume, p params.Parameters) error {
	opts := polyclip.OffsetOptions{MiterLimit: p.OffsetMiterLimit, ArcTolerance: p.ArcTolerance}
	sections := make([]Section, 0, len(later.Sections))
	for _, s := range later.Sections {
		other, ok := earlier.SectionAt(s.Index)
		if !ok {
			sections = append(sections, s)
			continue
		}
		gap, err := polyclip.Offset(polyclip.Rings(other.Regions), p.InnerSupportGap, opts)
		if err != nil {
			return faults.NewSupportError(s.Z, later.Sources[0], "inner gap", err)
		}
		regions, err := polyclip.Difference(polyclip.Rings(s.Regions), polyclip.Rings(gap))
		if err != nil {
			return faults.NewSupportError(s.Z, later.Sources[0], "inner gap", err)
		}
		sections = append(sections, Section{Index: s.Index, Z: s.Z, Regions: regions})
	}
	if err := later.setSections(sections); err != nil {
		return faults.NewSupportError(faults.NoHeight, later.Sources[0], "inner gap", err)
	}
	return nil
}
