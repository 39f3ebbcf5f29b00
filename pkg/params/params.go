// Package params holds the immutable process parameters shared by every
// stage of a build. Values are passed by copy and never mutated by the
// pipeline.
package params

import (
	"fmt"
	"hash/fnv"
	"math"

	"github.com/philipparndt/goslm/pkg/faults"
	"github.com/philipparndt/goslm/pkg/geometry"
)

// HatchStrategy selects the infill pattern
type HatchStrategy string

// Supported infill patterns
const (
	StrategyAlternating HatchStrategy = "alternating"
	StrategyStripe      HatchStrategy = "stripe"
	StrategyIsland      HatchStrategy = "island"
)

// SupportPrecision selects how overhangs are projected to the platform
type SupportPrecision string

// Projection modes
const (
	// PrecisionExact cascades polygon booleans through every layer boundary
	PrecisionExact SupportPrecision = "exact"
	// PrecisionApproximate rasterises height maps
	PrecisionApproximate SupportPrecision = "approximate"
	// PrecisionAuto tries exact first and falls back to approximate
	PrecisionAuto SupportPrecision = "auto"
)

// SupportMode selects what is scanned inside a support volume
type SupportMode string

// Support fill modes
const (
	SupportTruss SupportMode = "truss"
	SupportBlock SupportMode = "block"
)

// Parameters is the full set of process parameters of one build
type Parameters struct {
	// Infill
	HatchStrategy       HatchStrategy
	HatchAngle          float64 // degrees
	HatchAngleIncrement float64 // degrees added per layer
	HatchSpacing        float64
	StripeWidth         float64
	IslandWidth         float64

	// Contours
	NumOuterContours int
	NumInnerContours int
	ContourOffset    float64
	HatchOffset      float64
	OffsetMiterLimit float64
	ArcTolerance     float64

	// Vector post-processing
	SpotCompensation float64
	MinVectorLength  float64

	// Build layout
	LayerThickness float64
	PlatformZ      float64
	BuildAxis      geometry.Vector3

	// Supports
	GenerateSupports        bool
	OverhangAngleThreshold  float64 // degrees of surface tilt from vertical
	SupportPrecision        SupportPrecision
	RayProjectionResolution float64
	InnerSupportGap         float64
	OuterSupportGap         float64
	MinSupportArea          float64
	SupportMergeArea        float64
	SupportMode             SupportMode
	SupportGridSpacing      float64
	MinStrutSpacing         float64
	StrutDiameter           float64
	ConnectorHeight         float64
	PerforationSize         float64
	SupportHatchSpacing     float64
}

// Default returns a parameter set suitable for a generic metal build
func Default() Parameters {
	return Parameters{
		HatchStrategy:       StrategyAlternating,
		HatchAngle:          0,
		HatchAngleIncrement: 67,
		HatchSpacing:        0.1,
		StripeWidth:         5,
		IslandWidth:         5,

		NumOuterContours: 1,
		NumInnerContours: 1,
		ContourOffset:    0.08,
		HatchOffset:      0.08,
		OffsetMiterLimit: 2,
		ArcTolerance:     0.005,

		SpotCompensation: 0,
		MinVectorLength:  0.05,

		LayerThickness: 0.04,
		PlatformZ:      0,
		BuildAxis:      geometry.NewVector3(0, 0, 1),

		GenerateSupports:        true,
		OverhangAngleThreshold:  45,
		SupportPrecision:        PrecisionAuto,
		RayProjectionResolution: 0.05,
		InnerSupportGap:         0.3,
		OuterSupportGap:         0.3,
		MinSupportArea:          0.1,
		SupportMergeArea:        1.0,
		SupportMode:             SupportTruss,
		SupportGridSpacing:      2.0,
		MinStrutSpacing:         1.0,
		StrutDiameter:           0.5,
		ConnectorHeight:         0.5,
		PerforationSize:         0.5,
		SupportHatchSpacing:     0.2,
	}
}

// Validate checks every field and returns the first violation
func (p Parameters) Validate() error {
	checks := []struct {
		field string
		value float64
		ok    bool
		why   string
	}{
		{"hatchAngle", p.HatchAngle, finite(p.HatchAngle), "must be finite"},
		{"hatchAngleIncrement", p.HatchAngleIncrement, finite(p.HatchAngleIncrement), "must be finite"},
		{"hatchSpacing", p.HatchSpacing, p.HatchSpacing > 0 && finite(p.HatchSpacing), "must be positive"},
		{"stripeWidth", p.StripeWidth, p.HatchStrategy != StrategyStripe || p.StripeWidth > 0, "must be positive for stripe hatching"},
		{"islandWidth", p.IslandWidth, p.HatchStrategy != StrategyIsland || p.IslandWidth > 0, "must be positive for island hatching"},
		{"contourOffset", p.ContourOffset, p.NumInnerContours+p.NumOuterContours == 0 || p.ContourOffset > 0, "must be positive when contours are requested"},
		{"hatchOffset", p.HatchOffset, p.HatchOffset >= 0, "must not be negative"},
		{"offsetMiterLimit", p.OffsetMiterLimit, p.OffsetMiterLimit >= 1, "must be at least 1"},
		{"arcTolerance", p.ArcTolerance, p.ArcTolerance > 0, "must be positive"},
		{"spotCompensation", p.SpotCompensation, finite(p.SpotCompensation), "must be finite"},
		{"minVectorLength", p.MinVectorLength, p.MinVectorLength >= 0, "must not be negative"},
		{"layerThickness", p.LayerThickness, p.LayerThickness > 0, "must be positive"},
		{"platformZ", p.PlatformZ, finite(p.PlatformZ), "must be finite"},
		{"buildAxis", p.BuildAxis.Length(), p.BuildAxis.Length() > 0, "must not be the zero vector"},
	}
	if p.GenerateSupports {
		checks = append(checks, []struct {
			field string
			value float64
			ok    bool
			why   string
		}{
			{"overhangAngleThreshold", p.OverhangAngleThreshold, p.OverhangAngleThreshold > 0 && p.OverhangAngleThreshold < 90, "must be between 0 and 90 degrees"},
			{"rayProjectionResolution", p.RayProjectionResolution, p.RayProjectionResolution > 0, "must be positive"},
			{"innerSupportGap", p.InnerSupportGap, p.InnerSupportGap >= 0, "must not be negative"},
			{"outerSupportGap", p.OuterSupportGap, p.OuterSupportGap >= 0, "must not be negative"},
			{"minSupportArea", p.MinSupportArea, p.MinSupportArea >= 0, "must not be negative"},
			{"supportMergeArea", p.SupportMergeArea, p.SupportMergeArea >= 0, "must not be negative"},
			{"supportGridSpacing", p.SupportGridSpacing, p.SupportGridSpacing > 0, "must be positive"},
			{"supportGridSpacing", p.SupportGridSpacing, p.SupportGridSpacing >= p.MinStrutSpacing, "must not be below minStrutSpacing"},
			{"strutDiameter", p.StrutDiameter, p.StrutDiameter > 0 && p.StrutDiameter < p.SupportGridSpacing, "must be positive and below supportGridSpacing"},
			{"connectorHeight", p.ConnectorHeight, p.ConnectorHeight >= 0, "must not be negative"},
			{"perforationSize", p.PerforationSize, p.PerforationSize >= 0 && p.PerforationSize < p.SupportGridSpacing, "must be below supportGridSpacing"},
			{"supportHatchSpacing", p.SupportHatchSpacing, p.SupportHatchSpacing > 0, "must be positive"},
		}...)
	}

	for _, c := range checks {
		if !c.ok {
			return faults.NewParameterError(c.field, c.value, c.why)
		}
	}

	switch p.HatchStrategy {
	case StrategyAlternating, StrategyStripe, StrategyIsland:
	default:
		return faults.NewParameterError("hatchStrategy", p.HatchStrategy, "unknown strategy")
	}
	if p.NumInnerContours < 0 {
		return faults.NewParameterError("numInnerContours", p.NumInnerContours, "must not be negative")
	}
	if p.NumOuterContours < 0 {
		return faults.NewParameterError("numOuterContours", p.NumOuterContours, "must not be negative")
	}
	if p.GenerateSupports {
		switch p.SupportPrecision {
		case PrecisionExact, PrecisionApproximate, PrecisionAuto:
		default:
			return faults.NewParameterError("supportPrecision", p.SupportPrecision, "unknown precision")
		}
		switch p.SupportMode {
		case SupportTruss, SupportBlock:
		default:
			return faults.NewParameterError("supportMode", p.SupportMode, "unknown mode")
		}
	}
	return nil
}

// LayerAngle returns the hatch angle in degrees for a layer, in [0, 180)
func (p Parameters) LayerAngle(layerIndex int) float64 {
	angle := math.Mod(p.HatchAngle+float64(layerIndex)*p.HatchAngleIncrement, 180)
	if angle < 0 {
		angle += 180
	}
	return angle
}

// LayerHeights returns the slicing height of every layer from the platform
// up to top. Each layer is sliced at its mid plane.
func (p Parameters) LayerHeights(top float64) []float64 {
	var heights []float64
	for i := 0; ; i++ {
		z := p.PlatformZ + (float64(i)+0.5)*p.LayerThickness
		if z >= top {
			break
		}
		heights = append(heights, z)
	}
	return heights
}

// Fingerprint returns a stable hash of every field, used as a cache key
func (p Parameters) Fingerprint() uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%+v", p)
	return h.Sum64()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
