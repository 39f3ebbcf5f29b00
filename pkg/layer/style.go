package layer

import (
	"math"

	"github.com/philipparndt/goslm/pkg/faults"
)

// StyleSettings are the beam parameters of a BuildStyle. A positive
// PointDistance selects point exposure: the beam dwells PointExposureTime at
// points PointDistance apart instead of moving continuously at Speed.
type StyleSettings struct {
	Power             float64 // W
	Speed             float64 // mm/s
	SpotSize          float64 // mm
	Focus             float64 // mm, offset from the working plane
	JumpSpeed         float64 // mm/s
	JumpDelay         float64 // µs
	PointDistance     float64 // mm
	PointExposureTime float64 // µs
}

// BuildStyle is an immutable named set of beam parameters. Vectors share
// styles by pointer.
type BuildStyle struct {
	id       string
	name     string
	settings StyleSettings
}

// NewBuildStyle validates and creates a style
func NewBuildStyle(id, name string, s StyleSettings) (*BuildStyle, error) {
	switch {
	case id == "":
		return nil, faults.NewParameterError("buildStyle.id", id, "must not be empty")
	case s.Power < 0:
		return nil, faults.NewParameterError("buildStyle.power", s.Power, "must not be negative")
	case s.Speed <= 0:
		return nil, faults.NewParameterError("buildStyle.speed", s.Speed, "must be positive")
	case s.SpotSize < 0:
		return nil, faults.NewParameterError("buildStyle.spotSize", s.SpotSize, "must not be negative")
	case math.IsNaN(s.Focus) || math.IsInf(s.Focus, 0):
		return nil, faults.NewParameterError("buildStyle.focus", s.Focus, "must be finite")
	case s.JumpSpeed < 0:
		return nil, faults.NewParameterError("buildStyle.jumpSpeed", s.JumpSpeed, "must not be negative")
	case s.JumpDelay < 0:
		return nil, faults.NewParameterError("buildStyle.jumpDelay", s.JumpDelay, "must not be negative")
	case s.PointDistance < 0:
		return nil, faults.NewParameterError("buildStyle.pointDistance", s.PointDistance, "must not be negative")
	case s.PointExposureTime < 0:
		return nil, faults.NewParameterError("buildStyle.pointExposureTime", s.PointExposureTime, "must not be negative")
	case s.PointDistance > 0 && s.PointExposureTime == 0:
		return nil, faults.NewParameterError("buildStyle.pointExposureTime", s.PointExposureTime, "must be positive with point exposure")
	}
	return &BuildStyle{id: id, name: name, settings: s}, nil
}

// ID identifies the style in the layer document
func (s *BuildStyle) ID() string { return s.id }

// Name is the human readable label
func (s *BuildStyle) Name() string { return s.name }

// Power is the beam power in W
func (s *BuildStyle) Power() float64 { return s.settings.Power }

// Speed is the continuous scan speed in mm/s
func (s *BuildStyle) Speed() float64 { return s.settings.Speed }

// SpotSize is the beam diameter in mm
func (s *BuildStyle) SpotSize() float64 { return s.settings.SpotSize }

// Focus is the focal offset from the working plane in mm
func (s *BuildStyle) Focus() float64 { return s.settings.Focus }

// JumpSpeed is the speed of beam-off moves in mm/s
func (s *BuildStyle) JumpSpeed() float64 { return s.settings.JumpSpeed }

// JumpDelay is the settle time after a jump in µs
func (s *BuildStyle) JumpDelay() float64 { return s.settings.JumpDelay }

// PointDistance is the spacing of exposure points in mm, zero when scanning
// continuously
func (s *BuildStyle) PointDistance() float64 { return s.settings.PointDistance }

// PointExposureTime is the dwell per exposure point in µs
func (s *BuildStyle) PointExposureTime() float64 { return s.settings.PointExposureTime }

// Settings returns a copy of all beam parameters
func (s *BuildStyle) Settings() StyleSettings { return s.settings }

// ScanSpeed is the average speed along a vector in mm/s. Point exposure
// advances one point distance per exposure time.
func (s *BuildStyle) ScanSpeed() float64 {
	if s.settings.PointDistance > 0 {
		return s.settings.PointDistance / (s.settings.PointExposureTime * 1e-6)
	}
	return s.settings.Speed
}

// Styles assigns a build style to every vector type
type Styles struct {
	Contour *BuildStyle
	Hatch   *BuildStyle
	Support *BuildStyle
}

// DefaultStyles returns typical parameters for a 316L steel build
func DefaultStyles() Styles {
	contour, _ := NewBuildStyle("contour", "Contour", StyleSettings{
		Power: 150, Speed: 700, SpotSize: 0.08, JumpSpeed: 5000, JumpDelay: 10,
	})
	hatch, _ := NewBuildStyle("hatch", "Core", StyleSettings{
		Power: 200, Speed: 1000, SpotSize: 0.08, JumpSpeed: 5000, JumpDelay: 10,
	})
	support, _ := NewBuildStyle("support", "Support", StyleSettings{
		Power: 120, Speed: 1200, SpotSize: 0.1, Focus: 1, JumpSpeed: 5000, JumpDelay: 10,
	})
	return Styles{Contour: contour, Hatch: hatch, Support: support}
}

// For returns the style of a vector type
func (s Styles) For(t VectorType) *BuildStyle {
	switch t {
	case TypeContour:
		return s.Contour
	case TypeSupport:
		return s.Support
	default:
		return s.Hatch
	}
}
