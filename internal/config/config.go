// Package config loads build settings from YAML and turns them into the
// immutable parameter and style structures used by the pipeline.
package config

import (
	"github.com/philipparndt/goslm/internal/logger"
	"github.com/philipparndt/goslm/pkg/geometry"
	"github.com/philipparndt/goslm/pkg/layer"
	"github.com/philipparndt/goslm/pkg/params"
	"github.com/philipparndt/goslm/pkg/stl"
	"github.com/philipparndt/goslm/pkg/support"
)

// Config holds all settings of a build.
type Config struct {
	Build   BuildConfig   `yaml:"build"`
	Hatch   HatchConfig   `yaml:"hatch"`
	Contour ContourConfig `yaml:"contour"`
	Support SupportConfig `yaml:"support"`
	Styles  StylesConfig  `yaml:"styles"`
	Logging LoggingConfig `yaml:"logging"`
}

// BuildConfig holds layer layout, part placement and run settings.
type BuildConfig struct {
	LayerThickness   float64    `yaml:"layer_thickness"`
	PlatformZ        float64    `yaml:"platform_z"`
	BuildAxis        [3]float64 `yaml:"build_axis"`
	MinVectorLength  float64    `yaml:"min_vector_length"`
	SpotCompensation float64    `yaml:"spot_compensation"`

	Rotation       [3]float64 `yaml:"rotation"` // Euler degrees
	Scale          float64    `yaml:"scale"`
	DropToPlatform bool       `yaml:"drop_to_platform"`

	Workers     int  `yaml:"workers"` // 0 = GOMAXPROCS
	FailFast    bool `yaml:"fail_fast"`
	CacheLayers int  `yaml:"cache_layers"` // per shard, 0 disables the memo
}

// HatchConfig holds infill settings.
type HatchConfig struct {
	Strategy       string  `yaml:"hatch_strategy"`
	Angle          float64 `yaml:"hatch_angle"`
	AngleIncrement float64 `yaml:"hatch_angle_increment"`
	Spacing        float64 `yaml:"hatch_spacing"`
	Offset         float64 `yaml:"hatch_offset"`
	StripeWidth    float64 `yaml:"stripe_width"`
	IslandWidth    float64 `yaml:"island_width"`
}

// ContourConfig holds contour pass settings.
type ContourConfig struct {
	NumOuter     int     `yaml:"num_outer_contours"`
	NumInner     int     `yaml:"num_inner_contours"`
	Offset       float64 `yaml:"contour_offset"`
	MiterLimit   float64 `yaml:"offset_miter_limit"`
	ArcTolerance float64 `yaml:"arc_tolerance"`
}

// SupportConfig holds overhang detection and support structure settings.
type SupportConfig struct {
	Enabled                 bool    `yaml:"generate"`
	OverhangAngleThreshold  float64 `yaml:"overhang_angle_threshold"`
	Precision               string  `yaml:"precision"`
	RayProjectionResolution float64 `yaml:"ray_projection_resolution"`
	InnerGap                float64 `yaml:"inner_support_gap"`
	OuterGap                float64 `yaml:"outer_support_gap"`
	MinArea                 float64 `yaml:"min_support_area"`
	MergeArea               float64 `yaml:"support_merge_area"`
	Mode                    string  `yaml:"mode"`
	GridSpacing             float64 `yaml:"support_grid_spacing"`
	MinStrutSpacing         float64 `yaml:"min_strut_spacing"`
	StrutDiameter           float64 `yaml:"strut_diameter"`
	ConnectorHeight         float64 `yaml:"connector_height"`
	PerforationSize         float64 `yaml:"perforation_size"`
	HatchSpacing            float64 `yaml:"support_hatch_spacing"`
	MeshCells               int     `yaml:"mesh_cells"` // marching cubes resolution of STL export
}

// StylesConfig holds the beam parameters per vector type.
type StylesConfig struct {
	Contour StyleConfig `yaml:"contour"`
	Hatch   StyleConfig `yaml:"hatch"`
	Support StyleConfig `yaml:"support"`
}

// StyleConfig is one build style.
type StyleConfig struct {
	ID                string  `yaml:"id"`
	Name              string  `yaml:"name"`
	Power             float64 `yaml:"power"`
	Speed             float64 `yaml:"speed"`
	SpotSize          float64 `yaml:"spot_size"`
	Focus             float64 `yaml:"focus"`
	JumpSpeed         float64 `yaml:"jump_speed"`
	JumpDelay         float64 `yaml:"jump_delay"`
	PointDistance     float64 `yaml:"point_distance"`
	PointExposureTime float64 `yaml:"point_exposure_time"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string            `yaml:"level"`
	File  logger.FileConfig `yaml:"file"`
}

// Default returns a Config matching params.Default and layer.DefaultStyles.
func Default() *Config {
	cfg := &Config{
		Logging: LoggingConfig{
			Level: "info",
			File:  logger.DefaultFileConfig(""),
		},
	}
	cfg.setParameters(params.Default())
	cfg.setStyles(layer.DefaultStyles())
	cfg.Support.MeshCells = support.DefaultMeshCells
	cfg.Build.Scale = 1
	return cfg
}

func (c *Config) setParameters(p params.Parameters) {
	c.Build.LayerThickness = p.LayerThickness
	c.Build.PlatformZ = p.PlatformZ
	c.Build.BuildAxis = [3]float64{p.BuildAxis.X, p.BuildAxis.Y, p.BuildAxis.Z}
	c.Build.MinVectorLength = p.MinVectorLength
	c.Build.SpotCompensation = p.SpotCompensation

	c.Hatch = HatchConfig{
		Strategy:       string(p.HatchStrategy),
		Angle:          p.HatchAngle,
		AngleIncrement: p.HatchAngleIncrement,
		Spacing:        p.HatchSpacing,
		Offset:         p.HatchOffset,
		StripeWidth:    p.StripeWidth,
		IslandWidth:    p.IslandWidth,
	}
	c.Contour = ContourConfig{
		NumOuter:     p.NumOuterContours,
		NumInner:     p.NumInnerContours,
		Offset:       p.ContourOffset,
		MiterLimit:   p.OffsetMiterLimit,
		ArcTolerance: p.ArcTolerance,
	}
	c.Support = SupportConfig{
		Enabled:                 p.GenerateSupports,
		OverhangAngleThreshold:  p.OverhangAngleThreshold,
		Precision:               string(p.SupportPrecision),
		RayProjectionResolution: p.RayProjectionResolution,
		InnerGap:                p.InnerSupportGap,
		OuterGap:                p.OuterSupportGap,
		MinArea:                 p.MinSupportArea,
		MergeArea:               p.SupportMergeArea,
		Mode:                    string(p.SupportMode),
		GridSpacing:             p.SupportGridSpacing,
		MinStrutSpacing:         p.MinStrutSpacing,
		StrutDiameter:           p.StrutDiameter,
		ConnectorHeight:         p.ConnectorHeight,
		PerforationSize:         p.PerforationSize,
		HatchSpacing:            p.SupportHatchSpacing,
		MeshCells:               c.Support.MeshCells,
	}
}

func (c *Config) setStyles(s layer.Styles) {
	style := func(b *layer.BuildStyle) StyleConfig {
		v := b.Settings()
		return StyleConfig{
			ID:                b.ID(),
			Name:              b.Name(),
			Power:             v.Power,
			Speed:             v.Speed,
			SpotSize:          v.SpotSize,
			Focus:             v.Focus,
			JumpSpeed:         v.JumpSpeed,
			JumpDelay:         v.JumpDelay,
			PointDistance:     v.PointDistance,
			PointExposureTime: v.PointExposureTime,
		}
	}
	c.Styles = StylesConfig{
		Contour: style(s.Contour),
		Hatch:   style(s.Hatch),
		Support: style(s.Support),
	}
}

// Parameters returns the validated process parameters.
func (c *Config) Parameters() (params.Parameters, error) {
	p := params.Parameters{
		HatchStrategy:       params.HatchStrategy(c.Hatch.Strategy),
		HatchAngle:          c.Hatch.Angle,
		HatchAngleIncrement: c.Hatch.AngleIncrement,
		HatchSpacing:        c.Hatch.Spacing,
		StripeWidth:         c.Hatch.StripeWidth,
		IslandWidth:         c.Hatch.IslandWidth,

		NumOuterContours: c.Contour.NumOuter,
		NumInnerContours: c.Contour.NumInner,
		ContourOffset:    c.Contour.Offset,
		HatchOffset:      c.Hatch.Offset,
		OffsetMiterLimit: c.Contour.MiterLimit,
		ArcTolerance:     c.Contour.ArcTolerance,

		SpotCompensation: c.Build.SpotCompensation,
		MinVectorLength:  c.Build.MinVectorLength,

		LayerThickness: c.Build.LayerThickness,
		PlatformZ:      c.Build.PlatformZ,
		BuildAxis:      geometry.NewVector3(c.Build.BuildAxis[0], c.Build.BuildAxis[1], c.Build.BuildAxis[2]),

		GenerateSupports:        c.Support.Enabled,
		OverhangAngleThreshold:  c.Support.OverhangAngleThreshold,
		SupportPrecision:        params.SupportPrecision(c.Support.Precision),
		RayProjectionResolution: c.Support.RayProjectionResolution,
		InnerSupportGap:         c.Support.InnerGap,
		OuterSupportGap:         c.Support.OuterGap,
		MinSupportArea:          c.Support.MinArea,
		SupportMergeArea:        c.Support.MergeArea,
		SupportMode:             params.SupportMode(c.Support.Mode),
		SupportGridSpacing:      c.Support.GridSpacing,
		MinStrutSpacing:         c.Support.MinStrutSpacing,
		StrutDiameter:           c.Support.StrutDiameter,
		ConnectorHeight:         c.Support.ConnectorHeight,
		PerforationSize:         c.Support.PerforationSize,
		SupportHatchSpacing:     c.Support.HatchSpacing,
	}
	if err := p.Validate(); err != nil {
		return params.Parameters{}, err
	}
	return p, nil
}

// BuildStyles creates the build styles. Styles are validated on creation.
func (c *Config) BuildStyles() (layer.Styles, error) {
	build := func(s StyleConfig) (*layer.BuildStyle, error) {
		return layer.NewBuildStyle(s.ID, s.Name, layer.StyleSettings{
			Power:             s.Power,
			Speed:             s.Speed,
			SpotSize:          s.SpotSize,
			Focus:             s.Focus,
			JumpSpeed:         s.JumpSpeed,
			JumpDelay:         s.JumpDelay,
			PointDistance:     s.PointDistance,
			PointExposureTime: s.PointExposureTime,
		})
	}
	contour, err := build(c.Styles.Contour)
	if err != nil {
		return layer.Styles{}, err
	}
	hatch, err := build(c.Styles.Hatch)
	if err != nil {
		return layer.Styles{}, err
	}
	support, err := build(c.Styles.Support)
	if err != nil {
		return layer.Styles{}, err
	}
	return layer.Styles{Contour: contour, Hatch: hatch, Support: support}, nil
}

// Transform returns the part placement.
func (c *Config) Transform() stl.Transform {
	return stl.Transform{
		Rotation:   geometry.NewVector3(c.Build.Rotation[0], c.Build.Rotation[1], c.Build.Rotation[2]),
		Scale:      c.Build.Scale,
		Drop:       c.Build.DropToPlatform,
		DropHeight: c.Build.PlatformZ,
	}
}
