// Package faults classifies failures of the slicing pipeline. Every error
// records the component that raised it and the build height it concerns.
package faults

import (
	"errors"
	"fmt"
	"math"
)

// Component names a pipeline stage
type Component string

// Pipeline stages that can fail
const (
	ComponentMesh    Component = "mesh"
	ComponentSlicer  Component = "slicer"
	ComponentContour Component = "contour"
	ComponentSupport Component = "support"
	ComponentParams  Component = "params"
)

// NoHeight marks errors that are not tied to a single build height
var NoHeight = math.NaN()

// Origin is embedded in every classified error
type Origin struct {
	Component Component
	Height    float64
}

// HasHeight reports whether the error concerns one build height
func (o Origin) HasHeight() bool {
	return !math.IsNaN(o.Height)
}

func (o Origin) prefix() string {
	if o.HasHeight() {
		return fmt.Sprintf("%s at z=%.4f", o.Component, o.Height)
	}
	return string(o.Component)
}

// GeometryError reports malformed or unprocessable geometry such as open
// loops, degenerate edge sets or non-manifold meshes
type GeometryError struct {
	Origin
	Reason string
	Err    error
}

// NewGeometryError creates a GeometryError
func NewGeometryError(component Component, height float64, reason string, err error) *GeometryError {
	return &GeometryError{Origin: Origin{Component: component, Height: height}, Reason: reason, Err: err}
}

func (e *GeometryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geometry error (%s): %s: %v", e.prefix(), e.Reason, e.Err)
	}
	return fmt.Sprintf("geometry error (%s): %s", e.prefix(), e.Reason)
}

func (e *GeometryError) Unwrap() error { return e.Err }

// ParameterError reports an out-of-range or inconsistent parameter
type ParameterError struct {
	Origin
	Field  string
	Value  any
	Reason string
}

// NewParameterError creates a ParameterError not tied to a height
func NewParameterError(field string, value any, reason string) *ParameterError {
	return &ParameterError{
		Origin: Origin{Component: ComponentParams, Height: NoHeight},
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("parameter error (%s): %s=%v: %s", e.prefix(), e.Field, e.Value, e.Reason)
}

// SupportGenerationError reports a failed support projection or boolean step
type SupportGenerationError struct {
	Origin
	Surface int
	Reason  string
	Err     error
}

// NewSupportError creates a SupportGenerationError for an overhang surface
func NewSupportError(height float64, surface int, reason string, err error) *SupportGenerationError {
	return &SupportGenerationError{
		Origin:  Origin{Component: ComponentSupport, Height: height},
		Surface: surface,
		Reason:  reason,
		Err:     err,
	}
}

func (e *SupportGenerationError) Error() string {
	msg := fmt.Sprintf("support error (%s, surface %d): %s", e.prefix(), e.Surface, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SupportGenerationError) Unwrap() error { return e.Err }

// LayerError records a layer excluded from the output
type LayerError struct {
	Index  int
	Height float64
	Err    error
}

func (e *LayerError) Error() string {
	return fmt.Sprintf("layer %d (z=%.4f) excluded: %v", e.Index, e.Height, e.Err)
}

func (e *LayerError) Unwrap() error { return e.Err }

// OriginOf extracts the component and height of a classified error
func OriginOf(err error) (Origin, bool) {
	var ge *GeometryError
	if errors.As(err, &ge) {
		return ge.Origin, true
	}
	var pe *ParameterError
	if errors.As(err, &pe) {
		return pe.Origin, true
	}
	var se *SupportGenerationError
	if errors.As(err, &se) {
		return se.Origin, true
	}
	return Origin{}, false
}

// Kind returns a short classification for logs and reports
func Kind(err error) string {
	var ge *GeometryError
	var pe *ParameterError
	var se *SupportGenerationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ge):
		return "geometry"
	case errors.As(err, &pe):
		return "parameter"
	case errors.As(err, &se):
		return "support"
	default:
		return "internal"
	}
}
