package faults

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestGeometryErrorCarriesOrigin(t *testing.T) {
	cause := errors.New("gap of 0.4mm")
	err := fmt.Errorf("slice: %w", NewGeometryError(ComponentSlicer, 2.5, "open loop", cause))

	origin, ok := OriginOf(err)
	if !ok {
		t.Fatal("OriginOf failed to find classified error")
	}
	if origin.Component != ComponentSlicer || origin.Height != 2.5 {
		t.Errorf("unexpected origin %+v", origin)
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable with errors.Is")
	}
	if Kind(err) != "geometry" {
		t.Errorf("Kind failed: got %q", Kind(err))
	}
	if !strings.Contains(err.Error(), "z=2.5000") {
		t.Errorf("message should contain the height: %s", err)
	}
}

func TestParameterErrorHasNoHeight(t *testing.T) {
	err := NewParameterError("hatchSpacing", -1.0, "must be positive")
	if err.HasHeight() {
		t.Error("parameter errors are not tied to a height")
	}
	if Kind(err) != "parameter" {
		t.Errorf("Kind failed: got %q", Kind(err))
	}
}

func TestLayerErrorUnwraps(t *testing.T) {
	inner := NewSupportError(1, 3, "projection failed", nil)
	err := &LayerError{Index: 4, Height: 1, Err: inner}

	var se *SupportGenerationError
	if !errors.As(err, &se) {
		t.Fatal("LayerError should unwrap to the support error")
	}
	if se.Surface != 3 {
		t.Errorf("unexpected surface %d", se.Surface)
	}
	if Kind(errors.New("boom")) != "internal" {
		t.Error("unclassified errors should be internal")
	}
}

func TestConstructorsStampComponent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Component
	}{
		{"parameter", NewParameterError("layerThickness", 0.0, "must be positive"), ComponentParams},
		{"support", NewSupportError(0.75, 1, "missing boundary", nil), ComponentSupport},
		{"mesh", NewGeometryError(ComponentMesh, NoHeight, "open edge", nil), ComponentMesh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origin, ok := OriginOf(tt.err)
			if !ok || origin.Component != tt.want {
				t.Errorf("expected component %q, got %+v", tt.want, origin)
			}
			if !strings.Contains(tt.err.Error(), "("+string(tt.want)) {
				t.Errorf("message should name the component: %s", tt.err)
			}
		})
	}
}
