package params

import (
	"errors"
	"math"
	"testing"

	"github.com/philipparndt/goslm/pkg/faults"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default parameters should validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name  string
		field string
		edit  func(p *Parameters)
	}{
		{"zero spacing", "hatchSpacing", func(p *Parameters) { p.HatchSpacing = 0 }},
		{"nan angle", "hatchAngle", func(p *Parameters) { p.HatchAngle = math.NaN() }},
		{"stripe without width", "stripeWidth", func(p *Parameters) {
			p.HatchStrategy = StrategyStripe
			p.StripeWidth = 0
		}},
		{"flat overhang threshold", "overhangAngleThreshold", func(p *Parameters) { p.OverhangAngleThreshold = 90 }},
		{"grid below strut spacing", "supportGridSpacing", func(p *Parameters) { p.MinStrutSpacing = 3 }},
		{"negative contours", "numInnerContours", func(p *Parameters) { p.NumInnerContours = -1 }},
		{"unknown strategy", "hatchStrategy", func(p *Parameters) { p.HatchStrategy = "spiral" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.edit(&p)
			err := p.Validate()

			var pe *faults.ParameterError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ParameterError, got %v", err)
			}
			if pe.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, pe.Field)
			}
		})
	}
}

func TestSupportChecksSkippedWhenDisabled(t *testing.T) {
	p := Default()
	p.GenerateSupports = false
	p.OverhangAngleThreshold = 0
	if err := p.Validate(); err != nil {
		t.Errorf("support fields should be ignored without supports: %v", err)
	}
}

func TestLayerAngle(t *testing.T) {
	p := Default()
	p.HatchAngle = 10
	p.HatchAngleIncrement = 67

	tests := []struct {
		layer int
		want  float64
	}{
		{0, 10},
		{1, 77},
		{2, 144},
		{3, 31},
	}
	for _, tt := range tests {
		if got := p.LayerAngle(tt.layer); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("LayerAngle(%d) failed: expected %v, got %v", tt.layer, tt.want, got)
		}
	}
}

func TestLayerHeights(t *testing.T) {
	p := Default()
	p.LayerThickness = 0.5
	heights := p.LayerHeights(2)

	expected := []float64{0.25, 0.75, 1.25, 1.75}
	if len(heights) != len(expected) {
		t.Fatalf("expected %d heights, got %d", len(expected), len(heights))
	}
	for i := range expected {
		if math.Abs(heights[i]-expected[i]) > 1e-12 {
			t.Errorf("height %d: expected %v, got %v", i, expected[i], heights[i])
		}
	}
}

func TestFingerprintChangesWithParameters(t *testing.T) {
	a := Default()
	b := Default()
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical parameters must share a fingerprint")
	}
	b.HatchSpacing = 0.11
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("different parameters must not share a fingerprint")
	}
}
