package frame

import (
	"math"
	"reflect"
	"testing"

	"github.com/conveyor-designer/backend/internal/models"
)

func TestDeriveOverallDimensions(t *testing.T) {
	tests := []struct {
		name    string
		variant models.Variant
		wantLen float64
	}{
		{"compact", models.VariantCompact, 6040},
		{"standard", models.VariantStandard, 6080},
		{"heavy", models.VariantHeavy, 6120},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := models.DefaultParameters()
			p.LengthMm = 6000
			p.BeltWidthMm = 1200
			p.Variant = tt.variant

			d := Derive(p)
			if d.OverallLengthMm != tt.wantLen {
				t.Errorf("OverallLengthMm = %v, want %v", d.OverallLengthMm, tt.wantLen)
			}
			if d.OverallWidthMm != 1267 {
				t.Errorf("OverallWidthMm = %v, want 1267", d.OverallWidthMm)
			}
		})
	}
}

func TestDeriveRecomputesAfterEdit(t *testing.T) {
	p := models.DefaultParameters()
	p.LengthMm = 6000
	first := Derive(p)

	p.LengthMm = 8000
	second := Derive(p)
	if second.OverallLengthMm != 8080 {
		t.Errorf("after edit OverallLengthMm = %v, want 8080", second.OverallLengthMm)
	}
	if first.OverallLengthMm != 6080 {
		t.Errorf("first derivation mutated: %v", first.OverallLengthMm)
	}
}

func TestNormalizeClampsAndSnaps(t *testing.T) {
	tests := []struct {
		name     string
		length   float64
		want     float64
	}{
		{"below min", 50, MinLengthMm},
		{"above max", 99999, MaxLengthMm},
		{"off grid rounds down", 6004, 6000},
		{"off grid rounds up", 6006, 6010},
		{"on grid unchanged", 6000, 6000},
		{"nan collapses", math.NaN(), MinLengthMm},
		{"positive inf clamps", math.Inf(1), MaxLengthMm},
		{"negative inf clamps", math.Inf(-1), MinLengthMm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := models.DefaultParameters()
			p.LengthMm = tt.length
			if got := Normalize(p).LengthMm; got != tt.want {
				t.Errorf("LengthMm = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeEnumFallbacks(t *testing.T) {
	p := models.DefaultParameters()
	p.Variant = "titanium"
	p.Engine = "warp_drive"
	p.SideGuides.Side = "left"
	p.StopButtons.Ends = "middle"
	p.StopButtons.Count = 0

	n := Normalize(p)
	if n.Variant != models.VariantStandard {
		t.Errorf("Variant = %v", n.Variant)
	}
	if n.Engine != models.EngineEndDrive {
		t.Errorf("Engine = %v", n.Engine)
	}
	if n.SideGuides.Side != models.SideBoth {
		t.Errorf("SideGuides.Side = %v", n.SideGuides.Side)
	}
	if n.StopButtons.Ends != models.EndDischarge {
		t.Errorf("StopButtons.Ends = %v", n.StopButtons.Ends)
	}
	if n.StopButtons.Count != 1 {
		t.Errorf("StopButtons.Count = %v", n.StopButtons.Count)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []models.GeometryParameters{
		models.DefaultParameters(),
		{LengthMm: 3, BeltWidthMm: 1e8, Variant: "x", Engine: "y"},
		{LengthMm: 12345, BeltWidthMm: 777,
			Variant: models.VariantHeavy, Engine: models.EngineCenterDrive,
			StopButtons: models.StopButtonSpec{Enabled: true, Count: 99}},
	}
	for _, p := range inputs {
		once := Normalize(p)
		twice := Normalize(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("not idempotent:\nonce  %+v\ntwice %+v", once, twice)
		}
	}
}

func TestWorldConversion(t *testing.T) {
	d := models.DerivedGeometry{OverallLengthMm: 6080, OverallWidthMm: 1267}
	if got := d.WorldLength(); math.Abs(got-6.08) > 1e-12 {
		t.Errorf("WorldLength = %v", got)
	}
	if got := d.WorldWidth(); math.Abs(got-1.267) > 1e-12 {
		t.Errorf("WorldWidth = %v", got)
	}
}
