package frame

import (
	"math"

	"github.com/conveyor-designer/backend/internal/models"
)

// Parameter domain, millimeters. Bounds are multiples of the grid step so
// normalization is idempotent.
const (
	MinLengthMm    = 1000
	MaxLengthMm    = 20000
	MinBeltWidthMm = 300
	MaxBeltWidthMm = 1500
	GridStepMm     = 10

	// WidthMarginMm is the fixed margin the side rails and belt clearance
	// add to the nominal belt width.
	WidthMarginMm = 67
)

// Side guide and stop button spec limits.
const (
	minGuideHeightMm = 30
	maxGuideHeightMm = 400
	maxStopButtons   = 4
)

// variantOffsetMm returns the end casting length the frame family adds to
// the axis-to-axis length.
func variantOffsetMm(v models.Variant) float64 {
	switch v {
	case models.VariantCompact:
		return 40
	case models.VariantHeavy:
		return 120
	default:
		return 80
	}
}

// Normalize clamps a parameter set into the buildable domain: lengths snap
// to the grid step and clamp to their bounds, enum fields fall back to
// their defaults. Normalizing a normalized set changes nothing.
func Normalize(p models.GeometryParameters) models.GeometryParameters {
	p.LengthMm = snapMm(p.LengthMm, MinLengthMm, MaxLengthMm)
	p.BeltWidthMm = snapMm(p.BeltWidthMm, MinBeltWidthMm, MaxBeltWidthMm)
	if !p.Variant.Valid() {
		p.Variant = models.VariantStandard
	}
	if !p.Engine.Valid() {
		p.Engine = models.EngineEndDrive
	}

	p.SideGuides.HeightMm = snapMm(p.SideGuides.HeightMm, minGuideHeightMm, maxGuideHeightMm)
	p.SideGuides.Side = normalizeSide(p.SideGuides.Side, models.SideBoth)
	p.StopButtons.Side = normalizeSide(p.StopButtons.Side, models.SideMotor)
	p.StopButtons.Ends = normalizeEnds(p.StopButtons.Ends)
	if p.StopButtons.Count < 1 {
		p.StopButtons.Count = 1
	}
	if p.StopButtons.Count > maxStopButtons {
		p.StopButtons.Count = maxStopButtons
	}
	return p
}

// snapMm rounds to the grid step and clamps to [lo, hi]. Non-finite input
// collapses to a bound instead of poisoning derived values.
func snapMm(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	v = math.Round(v/GridStepMm) * GridStepMm
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func normalizeSide(s, fallback models.Side) models.Side {
	switch s {
	case models.SideMotor, models.SideOpposite, models.SideBoth:
		return s
	}
	return fallback
}

func normalizeEnds(e models.FrameEnd) models.FrameEnd {
	switch e {
	case models.EndInfeed, models.EndDischarge, models.EndBoth:
		return e
	}
	return models.EndDischarge
}

// Derive computes the overall frame dimensions for a parameter set. The
// set is normalized first, so Derive is total: any input yields a valid
// buildable geometry. Derived values are never persisted; callers
// recompute them whenever parameters change.
func Derive(p models.GeometryParameters) models.DerivedGeometry {
	p = Normalize(p)
	return models.DerivedGeometry{
		OverallLengthMm: p.LengthMm + variantOffsetMm(p.Variant),
		OverallWidthMm:  p.BeltWidthMm + WidthMarginMm,
	}
}
