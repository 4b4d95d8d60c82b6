package models

// Variant selects the frame family. Heavier families carry longer end
// castings, which widens the overall length for the same axis distance.
type Variant string

const (
	VariantCompact  Variant = "compact"
	VariantStandard Variant = "standard"
	VariantHeavy    Variant = "heavy"
)

func (v Variant) Valid() bool {
	switch v {
	case VariantCompact, VariantStandard, VariantHeavy:
		return true
	}
	return false
}

// EngineType selects where the drive engine sits on the frame.
type EngineType string

const (
	EngineEndDrive    EngineType = "end_drive"
	EngineCenterDrive EngineType = "center_drive"
)

func (e EngineType) Valid() bool {
	return e == EngineEndDrive || e == EngineCenterDrive
}

// Side identifies a long side of the frame. Feature specs may use SideBoth
// to request generation on both sides; concrete slots always carry motor,
// opposite or center.
type Side string

const (
	SideMotor    Side = "motor"
	SideOpposite Side = "opposite"
	SideBoth     Side = "both"
	SideCenter   Side = "center"
)

// FrameEnd identifies a short end of the frame, in belt travel direction.
type FrameEnd string

const (
	EndInfeed    FrameEnd = "infeed"
	EndDischarge FrameEnd = "discharge"
	EndBoth      FrameEnd = "both"
)

// GeometryParameters is the user-editable parameter set of a rig. All
// lengths are millimeters. Derived dimensions are never stored here; they
// are recomputed on demand (see DerivedGeometry).
type GeometryParameters struct {
	LengthMm     float64        `json:"lengthMm"`    // axis-to-axis length L
	BeltWidthMm  float64        `json:"beltWidthMm"` // nominal belt width N
	Variant      Variant        `json:"variant"`
	Engine       EngineType     `json:"engine"`
	SideGuides   SideGuideSpec  `json:"sideGuides"`
	StopButtons  StopButtonSpec `json:"stopButtons"`
	SupportFrame SupportSpec    `json:"supportFrame"`
	Wheels       WheelSpec      `json:"wheels"`
}

// SideGuideSpec configures the adjustable side guides.
type SideGuideSpec struct {
	Enabled  bool    `json:"enabled"`
	HeightMm float64 `json:"heightMm"`
	Side     Side    `json:"side"`
}

// StopButtonSpec configures emergency stop buttons per frame end.
type StopButtonSpec struct {
	Enabled bool     `json:"enabled"`
	Count   int      `json:"count"` // buttons per selected end and side
	Ends    FrameEnd `json:"ends"`
	Side    Side     `json:"side"`
}

// SupportSpec configures the floor-standing support frame.
type SupportSpec struct {
	Enabled bool `json:"enabled"`
}

// WheelSpec configures castor wheels under the support feet.
type WheelSpec struct {
	Enabled bool `json:"enabled"`
}

// DefaultParameters returns the parameter set a fresh project starts with.
func DefaultParameters() GeometryParameters {
	return GeometryParameters{
		LengthMm:    6000,
		BeltWidthMm: 1200,
		Variant:     VariantStandard,
		Engine:      EngineEndDrive,
		SideGuides: SideGuideSpec{
			Enabled:  false,
			HeightMm: 100,
			Side:     SideBoth,
		},
		StopButtons: StopButtonSpec{
			Enabled: false,
			Count:   1,
			Ends:    EndDischarge,
			Side:    SideMotor,
		},
		SupportFrame: SupportSpec{Enabled: true},
		Wheels:       WheelSpec{Enabled: false},
	}
}

// DerivedGeometry holds dimensions computed from GeometryParameters.
// Values are millimeters, like the parameters they derive from.
type DerivedGeometry struct {
	OverallLengthMm float64 `json:"overallLengthMm"` // D = L + variant offset
	OverallWidthMm  float64 `json:"overallWidthMm"`  // R = N + frame margin
}

// WorldLength returns the overall length in world units (meters).
func (d DerivedGeometry) WorldLength() float64 {
	return d.OverallLengthMm * 0.001
}

// WorldWidth returns the overall width in world units (meters).
func (d DerivedGeometry) WorldWidth() float64 {
	return d.OverallWidthMm * 0.001
}
