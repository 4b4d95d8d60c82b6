package frame

import (
	"fmt"
	"math"

	"github.com/conveyor-designer/backend/internal/geom"
	"github.com/conveyor-designer/backend/internal/models"
)

// Frame-local layout constants, millimeters. The frame spans x in [0, D]
// with the infeed at x=0, y=0 at the rail top (positive up), and z=0 on
// the belt centerline (motor side negative).
const (
	railHeightMm = 60 // side rail profile depth

	engineInsetMm = 150

	stopInsetMm   = 150
	stopSpacingMm = 200

	sensorZoneMm = 500

	guidePitchMm = 1000
	guideInsetMm = 200

	supportPitchMm = 1500 // max spacing for legs and wheels
	supportInsetMm = 250
)

const mmToWorld = 0.001

// slotRule generates all slots of one family for a parameter set.
// Rules run in a fixed order so the slot sequence is stable: two runs over
// equal parameters produce identical ids, positions and ordering.
type slotRule struct {
	typ      models.SlotType
	generate func(p models.GeometryParameters, d models.DerivedGeometry) []models.Slot
}

// Generator produces the ordered slot set for a parameter set.
type Generator struct {
	rules []slotRule
}

var defaultGenerator = NewGenerator()

func NewGenerator() *Generator {
	return &Generator{
		rules: []slotRule{
			{models.SlotEngineMount, engineMountSlots},
			{models.SlotStopButton, stopButtonSlots},
			{models.SlotSensor, sensorSlots},
			{models.SlotSideGuide, sideGuideSlots},
			{models.SlotWheel, wheelSlots},
			{models.SlotFrameLeg, frameLegSlots},
		},
	}
}

// Generate normalizes p, derives the frame dimensions and enumerates every
// attachment slot the configuration exposes. Disabled features contribute
// no slots; the gates are independent of each other.
func (g *Generator) Generate(p models.GeometryParameters) []models.Slot {
	p = Normalize(p)
	d := Derive(p)
	slots := make([]models.Slot, 0, 64)
	for _, r := range g.rules {
		slots = append(slots, r.generate(p, d)...)
	}
	return slots
}

// Generate runs the package default generator.
func Generate(p models.GeometryParameters) []models.Slot {
	return defaultGenerator.Generate(p)
}

// newSlot builds a slot from a frame-space position in millimeters.
func newSlot(t models.SlotType, side models.Side, index int, posMm, normal, up geom.Vec3, meta map[string]string) models.Slot {
	return models.Slot{
		ID:       models.SlotID(t, side, index),
		Type:     t,
		Side:     side,
		Index:    index,
		Position: posMm.Scale(mmToWorld),
		Normal:   normal,
		Up:       up,
		Meta:     meta,
	}
}

// expandSides resolves a spec side selection into concrete sides, motor
// side first.
func expandSides(s models.Side) []models.Side {
	switch s {
	case models.SideBoth:
		return []models.Side{models.SideMotor, models.SideOpposite}
	case models.SideOpposite:
		return []models.Side{models.SideOpposite}
	default:
		return []models.Side{models.SideMotor}
	}
}

// sideZ returns the z coordinate of a frame side face in millimeters.
func sideZ(side models.Side, widthMm float64) float64 {
	switch side {
	case models.SideOpposite:
		return widthMm / 2
	case models.SideCenter:
		return 0
	default:
		return -widthMm / 2
	}
}

// sideNormal returns the outward face normal of a frame side.
func sideNormal(side models.Side) geom.Vec3 {
	if side == models.SideOpposite {
		return geom.V(0, 0, 1)
	}
	return geom.V(0, 0, -1)
}

var worldUp = geom.V(0, 1, 0)

// engineMountSlots places the single drive engine mount: inside the
// discharge end for an end drive, mid-frame for a center drive, always on
// the motor side face.
func engineMountSlots(p models.GeometryParameters, d models.DerivedGeometry) []models.Slot {
	x := d.OverallLengthMm - engineInsetMm
	if p.Engine == models.EngineCenterDrive {
		x = d.OverallLengthMm / 2
	}
	pos := geom.V(x, -railHeightMm/2, sideZ(models.SideMotor, d.OverallWidthMm))
	return []models.Slot{
		newSlot(models.SlotEngineMount, models.SideMotor, 0,
			pos, sideNormal(models.SideMotor), worldUp,
			map[string]string{"engine": string(p.Engine)}),
	}
}

// stopButtonSlots places emergency stop buttons on the selected ends and
// sides, stepping inward from the end inset. Indices run per side in end
// order (infeed first) so ids stay stable when the count changes.
func stopButtonSlots(p models.GeometryParameters, d models.DerivedGeometry) []models.Slot {
	if !p.StopButtons.Enabled {
		return nil
	}
	var slots []models.Slot
	for _, side := range expandSides(p.StopButtons.Side) {
		index := 0
		z := sideZ(side, d.OverallWidthMm)
		for _, end := range expandEnds(p.StopButtons.Ends) {
			for j := 0; j < p.StopButtons.Count; j++ {
				offset := stopInsetMm + float64(j)*stopSpacingMm
				x := offset
				if end == models.EndDischarge {
					x = d.OverallLengthMm - offset
				}
				pos := geom.V(x, -railHeightMm/2, z)
				slots = append(slots, newSlot(models.SlotStopButton, side, index,
					pos, sideNormal(side), worldUp,
					map[string]string{"end": string(end)}))
				index++
			}
		}
	}
	return slots
}

func expandEnds(e models.FrameEnd) []models.FrameEnd {
	switch e {
	case models.EndBoth:
		return []models.FrameEnd{models.EndInfeed, models.EndDischarge}
	case models.EndInfeed:
		return []models.FrameEnd{models.EndInfeed}
	default:
		return []models.FrameEnd{models.EndDischarge}
	}
}

// sensorSlots places one sensor bracket per 500 mm zone along the
// motor-side rail, at the zone center. The last zone may be shorter; its
// sensor sits at the center of the remaining span. Zone labels land in
// slot meta for the frontend overlay.
func sensorSlots(_ models.GeometryParameters, d models.DerivedGeometry) []models.Slot {
	zones := int(math.Ceil(d.OverallLengthMm / sensorZoneMm))
	z := sideZ(models.SideMotor, d.OverallWidthMm)
	slots := make([]models.Slot, 0, zones)
	for k := 0; k < zones; k++ {
		start := float64(k) * sensorZoneMm
		end := math.Min(start+sensorZoneMm, d.OverallLengthMm)
		pos := geom.V((start+end)/2, -railHeightMm/2, z)
		slots = append(slots, newSlot(models.SlotSensor, models.SideMotor, k,
			pos, sideNormal(models.SideMotor), worldUp,
			map[string]string{"zone": fmt.Sprintf("Z%d", k+1)}))
	}
	return slots
}

// sideGuideSlots places guide brackets at a fixed pitch from the end
// inset, raised by the configured guide height above the rail top.
func sideGuideSlots(p models.GeometryParameters, d models.DerivedGeometry) []models.Slot {
	if !p.SideGuides.Enabled {
		return nil
	}
	count := int(math.Floor((d.OverallLengthMm-2*guideInsetMm)/guidePitchMm)) + 1
	var slots []models.Slot
	for _, side := range expandSides(p.SideGuides.Side) {
		z := sideZ(side, d.OverallWidthMm)
		outward := sideNormal(side)
		for k := 0; k < count; k++ {
			pos := geom.V(guideInsetMm+float64(k)*guidePitchMm, p.SideGuides.HeightMm, z)
			slots = append(slots, newSlot(models.SlotSideGuide, side, k,
				pos, worldUp, outward, nil))
		}
	}
	return slots
}

// supportPositions spaces mounts evenly between the end insets so the
// pitch never exceeds the maximum and both ends are always covered.
func supportPositions(lengthMm float64) []float64 {
	span := lengthMm - 2*supportInsetMm
	n := int(math.Ceil(span/supportPitchMm)) + 1
	if n < 2 {
		n = 2
	}
	step := span / float64(n-1)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = supportInsetMm + float64(i)*step
	}
	return xs
}

// wheelSlots places castor wheel mounts under both long edges.
func wheelSlots(p models.GeometryParameters, d models.DerivedGeometry) []models.Slot {
	if !p.Wheels.Enabled {
		return nil
	}
	return underslungSlots(models.SlotWheel, d)
}

// frameLegSlots places support leg mounts under both long edges, using
// the same spacing rule as wheels.
func frameLegSlots(p models.GeometryParameters, d models.DerivedGeometry) []models.Slot {
	if !p.SupportFrame.Enabled {
		return nil
	}
	return underslungSlots(models.SlotFrameLeg, d)
}

func underslungSlots(t models.SlotType, d models.DerivedGeometry) []models.Slot {
	xs := supportPositions(d.OverallLengthMm)
	down := geom.V(0, -1, 0)
	along := geom.V(1, 0, 0)
	slots := make([]models.Slot, 0, 2*len(xs))
	for _, side := range []models.Side{models.SideMotor, models.SideOpposite} {
		z := sideZ(side, d.OverallWidthMm)
		for i, x := range xs {
			pos := geom.V(x, -railHeightMm, z)
			slots = append(slots, newSlot(t, side, i, pos, down, along, nil))
		}
	}
	return slots
}
