package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/conveyor-designer/backend/internal/geom"
)

// SlotType is the closed set of attachment slot families a frame exposes.
// Placement compatibility is checked against this type, never against the
// slot id string.
type SlotType string

const (
	SlotEngineMount SlotType = "engine_mount"
	SlotStopButton  SlotType = "stop_button"
	SlotSensor      SlotType = "sensor"
	SlotSideGuide   SlotType = "side_guide"
	SlotWheel       SlotType = "wheel"
	SlotFrameLeg    SlotType = "frame_leg"
)

// SlotTypes returns all slot types in generation order.
func SlotTypes() []SlotType {
	return []SlotType{
		SlotEngineMount,
		SlotStopButton,
		SlotSensor,
		SlotSideGuide,
		SlotWheel,
		SlotFrameLeg,
	}
}

func (t SlotType) Valid() bool {
	switch t {
	case SlotEngineMount, SlotStopButton, SlotSensor, SlotSideGuide, SlotWheel, SlotFrameLeg:
		return true
	}
	return false
}

// Slot is one typed attachment point on the derived frame. Position is in
// world units (meters); Normal is the mounting face normal and Up the
// component's up reference, both unit vectors.
type Slot struct {
	ID       string            `json:"id"`
	Type     SlotType          `json:"type"`
	Side     Side              `json:"side"`
	Index    int               `json:"index"`
	Position geom.Vec3         `json:"position"`
	Normal   geom.Vec3         `json:"normal"`
	Up       geom.Vec3         `json:"up"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// SlotID derives the stable slot identifier from its generation triple.
func SlotID(t SlotType, side Side, index int) string {
	return fmt.Sprintf("%s:%s:%d", t, side, index)
}

// Orientation returns the mounting rotation for the slot.
func (s Slot) Orientation() geom.Quat {
	return geom.QuatFromAxes(s.Normal, s.Up)
}

// ParseSlotID splits an id back into its triple. Diagnostic use only;
// placement logic always resolves the Slot and reads its fields.
func ParseSlotID(id string) (SlotType, Side, int, error) {
	parts := strings.Split(id, ":")
	if len(parts) != 3 {
		return "", "", 0, fmt.Errorf("malformed slot id: %q", id)
	}
	idx, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", "", 0, fmt.Errorf("malformed slot index in %q: %w", id, err)
	}
	t := SlotType(parts[0])
	if !t.Valid() {
		return "", "", 0, fmt.Errorf("unknown slot type in %q", id)
	}
	return t, Side(parts[1]), idx, nil
}
