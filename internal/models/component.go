package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/conveyor-designer/backend/internal/geom"
)

// PlacedComponent is a catalog item committed to a slot. Position and
// Rotation are copied from the slot at commit time; SlotID records the
// binding, but occupancy is always derived by scanning these records
// against the live slot set.
type PlacedComponent struct {
	ID        string    `json:"id"`
	CatalogID string    `json:"catalogId"`
	Name      string    `json:"name"`
	Type      SlotType  `json:"type"`
	SlotID    string    `json:"slotId"`
	Position  geom.Vec3 `json:"position"`
	Rotation  geom.Quat `json:"rotation"`
	PlacedAt  time.Time `json:"placedAt"`
}

// Box is an axis-aligned bounding box in local model space (meters).
type Box struct {
	Min geom.Vec3 `json:"min"`
	Max geom.Vec3 `json:"max"`
}

func (b Box) Size() geom.Vec3 {
	return b.Max.Sub(b.Min)
}

func (b Box) Center() geom.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// DefaultBounds is the placeholder bounding box used when a payload or
// catalog item does not declare one: a 10 cm cube centered at the origin.
func DefaultBounds() Box {
	return Box{
		Min: geom.V(-0.05, -0.05, -0.05),
		Max: geom.V(0.05, 0.05, 0.05),
	}
}

// DragPayload is the serialized description of a palette item being
// dragged into the scene. It travels as a JSON text through the drag
// transport. Category names the slot type the item mounts to.
type DragPayload struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Category          string     `json:"category"`
	ModelReference    string     `json:"modelReference,omitempty"`
	OriginalReference string     `json:"originalReference,omitempty"`
	BoundingBox       *Box       `json:"boundingBox,omitempty"`
	Center            *geom.Vec3 `json:"center,omitempty"`
}

// ParseDragPayload decodes a payload text. ID and Category are required;
// every optional field missing from the text is filled with a safe default
// so downstream code never branches on nil.
func ParseDragPayload(text string) (DragPayload, error) {
	var p DragPayload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return DragPayload{}, fmt.Errorf("drag payload: %w", err)
	}
	if p.ID == "" {
		return DragPayload{}, fmt.Errorf("drag payload: missing id")
	}
	if p.Category == "" {
		return DragPayload{}, fmt.Errorf("drag payload: missing category")
	}
	if !SlotType(p.Category).Valid() {
		return DragPayload{}, fmt.Errorf("drag payload: unknown category %q", p.Category)
	}
	p.fillDefaults()
	return p, nil
}

func (p *DragPayload) fillDefaults() {
	if p.Name == "" {
		p.Name = p.ID
	}
	if p.BoundingBox == nil {
		b := DefaultBounds()
		p.BoundingBox = &b
	}
	if p.Center == nil {
		c := p.BoundingBox.Center()
		p.Center = &c
	}
}

// SlotType returns the slot family the payload mounts to. Payloads from
// ParseDragPayload always carry a valid category.
func (p DragPayload) SlotType() SlotType {
	return SlotType(p.Category)
}

// Encode serializes the payload back to its transport text.
func (p DragPayload) Encode() string {
	data, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(data)
}
