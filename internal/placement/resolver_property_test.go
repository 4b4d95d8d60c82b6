//go:build property
// +build property

package placement

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conveyor-designer/backend/internal/frame"
	"github.com/conveyor-designer/backend/internal/geom"
	"github.com/conveyor-designer/backend/internal/models"
)

// TestResolverProperties checks the resolver invariants against the full
// generated frame with random occupancy and pointer positions.
func TestResolverProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	slots := frame.Generate(rigParams())

	properties.Property("candidates match the type and are free", prop.ForAll(
		func(mask int, typIdx int) bool {
			typ := models.SlotTypes()[typIdx]
			var placed []models.PlacedComponent
			for i, s := range slots {
				if i < 30 && mask&(1<<uint(i)) != 0 {
					placed = append(placed, placedOn(s))
				}
			}
			occupied := make(map[string]bool, len(placed))
			for _, c := range placed {
				occupied[c.SlotID] = true
			}
			for _, s := range ValidSlots(typ, slots, placed) {
				if s.Type != typ || occupied[s.ID] {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 1<<30-1),
		gen.IntRange(0, len(models.SlotTypes())-1),
	))

	properties.Property("a snap hit is the nearest candidate inside tolerance", prop.ForAll(
		func(x, y, z float64) bool {
			p := geom.V(x, y, z)
			cands := ValidSlots(models.SlotWheel, slots, nil)
			s, ok := NearestFreeSlot(p, cands, DefaultSnapTolerance)
			if !ok {
				// A miss means nothing was clearly inside tolerance.
				for _, c := range cands {
					if p.Distance(c.Position) < DefaultSnapTolerance-1e-6 {
						return false
					}
				}
				return true
			}
			d := p.Distance(s.Position)
			if d > DefaultSnapTolerance+1e-6 {
				return false
			}
			// No candidate is clearly closer than the chosen one.
			for _, c := range cands {
				if p.Distance(c.Position) < d-1e-6 {
					return false
				}
			}
			return true
		},
		gen.Float64Range(-1, 7),
		gen.Float64Range(-1, 1),
		gen.Float64Range(-1, 1),
	))

	properties.Property("resolution is deterministic", prop.ForAll(
		func(x, y, z float64) bool {
			p := geom.V(x, y, z)
			cands := ValidSlots(models.SlotWheel, slots, nil)
			a, okA := NearestFreeSlot(p, cands, DefaultSnapTolerance)
			b, okB := NearestFreeSlot(p, cands, DefaultSnapTolerance)
			return okA == okB && a.ID == b.ID
		},
		gen.Float64Range(-1, 7),
		gen.Float64Range(-1, 1),
		gen.Float64Range(-1, 1),
	))

	properties.TestingRun(t)
}
