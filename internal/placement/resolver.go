package placement

import (
	"math"
	"sync"

	"github.com/conveyor-designer/backend/internal/geom"
	"github.com/conveyor-designer/backend/internal/models"
)

// DefaultSnapTolerance is the pointer-to-slot snap distance in world
// units. A pointer exactly on the tolerance still snaps.
const DefaultSnapTolerance = 0.04

// tieEpsilon absorbs float noise in distance comparisons. Candidates
// closer together than this count as equidistant and the earlier-generated
// one wins.
const tieEpsilon = 1e-9

// ValidSlots returns the slots a component of type t may occupy right
// now: type matches and no placed component binds the slot id. Occupancy
// is evaluated against the placed set on every call; there is no cached
// occupied flag to go stale.
func ValidSlots(t models.SlotType, slots []models.Slot, placed []models.PlacedComponent) []models.Slot {
	occupied := make(map[string]bool, len(placed))
	for _, c := range placed {
		occupied[c.SlotID] = true
	}
	out := make([]models.Slot, 0, len(slots))
	for _, s := range slots {
		if s.Type != t || occupied[s.ID] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// NearestFreeSlot returns the candidate nearest to p, if it lies within
// tolerance (Euclidean, boundary inclusive). Ties keep the earliest
// candidate, so resolution is deterministic for symmetric layouts.
// Candidate counts are small; a linear scan is fine.
func NearestFreeSlot(p geom.Vec3, candidates []models.Slot, tolerance float64) (models.Slot, bool) {
	if tolerance <= 0 {
		tolerance = DefaultSnapTolerance
	}
	best := -1
	bestDist := math.Inf(1)
	for i, s := range candidates {
		d := p.Distance(s.Position)
		if d < bestDist-tieEpsilon {
			best = i
			bestDist = d
		}
	}
	if best < 0 || bestDist > tolerance+tieEpsilon {
		return models.Slot{}, false
	}
	return candidates[best], true
}

// FindSlot resolves a slot id against the live slot set.
func FindSlot(slots []models.Slot, id string) (models.Slot, bool) {
	for _, s := range slots {
		if s.ID == id {
			return s, true
		}
	}
	return models.Slot{}, false
}

// SlotView is the swappable snapshot of the generated slot sequence,
// shared between a session and its drag controller. The session replaces
// the whole sequence on every parameter edit; readers always see a
// complete generation, never a partial one.
type SlotView struct {
	mu    sync.RWMutex
	slots []models.Slot
}

func NewSlotView(slots []models.Slot) *SlotView {
	return &SlotView{slots: slots}
}

// Get returns the current generation. Callers must not mutate it.
func (v *SlotView) Get() []models.Slot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.slots
}

// Set swaps in a freshly generated sequence.
func (v *SlotView) Set(slots []models.Slot) {
	v.mu.Lock()
	v.slots = slots
	v.mu.Unlock()
}
