package placement

import (
	"fmt"
	"sync"

	"github.com/conveyor-designer/backend/internal/models"
)

// Store holds the placed components of one editing session. It is
// created per session and seeded from persistence; nothing here is
// global. Slot occupancy is never stored: every check scans the live
// placements (see ValidSlots).
type Store struct {
	mu         sync.RWMutex
	components map[string]models.PlacedComponent
	order      []string // insertion order, for stable listings
}

// NewStore creates a store seeded with persisted placements.
func NewStore(seed []models.PlacedComponent) *Store {
	s := &Store{
		components: make(map[string]models.PlacedComponent, len(seed)),
		order:      make([]string, 0, len(seed)),
	}
	for _, c := range seed {
		if _, dup := s.components[c.ID]; dup {
			continue
		}
		s.components[c.ID] = c
		s.order = append(s.order, c.ID)
	}
	return s
}

// Components returns the placements in insertion order.
func (s *Store) Components() []models.PlacedComponent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PlacedComponent, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.components[id])
	}
	return out
}

// Get returns a placement by component id.
func (s *Store) Get(id string) (models.PlacedComponent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.components[id]
	return c, ok
}

// Len returns the number of placements.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.components)
}

// SlotOccupied reports whether any placement binds the slot id.
func (s *Store) SlotOccupied(slotID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.components {
		if c.SlotID == slotID {
			return true
		}
	}
	return false
}

// Place adds a committed component. A slot holds at most one component,
// so placing onto an occupied slot fails.
func (s *Store) Place(c models.PlacedComponent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.components[c.ID]; dup {
		return fmt.Errorf("component %s already placed", c.ID)
	}
	for _, existing := range s.components {
		if existing.SlotID == c.SlotID {
			return fmt.Errorf("slot %s is already occupied by %s", c.SlotID, existing.ID)
		}
	}
	s.components[c.ID] = c
	s.order = append(s.order, c.ID)
	return nil
}

// Remove deletes a placement and returns it.
func (s *Store) Remove(id string) (models.PlacedComponent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.components[id]
	if !ok {
		return models.PlacedComponent{}, false
	}
	delete(s.components, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return c, true
}

// Rename updates a placement's display name.
func (s *Store) Rename(id, name string) (models.PlacedComponent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.components[id]
	if !ok {
		return models.PlacedComponent{}, false
	}
	c.Name = name
	s.components[id] = c
	return c, true
}

// DanglingBindings returns the placements whose slot id does not resolve
// against the given slot set. After a parameter edit regenerates the
// slots, these are the components left pointing at geometry that no
// longer exists; they are reported, never silently dropped.
func (s *Store) DanglingBindings(slots []models.Slot) []models.PlacedComponent {
	live := make(map[string]bool, len(slots))
	for _, slot := range slots {
		live[slot.ID] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var dangling []models.PlacedComponent
	for _, id := range s.order {
		c := s.components[id]
		if !live[c.SlotID] {
			dangling = append(dangling, c)
		}
	}
	return dangling
}
