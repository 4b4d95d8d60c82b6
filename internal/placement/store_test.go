package placement

import (
	"testing"

	"github.com/conveyor-designer/backend/internal/frame"
	"github.com/conveyor-designer/backend/internal/models"
)

func TestStorePlaceAndConflict(t *testing.T) {
	slots := frame.Generate(rigParams())
	wheel := firstOfType(t, slots, models.SlotWheel)
	store := NewStore(nil)

	first := placedOn(wheel)
	if err := store.Place(first); err != nil {
		t.Fatalf("first placement failed: %v", err)
	}
	if !store.SlotOccupied(wheel.ID) {
		t.Error("slot not reported occupied")
	}

	second := placedOn(wheel)
	second.ID = "c-other"
	if err := store.Place(second); err == nil {
		t.Fatal("second placement on the same slot must fail")
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}

	dup := first
	if err := store.Place(dup); err == nil {
		t.Error("duplicate component id must fail")
	}
}

func TestStoreRemoveFreesSlot(t *testing.T) {
	slots := frame.Generate(rigParams())
	wheel := firstOfType(t, slots, models.SlotWheel)
	store := NewStore(nil)
	c := placedOn(wheel)
	if err := store.Place(c); err != nil {
		t.Fatal(err)
	}

	removed, ok := store.Remove(c.ID)
	if !ok || removed.ID != c.ID {
		t.Fatalf("Remove = %+v, %v", removed, ok)
	}
	if store.SlotOccupied(wheel.ID) {
		t.Error("slot still occupied after removal")
	}
	if err := store.Place(placedOn(wheel)); err != nil {
		t.Errorf("freed slot rejected a new placement: %v", err)
	}

	if _, ok := store.Remove("nope"); ok {
		t.Error("removing an unknown id reported success")
	}
}

func TestStoreComponentsOrder(t *testing.T) {
	slots := frame.Generate(rigParams())
	store := NewStore(nil)

	var want []string
	n := 0
	for _, s := range slots {
		if s.Type != models.SlotWheel || n >= 3 {
			continue
		}
		c := placedOn(s)
		if err := store.Place(c); err != nil {
			t.Fatal(err)
		}
		want = append(want, c.ID)
		n++
	}

	got := store.Components()
	if len(got) != len(want) {
		t.Fatalf("components = %d, want %d", len(got), len(want))
	}
	for i, c := range got {
		if c.ID != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, c.ID, want[i])
		}
	}
}

func TestStoreRename(t *testing.T) {
	slots := frame.Generate(rigParams())
	store := NewStore(nil)
	c := placedOn(firstOfType(t, slots, models.SlotSensor))
	if err := store.Place(c); err != nil {
		t.Fatal(err)
	}

	renamed, ok := store.Rename(c.ID, "Inspection eye")
	if !ok || renamed.Name != "Inspection eye" {
		t.Fatalf("Rename = %+v, %v", renamed, ok)
	}
	got, _ := store.Get(c.ID)
	if got.Name != "Inspection eye" {
		t.Error("rename not persisted in store")
	}
	if _, ok := store.Rename("nope", "x"); ok {
		t.Error("renaming an unknown id reported success")
	}
}

func TestStoreSeed(t *testing.T) {
	slots := frame.Generate(rigParams())
	a := placedOn(firstOfType(t, slots, models.SlotWheel))
	b := placedOn(firstOfType(t, slots, models.SlotSensor))

	store := NewStore([]models.PlacedComponent{a, b, a})
	if store.Len() != 2 {
		t.Errorf("seed Len = %d, want 2 (duplicate dropped)", store.Len())
	}
	if !store.SlotOccupied(a.SlotID) || !store.SlotOccupied(b.SlotID) {
		t.Error("seeded slots not occupied")
	}
}

func TestStoreDanglingBindings(t *testing.T) {
	p := rigParams()
	slots := frame.Generate(p)
	wheel := firstOfType(t, slots, models.SlotWheel)
	sensor := firstOfType(t, slots, models.SlotSensor)

	store := NewStore(nil)
	if err := store.Place(placedOn(wheel)); err != nil {
		t.Fatal(err)
	}
	if err := store.Place(placedOn(sensor)); err != nil {
		t.Fatal(err)
	}

	if d := store.DanglingBindings(slots); len(d) != 0 {
		t.Fatalf("dangling on live slots = %d, want 0", len(d))
	}

	// Disabling wheels regenerates the frame without wheel slots; the
	// wheel binding must surface, and only that one.
	p.Wheels.Enabled = false
	regenerated := frame.Generate(p)
	dangling := store.DanglingBindings(regenerated)
	if len(dangling) != 1 {
		t.Fatalf("dangling = %d, want 1", len(dangling))
	}
	if dangling[0].SlotID != wheel.ID {
		t.Errorf("dangling slot = %s, want %s", dangling[0].SlotID, wheel.ID)
	}
	// Reported, not removed.
	if store.Len() != 2 {
		t.Errorf("Len after report = %d, want 2", store.Len())
	}
}
