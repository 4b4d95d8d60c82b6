package placement

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conveyor-designer/backend/internal/geom"
	"github.com/conveyor-designer/backend/internal/models"
)

// DragState is the drag controller's observable state. Commit and cancel
// are transient: the controller lands back in idle within the same
// transition, so these three are the only values ever observed.
type DragState string

const (
	StateIdle      DragState = "idle"
	StateDragging  DragState = "dragging"
	StateTargeting DragState = "targeting"
)

// Outcome distinguishes how a drag ended. Every drag ends in exactly one
// of these, and each produces its own notification.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeNoTarget  Outcome = "no_target"
	OutcomeCancelled Outcome = "cancelled"
)

// Notification reports a finished drag to the session's sink.
type Notification struct {
	Outcome   Outcome                 `json:"outcome"`
	Payload   models.DragPayload      `json:"payload"`
	Component *models.PlacedComponent `json:"component,omitempty"` // set when committed
	Reason    string                  `json:"reason,omitempty"`
}

// Ghost is the preview shown on the hovered slot. It is an owned
// resource: the controller releases the current ghost before attaching a
// new one, so two previews never coexist.
type Ghost struct {
	SlotID   string    `json:"slotId"`
	Position geom.Vec3 `json:"position"`
	Rotation geom.Quat `json:"rotation"`
}

// DraggerConfig wires a drag controller into its session.
type DraggerConfig struct {
	Slots      *SlotView
	Store      *Store
	Dispatcher *Dispatcher
	Tolerance  float64 // snap tolerance in world units, 0 means default

	// Optional observers. OnPreviewReleased always fires before the next
	// OnPreview; Notify fires exactly once per finished drag.
	OnPreview         func(Ghost)
	OnPreviewReleased func(Ghost)
	Notify            func(Notification)
}

// Dragger runs the drag-to-place interaction for one session. It
// registers its pointer and key handlers on the dispatcher when a drag
// begins and releases them on every exit path, exactly once, so no
// handler outlives its drag.
type Dragger struct {
	slots      *SlotView
	store      *Store
	dispatcher *Dispatcher
	tolerance  float64

	onPreview         func(Ghost)
	onPreviewReleased func(Ghost)
	notify            func(Notification)

	mu      sync.Mutex
	state   DragState
	payload models.DragPayload
	hover   *models.Slot
	ghost   *Ghost
	release func()
}

func NewDragger(cfg DraggerConfig) *Dragger {
	tol := cfg.Tolerance
	if tol <= 0 {
		tol = DefaultSnapTolerance
	}
	return &Dragger{
		slots:             cfg.Slots,
		store:             cfg.Store,
		dispatcher:        cfg.Dispatcher,
		tolerance:         tol,
		onPreview:         cfg.OnPreview,
		onPreviewReleased: cfg.OnPreviewReleased,
		notify:            cfg.Notify,
		state:             StateIdle,
	}
}

// BeginDrag parses the payload text and starts a drag. A drag already in
// flight is cancelled first, with its own notification, before the new
// one attaches its handlers; duplicate registrations cannot happen.
func (d *Dragger) BeginDrag(payloadText string) error {
	payload, err := models.ParseDragPayload(payloadText)
	if err != nil {
		return err
	}

	d.mu.Lock()
	var calls []func()
	if d.state != StateIdle {
		calls = d.finishLocked(Notification{Outcome: OutcomeCancelled, Payload: d.payload, Reason: "superseded by new drag"})
	}
	d.payload = payload
	d.state = StateDragging
	d.release = d.dispatcher.Attach(d.handleMove, d.handleUp, d.handleKey)
	d.mu.Unlock()

	for _, c := range calls {
		c()
	}
	return nil
}

// Cancel aborts the drag in flight, leaving placements untouched.
func (d *Dragger) Cancel() {
	d.mu.Lock()
	if d.state == StateIdle {
		d.mu.Unlock()
		return
	}
	calls := d.finishLocked(Notification{Outcome: OutcomeCancelled, Payload: d.payload})
	d.mu.Unlock()

	for _, c := range calls {
		c()
	}
}

// State returns the current machine state.
func (d *Dragger) State() DragState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Hover returns the targeted slot while the machine is targeting.
func (d *Dragger) Hover() (models.Slot, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hover == nil {
		return models.Slot{}, false
	}
	return *d.hover, true
}

// Preview returns the live ghost, if any.
func (d *Dragger) Preview() (Ghost, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ghost == nil {
		return Ghost{}, false
	}
	return *d.ghost, true
}

// Payload returns the payload of the drag in flight.
func (d *Dragger) Payload() (models.DragPayload, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateIdle {
		return models.DragPayload{}, false
	}
	return d.payload, true
}

// handleMove re-resolves the target on every pointer sample: candidate
// slots are filtered by type and live occupancy, then the nearest within
// tolerance is picked. No hit drops back to plain dragging.
func (d *Dragger) handleMove(e PointerEvent) {
	d.mu.Lock()
	if d.state != StateDragging && d.state != StateTargeting {
		d.mu.Unlock()
		return
	}
	candidates := ValidSlots(d.payload.SlotType(), d.slots.Get(), d.store.Components())
	slot, ok := NearestFreeSlot(e.Position, candidates, d.tolerance)

	var calls []func()
	switch {
	case ok && d.ghost != nil && d.ghost.SlotID == slot.ID && d.ghost.Position == slot.Position:
		// Same target, preview stays. Refresh the hover copy in case
		// slot metadata changed under the same id.
		s := slot
		d.hover = &s
	case ok:
		calls = d.swapPreviewLocked(slot)
		s := slot
		d.hover = &s
		d.state = StateTargeting
	default:
		calls = d.dropPreviewLocked()
		d.hover = nil
		d.state = StateDragging
	}
	d.mu.Unlock()

	for _, c := range calls {
		c()
	}
}

// handleUp finishes the drag: commit on a live target, no-target
// otherwise. The target is re-validated against the live slot set and
// occupancy at commit time, so a slot that vanished or filled mid-drag
// fails the placement instead of corrupting it.
func (d *Dragger) handleUp(PointerEvent) {
	d.mu.Lock()
	if d.state == StateIdle {
		d.mu.Unlock()
		return
	}

	var n Notification
	if d.hover == nil {
		n = Notification{Outcome: OutcomeNoTarget, Payload: d.payload, Reason: "no slot in range"}
	} else if c, err := d.commitLocked(*d.hover); err != nil {
		n = Notification{Outcome: OutcomeNoTarget, Payload: d.payload, Reason: err.Error()}
	} else {
		n = Notification{Outcome: OutcomeCommitted, Payload: d.payload, Component: &c}
	}
	calls := d.finishLocked(n)
	d.mu.Unlock()

	for _, c := range calls {
		c()
	}
}

func (d *Dragger) handleKey(e KeyEvent) {
	if e.Key != "Escape" {
		return
	}
	d.Cancel()
}

// commitLocked places the payload onto the target slot, copying the
// slot's position and orientation at this moment.
func (d *Dragger) commitLocked(target models.Slot) (models.PlacedComponent, error) {
	slot, ok := FindSlot(d.slots.Get(), target.ID)
	if !ok {
		return models.PlacedComponent{}, fmt.Errorf("slot %s no longer exists", target.ID)
	}
	if slot.Type != d.payload.SlotType() {
		return models.PlacedComponent{}, fmt.Errorf("slot %s does not accept %s", slot.ID, d.payload.Category)
	}
	c := models.PlacedComponent{
		ID:        uuid.New().String(),
		CatalogID: d.payload.ID,
		Name:      d.payload.Name,
		Type:      slot.Type,
		SlotID:    slot.ID,
		Position:  slot.Position,
		Rotation:  slot.Orientation(),
		PlacedAt:  time.Now().UTC(),
	}
	if err := d.store.Place(c); err != nil {
		return models.PlacedComponent{}, err
	}
	return c, nil
}

// finishLocked is the single teardown path. Handlers detach exactly once,
// the preview releases before the notification fires, and the machine
// lands in idle. Observer calls are returned to run outside the lock.
func (d *Dragger) finishLocked(n Notification) []func() {
	if d.release != nil {
		d.release()
		d.release = nil
	}
	calls := d.dropPreviewLocked()
	d.hover = nil
	d.state = StateIdle
	d.payload = models.DragPayload{}
	if d.notify != nil {
		calls = append(calls, func() { d.notify(n) })
	}
	return calls
}

// swapPreviewLocked releases the current preview, then attaches the new
// one, in that order.
func (d *Dragger) swapPreviewLocked(slot models.Slot) []func() {
	calls := d.dropPreviewLocked()
	g := Ghost{SlotID: slot.ID, Position: slot.Position, Rotation: slot.Orientation()}
	d.ghost = &g
	if d.onPreview != nil {
		shown := g
		calls = append(calls, func() { d.onPreview(shown) })
	}
	return calls
}

func (d *Dragger) dropPreviewLocked() []func() {
	if d.ghost == nil {
		return nil
	}
	g := *d.ghost
	d.ghost = nil
	if d.onPreviewReleased == nil {
		return nil
	}
	return []func(){func() { d.onPreviewReleased(g) }}
}
