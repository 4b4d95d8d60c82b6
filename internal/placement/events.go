package placement

import (
	"sync"

	"github.com/conveyor-designer/backend/internal/geom"
)

// PointerEvent is one pointer sample, already projected into world space
// by the frontend.
type PointerEvent struct {
	Position geom.Vec3 `json:"position"`
}

// KeyEvent is a key press forwarded from the frontend while the scene
// has focus.
type KeyEvent struct {
	Key string `json:"key"`
}

// Dispatcher fans interaction events out to the handlers an active drag
// registers. Handlers live exactly as long as the drag: Attach returns a
// release closure, and releasing twice is a no-op, so a drag can never
// leave a listener behind or detach someone else's.
type Dispatcher struct {
	mu     sync.Mutex
	nextID int
	moves  map[int]func(PointerEvent)
	ups    map[int]func(PointerEvent)
	keys   map[int]func(KeyEvent)
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		moves: make(map[int]func(PointerEvent)),
		ups:   make(map[int]func(PointerEvent)),
		keys:  make(map[int]func(KeyEvent)),
	}
}

// Attach registers the drag's three handlers and returns the closure that
// detaches all of them.
func (d *Dispatcher) Attach(onMove, onUp func(PointerEvent), onKey func(KeyEvent)) func() {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.moves[id] = onMove
	d.ups[id] = onUp
	d.keys[id] = onKey
	d.mu.Unlock()

	released := false
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if released {
			return
		}
		released = true
		delete(d.moves, id)
		delete(d.ups, id)
		delete(d.keys, id)
	}
}

// PointerMove delivers a pointer sample to the attached handlers.
// Handlers run outside the dispatcher lock so they may re-enter it.
func (d *Dispatcher) PointerMove(e PointerEvent) {
	for _, h := range d.snapshotMoves() {
		h(e)
	}
}

// PointerUp delivers a pointer release to the attached handlers.
func (d *Dispatcher) PointerUp(e PointerEvent) {
	for _, h := range d.snapshotUps() {
		h(e)
	}
}

// KeyDown delivers a key press to the attached handlers.
func (d *Dispatcher) KeyDown(e KeyEvent) {
	for _, h := range d.snapshotKeys() {
		h(e)
	}
}

// HandlerCount reports the live registrations; zero whenever no drag is
// in flight.
func (d *Dispatcher) HandlerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.moves) + len(d.ups) + len(d.keys)
}

func (d *Dispatcher) snapshotMoves() []func(PointerEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]func(PointerEvent), 0, len(d.moves))
	for _, h := range d.moves {
		out = append(out, h)
	}
	return out
}

func (d *Dispatcher) snapshotUps() []func(PointerEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]func(PointerEvent), 0, len(d.ups))
	for _, h := range d.ups {
		out = append(out, h)
	}
	return out
}

func (d *Dispatcher) snapshotKeys() []func(KeyEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]func(KeyEvent), 0, len(d.keys))
	for _, h := range d.keys {
		out = append(out, h)
	}
	return out
}
