package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conveyor-designer/backend/internal/frame"
	"github.com/conveyor-designer/backend/internal/models"
	"github.com/conveyor-designer/backend/internal/placement"
	"github.com/conveyor-designer/backend/internal/storage"
)

// MaxSessions limits concurrent edit sessions to prevent memory exhaustion
const MaxSessions = 32

// SessionMaxAge is how long to keep idle sessions before cleanup
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow is how long to keep sessions that are actively being used
const SessionKeepAliveWindow = 5 * time.Minute

// persistTimeout bounds the write-through on drag commits, which run
// outside any request context.
const persistTimeout = 5 * time.Second

// shortID safely truncates an ID for logging (handles short IDs gracefully)
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// DragObserver receives drag lifecycle and slot regeneration events for
// one session. A websocket connection registers itself here; a later
// registration replaces the earlier one, so reconnects just take over the
// stream.
type DragObserver struct {
	OnPreview         func(placement.Ghost)
	OnPreviewReleased func(placement.Ghost)
	OnResult          func(placement.Notification)
	OnSlotsChanged    func(ParameterUpdate)
}

// EditSession binds one client to one project: the current parameter set,
// the slot generation derived from it, the placed components and the drag
// controller. Placed components are the authoritative live state; the
// project store mirrors them write-through.
type EditSession struct {
	ID        string
	ProjectID string
	CreatedAt time.Time

	View       *placement.SlotView
	Placed     *placement.Store
	Dispatcher *placement.Dispatcher
	Dragger    *placement.Dragger

	persist storage.ProjectStore

	mu      sync.RWMutex
	project *models.Project
	derived models.DerivedGeometry

	obsMu    sync.Mutex
	observer *DragObserver

	// LastAccessed is guarded by the manager's lock.
	LastAccessed time.Time
}

// SessionInfo is the API snapshot of a session.
type SessionInfo struct {
	ID             string                    `json:"id"`
	ProjectID      string                    `json:"projectId"`
	ProjectName    string                    `json:"projectName"`
	Params         models.GeometryParameters `json:"params"`
	Derived        models.DerivedGeometry    `json:"derived"`
	SlotCount      int                       `json:"slotCount"`
	ComponentCount int                       `json:"componentCount"`
	DragState      placement.DragState       `json:"dragState"`
	CreatedAt      time.Time                 `json:"createdAt"`
}

// ParameterUpdate is the result of applying a new parameter set: the
// normalized values, the regenerated slots and the bindings left pointing
// at slots that no longer exist. Dangling bindings are reported, never
// dropped; the client decides what to do with them.
type ParameterUpdate struct {
	Params   models.GeometryParameters `json:"params"`
	Derived  models.DerivedGeometry    `json:"derived"`
	Slots    []models.Slot             `json:"slots"`
	Dangling []models.PlacedComponent  `json:"danglingBindings"`
}

// Params returns the session's current normalized parameters.
func (s *EditSession) Params() models.GeometryParameters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.project.Params
}

// Derived returns the frame dimensions derived from the current parameters.
func (s *EditSession) Derived() models.DerivedGeometry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.derived
}

// Project returns a copy of the session's project record.
func (s *EditSession) Project() models.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.project
}

// Slots returns the current slot generation.
func (s *EditSession) Slots() []models.Slot {
	return s.View.Get()
}

// Dangling returns placed components whose bound slot is missing from the
// current generation.
func (s *EditSession) Dangling() []models.PlacedComponent {
	return s.Placed.DanglingBindings(s.View.Get())
}

// Info builds the API snapshot.
func (s *EditSession) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionInfo{
		ID:             s.ID,
		ProjectID:      s.ProjectID,
		ProjectName:    s.project.Name,
		Params:         s.project.Params,
		Derived:        s.derived,
		SlotCount:      len(s.View.Get()),
		ComponentCount: s.Placed.Len(),
		DragState:      s.Dragger.State(),
		CreatedAt:      s.CreatedAt,
	}
}

// SetObserver registers the drag event sink. Pass nil to detach.
func (s *EditSession) SetObserver(o *DragObserver) {
	s.obsMu.Lock()
	s.observer = o
	s.obsMu.Unlock()
}

// ClearObserver detaches o if it is still the registered sink and reports
// whether it was. A reconnecting client replaces the sink, so the old
// connection must not blindly detach on its way out.
func (s *EditSession) ClearObserver(o *DragObserver) bool {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	if s.observer != o {
		return false
	}
	s.observer = nil
	return true
}

func (s *EditSession) currentObserver() *DragObserver {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	return s.observer
}

func (s *EditSession) previewChanged(g placement.Ghost) {
	if o := s.currentObserver(); o != nil && o.OnPreview != nil {
		o.OnPreview(g)
	}
}

func (s *EditSession) previewReleased(g placement.Ghost) {
	if o := s.currentObserver(); o != nil && o.OnPreviewReleased != nil {
		o.OnPreviewReleased(g)
	}
}

func (s *EditSession) slotsChanged(u ParameterUpdate) {
	if o := s.currentObserver(); o != nil && o.OnSlotsChanged != nil {
		o.OnSlotsChanged(u)
	}
}

func (s *EditSession) dragFinished(n placement.Notification) {
	if n.Outcome == placement.OutcomeCommitted && n.Component != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := s.persist.SaveComponent(ctx, s.ProjectID, *n.Component); err != nil {
			fmt.Printf("[Session %s] Failed to persist component %s: %v\n", shortID(s.ID), n.Component.ID, err)
		}
		cancel()
	}
	if o := s.currentObserver(); o != nil && o.OnResult != nil {
		o.OnResult(n)
	}
}

// Manager owns the active edit sessions.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*EditSession
	store     storage.ProjectStore
	gen       *frame.Generator
	tolerance float64
}

// NewManager creates a session manager backed by the given project store.
// tolerance is the snap tolerance in world units; 0 means the default.
func NewManager(store storage.ProjectStore, tolerance float64) *Manager {
	return &Manager{
		sessions:  make(map[string]*EditSession),
		store:     store,
		gen:       frame.NewGenerator(),
		tolerance: tolerance,
	}
}

// Create opens an edit session for a project: loads its record and
// persisted components, generates the slot set and wires up the drag
// controller.
func (m *Manager) Create(ctx context.Context, projectID string) (*EditSession, error) {
	m.cleanupOldSessionsIfNeeded()

	project, err := m.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	comps, err := m.store.Components(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading components: %w", err)
	}

	project.Params = frame.Normalize(project.Params)
	slots := m.gen.Generate(project.Params)

	sess := &EditSession{
		ID:         uuid.New().String(),
		ProjectID:  projectID,
		CreatedAt:  time.Now().UTC(),
		View:       placement.NewSlotView(slots),
		Placed:     placement.NewStore(comps),
		Dispatcher: placement.NewDispatcher(),
		persist:    m.store,
		project:    project,
		derived:    frame.Derive(project.Params),
	}
	sess.Dragger = placement.NewDragger(placement.DraggerConfig{
		Slots:             sess.View,
		Store:             sess.Placed,
		Dispatcher:        sess.Dispatcher,
		Tolerance:         m.tolerance,
		OnPreview:         sess.previewChanged,
		OnPreviewReleased: sess.previewReleased,
		Notify:            sess.dragFinished,
	})

	m.mu.Lock()
	sess.LastAccessed = time.Now()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	fmt.Printf("[Session %s] Opened project %s: %d slots, %d components\n",
		shortID(sess.ID), shortID(projectID), len(slots), sess.Placed.Len())
	return sess, nil
}

// Session returns a session by ID and marks it as accessed.
func (m *Manager) Session(id string) (*EditSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	sess.LastAccessed = time.Now()
	return sess, true
}

// Touch updates the LastAccessed timestamp for a session. Called on
// keepalive so an open but quiet client is not cleaned up.
func (m *Manager) Touch(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return false
	}
	sess.LastAccessed = time.Now()
	return true
}

// Close removes a session. In-flight drags are cancelled.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	sess.Dragger.Cancel()
	sess.SetObserver(nil)
	fmt.Printf("[Session %s] Closed\n", shortID(id))
	return true
}

// Count returns the number of active sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// UpdateParameters normalizes and applies a new parameter set: the project
// record is persisted first, then the slot set is regenerated and swapped
// in. Components bound to slots that vanished are reported as dangling.
func (m *Manager) UpdateParameters(ctx context.Context, sessionID string, raw models.GeometryParameters) (*ParameterUpdate, error) {
	sess, ok := m.Session(sessionID)
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}

	normalized := frame.Normalize(raw)
	derived := frame.Derive(normalized)
	slots := m.gen.Generate(normalized)

	sess.mu.RLock()
	project := *sess.project
	sess.mu.RUnlock()
	project.Params = normalized
	project.UpdatedAt = time.Now().UTC()

	if err := m.store.UpdateProject(ctx, &project); err != nil {
		return nil, fmt.Errorf("persisting parameters: %w", err)
	}

	sess.mu.Lock()
	*sess.project = project
	sess.derived = derived
	sess.mu.Unlock()
	sess.View.Set(slots)

	dangling := sess.Placed.DanglingBindings(slots)
	fmt.Printf("[Session %s] Parameters applied: D=%.0fmm R=%.0fmm, %d slots, %d dangling\n",
		shortID(sessionID), derived.OverallLengthMm, derived.OverallWidthMm, len(slots), len(dangling))

	update := ParameterUpdate{
		Params:   normalized,
		Derived:  derived,
		Slots:    slots,
		Dangling: dangling,
	}
	sess.slotsChanged(update)
	return &update, nil
}

// RenameComponent renames a placed component, write-through.
func (m *Manager) RenameComponent(ctx context.Context, sessionID, componentID, name string) (models.PlacedComponent, error) {
	sess, ok := m.Session(sessionID)
	if !ok {
		return models.PlacedComponent{}, fmt.Errorf("session not found: %s", sessionID)
	}
	if _, ok := sess.Placed.Get(componentID); !ok {
		return models.PlacedComponent{}, fmt.Errorf("component not found: %s", componentID)
	}
	if err := m.store.RenameComponent(ctx, sess.ProjectID, componentID, name); err != nil {
		return models.PlacedComponent{}, fmt.Errorf("persisting rename: %w", err)
	}
	c, _ := sess.Placed.Rename(componentID, name)
	return c, nil
}

// RemoveComponent deletes a placed component, write-through. The slot it
// occupied becomes free immediately.
func (m *Manager) RemoveComponent(ctx context.Context, sessionID, componentID string) error {
	sess, ok := m.Session(sessionID)
	if !ok {
		return fmt.Errorf("session not found: %s", sessionID)
	}
	if _, ok := sess.Placed.Get(componentID); !ok {
		return fmt.Errorf("component not found: %s", componentID)
	}
	if err := m.store.DeleteComponent(ctx, sess.ProjectID, componentID); err != nil {
		return fmt.Errorf("persisting delete: %w", err)
	}
	sess.Placed.Remove(componentID)
	return nil
}

// SyncProjectName pushes a project rename into any open session for it.
func (m *Manager) SyncProjectName(projectID, name string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sess := range m.sessions {
		if sess.ProjectID != projectID {
			continue
		}
		sess.mu.Lock()
		sess.project.Name = name
		sess.mu.Unlock()
	}
}

// CloseForProject removes all sessions editing a project. Called when the
// project is deleted.
func (m *Manager) CloseForProject(projectID string) int {
	m.mu.Lock()
	var doomed []*EditSession
	for id, sess := range m.sessions {
		if sess.ProjectID == projectID {
			doomed = append(doomed, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range doomed {
		sess.Dragger.Cancel()
		sess.SetObserver(nil)
		fmt.Printf("[Session %s] Closed: project %s deleted\n", shortID(sess.ID), shortID(projectID))
	}
	return len(doomed)
}

// cleanupOldSessionsIfNeeded removes the stalest idle sessions when at
// capacity.
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < MaxSessions {
		return
	}

	var oldestID string
	var oldest time.Time
	for id, sess := range m.sessions {
		if sess.Dragger.State() != placement.StateIdle {
			continue
		}
		if oldestID == "" || sess.LastAccessed.Before(oldest) {
			oldestID = id
			oldest = sess.LastAccessed
		}
	}
	if oldestID == "" {
		return
	}
	delete(m.sessions, oldestID)
	fmt.Printf("[Manager] Evicted session %s to stay under limit\n", shortID(oldestID))
}

// CleanupOldSessions removes sessions idle for longer than maxAge, but
// keeps sessions accessed within SessionKeepAliveWindow or with a drag in
// flight.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)

	for id, sess := range m.sessions {
		if sess.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if sess.Dragger.State() != placement.StateIdle {
			continue
		}
		if sess.LastAccessed.Before(cutoff) {
			delete(m.sessions, id)
			fmt.Printf("[Manager] Cleaned up aged session %s (last accessed %s ago)\n",
				shortID(id), time.Since(sess.LastAccessed).Round(time.Second))
		}
	}
}

// CleanupLoop runs the session janitor until the context is cancelled.
func (m *Manager) CleanupLoop(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupOldSessions(maxAge)
		}
	}
}
