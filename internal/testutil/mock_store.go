// mock_store.go - In-memory project store for testing
package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/conveyor-designer/backend/internal/models"
	"github.com/conveyor-designer/backend/internal/storage"
)

// MockProjectStore implements storage.ProjectStore in memory.
type MockProjectStore struct {
	mu         sync.RWMutex
	projects   map[string]*models.Project
	components map[string][]models.PlacedComponent // projectID -> placement order
}

// NewMockProjectStore creates an empty mock store.
func NewMockProjectStore() *MockProjectStore {
	return &MockProjectStore{
		projects:   make(map[string]*models.Project),
		components: make(map[string][]models.PlacedComponent),
	}
}

func (m *MockProjectStore) CreateProject(_ context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.projects[p.ID]; exists {
		return errors.New("project already exists")
	}
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *MockProjectStore) GetProject(_ context.Context, id string) (*models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[id]
	if !ok {
		return nil, errors.New("project not found")
	}
	cp := *p
	return &cp, nil
}

func (m *MockProjectStore) ListProjects(_ context.Context) ([]models.ProjectSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]models.ProjectSummary, 0, len(m.projects))
	for _, p := range m.projects {
		summaries = append(summaries, models.ProjectSummary{
			ID:             p.ID,
			Name:           p.Name,
			CreatedAt:      p.CreatedAt,
			UpdatedAt:      p.UpdatedAt,
			ComponentCount: len(m.components[p.ID]),
		})
	}
	return summaries, nil
}

func (m *MockProjectStore) UpdateProject(_ context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[p.ID]; !ok {
		return errors.New("project not found")
	}
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *MockProjectStore) DeleteProject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[id]; !ok {
		return errors.New("project not found")
	}
	delete(m.projects, id)
	delete(m.components, id)
	return nil
}

func (m *MockProjectStore) Components(_ context.Context, projectID string) ([]models.PlacedComponent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	comps := make([]models.PlacedComponent, len(m.components[projectID]))
	copy(comps, m.components[projectID])
	return comps, nil
}

func (m *MockProjectStore) ComponentTallies(_ context.Context, projectID string) ([]models.ComponentTally, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tallies := make([]models.ComponentTally, 0)
	index := make(map[string]int)
	for _, c := range m.components[projectID] {
		i, ok := index[c.CatalogID]
		if !ok {
			index[c.CatalogID] = len(tallies)
			tallies = append(tallies, models.ComponentTally{CatalogID: c.CatalogID, Name: c.Name})
			i = index[c.CatalogID]
		}
		tallies[i].Quantity++
	}
	return tallies, nil
}

func (m *MockProjectStore) SaveComponent(_ context.Context, projectID string, c models.PlacedComponent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.components[projectID] {
		if existing.ID == c.ID {
			return errors.New("component already exists")
		}
	}
	m.components[projectID] = append(m.components[projectID], c)
	return nil
}

func (m *MockProjectStore) RenameComponent(_ context.Context, projectID, componentID, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	comps := m.components[projectID]
	for i := range comps {
		if comps[i].ID == componentID {
			comps[i].Name = newName
			return nil
		}
	}
	return errors.New("component not found")
}

func (m *MockProjectStore) DeleteComponent(_ context.Context, projectID, componentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	comps := m.components[projectID]
	for i := range comps {
		if comps[i].ID == componentID {
			m.components[projectID] = append(comps[:i], comps[i+1:]...)
			return nil
		}
	}
	return errors.New("component not found")
}

func (m *MockProjectStore) Close() error {
	return nil
}

// Ensure MockProjectStore implements storage.ProjectStore
var _ storage.ProjectStore = (*MockProjectStore)(nil)

// Test Helper Methods

// AddProject adds a project directly to the mock.
func (m *MockProjectStore) AddProject(p *models.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.projects[p.ID] = &cp
}

// ProjectCount returns the number of stored projects.
func (m *MockProjectStore) ProjectCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.projects)
}

// ComponentCount returns the number of stored components for a project.
func (m *MockProjectStore) ComponentCount(projectID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.components[projectID])
}

// Clear removes all projects and components.
func (m *MockProjectStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects = make(map[string]*models.Project)
	m.components = make(map[string][]models.PlacedComponent)
}
