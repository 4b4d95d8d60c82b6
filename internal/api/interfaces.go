// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/conveyor-designer/backend/internal/models"
	"github.com/conveyor-designer/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// ProjectHandler handles project CRUD operations
type ProjectHandler interface {
	HandleCreateProject(c echo.Context) error
	HandleListProjects(c echo.Context) error
	HandleGetProject(c echo.Context) error
	HandleGetProjectBOM(c echo.Context) error
	HandleRenameProject(c echo.Context) error
	HandleDeleteProject(c echo.Context) error
}

// SessionHandler handles editing session operations
type SessionHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleCloseSession(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleUpdateParameters(c echo.Context) error
	HandleGetSlots(c echo.Context) error
	HandleGetSlotsMsgpack(c echo.Context) error
	HandleGetValidSlots(c echo.Context) error
	HandleResolveSlot(c echo.Context) error
	HandleGetBindings(c echo.Context) error
	HandleGetBOM(c echo.Context) error
	HandleExportLayout(c echo.Context) error
}

// ComponentHandler handles placed component operations
type ComponentHandler interface {
	HandleListComponents(c echo.Context) error
	HandleRenameComponent(c echo.Context) error
	HandleDeleteComponent(c echo.Context) error
}

// CatalogHandler handles part catalog operations
type CatalogHandler interface {
	HandleGetCatalog(c echo.Context) error
	HandleReloadCatalog(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the interface for editing session management
// This allows mocking in tests
type SessionManager interface {
	Create(ctx context.Context, projectID string) (*session.EditSession, error)
	Session(id string) (*session.EditSession, bool)
	Touch(id string) bool
	Close(id string) bool
	Count() int
	UpdateParameters(ctx context.Context, sessionID string, raw models.GeometryParameters) (*session.ParameterUpdate, error)
	RenameComponent(ctx context.Context, sessionID, componentID, name string) (models.PlacedComponent, error)
	RemoveComponent(ctx context.Context, sessionID, componentID string) error
	SyncProjectName(projectID, name string)
	CloseForProject(projectID string) int
}
