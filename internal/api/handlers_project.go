// handlers_project.go - Project CRUD handlers
package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/conveyor-designer/backend/internal/catalog"
	"github.com/conveyor-designer/backend/internal/frame"
	"github.com/conveyor-designer/backend/internal/models"
	"github.com/conveyor-designer/backend/internal/storage"
)

// ProjectHandlerImpl implements the ProjectHandler interface
type ProjectHandlerImpl struct {
	store         storage.ProjectStore
	sessions      SessionManager
	catalog       *catalog.Service
	allowDeletion bool
}

// NewProjectHandler creates a new project handler instance
func NewProjectHandler(store storage.ProjectStore, sessions SessionManager, cat *catalog.Service, allowDeletion bool) ProjectHandler {
	return &ProjectHandlerImpl{
		store:         store,
		sessions:      sessions,
		catalog:       cat,
		allowDeletion: allowDeletion,
	}
}

// HandleCreateProject creates a project from a name and an optional
// parameter set. Parameters are normalized before they are stored, so a
// project never persists off-grid or out-of-range values.
func (h *ProjectHandlerImpl) HandleCreateProject(c echo.Context) error {
	var req createProjectRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Name == "" {
		return NewValidationError("name")
	}

	params := models.DefaultParameters()
	if req.Params != nil {
		params = frame.Normalize(*req.Params)
	}

	project := models.NewProject(uuid.New().String(), req.Name, params)
	if err := h.store.CreateProject(c.Request().Context(), project); err != nil {
		return NewInternalError("failed to create project", err)
	}

	return c.JSON(http.StatusCreated, projectResponse{
		Project: *project,
		Derived: frame.Derive(params),
	})
}

// HandleListProjects returns all projects, most recently updated first
func (h *ProjectHandlerImpl) HandleListProjects(c echo.Context) error {
	projects, err := h.store.ListProjects(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to list projects", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"projects": projects,
		"total":    len(projects),
	})
}

// HandleGetProject returns one project with its derived dimensions
func (h *ProjectHandlerImpl) HandleGetProject(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	project, err := h.store.GetProject(c.Request().Context(), id)
	if err != nil {
		return NewNotFoundError("project", id)
	}

	return c.JSON(http.StatusOK, projectResponse{
		Project: *project,
		Derived: frame.Derive(project.Params),
	})
}

// HandleGetProjectBOM prices a project's persisted components without
// needing an open editing session. The store aggregates per catalog id;
// unit prices come from the live catalog.
func (h *ProjectHandlerImpl) HandleGetProjectBOM(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if _, err := h.store.GetProject(c.Request().Context(), id); err != nil {
		return NewNotFoundError("project", id)
	}
	tallies, err := h.store.ComponentTallies(c.Request().Context(), id)
	if err != nil {
		return NewInternalError("failed to aggregate components", err)
	}

	return c.JSON(http.StatusOK, models.PriceTallies(tallies, h.catalog.Catalog()))
}

// HandleRenameProject updates the name of a project and pushes the new
// name into any open editing sessions
func (h *ProjectHandlerImpl) HandleRenameProject(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var req renameProjectRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Name == "" {
		return NewValidationError("name")
	}

	project, err := h.store.GetProject(c.Request().Context(), id)
	if err != nil {
		return NewNotFoundError("project", id)
	}

	project.Name = req.Name
	project.UpdatedAt = time.Now().UTC()
	if err := h.store.UpdateProject(c.Request().Context(), project); err != nil {
		return NewInternalError("failed to rename project", err)
	}

	h.sessions.SyncProjectName(id, req.Name)

	return c.JSON(http.StatusOK, project)
}

// HandleDeleteProject deletes a project and its components. Deletion is
// disabled unless the server config allows it; open editing sessions on
// the project are closed first.
func (h *ProjectHandlerImpl) HandleDeleteProject(c echo.Context) error {
	if !h.allowDeletion {
		return NewForbiddenError("project deletion is disabled by server configuration")
	}

	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	closed := h.sessions.CloseForProject(id)

	if err := h.store.DeleteProject(c.Request().Context(), id); err != nil {
		return NewNotFoundError("project", id)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"deleted":        true,
		"id":             id,
		"closedSessions": closed,
	})
}

// Request/Response types

type createProjectRequest struct {
	Name   string                     `json:"name"`
	Params *models.GeometryParameters `json:"params,omitempty"`
}

type renameProjectRequest struct {
	Name string `json:"name"`
}

type projectResponse struct {
	Project models.Project         `json:"project"`
	Derived models.DerivedGeometry `json:"derived"`
}
