// handlers_components.go - Placed component handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ComponentHandlerImpl implements the ComponentHandler interface
type ComponentHandlerImpl struct {
	sessions SessionManager
}

// NewComponentHandler creates a new component handler instance
func NewComponentHandler(sessions SessionManager) ComponentHandler {
	return &ComponentHandlerImpl{sessions: sessions}
}

// HandleListComponents returns the session's placed components in
// placement order
func (h *ComponentHandlerImpl) HandleListComponents(c echo.Context) error {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		return NewValidationError("sessionId")
	}

	sess, ok := h.sessions.Session(sessionID)
	if !ok {
		return NewNotFoundError("session", sessionID)
	}

	components := sess.Placed.Components()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"components": components,
		"total":      len(components),
	})
}

// HandleRenameComponent updates the display name of a placed component.
// The new name is persisted before the in-memory state changes.
func (h *ComponentHandlerImpl) HandleRenameComponent(c echo.Context) error {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		return NewValidationError("sessionId")
	}
	componentID := c.Param("componentId")
	if componentID == "" {
		return NewValidationError("componentId")
	}

	var req renameComponentRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Name == "" {
		return NewValidationError("name")
	}

	sess, ok := h.sessions.Session(sessionID)
	if !ok {
		return NewNotFoundError("session", sessionID)
	}
	if _, ok := sess.Placed.Get(componentID); !ok {
		return NewNotFoundError("component", componentID)
	}

	component, err := h.sessions.RenameComponent(c.Request().Context(), sessionID, componentID, req.Name)
	if err != nil {
		return NewInternalError("failed to rename component", err)
	}

	return c.JSON(http.StatusOK, component)
}

// HandleDeleteComponent removes a placed component, freeing its slot
func (h *ComponentHandlerImpl) HandleDeleteComponent(c echo.Context) error {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		return NewValidationError("sessionId")
	}
	componentID := c.Param("componentId")
	if componentID == "" {
		return NewValidationError("componentId")
	}

	sess, ok := h.sessions.Session(sessionID)
	if !ok {
		return NewNotFoundError("session", sessionID)
	}
	if _, ok := sess.Placed.Get(componentID); !ok {
		return NewNotFoundError("component", componentID)
	}

	if err := h.sessions.RemoveComponent(c.Request().Context(), sessionID, componentID); err != nil {
		return NewInternalError("failed to delete component", err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Request/Response types

type renameComponentRequest struct {
	Name string `json:"name"`
}
