// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/conveyor-designer/backend/internal/catalog"
	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	sessions SessionManager
	catalog  *catalog.Service
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, sessions SessionManager, catalogSvc *catalog.Service) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		sessions: sessions,
		catalog:  catalogSvc,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"version":  h.version,
		"sessions": h.sessions.Count(),
		"catalog":  h.catalog.Info(),
	})
}
