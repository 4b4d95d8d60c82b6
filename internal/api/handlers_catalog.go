// handlers_catalog.go - Part catalog handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/conveyor-designer/backend/internal/catalog"
)

// CatalogHandlerImpl implements the CatalogHandler interface
type CatalogHandlerImpl struct {
	catalog *catalog.Service
}

// NewCatalogHandler creates a new catalog handler instance
func NewCatalogHandler(catalogSvc *catalog.Service) CatalogHandler {
	return &CatalogHandlerImpl{catalog: catalogSvc}
}

// HandleGetCatalog returns the active part catalog. Each item carries the
// drag payload the frontend serializes into dragstart events.
func (h *CatalogHandlerImpl) HandleGetCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"catalog": h.catalog.Catalog(),
		"info":    h.catalog.Info(),
	})
}

// HandleReloadCatalog re-reads the catalog file. On a broken file the
// previous catalog stays active and the parse error is returned.
func (h *CatalogHandlerImpl) HandleReloadCatalog(c echo.Context) error {
	if err := h.catalog.Reload(); err != nil {
		return NewBadRequestError("catalog reload failed", err)
	}
	return c.JSON(http.StatusOK, h.catalog.Info())
}
