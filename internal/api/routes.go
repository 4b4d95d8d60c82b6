// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/conveyor-designer/backend/internal/catalog"
	"github.com/conveyor-designer/backend/internal/session"
	"github.com/conveyor-designer/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store          storage.ProjectStore
	Sessions       *session.Manager
	Catalog        *catalog.Service
	AllowDeletion  bool
	Version        string
	WSMaxMessageKB int
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Project   ProjectHandler
	Session   SessionHandler
	Component ComponentHandler
	Catalog   CatalogHandler
	Socket    *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	socket := NewWebSocketHandler(deps.Sessions)
	if deps.WSMaxMessageKB > 0 {
		socket.maxMessageBytes = int64(deps.WSMaxMessageKB) * 1024
	}
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.Sessions, deps.Catalog),
		Project:   NewProjectHandler(deps.Store, deps.Sessions, deps.Catalog, deps.AllowDeletion),
		Session:   NewSessionHandler(deps.Sessions, deps.Catalog),
		Component: NewComponentHandler(deps.Sessions),
		Catalog:   NewCatalogHandler(deps.Catalog),
		Socket:    socket,
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health check
	e.GET("/health", handlers.Health.HandleHealth)
	e.GET("/api/health", handlers.Health.HandleHealth)

	// Project routes
	projectGroup := e.Group("/api/projects")
	projectGroup.POST("", handlers.Project.HandleCreateProject)
	projectGroup.GET("", handlers.Project.HandleListProjects)
	projectGroup.GET("/:id", handlers.Project.HandleGetProject)
	projectGroup.GET("/:id/bom", handlers.Project.HandleGetProjectBOM)
	projectGroup.PUT("/:id", handlers.Project.HandleRenameProject)
	projectGroup.DELETE("/:id", handlers.Project.HandleDeleteProject)

	// Editing session routes
	sessionGroup := e.Group("/api/sessions")
	sessionGroup.POST("", handlers.Session.HandleCreateSession)
	sessionGroup.GET("/:sessionId", handlers.Session.HandleGetSession)
	sessionGroup.DELETE("/:sessionId", handlers.Session.HandleCloseSession)
	sessionGroup.POST("/:sessionId/keepalive", handlers.Session.HandleSessionKeepAlive)
	sessionGroup.PUT("/:sessionId/parameters", handlers.Session.HandleUpdateParameters)
	sessionGroup.GET("/:sessionId/slots", handlers.Session.HandleGetSlots)
	sessionGroup.GET("/:sessionId/slots/msgpack", handlers.Session.HandleGetSlotsMsgpack)
	sessionGroup.GET("/:sessionId/slots/valid", handlers.Session.HandleGetValidSlots)
	sessionGroup.POST("/:sessionId/slots/nearest", handlers.Session.HandleResolveSlot)
	sessionGroup.GET("/:sessionId/bindings", handlers.Session.HandleGetBindings)
	sessionGroup.GET("/:sessionId/bom", handlers.Session.HandleGetBOM)
	sessionGroup.GET("/:sessionId/export/layout", handlers.Session.HandleExportLayout)

	// Placed component routes
	sessionGroup.GET("/:sessionId/components", handlers.Component.HandleListComponents)
	sessionGroup.PUT("/:sessionId/components/:componentId", handlers.Component.HandleRenameComponent)
	sessionGroup.DELETE("/:sessionId/components/:componentId", handlers.Component.HandleDeleteComponent)

	// Catalog routes
	catalogGroup := e.Group("/api/catalog")
	catalogGroup.GET("", handlers.Catalog.HandleGetCatalog)
	catalogGroup.POST("/reload", handlers.Catalog.HandleReloadCatalog)
}

// RegisterWebSocketRoutes registers WebSocket routes
func RegisterWebSocketRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/api/sessions/:sessionId/ws", handlers.Socket.HandleWebSocket)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler
}
