// handlers_session.go - Editing session handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/conveyor-designer/backend/internal/catalog"
	"github.com/conveyor-designer/backend/internal/frame"
	"github.com/conveyor-designer/backend/internal/geom"
	"github.com/conveyor-designer/backend/internal/models"
	"github.com/conveyor-designer/backend/internal/placement"
	"github.com/conveyor-designer/backend/internal/session"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessions SessionManager
	catalog  *catalog.Service
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(sessions SessionManager, catalogSvc *catalog.Service) SessionHandler {
	return &SessionHandlerImpl{
		sessions: sessions,
		catalog:  catalogSvc,
	}
}

// lookup resolves the sessionId path parameter to a live session
func (h *SessionHandlerImpl) lookup(c echo.Context) (*session.EditSession, error) {
	id := c.Param("sessionId")
	if id == "" {
		return nil, NewValidationError("sessionId")
	}
	sess, ok := h.sessions.Session(id)
	if !ok {
		return nil, NewNotFoundError("session", id)
	}
	return sess, nil
}

// HandleCreateSession opens an editing session on a project. The session
// loads the persisted components and generates the slot set for the
// project's current parameters.
func (h *SessionHandlerImpl) HandleCreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.ProjectID == "" {
		return NewValidationError("projectId")
	}

	sess, err := h.sessions.Create(c.Request().Context(), req.ProjectID)
	if err != nil {
		return NewNotFoundError("project", req.ProjectID)
	}

	return c.JSON(http.StatusCreated, sess.Info())
}

// HandleGetSession returns the current session snapshot
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess.Info())
}

// HandleCloseSession closes an editing session
func (h *SessionHandlerImpl) HandleCloseSession(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if ok := h.sessions.Close(id); !ok {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleSessionKeepAlive extends session lifetime for active editing
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if ok := h.sessions.Touch(id); !ok {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleUpdateParameters applies a new parameter set to the session. The
// values are normalized server-side; the response carries the values
// actually applied, the regenerated slots and any bindings left dangling.
func (h *SessionHandlerImpl) HandleUpdateParameters(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}

	var params models.GeometryParameters
	if err := c.Bind(&params); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	update, err := h.sessions.UpdateParameters(c.Request().Context(), sess.ID, params)
	if err != nil {
		return NewInternalError("failed to apply parameters", err)
	}

	return c.JSON(http.StatusOK, update)
}

// HandleGetSlots returns the session's slot set, optionally filtered by
// type, side and occupancy
func (h *SessionHandlerImpl) HandleGetSlots(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}

	slots, err := filterSlots(sess, c.QueryParam("type"), c.QueryParam("side"), c.QueryParam("free"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"slots": slots,
		"total": len(slots),
	})
}

// HandleGetSlotsMsgpack returns the slot set in MessagePack format. The
// 3D frontend polls this after parameter edits, where the slot count
// makes JSON noticeably heavier.
func (h *SessionHandlerImpl) HandleGetSlotsMsgpack(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}

	slots, err := filterSlots(sess, c.QueryParam("type"), c.QueryParam("side"), c.QueryParam("free"))
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(map[string]interface{}{
		"slots": slots,
		"total": len(slots),
	})
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleGetValidSlots returns the free slots a component of the given
// type may snap to. Occupancy is evaluated live against the session's
// placed components.
func (h *SessionHandlerImpl) HandleGetValidSlots(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}

	slotType := models.SlotType(c.QueryParam("type"))
	if !slotType.Valid() {
		return NewValidationError("type")
	}

	valid := placement.ValidSlots(slotType, sess.Slots(), sess.Placed.Components())

	return c.JSON(http.StatusOK, map[string]interface{}{
		"slots": valid,
		"total": len(valid),
	})
}

// HandleResolveSlot resolves a world position to the nearest free slot
// of the given type, the same query the drag controller runs per pointer
// sample. Clients use it to preview targets without opening a drag.
func (h *SessionHandlerImpl) HandleResolveSlot(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}

	var req resolveSlotRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if !req.Type.Valid() {
		return NewValidationError("type")
	}

	tolerance := req.Tolerance
	if tolerance <= 0 {
		tolerance = placement.DefaultSnapTolerance
	}

	candidates := placement.ValidSlots(req.Type, sess.Slots(), sess.Placed.Components())
	slot, ok := placement.NearestFreeSlot(req.Position, candidates, tolerance)

	resp := resolveSlotResponse{Resolved: ok}
	if ok {
		resp.Slot = &slot
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleGetBindings returns placed components whose bound slot is missing
// from the current slot generation
func (h *SessionHandlerImpl) HandleGetBindings(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}

	dangling := sess.Dangling()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"danglingBindings": dangling,
		"total":            len(dangling),
	})
}

// HandleGetBOM returns the bill of materials for the session's placed
// components, priced from the active catalog
func (h *SessionHandlerImpl) HandleGetBOM(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}

	bom := models.BuildBOM(sess.Placed.Components(), h.catalog.Catalog())
	return c.JSON(http.StatusOK, bom)
}

// HandleExportLayout exports the rig as layout XML for downstream tooling
func (h *SessionHandlerImpl) HandleExportLayout(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}

	project := sess.Project()
	data, err := frame.ExportLayout(&project, sess.Placed.Components())
	if err != nil {
		return NewInternalError("failed to export layout", err)
	}

	return c.Blob(http.StatusOK, "application/xml", data)
}

// filterSlots applies the optional type/side/free query filters
func filterSlots(sess *session.EditSession, typeParam, sideParam, freeParam string) ([]models.Slot, error) {
	slots := sess.Slots()

	if typeParam != "" {
		slotType := models.SlotType(typeParam)
		if !slotType.Valid() {
			return nil, NewValidationError("type")
		}
		slots = keepSlots(slots, func(s models.Slot) bool { return s.Type == slotType })
	}

	if sideParam != "" {
		side := models.Side(sideParam)
		slots = keepSlots(slots, func(s models.Slot) bool { return s.Side == side })
	}

	if freeParam == "true" {
		slots = keepSlots(slots, func(s models.Slot) bool { return !sess.Placed.SlotOccupied(s.ID) })
	}

	return slots, nil
}

func keepSlots(slots []models.Slot, keep func(models.Slot) bool) []models.Slot {
	out := make([]models.Slot, 0, len(slots))
	for _, s := range slots {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// Request/Response types

type createSessionRequest struct {
	ProjectID string `json:"projectId"`
}

type resolveSlotRequest struct {
	Position  geom.Vec3       `json:"position"`
	Type      models.SlotType `json:"type"`
	Tolerance float64         `json:"tolerance,omitempty"`
}

type resolveSlotResponse struct {
	Resolved bool         `json:"resolved"`
	Slot     *models.Slot `json:"slot,omitempty"`
}
