package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/conveyor-designer/backend/internal/catalog"
	"github.com/conveyor-designer/backend/internal/models"
	"github.com/conveyor-designer/backend/internal/placement"
	"github.com/conveyor-designer/backend/internal/session"
	"github.com/conveyor-designer/backend/internal/testutil"
)

func TestProjectEditingFlow(t *testing.T) {
	e := echo.New()

	store := testutil.NewMockProjectStore()
	manager := session.NewManager(store, 0)
	handlers := NewHandlers(&Dependencies{
		Store:         store,
		Sessions:      manager,
		Catalog:       catalog.NewService(""),
		AllowDeletion: true,
		Version:       "test",
	})

	// 1. Create a project with default parameters
	req := jsonRequest(http.MethodPost, "/api/projects", createProjectRequest{Name: "Assembly line"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if assert.NoError(t, handlers.Project.HandleCreateProject(c)) {
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"overallLengthMm":6080`)
		assert.Contains(t, rec.Body.String(), `"overallWidthMm":1267`)
	}

	var created projectResponse
	assert.NoError(t, jsonDecode(rec, &created))
	projectID := created.Project.ID

	// 2. Open an editing session on it
	req = jsonRequest(http.MethodPost, "/api/sessions", createSessionRequest{ProjectID: projectID})
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	if assert.NoError(t, handlers.Session.HandleCreateSession(c)) {
		assert.Equal(t, http.StatusCreated, rec.Code)
	}

	var info session.SessionInfo
	assert.NoError(t, jsonDecode(rec, &info))
	assert.NotZero(t, info.SlotCount)

	// 3. Health reflects the open session
	req = jsonRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	if assert.NoError(t, handlers.Health.HandleHealth(c)) {
		assert.Contains(t, rec.Body.String(), `"sessions":1`)
		assert.Contains(t, rec.Body.String(), `"version":"test"`)
	}

	// 4. Commit a placement through the session's drag controller
	sess, ok := manager.Session(info.ID)
	assert.True(t, ok)

	var sensorSlot models.Slot
	for _, s := range sess.Slots() {
		if s.Type == models.SlotSensor {
			sensorSlot = s
			break
		}
	}
	assert.NotEmpty(t, sensorSlot.ID)

	assert.NoError(t, sess.Dragger.BeginDrag(sensorPayloadJSON))
	sess.Dispatcher.PointerMove(placement.PointerEvent{Position: sensorSlot.Position})
	sess.Dispatcher.PointerUp(placement.PointerEvent{Position: sensorSlot.Position})
	assert.Equal(t, 1, sess.Placed.Len())
	assert.Equal(t, 1, store.ComponentCount(projectID))

	// 5. The BOM prices the placement from the catalog
	req = jsonRequest(http.MethodGet, "/api/sessions/"+info.ID+"/bom", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetPath("/api/sessions/:sessionId/bom")
	c.SetParamNames("sessionId")
	c.SetParamValues(info.ID)
	if assert.NoError(t, handlers.Session.HandleGetBOM(c)) {
		assert.Contains(t, rec.Body.String(), `"catalogId":"sensor-photo"`)
		assert.Contains(t, rec.Body.String(), `"quantity":1`)
		assert.Contains(t, rec.Body.String(), `"total":45`)
	}

	// 6. Deleting the project closes the session with it
	req = jsonRequest(http.MethodDelete, "/api/projects/"+projectID, nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetPath("/api/projects/:id")
	c.SetParamNames("id")
	c.SetParamValues(projectID)
	if assert.NoError(t, handlers.Project.HandleDeleteProject(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 0, manager.Count())
	assert.Equal(t, 0, store.ProjectCount())
}
