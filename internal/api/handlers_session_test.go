// handlers_session_test.go - Tests for editing session handlers
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/conveyor-designer/backend/internal/catalog"
	"github.com/conveyor-designer/backend/internal/models"
	"github.com/conveyor-designer/backend/internal/placement"
	"github.com/conveyor-designer/backend/internal/session"
	"github.com/conveyor-designer/backend/internal/testutil"
)

const sensorPayloadJSON = `{"id":"sensor-photo","category":"sensor"}`

type sessionEnv struct {
	store     *testutil.MockProjectStore
	manager   *session.Manager
	handler   SessionHandler
	catalog   *catalog.Service
	e         *echo.Echo
	session   *session.EditSession
	sessionID string
}

func newSessionEnv(t *testing.T, params models.GeometryParameters) *sessionEnv {
	t.Helper()

	store := testutil.NewMockProjectStore()
	store.AddProject(models.NewProject("p1", "Test rig", params))

	manager := session.NewManager(store, 0)
	sess, err := manager.Create(context.Background(), "p1")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	catalogSvc := catalog.NewService("")

	return &sessionEnv{
		store:     store,
		manager:   manager,
		handler:   NewSessionHandler(manager, catalogSvc),
		catalog:   catalogSvc,
		e:         echo.New(),
		session:   sess,
		sessionID: sess.ID,
	}
}

func (env *sessionEnv) context(method, target string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	req := jsonRequest(method, target, body)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.SetPath("/api/sessions/:sessionId")
	c.SetParamNames("sessionId")
	c.SetParamValues(env.sessionID)
	return c, rec
}

func (env *sessionEnv) firstSlotOfType(t *testing.T, typ models.SlotType) models.Slot {
	t.Helper()
	for _, s := range env.session.Slots() {
		if s.Type == typ {
			return s
		}
	}
	t.Fatalf("no slot of type %s generated", typ)
	return models.Slot{}
}

func (env *sessionEnv) commitOn(t *testing.T, payload string, slot models.Slot) {
	t.Helper()
	if err := env.session.Dragger.BeginDrag(payload); err != nil {
		t.Fatalf("failed to begin drag: %v", err)
	}
	env.session.Dispatcher.PointerMove(placement.PointerEvent{Position: slot.Position})
	env.session.Dispatcher.PointerUp(placement.PointerEvent{Position: slot.Position})
}

func TestSessionHandler_HandleCreateSession(t *testing.T) {
	tests := []struct {
		name    string
		body    interface{}
		wantErr bool
		errCode string
	}{
		{name: "valid project", body: createSessionRequest{ProjectID: "p1"}},
		{name: "missing project", body: createSessionRequest{ProjectID: "ghost"}, wantErr: true, errCode: "NOT_FOUND"},
		{name: "empty projectId", body: createSessionRequest{}, wantErr: true, errCode: "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMockProjectStore()
			store.AddProject(models.NewProject("p1", "Test rig", models.DefaultParameters()))
			manager := session.NewManager(store, 0)
			handler := NewSessionHandler(manager, catalog.NewService(""))

			e := echo.New()
			req := jsonRequest(http.MethodPost, "/api/sessions", tt.body)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := handler.HandleCreateSession(c)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if apiErr, ok := err.(*APIError); !ok || apiErr.Code != tt.errCode {
					t.Errorf("expected %s, got %v", tt.errCode, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != http.StatusCreated {
				t.Errorf("expected status 201, got %d", rec.Code)
			}
			for _, frag := range []string{`"projectId":"p1"`, `"dragState":"idle"`, `"overallLengthMm":6080`} {
				if !strings.Contains(rec.Body.String(), frag) {
					t.Errorf("expected body to contain %s, got %s", frag, rec.Body.String())
				}
			}
		})
	}
}

func TestSessionHandler_Lifecycle(t *testing.T) {
	env := newSessionEnv(t, models.DefaultParameters())

	t.Run("get returns snapshot", func(t *testing.T) {
		c, rec := env.context(http.MethodGet, "/api/sessions/"+env.sessionID, nil)
		if err := env.handler.HandleGetSession(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(rec.Body.String(), `"projectName":"Test rig"`) {
			t.Errorf("expected project name in snapshot, got %s", rec.Body.String())
		}
	})

	t.Run("keepalive extends session", func(t *testing.T) {
		c, rec := env.context(http.MethodPost, "/api/sessions/"+env.sessionID+"/keepalive", nil)
		if err := env.handler.HandleSessionKeepAlive(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusNoContent {
			t.Errorf("expected status 204, got %d", rec.Code)
		}
	})

	t.Run("close then get fails", func(t *testing.T) {
		c, rec := env.context(http.MethodDelete, "/api/sessions/"+env.sessionID, nil)
		if err := env.handler.HandleCloseSession(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusNoContent {
			t.Errorf("expected status 204, got %d", rec.Code)
		}

		c, _ = env.context(http.MethodGet, "/api/sessions/"+env.sessionID, nil)
		err := env.handler.HandleGetSession(c)
		if apiErr, ok := err.(*APIError); !ok || apiErr.Code != "NOT_FOUND" {
			t.Errorf("expected NOT_FOUND after close, got %v", err)
		}
	})
}

func TestSessionHandler_HandleUpdateParameters(t *testing.T) {
	env := newSessionEnv(t, models.DefaultParameters())

	params := models.DefaultParameters()
	params.LengthMm = 12003

	c, rec := env.context(http.MethodPut, "/api/sessions/"+env.sessionID+"/parameters", params)
	if err := env.handler.HandleUpdateParameters(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var update session.ParameterUpdate
	if err := jsonDecode(rec, &update); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if update.Params.LengthMm != 12000 {
		t.Errorf("expected length snapped to 12000, got %v", update.Params.LengthMm)
	}
	if update.Derived.OverallLengthMm != 12080 {
		t.Errorf("expected derived length 12080, got %v", update.Derived.OverallLengthMm)
	}
	if len(update.Slots) == 0 {
		t.Error("expected regenerated slots in response")
	}
	if len(update.Dangling) != 0 {
		t.Errorf("expected no dangling bindings, got %d", len(update.Dangling))
	}

	if got := env.session.Params().LengthMm; got != 12000 {
		t.Errorf("expected session length 12000, got %.0f", got)
	}
}

func TestSessionHandler_HandleGetSlots(t *testing.T) {
	env := newSessionEnv(t, models.DefaultParameters())
	all := env.session.Slots()

	t.Run("unfiltered returns every slot", func(t *testing.T) {
		c, rec := env.context(http.MethodGet, "/api/sessions/"+env.sessionID+"/slots", nil)
		if err := env.handler.HandleGetSlots(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var resp struct {
			Slots []models.Slot `json:"slots"`
			Total int           `json:"total"`
		}
		if err := jsonDecode(rec, &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Total != len(all) {
			t.Errorf("expected %d slots, got %d", len(all), resp.Total)
		}
	})

	t.Run("type filter", func(t *testing.T) {
		c, rec := env.context(http.MethodGet, "/api/sessions/"+env.sessionID+"/slots?type=sensor", nil)
		if err := env.handler.HandleGetSlots(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var resp struct {
			Slots []models.Slot `json:"slots"`
			Total int           `json:"total"`
		}
		if err := jsonDecode(rec, &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Total == 0 {
			t.Fatal("expected sensor slots, got none")
		}
		for _, s := range resp.Slots {
			if s.Type != models.SlotSensor {
				t.Errorf("expected only sensor slots, got %s", s.Type)
			}
		}
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		c, _ := env.context(http.MethodGet, "/api/sessions/"+env.sessionID+"/slots?type=warp_drive", nil)
		err := env.handler.HandleGetSlots(c)
		if apiErr, ok := err.(*APIError); !ok || apiErr.Code != "VALIDATION_ERROR" {
			t.Errorf("expected VALIDATION_ERROR, got %v", err)
		}
	})

	t.Run("free filter excludes occupied slots", func(t *testing.T) {
		slot := env.firstSlotOfType(t, models.SlotSensor)
		env.commitOn(t, sensorPayloadJSON, slot)

		c, rec := env.context(http.MethodGet, "/api/sessions/"+env.sessionID+"/slots?type=sensor&free=true", nil)
		if err := env.handler.HandleGetSlots(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var resp struct {
			Slots []models.Slot `json:"slots"`
			Total int           `json:"total"`
		}
		if err := jsonDecode(rec, &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		for _, s := range resp.Slots {
			if s.ID == slot.ID {
				t.Errorf("expected occupied slot %s to be filtered out", slot.ID)
			}
		}
	})
}

func TestSessionHandler_HandleGetSlotsMsgpack(t *testing.T) {
	env := newSessionEnv(t, models.DefaultParameters())

	c, rec := env.context(http.MethodGet, "/api/sessions/"+env.sessionID+"/slots/msgpack", nil)
	if err := env.handler.HandleGetSlotsMsgpack(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.Contains(ct, "application/msgpack") {
		t.Errorf("expected msgpack content type, got %s", ct)
	}

	var decoded struct {
		Slots []models.Slot `msgpack:"slots"`
		Total int           `msgpack:"total"`
	}
	if err := msgpack.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode msgpack body: %v", err)
	}
	if decoded.Total != len(env.session.Slots()) {
		t.Errorf("expected %d slots, got %d", len(env.session.Slots()), decoded.Total)
	}
	if len(decoded.Slots) != decoded.Total {
		t.Errorf("expected %d slot records, got %d", decoded.Total, len(decoded.Slots))
	}
}

func TestSessionHandler_HandleGetValidSlots(t *testing.T) {
	env := newSessionEnv(t, models.DefaultParameters())

	slot := env.firstSlotOfType(t, models.SlotSensor)
	env.commitOn(t, sensorPayloadJSON, slot)

	c, rec := env.context(http.MethodGet, "/api/sessions/"+env.sessionID+"/slots/valid?type=sensor", nil)
	if err := env.handler.HandleGetValidSlots(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp struct {
		Slots []models.Slot `json:"slots"`
		Total int           `json:"total"`
	}
	if err := jsonDecode(rec, &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, s := range resp.Slots {
		if s.ID == slot.ID {
			t.Errorf("expected occupied slot %s to be excluded", slot.ID)
		}
		if s.Type != models.SlotSensor {
			t.Errorf("expected only sensor slots, got %s", s.Type)
		}
	}

	t.Run("missing type rejected", func(t *testing.T) {
		c, _ := env.context(http.MethodGet, "/api/sessions/"+env.sessionID+"/slots/valid", nil)
		err := env.handler.HandleGetValidSlots(c)
		if apiErr, ok := err.(*APIError); !ok || apiErr.Code != "VALIDATION_ERROR" {
			t.Errorf("expected VALIDATION_ERROR, got %v", err)
		}
	})
}

func TestSessionHandler_HandleResolveSlot(t *testing.T) {
	env := newSessionEnv(t, models.DefaultParameters())
	slot := env.firstSlotOfType(t, models.SlotSensor)

	t.Run("inside tolerance resolves", func(t *testing.T) {
		probe := slot.Position
		probe.X += 0.03

		c, rec := env.context(http.MethodPost, "/api/sessions/"+env.sessionID+"/slots/nearest",
			resolveSlotRequest{Position: probe, Type: models.SlotSensor})
		if err := env.handler.HandleResolveSlot(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var resp resolveSlotResponse
		if err := jsonDecode(rec, &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !resp.Resolved {
			t.Fatal("expected probe to resolve")
		}
		if resp.Slot.ID != slot.ID {
			t.Errorf("expected slot %s, got %s", slot.ID, resp.Slot.ID)
		}
	})

	t.Run("outside tolerance does not resolve", func(t *testing.T) {
		probe := slot.Position
		probe.X += 0.05

		c, rec := env.context(http.MethodPost, "/api/sessions/"+env.sessionID+"/slots/nearest",
			resolveSlotRequest{Position: probe, Type: models.SlotSensor})
		if err := env.handler.HandleResolveSlot(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var resp resolveSlotResponse
		if err := jsonDecode(rec, &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Resolved {
			t.Errorf("expected probe at 0.05 to miss, resolved to %s", resp.Slot.ID)
		}
	})

	t.Run("widened tolerance resolves", func(t *testing.T) {
		probe := slot.Position
		probe.X += 0.05

		c, rec := env.context(http.MethodPost, "/api/sessions/"+env.sessionID+"/slots/nearest",
			resolveSlotRequest{Position: probe, Type: models.SlotSensor, Tolerance: 0.1})
		if err := env.handler.HandleResolveSlot(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var resp resolveSlotResponse
		if err := jsonDecode(rec, &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !resp.Resolved {
			t.Error("expected widened tolerance to resolve")
		}
	})

	t.Run("invalid type rejected", func(t *testing.T) {
		c, _ := env.context(http.MethodPost, "/api/sessions/"+env.sessionID+"/slots/nearest",
			resolveSlotRequest{Position: slot.Position, Type: "belt"})
		err := env.handler.HandleResolveSlot(c)
		if apiErr, ok := err.(*APIError); !ok || apiErr.Code != "VALIDATION_ERROR" {
			t.Errorf("expected VALIDATION_ERROR, got %v", err)
		}
	})
}

func TestSessionHandler_HandleGetBindings(t *testing.T) {
	params := models.DefaultParameters()
	params.StopButtons.Enabled = true
	env := newSessionEnv(t, params)

	stopSlot := env.firstSlotOfType(t, models.SlotStopButton)
	env.commitOn(t, `{"id":"estop-22","category":"stop_button"}`, stopSlot)

	// Disabling stop buttons removes their slots; the placed button's
	// binding goes dangling but the component survives.
	params.StopButtons.Enabled = false
	if _, err := env.manager.UpdateParameters(context.Background(), env.sessionID, params); err != nil {
		t.Fatalf("failed to update parameters: %v", err)
	}

	c, rec := env.context(http.MethodGet, "/api/sessions/"+env.sessionID+"/bindings", nil)
	if err := env.handler.HandleGetBindings(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp struct {
		Dangling []models.PlacedComponent `json:"danglingBindings"`
		Total    int                      `json:"total"`
	}
	if err := jsonDecode(rec, &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("expected 1 dangling binding, got %d", resp.Total)
	}
	if resp.Dangling[0].SlotID != stopSlot.ID {
		t.Errorf("expected dangling binding to %s, got %s", stopSlot.ID, resp.Dangling[0].SlotID)
	}
}

func TestSessionHandler_HandleGetBOM(t *testing.T) {
	env := newSessionEnv(t, models.DefaultParameters())

	sensorSlots := placement.ValidSlots(models.SlotSensor, env.session.Slots(), nil)
	if len(sensorSlots) < 2 {
		t.Fatalf("expected at least 2 sensor slots, got %d", len(sensorSlots))
	}
	env.commitOn(t, sensorPayloadJSON, sensorSlots[0])
	env.commitOn(t, sensorPayloadJSON, sensorSlots[1])

	c, rec := env.context(http.MethodGet, "/api/sessions/"+env.sessionID+"/bom", nil)
	if err := env.handler.HandleGetBOM(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var bom models.BOMSummary
	if err := jsonDecode(rec, &bom); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(bom.Lines) != 1 {
		t.Fatalf("expected 1 BOM line, got %d", len(bom.Lines))
	}
	if bom.Lines[0].Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", bom.Lines[0].Quantity)
	}
	if bom.Total != 90 {
		t.Errorf("expected total 90, got %.2f", bom.Total)
	}
	if bom.Currency != "EUR" {
		t.Errorf("expected currency EUR, got %s", bom.Currency)
	}
}

func TestSessionHandler_HandleExportLayout(t *testing.T) {
	env := newSessionEnv(t, models.DefaultParameters())

	slot := env.firstSlotOfType(t, models.SlotSensor)
	env.commitOn(t, sensorPayloadJSON, slot)

	c, rec := env.context(http.MethodGet, "/api/sessions/"+env.sessionID+"/export/layout", nil)
	if err := env.handler.HandleExportLayout(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.Contains(ct, "application/xml") {
		t.Errorf("expected xml content type, got %s", ct)
	}

	body := rec.Body.String()
	for _, frag := range []string{"<RigLayout", "Test rig", slot.ID} {
		if !strings.Contains(body, frag) {
			t.Errorf("expected export to contain %s", frag)
		}
	}
}

func jsonDecode(rec *httptest.ResponseRecorder, v interface{}) error {
	return json.Unmarshal(rec.Body.Bytes(), v)
}
