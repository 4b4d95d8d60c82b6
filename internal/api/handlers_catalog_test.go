// handlers_catalog_test.go - Tests for catalog handlers
package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/conveyor-designer/backend/internal/catalog"
)

func TestCatalogHandler_HandleGetCatalog(t *testing.T) {
	handler := NewCatalogHandler(catalog.NewService(""))

	e := echo.New()
	req := jsonRequest(http.MethodGet, "/api/catalog", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.HandleGetCatalog(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	for _, frag := range []string{`"id":"sensor-photo"`, `"category":"sensor"`, `"version":"builtin"`, `"currency":"EUR"`} {
		if !strings.Contains(rec.Body.String(), frag) {
			t.Errorf("expected body to contain %s", frag)
		}
	}
}

func TestCatalogHandler_HandleReloadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	good := `version: "2024.2"
currency: EUR
items:
  - id: wheel-100
    name: Castor 100 mm
    category: wheel
    unit_price: 19.9
`
	if err := os.WriteFile(path, []byte(good), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := catalog.NewService(path)
	handler := NewCatalogHandler(svc)
	e := echo.New()

	t.Run("reload picks up edits", func(t *testing.T) {
		updated := strings.Replace(good, "2024.2", "2024.3", 1)
		if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
			t.Fatal(err)
		}

		req := jsonRequest(http.MethodPost, "/api/catalog/reload", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler.HandleReloadCatalog(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(rec.Body.String(), `"version":"2024.3"`) {
			t.Errorf("expected reloaded version, got %s", rec.Body.String())
		}
	})

	t.Run("broken file keeps previous catalog", func(t *testing.T) {
		if err := os.WriteFile(path, []byte("items: ["), 0o644); err != nil {
			t.Fatal(err)
		}

		req := jsonRequest(http.MethodPost, "/api/catalog/reload", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.HandleReloadCatalog(c)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if apiErr, ok := err.(*APIError); !ok || apiErr.Code != "BAD_REQUEST" {
			t.Errorf("expected BAD_REQUEST, got %v", err)
		}
		if got := svc.Catalog().Version; got != "2024.3" {
			t.Errorf("expected previous catalog to survive, got version %s", got)
		}
	})
}
