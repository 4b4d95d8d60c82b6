package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/conveyor-designer/backend/internal/models"
)

func TestWatcherRequiresPath(t *testing.T) {
	if _, err := NewWatcher(NewService(""), 0, nil); err == nil {
		t.Fatal("watcher accepted service without a file")
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := writeCatalog(t, sampleYAML)
	svc := NewService(path)

	reloaded := make(chan *models.Catalog, 4)
	w, err := NewWatcher(svc, 50*time.Millisecond, func(c *models.Catalog) {
		reloaded <- c
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	updated := strings.Replace(sampleYAML, "2024.2", "2024.3", 1)
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-reloaded:
		if c.Version != "2024.3" {
			t.Errorf("reloaded version = %q", c.Version)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after file write")
	}
	if svc.Catalog().Version != "2024.3" {
		t.Errorf("service version = %q", svc.Catalog().Version)
	}
}

func TestWatcherKeepsCatalogOnBrokenWrite(t *testing.T) {
	path := writeCatalog(t, sampleYAML)
	svc := NewService(path)

	reloaded := make(chan *models.Catalog, 4)
	w, err := NewWatcher(svc, 50*time.Millisecond, func(c *models.Catalog) {
		reloaded <- c
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("items:\n  - {id: a, category: girder}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-reloaded:
		t.Fatalf("broken catalog reloaded: version %q", c.Version)
	case <-time.After(500 * time.Millisecond):
	}
	if svc.Catalog().Version != "2024.2" {
		t.Errorf("service version = %q after broken write", svc.Catalog().Version)
	}

	// A later good write still comes through.
	if err := os.WriteFile(path, []byte(sampleYAML), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher stopped reloading after a broken write")
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0644); err != nil {
		t.Fatal(err)
	}
	svc := NewService(path)

	reloaded := make(chan *models.Catalog, 4)
	w, err := NewWatcher(svc, 50*time.Millisecond, func(c *models.Catalog) {
		reloaded <- c
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-reloaded:
		t.Fatal("sibling file triggered a reload")
	case <-time.After(500 * time.Millisecond):
	}
}
