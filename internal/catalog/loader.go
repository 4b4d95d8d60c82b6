package catalog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/conveyor-designer/backend/internal/models"
)

// LoadCatalog parses a YAML catalog file.
func LoadCatalog(filePath string) (*models.Catalog, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadCatalogFromReader(file)
}

// LoadCatalogFromReader parses a catalog from an io.Reader and validates
// it. Invalid catalogs are rejected whole, so a broken edit can never
// half-replace a working palette.
func LoadCatalogFromReader(r io.Reader) (*models.Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var c models.Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if err := validateCatalog(&c); err != nil {
		return nil, err
	}
	if c.Currency == "" {
		c.Currency = "EUR"
	}
	return &c, nil
}

func validateCatalog(c *models.Catalog) error {
	seen := make(map[string]bool, len(c.Items))
	for i, item := range c.Items {
		if item.ID == "" {
			return fmt.Errorf("item %d: missing id", i)
		}
		if seen[item.ID] {
			return fmt.Errorf("duplicate item id %q", item.ID)
		}
		seen[item.ID] = true
		if !models.SlotType(item.Category).Valid() {
			return fmt.Errorf("item %q: unknown category %q", item.ID, item.Category)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("item %q: negative unit price", item.ID)
		}
	}
	return nil
}

// DefaultCatalog returns the built-in palette used when no catalog file
// is configured. It covers every slot family so a fresh install can
// place something everywhere.
func DefaultCatalog() *models.Catalog {
	return &models.Catalog{
		Version:  "builtin",
		Currency: "EUR",
		Items: []models.CatalogItem{
			{ID: "drive-075", Name: "Drive unit 0.75 kW", Category: string(models.SlotEngineMount),
				ModelReference: "models/drive_075.glb", OriginalReference: "vendor/KA47-075.step", UnitPrice: 1245},
			{ID: "drive-150", Name: "Drive unit 1.5 kW", Category: string(models.SlotEngineMount),
				ModelReference: "models/drive_150.glb", OriginalReference: "vendor/KA47-150.step", UnitPrice: 1630},
			{ID: "estop-22", Name: "E-stop button 22 mm", Category: string(models.SlotStopButton),
				ModelReference: "models/estop_22.glb", UnitPrice: 89},
			{ID: "sensor-photo", Name: "Photo eye", Category: string(models.SlotSensor),
				ModelReference: "models/sensor_photo.glb", UnitPrice: 45},
			{ID: "sensor-prox", Name: "Proximity switch", Category: string(models.SlotSensor),
				ModelReference: "models/sensor_prox.glb", UnitPrice: 38},
			{ID: "guide-rail-40", Name: "Guide rail 40 mm", Category: string(models.SlotSideGuide),
				ModelReference: "models/guide_rail_40.glb", UnitPrice: 27.5},
			{ID: "wheel-100", Name: "Castor 100 mm", Category: string(models.SlotWheel),
				ModelReference: "models/wheel_100.glb", UnitPrice: 19.9},
			{ID: "wheel-125", Name: "Castor 125 mm, braked", Category: string(models.SlotWheel),
				ModelReference: "models/wheel_125.glb", UnitPrice: 24.5},
			{ID: "leg-600", Name: "Adjustable leg 600-900 mm", Category: string(models.SlotFrameLeg),
				ModelReference: "models/leg_600.glb", UnitPrice: 42},
		},
	}
}

// Service owns the live catalog: it loads the configured file, falls back
// to the built-in palette, and swaps in reloads atomically. Sessions and
// handlers always read through Catalog().
type Service struct {
	mu       sync.RWMutex
	path     string
	catalog  *models.Catalog
	loadedAt time.Time
}

// CatalogInfo describes the loaded catalog for status endpoints.
type CatalogInfo struct {
	Version   string    `json:"version"`
	Currency  string    `json:"currency"`
	ItemCount int       `json:"itemCount"`
	Path      string    `json:"path,omitempty"`
	LoadedAt  time.Time `json:"loadedAt"`
}

// NewService creates the catalog service. An empty path means built-in
// only; a configured path that does not exist yet falls back to the
// built-in palette until the file appears.
func NewService(path string) *Service {
	s := &Service{path: path}
	if err := s.Reload(); err != nil {
		fmt.Printf("[Catalog] Load failed (%v), using builtin palette\n", err)
		s.mu.Lock()
		s.catalog = DefaultCatalog()
		s.loadedAt = time.Now()
		s.mu.Unlock()
	}
	return s
}

// Reload re-reads the catalog file. On any error the previous catalog
// stays in place.
func (s *Service) Reload() error {
	if s.path == "" {
		s.mu.Lock()
		s.catalog = DefaultCatalog()
		s.loadedAt = time.Now()
		s.mu.Unlock()
		return nil
	}

	c, err := LoadCatalog(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.catalog = c
	s.loadedAt = time.Now()
	s.mu.Unlock()
	fmt.Printf("[Catalog] Loaded %d items (version %s) from %s\n", len(c.Items), c.Version, s.path)
	return nil
}

// Catalog returns the current catalog. Callers must not mutate it.
func (s *Service) Catalog() *models.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// Path returns the configured catalog file path.
func (s *Service) Path() string {
	return s.path
}

// Info returns catalog metadata for status endpoints.
func (s *Service) Info() CatalogInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CatalogInfo{
		Version:   s.catalog.Version,
		Currency:  s.catalog.Currency,
		ItemCount: len(s.catalog.Items),
		Path:      s.path,
		LoadedAt:  s.loadedAt,
	}
}
