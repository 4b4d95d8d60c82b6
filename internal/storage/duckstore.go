package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marcboeker/go-duckdb"

	"github.com/conveyor-designer/backend/internal/models"
)

// ProjectStore defines the interface for project persistence. Placed
// components are written through individually on commit, rename and
// delete, so a crashed server never loses more than the in-flight drag.
type ProjectStore interface {
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.ProjectSummary, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id string) error
	Components(ctx context.Context, projectID string) ([]models.PlacedComponent, error)
	ComponentTallies(ctx context.Context, projectID string) ([]models.ComponentTally, error)
	SaveComponent(ctx context.Context, projectID string, c models.PlacedComponent) error
	RenameComponent(ctx context.Context, projectID, componentID, newName string) error
	DeleteComponent(ctx context.Context, projectID, componentID string) error
	Close() error
}

// DuckStore implements ProjectStore on a persistent DuckDB file.
type DuckStore struct {
	db     *sql.DB
	dbPath string
}

// NewDuckStore opens (or creates) the project database under dataDir.
func NewDuckStore(dataDir string) (*DuckStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return NewDuckStoreAtPath(filepath.Join(dataDir, "projects.duckdb"))
}

// NewDuckStoreAtPath opens a project database at a specific path.
func NewDuckStoreAtPath(dbPath string) (*DuckStore, error) {
	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='256MB'",
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id         VARCHAR PRIMARY KEY,
			name       VARCHAR NOT NULL,
			params     VARCHAR NOT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS components (
			id         VARCHAR PRIMARY KEY,
			project_id VARCHAR NOT NULL,
			catalog_id VARCHAR NOT NULL,
			name       VARCHAR NOT NULL,
			slot_type  VARCHAR NOT NULL,
			slot_id    VARCHAR NOT NULL,
			pos_x      DOUBLE NOT NULL,
			pos_y      DOUBLE NOT NULL,
			pos_z      DOUBLE NOT NULL,
			rot_x      DOUBLE NOT NULL,
			rot_y      DOUBLE NOT NULL,
			rot_z      DOUBLE NOT NULL,
			rot_w      DOUBLE NOT NULL,
			placed_at  BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_components_project ON components(project_id)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	fmt.Printf("[ProjectStore] Opened database at %s\n", dbPath)
	return &DuckStore{db: db, dbPath: dbPath}, nil
}

// ApplyTuning adjusts DuckDB resource limits after open. Zero or empty
// values keep the boot defaults.
func (ds *DuckStore) ApplyTuning(threads int, memoryLimit string) error {
	if threads > 0 {
		if _, err := ds.db.Exec(fmt.Sprintf("PRAGMA threads=%d", threads)); err != nil {
			return fmt.Errorf("setting threads: %w", err)
		}
	}
	if memoryLimit != "" {
		if _, err := ds.db.Exec(fmt.Sprintf("PRAGMA memory_limit='%s'", memoryLimit)); err != nil {
			return fmt.Errorf("setting memory limit: %w", err)
		}
	}
	return nil
}

// CreateProject inserts a new project row.
func (ds *DuckStore) CreateProject(ctx context.Context, p *models.Project) error {
	params, err := json.Marshal(p.Params)
	if err != nil {
		return fmt.Errorf("encoding params: %w", err)
	}
	_, err = ds.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, params, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Name, string(params), p.CreatedAt.UnixMilli(), p.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

// GetProject loads a project by ID.
func (ds *DuckStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	row := ds.db.QueryRowContext(ctx, `
		SELECT id, name, params, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)
	return scanProject(row)
}

// ListProjects returns all projects with their component counts,
// most recently updated first.
func (ds *DuckStore) ListProjects(ctx context.Context) ([]models.ProjectSummary, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.created_at, p.updated_at, COUNT(c.id)
		FROM projects p
		LEFT JOIN components c ON c.project_id = p.id
		GROUP BY p.id, p.name, p.created_at, p.updated_at
		ORDER BY p.updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.ProjectSummary, 0)
	for rows.Next() {
		var s models.ProjectSummary
		var createdMs, updatedMs int64
		if err := rows.Scan(&s.ID, &s.Name, &createdMs, &updatedMs, &s.ComponentCount); err != nil {
			return nil, err
		}
		s.CreatedAt = time.UnixMilli(createdMs).UTC()
		s.UpdatedAt = time.UnixMilli(updatedMs).UTC()
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// UpdateProject writes name, parameters and the updated timestamp.
func (ds *DuckStore) UpdateProject(ctx context.Context, p *models.Project) error {
	params, err := json.Marshal(p.Params)
	if err != nil {
		return fmt.Errorf("encoding params: %w", err)
	}
	res, err := ds.db.ExecContext(ctx, `
		UPDATE projects SET name = ?, params = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, string(params), p.UpdatedAt.UnixMilli(), p.ID)
	if err != nil {
		return fmt.Errorf("updating project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project not found: %s", p.ID)
	}
	return nil
}

// DeleteProject removes a project and all of its components.
func (ds *DuckStore) DeleteProject(ctx context.Context, id string) error {
	if _, err := ds.db.ExecContext(ctx, `DELETE FROM components WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("deleting components: %w", err)
	}
	res, err := ds.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project not found: %s", id)
	}
	return nil
}

// Components returns a project's placed components in placement order.
func (ds *DuckStore) Components(ctx context.Context, projectID string) ([]models.PlacedComponent, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT id, catalog_id, name, slot_type, slot_id,
		       pos_x, pos_y, pos_z, rot_x, rot_y, rot_z, rot_w, placed_at
		FROM components WHERE project_id = ?
		ORDER BY placed_at, id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading components: %w", err)
	}
	defer rows.Close()

	comps := make([]models.PlacedComponent, 0)
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		comps = append(comps, c)
	}
	return comps, rows.Err()
}

// ComponentTallies aggregates a project's components by catalog id, in
// first-placement order. Pricing happens in the caller against the live
// catalog, which is not a database table.
func (ds *DuckStore) ComponentTallies(ctx context.Context, projectID string) ([]models.ComponentTally, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT catalog_id, arg_min(name, placed_at), COUNT(*)
		FROM components WHERE project_id = ?
		GROUP BY catalog_id
		ORDER BY min(placed_at), catalog_id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("aggregating components: %w", err)
	}
	defer rows.Close()

	tallies := make([]models.ComponentTally, 0)
	for rows.Next() {
		var tl models.ComponentTally
		if err := rows.Scan(&tl.CatalogID, &tl.Name, &tl.Quantity); err != nil {
			return nil, fmt.Errorf("scanning tally: %w", err)
		}
		tallies = append(tallies, tl)
	}
	return tallies, rows.Err()
}

// SaveComponent writes one placed component through to disk.
func (ds *DuckStore) SaveComponent(ctx context.Context, projectID string, c models.PlacedComponent) error {
	_, err := ds.db.ExecContext(ctx, `
		INSERT INTO components (id, project_id, catalog_id, name, slot_type, slot_id,
			pos_x, pos_y, pos_z, rot_x, rot_y, rot_z, rot_w, placed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, projectID, c.CatalogID, c.Name, string(c.Type), c.SlotID,
		c.Position.X, c.Position.Y, c.Position.Z,
		c.Rotation.X, c.Rotation.Y, c.Rotation.Z, c.Rotation.W,
		c.PlacedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("saving component: %w", err)
	}
	return nil
}

// RenameComponent updates the display name of a placed component.
func (ds *DuckStore) RenameComponent(ctx context.Context, projectID, componentID, newName string) error {
	res, err := ds.db.ExecContext(ctx, `
		UPDATE components SET name = ? WHERE id = ? AND project_id = ?
	`, newName, componentID, projectID)
	if err != nil {
		return fmt.Errorf("renaming component: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("component not found: %s", componentID)
	}
	return nil
}

// DeleteComponent removes a placed component.
func (ds *DuckStore) DeleteComponent(ctx context.Context, projectID, componentID string) error {
	res, err := ds.db.ExecContext(ctx, `
		DELETE FROM components WHERE id = ? AND project_id = ?
	`, componentID, projectID)
	if err != nil {
		return fmt.Errorf("deleting component: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("component not found: %s", componentID)
	}
	return nil
}

// Close closes the database. The file stays on disk.
func (ds *DuckStore) Close() error {
	if ds.db != nil {
		return ds.db.Close()
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row scanner) (*models.Project, error) {
	var p models.Project
	var params string
	var createdMs, updatedMs int64

	err := row.Scan(&p.ID, &p.Name, &params, &createdMs, &updatedMs)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project not found")
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(params), &p.Params); err != nil {
		return nil, fmt.Errorf("decoding params: %w", err)
	}
	p.CreatedAt = time.UnixMilli(createdMs).UTC()
	p.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return &p, nil
}

func scanComponent(rows *sql.Rows) (models.PlacedComponent, error) {
	var c models.PlacedComponent
	var slotType string
	var placedMs int64

	err := rows.Scan(&c.ID, &c.CatalogID, &c.Name, &slotType, &c.SlotID,
		&c.Position.X, &c.Position.Y, &c.Position.Z,
		&c.Rotation.X, &c.Rotation.Y, &c.Rotation.Z, &c.Rotation.W,
		&placedMs)
	if err != nil {
		return models.PlacedComponent{}, err
	}

	c.Type = models.SlotType(slotType)
	c.PlacedAt = time.UnixMilli(placedMs).UTC()
	return c, nil
}
