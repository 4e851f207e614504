// Package storage persists imported planogram data so the API can serve
// stores without the flat JSON files. Supports sqlite and postgres via
// database/sql.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Database drivers registered for database/sql.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/suncare-ops/pog-engine/internal/catalog"
)

// ErrNotFound indicates a missing record.
var ErrNotFound = errors.New("record not found")

// Config holds connection settings for the planogram store.
type Config struct {
	Driver          string // sqlite or postgres
	SQLitePath      string
	PostgresDSN     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store is the planogram repository.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the configured database and ensures the schema exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		db, err = sql.Open("sqlite3", cfg.SQLitePath)
	case "postgres":
		db, err = sql.Open("postgres", cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	s := &Store{db: db, driver: cfg.Driver}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stores (
			store_id TEXT PRIMARY KEY,
			pog_type TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS planograms (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			subtitle TEXT NOT NULL DEFAULT '',
			pog_number TEXT NOT NULL DEFAULT '',
			total_products INTEGER NOT NULL DEFAULT 0,
			shelves INTEGER NOT NULL,
			sides INTEGER NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			pog_id TEXT NOT NULL,
			upc TEXT NOT NULL,
			name TEXT NOT NULL,
			segment INTEGER NOT NULL,
			shelf INTEGER NOT NULL,
			position INTEGER NOT NULL,
			facings INTEGER NOT NULL,
			width_in REAL,
			height_in REAL,
			is_new BOOLEAN NOT NULL DEFAULT FALSE,
			srp BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (pog_id, segment, shelf, position)
		)`,
		`CREATE TABLE IF NOT EXISTS upc_redirects (
			pog_id TEXT NOT NULL,
			old_upc TEXT NOT NULL,
			new_upc TEXT NOT NULL,
			PRIMARY KEY (pog_id, old_upc)
		)`,
		`CREATE TABLE IF NOT EXISTS removed_products (
			pog_id TEXT NOT NULL,
			upc TEXT NOT NULL,
			name TEXT NOT NULL,
			PRIMARY KEY (pog_id, upc)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveStores replaces the store registry.
func (s *Store) SaveStores(ctx context.Context, reg catalog.StoreRegistry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stores`); err != nil {
		return fmt.Errorf("clear stores: %w", err)
	}
	for storeID, pogType := range reg {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stores (store_id, pog_type) VALUES ($1, $2)`,
			storeID, pogType,
		); err != nil {
			return fmt.Errorf("insert store %s: %w", storeID, err)
		}
	}
	return tx.Commit()
}

// Stores loads the store registry.
func (s *Store) Stores(ctx context.Context) (catalog.StoreRegistry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT store_id, pog_type FROM stores`)
	if err != nil {
		return nil, fmt.Errorf("query stores: %w", err)
	}
	defer rows.Close()

	reg := catalog.StoreRegistry{}
	for rows.Next() {
		var storeID, pogType string
		if err := rows.Scan(&storeID, &pogType); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		reg[storeID] = pogType
	}
	return reg, rows.Err()
}

// SavePlanogram replaces one planogram and all of its rows in a single
// transaction. There is no incremental mutation, matching the wholesale
// replacement semantics of a planogram load.
func (s *Store) SavePlanogram(ctx context.Context, pg *catalog.Planogram) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"products", "upc_redirects", "removed_products", "planograms"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE `+idColumn(table)+` = $1`, pg.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO planograms (id, name, subtitle, pog_number, total_products, shelves, sides, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		pg.ID, pg.Name, pg.Subtitle, pg.POGNumber, pg.TotalProducts, pg.Shelves, pg.Sides, time.Now(),
	); err != nil {
		return fmt.Errorf("insert planogram: %w", err)
	}

	for _, p := range pg.Products {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO products (pog_id, upc, name, segment, shelf, position, facings, width_in, height_in, is_new, srp)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			pg.ID, p.UPC, p.Name, p.Segment, p.Shelf, p.Position, p.Facings,
			p.WidthIn, p.HeightIn, p.IsNew, p.SRP,
		); err != nil {
			return fmt.Errorf("insert product %s: %w", p.UPC, err)
		}
	}

	for old, new := range pg.UPCRedirects {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO upc_redirects (pog_id, old_upc, new_upc) VALUES ($1, $2, $3)`,
			pg.ID, old, new,
		); err != nil {
			return fmt.Errorf("insert redirect %s: %w", old, err)
		}
	}

	for _, r := range pg.RemovedProducts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO removed_products (pog_id, upc, name) VALUES ($1, $2, $3)`,
			pg.ID, r.UPC, r.Name,
		); err != nil {
			return fmt.Errorf("insert removed product %s: %w", r.UPC, err)
		}
	}

	return tx.Commit()
}

// LoadPlanogram reads one planogram and all of its rows.
func (s *Store) LoadPlanogram(ctx context.Context, id string) (*catalog.Planogram, error) {
	pg := &catalog.Planogram{ID: id, UPCRedirects: map[string]string{}}
	err := s.db.QueryRowContext(ctx, `
		SELECT name, subtitle, pog_number, total_products, shelves, sides
		FROM planograms WHERE id = $1`, id,
	).Scan(&pg.Name, &pg.Subtitle, &pg.POGNumber, &pg.TotalProducts, &pg.Shelves, &pg.Sides)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query planogram %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT upc, name, segment, shelf, position, facings, width_in, height_in, is_new, srp
		FROM products WHERE pog_id = $1
		ORDER BY segment, shelf, position`, id)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.UPC, &p.Name, &p.Segment, &p.Shelf, &p.Position, &p.Facings,
			&p.WidthIn, &p.HeightIn, &p.IsNew, &p.SRP); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		pg.Products = append(pg.Products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	redirects, err := s.db.QueryContext(ctx,
		`SELECT old_upc, new_upc FROM upc_redirects WHERE pog_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query redirects: %w", err)
	}
	defer redirects.Close()
	for redirects.Next() {
		var old, new string
		if err := redirects.Scan(&old, &new); err != nil {
			return nil, fmt.Errorf("scan redirect: %w", err)
		}
		pg.UPCRedirects[old] = new
	}
	if err := redirects.Err(); err != nil {
		return nil, err
	}

	removed, err := s.db.QueryContext(ctx,
		`SELECT upc, name FROM removed_products WHERE pog_id = $1 ORDER BY upc`, id)
	if err != nil {
		return nil, fmt.Errorf("query removed products: %w", err)
	}
	defer removed.Close()
	for removed.Next() {
		var r catalog.RemovedProduct
		if err := removed.Scan(&r.UPC, &r.Name); err != nil {
			return nil, fmt.Errorf("scan removed product: %w", err)
		}
		pg.RemovedProducts = append(pg.RemovedProducts, r)
	}
	return pg, removed.Err()
}

func idColumn(table string) string {
	if table == "planograms" {
		return "id"
	}
	return "pog_id"
}
