package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andresmejia3/facefit/internal/catalog"
	"github.com/andresmejia3/facefit/internal/vision"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Recommendation modes as stored in the mode column.
const (
	ModeColour = "colour"
	ModeFit    = "fit"
)

// Store manages the PostgreSQL pool holding the catalog and the recommendation log.
// Captured imagery is never written here.
type Store struct {
	pool *pgxpool.Pool
}

// New establishes a connection pool and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// initSchema creates the necessary tables if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			position INT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS colourways (
			product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			id TEXT NOT NULL,
			name TEXT NOT NULL,
			hex TEXT NOT NULL,
			metalness DOUBLE PRECISION NOT NULL,
			roughness DOUBLE PRECISION NOT NULL,
			position INT NOT NULL DEFAULT 0,
			PRIMARY KEY (product_id, id)
		);
		CREATE TABLE IF NOT EXISTS product_sizes (
			product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			size_key TEXT NOT NULL,
			lens_width INT NOT NULL,
			bridge INT NOT NULL,
			temple_length INT NOT NULL,
			PRIMARY KEY (product_id, size_key)
		);
		CREATE TABLE IF NOT EXISTS recommendations (
			id BIGSERIAL PRIMARY KEY,
			product_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			summary TEXT NOT NULL,
			detail TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS recommendations_created_at_idx ON recommendations (created_at DESC);
	`
	_, err := pool.Exec(ctx, query)
	return err
}

// Close terminates the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// SaveCatalog replaces the stored catalog with c in one transaction.
func (s *Store) SaveCatalog(ctx context.Context, c *catalog.Catalog) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// 1. Child rows go with their products
	if _, err := tx.Exec(ctx, "DELETE FROM products"); err != nil {
		return err
	}

	// 2. Queue every insert in one round trip
	batch := &pgx.Batch{}
	for i, p := range c.Products {
		batch.Queue("INSERT INTO products (id, name, position) VALUES ($1, $2, $3)", p.ID, p.Name, i)
		for j, cw := range p.Colourways {
			batch.Queue(`
				INSERT INTO colourways (product_id, id, name, hex, metalness, roughness, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, p.ID, cw.ID, cw.Name, cw.Hex, cw.Metalness, cw.Roughness, j)
		}
		for key, size := range p.Sizes {
			batch.Queue(`
				INSERT INTO product_sizes (product_id, size_key, lens_width, bridge, temple_length)
				VALUES ($1, $2, $3, $4, $5)
			`, p.ID, key, size.LensWidth, size.Bridge, size.TempleLength)
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}

	return tx.Commit(ctx)
}

// LoadCatalog reads the stored catalog in its saved order.
func (s *Store) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name FROM products ORDER BY position, id")
	if err != nil {
		return nil, err
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Product, error) {
		p := catalog.Product{Sizes: vision.SizeTable{}}
		err := row.Scan(&p.ID, &p.Name)
		return p, err
	})
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(products))
	for i, p := range products {
		index[p.ID] = i
	}

	// Colourways
	rows, err = s.pool.Query(ctx, `
		SELECT product_id, id, name, hex, metalness, roughness
		FROM colourways ORDER BY product_id, position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var productID string
		var cw vision.Colourway
		if err := rows.Scan(&productID, &cw.ID, &cw.Name, &cw.Hex, &cw.Metalness, &cw.Roughness); err != nil {
			return nil, err
		}
		if i, ok := index[productID]; ok {
			products[i].Colourways = append(products[i].Colourways, cw)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Sizes
	sizeRows, err := s.pool.Query(ctx, "SELECT product_id, size_key, lens_width, bridge, temple_length FROM product_sizes")
	if err != nil {
		return nil, err
	}
	defer sizeRows.Close()
	for sizeRows.Next() {
		var productID, key string
		var size vision.SizeSpec
		if err := sizeRows.Scan(&productID, &key, &size.LensWidth, &size.Bridge, &size.TempleLength); err != nil {
			return nil, err
		}
		if i, ok := index[productID]; ok {
			products[i].Sizes[key] = size
		}
	}
	if err := sizeRows.Err(); err != nil {
		return nil, err
	}

	return catalog.New(products)
}

// Recommendation is one logged result.
type Recommendation struct {
	ID        int64           `json:"id"`
	ProductID string          `json:"product_id"`
	Mode      string          `json:"mode"`
	Summary   string          `json:"summary"`
	Detail    string          `json:"detail"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// FitRecord is the payload stored for a fit recommendation.
type FitRecord struct {
	Recommendation vision.FitRecommendation `json:"recommendation"`
	Metrics        vision.FaceMetrics       `json:"metrics"`
}

// RecordColour logs a colour match and returns its id.
func (s *Store) RecordColour(ctx context.Context, productID string, res vision.RecommendationResult) (int64, error) {
	return s.record(ctx, productID, ModeColour, res.TopMatch.ID, res.ReasoningText, res)
}

// RecordFit logs a fit recommendation with the metrics it came from.
func (s *Store) RecordFit(ctx context.Context, productID string, rec vision.FitRecommendation, m vision.FaceMetrics) (int64, error) {
	summary := rec.Shape.String()
	if rec.SizeKey != "" {
		summary += "/" + rec.SizeKey
	}
	return s.record(ctx, productID, ModeFit, summary, rec.Explanation, FitRecord{Recommendation: rec, Metrics: m})
}

func (s *Store) record(ctx context.Context, productID, mode, summary, detail string, payload any) (int64, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode %s payload: %w", mode, err)
	}
	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO recommendations (product_id, mode, summary, detail, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, productID, mode, summary, detail, data).Scan(&id)
	return id, err
}

// ListRecommendations returns the newest results first. mode filters when
// non-empty; limit <= 0 means no limit.
func (s *Store) ListRecommendations(ctx context.Context, mode string, limit int) ([]Recommendation, error) {
	query := `
		SELECT id, product_id, mode, summary, detail, payload, created_at
		FROM recommendations
		WHERE ($1 = '' OR mode = $1)
		ORDER BY created_at DESC, id DESC
	`
	args := []any{mode}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Recommendation, error) {
		var r Recommendation
		var payload []byte
		err := row.Scan(&r.ID, &r.ProductID, &r.Mode, &r.Summary, &r.Detail, &payload, &r.CreatedAt)
		r.Payload = payload
		return r, err
	})
}

// DecodeFit unpacks the payload of a fit recommendation.
func (r Recommendation) DecodeFit() (FitRecord, error) {
	var rec FitRecord
	if r.Mode != ModeFit {
		return rec, errors.New("not a fit recommendation")
	}
	err := json.Unmarshal(r.Payload, &rec)
	return rec, err
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		DROP TABLE IF EXISTS recommendations CASCADE;
		DROP TABLE IF EXISTS product_sizes CASCADE;
		DROP TABLE IF EXISTS colourways CASCADE;
		DROP TABLE IF EXISTS products CASCADE;
	`)
	return err
}
