package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"contentsync/internal/models"
)

// Postgres implements ContentStore on top of a pgx connection pool.
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres creates a connection pool for connString and returns the
// store backed by it.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %v", err)
	}
	return &Postgres{Pool: pool}, nil
}

// Close closes the connection pool.
func (s *Postgres) Close() {
	s.Pool.Close()
}

// Ping checks connectivity, for health reporting.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// Migrate creates the schema and seeds the known taxonomies. Safe to run
// on every start.
func (s *Postgres) Migrate(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS contents (
            id BIGSERIAL PRIMARY KEY,
            content_type TEXT NOT NULL,
            title TEXT NOT NULL,
            body TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'draft',
            slug TEXT NOT NULL DEFAULT '',
            excerpt TEXT NOT NULL DEFAULT '',
            author TEXT NOT NULL DEFAULT '',
            published_at TIMESTAMP WITH TIME ZONE,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
        );
        CREATE INDEX IF NOT EXISTS contents_type_title ON contents (content_type, title);

        CREATE TABLE IF NOT EXISTS taxonomies (
            name TEXT PRIMARY KEY
        );
        INSERT INTO taxonomies (name) VALUES ('category'), ('tag')
        ON CONFLICT (name) DO NOTHING;

        CREATE TABLE IF NOT EXISTS content_terms (
            content_id BIGINT NOT NULL REFERENCES contents(id) ON DELETE CASCADE,
            taxonomy TEXT NOT NULL REFERENCES taxonomies(name),
            term TEXT NOT NULL,
            position INTEGER NOT NULL
        );

        CREATE TABLE IF NOT EXISTS content_meta (
            content_id BIGINT NOT NULL REFERENCES contents(id) ON DELETE CASCADE,
            key TEXT NOT NULL,
            value TEXT NOT NULL
        );

        CREATE TABLE IF NOT EXISTS content_media (
            content_id BIGINT NOT NULL REFERENCES contents(id) ON DELETE CASCADE,
            handle TEXT NOT NULL,
            role TEXT NOT NULL,
            position INTEGER NOT NULL DEFAULT 0
        );

        CREATE TABLE IF NOT EXISTS commerce_products (
            content_id BIGINT PRIMARY KEY REFERENCES contents(id) ON DELETE CASCADE,
            price TEXT NOT NULL DEFAULT '',
            sale_price TEXT NOT NULL DEFAULT '',
            stock_status TEXT NOT NULL DEFAULT ''
        );

        CREATE TABLE IF NOT EXISTS settings (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL
        );
    `)
	return err
}

func (s *Postgres) Exists(ctx context.Context, contentType, title string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM contents WHERE content_type = $1 AND title = $2
        )
    `, contentType, strings.TrimSpace(title)).Scan(&exists)
	return exists, err
}

func (s *Postgres) Create(ctx context.Context, rec models.ContentRecord) (*Content, error) {
	status := rec.Status
	if status == "" {
		status = "draft"
	}

	var publishedAt *time.Time
	if rec.PublishedAt != "" {
		if ts, err := time.Parse(time.RFC3339, rec.PublishedAt); err == nil {
			publishedAt = &ts
		}
	}

	var id int64
	err := s.Pool.QueryRow(ctx, `
        INSERT INTO contents (content_type, title, body, status, slug, excerpt, author, published_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `, rec.ContentType, rec.Title, rec.Body, status, rec.Slug, rec.Excerpt, rec.Author, publishedAt).Scan(&id)
	if err != nil {
		return nil, err
	}

	// Commerce contents get their domain row at creation time so the
	// commerce processor has something to update.
	if rec.ContentType == "product" {
		if _, err := s.Pool.Exec(ctx, `
            INSERT INTO commerce_products (content_id) VALUES ($1)
            ON CONFLICT (content_id) DO NOTHING
        `, id); err != nil {
			return nil, err
		}
	}

	return &Content{ID: id, Type: rec.ContentType, Title: rec.Title, Status: status}, nil
}

func (s *Postgres) SetTaxonomyTerms(ctx context.Context, id int64, taxonomy string, terms []string) error {
	var known bool
	err := s.Pool.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM taxonomies WHERE name = $1)
    `, taxonomy).Scan(&known)
	if err != nil {
		return err
	}
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownTaxonomy, taxonomy)
	}

	for i, term := range terms {
		if _, err := s.Pool.Exec(ctx, `
            INSERT INTO content_terms (content_id, taxonomy, term, position)
            VALUES ($1, $2, $3, $4)
        `, id, taxonomy, term, i); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) SetMeta(ctx context.Context, id int64, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode meta %q: %w", key, err)
	}
	_, err = s.Pool.Exec(ctx, `
        INSERT INTO content_meta (content_id, key, value) VALUES ($1, $2, $3)
    `, id, key, string(encoded))
	return err
}

func (s *Postgres) SetCommerceFields(ctx context.Context, id int64, f CommerceFields) error {
	// UPDATE on a missing row affects nothing, which is exactly the
	// required no-op for contents without a commerce object.
	_, err := s.Pool.Exec(ctx, `
        UPDATE commerce_products SET
            price = CASE WHEN $2 = '' THEN price ELSE $2 END,
            sale_price = CASE WHEN $3 = '' THEN sale_price ELSE $3 END,
            stock_status = CASE WHEN $4 = '' THEN stock_status ELSE $4 END
        WHERE content_id = $1
    `, id, f.Price, f.SalePrice, f.StockStatus)
	return err
}

func (s *Postgres) SetPrimaryMedia(ctx context.Context, id int64, handle string) error {
	_, err := s.Pool.Exec(ctx, `
        INSERT INTO content_media (content_id, handle, role, position)
        VALUES ($1, $2, 'featured', 0)
    `, id, handle)
	return err
}

func (s *Postgres) AppendGalleryMarker(ctx context.Context, id int64, handles []string) error {
	for i, handle := range handles {
		if _, err := s.Pool.Exec(ctx, `
            INSERT INTO content_media (content_id, handle, role, position)
            VALUES ($1, $2, 'gallery', $3)
        `, id, handle, i); err != nil {
			return err
		}
	}

	block := fmt.Sprintf("\n\n[gallery ids=\"%s\"]", strings.Join(handles, ","))
	_, err := s.Pool.Exec(ctx, `
        UPDATE contents SET body = body || $2
        WHERE id = $1 AND position($3 in body) = 0
    `, id, block, GalleryMarker)
	return err
}
