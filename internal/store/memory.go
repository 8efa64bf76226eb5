package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"contentsync/internal/models"
)

// Memory is an in-process ContentStore used by tests and local runs
// without a database. It mirrors the Postgres semantics, including the
// gallery-marker idempotence and the commerce no-op behavior.
type Memory struct {
	mu         sync.Mutex
	nextID     int64
	Taxonomies map[string]bool

	Contents map[int64]*MemoryContent
}

// MemoryContent is the stored form of one entity plus everything the
// engine attached to it, exposed for test assertions.
type MemoryContent struct {
	Content
	Body     string
	Terms    map[string][]string
	Meta     map[string]any
	Commerce *CommerceFields
	Featured string
	Gallery  []string
}

// NewMemory returns an empty store knowing the default taxonomies.
func NewMemory() *Memory {
	return &Memory{
		Taxonomies: map[string]bool{"category": true, "tag": true},
		Contents:   map[int64]*MemoryContent{},
	}
}

func (m *Memory) Exists(ctx context.Context, contentType, title string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	title = strings.TrimSpace(title)
	for _, c := range m.Contents {
		if c.Type == contentType && c.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) Create(ctx context.Context, rec models.ContentRecord) (*Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++

	status := rec.Status
	if status == "" {
		status = "draft"
	}
	c := &MemoryContent{
		Content: Content{ID: m.nextID, Type: rec.ContentType, Title: rec.Title, Status: status},
		Body:    rec.Body,
		Terms:   map[string][]string{},
		Meta:    map[string]any{},
	}
	if rec.ContentType == "product" {
		c.Commerce = &CommerceFields{}
	}
	m.Contents[c.ID] = c
	return &c.Content, nil
}

func (m *Memory) get(id int64) (*MemoryContent, error) {
	c, ok := m.Contents[id]
	if !ok {
		return nil, fmt.Errorf("no content with id %d", id)
	}
	return c, nil
}

func (m *Memory) SetTaxonomyTerms(ctx context.Context, id int64, taxonomy string, terms []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.Taxonomies[taxonomy] {
		return fmt.Errorf("%w: %s", ErrUnknownTaxonomy, taxonomy)
	}
	c, err := m.get(id)
	if err != nil {
		return err
	}
	c.Terms[taxonomy] = append([]string(nil), terms...)
	return nil
}

func (m *Memory) SetMeta(ctx context.Context, id int64, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.get(id)
	if err != nil {
		return err
	}
	c.Meta[key] = value
	return nil
}

func (m *Memory) SetCommerceFields(ctx context.Context, id int64, f CommerceFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.get(id)
	if err != nil {
		return err
	}
	if c.Commerce == nil {
		return nil
	}
	if f.Price != "" {
		c.Commerce.Price = f.Price
	}
	if f.SalePrice != "" {
		c.Commerce.SalePrice = f.SalePrice
	}
	if f.StockStatus != "" {
		c.Commerce.StockStatus = f.StockStatus
	}
	return nil
}

func (m *Memory) SetPrimaryMedia(ctx context.Context, id int64, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.get(id)
	if err != nil {
		return err
	}
	c.Featured = handle
	return nil
}

func (m *Memory) AppendGalleryMarker(ctx context.Context, id int64, handles []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.get(id)
	if err != nil {
		return err
	}
	c.Gallery = append(c.Gallery, handles...)
	if !strings.Contains(c.Body, GalleryMarker) {
		c.Body += fmt.Sprintf("\n\n[gallery ids=\"%s\"]", strings.Join(handles, ","))
	}
	return nil
}
