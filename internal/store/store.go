package store

import (
	"context"
	"errors"

	"contentsync/internal/models"
)

// ErrUnknownTaxonomy is returned by SetTaxonomyTerms for a taxonomy name
// the store does not know. Callers skip the taxonomy and continue.
var ErrUnknownTaxonomy = errors.New("unknown taxonomy")

// GalleryMarker is the literal substring whose presence in a content body
// means the gallery block has already been appended.
const GalleryMarker = "[gallery"

// Content is the engine's reference to a persisted entity. The store owns
// the entity; the engine holds this reference only for the current run.
type Content struct {
	ID     int64
	Type   string
	Title  string
	Status string
}

// CommerceFields carries the optional commerce attributes applied on top
// of a created content. Empty strings mean "leave unset".
type CommerceFields struct {
	Price       string
	SalePrice   string
	StockStatus string
}

// ContentStore is the boundary to the hosting content-management store.
// Implementations serialize their own writes; the engine calls them
// sequentially within a run.
type ContentStore interface {
	// Exists reports whether a content of the given type with exactly the
	// given (trimmed) title is already stored, regardless of its status.
	Exists(ctx context.Context, contentType, title string) (bool, error)

	// Create persists a new content entity from the record's core fields
	// and returns a reference to it.
	Create(ctx context.Context, rec models.ContentRecord) (*Content, error)

	// SetTaxonomyTerms assigns the ordered term list under the named
	// taxonomy. Unknown taxonomies yield ErrUnknownTaxonomy.
	SetTaxonomyTerms(ctx context.Context, id int64, taxonomy string, terms []string) error

	// SetMeta stores one meta key/value pair on the content.
	SetMeta(ctx context.Context, id int64, key string, value any) error

	// SetCommerceFields applies price and stock attributes. A content
	// without a commerce row is a no-op, not an error.
	SetCommerceFields(ctx context.Context, id int64, f CommerceFields) error

	// SetPrimaryMedia records the featured media handle.
	SetPrimaryMedia(ctx context.Context, id int64, handle string) error

	// AppendGalleryMarker records the gallery handles and appends the
	// gallery block to the body unless the body already contains
	// GalleryMarker.
	AppendGalleryMarker(ctx context.Context, id int64, handles []string) error
}
