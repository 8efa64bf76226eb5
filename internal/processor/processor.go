package processor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"contentsync/internal/logger"
	"contentsync/internal/models"
	"contentsync/internal/runlog"
	"contentsync/internal/store"
)

// Processor applies type-specific field mapping to a freshly created
// content. Every variant first runs the standard behavior (taxonomies and
// meta); the variant layers its own fields on top. Errors fail the record,
// never the run.
type Processor interface {
	Enrich(ctx context.Context, c *store.Content, rec models.ContentRecord, rl *runlog.Log) error
}

// Registry maps a content type to its processor. The mapping is fixed at
// construction; unrecognized types are filtered out before dispatch.
type Registry map[string]Processor

// NewRegistry builds the standard type→processor table over st.
func NewRegistry(st store.ContentStore) Registry {
	standard := &Standard{Store: st}
	return Registry{
		"post":    standard,
		"product": &Commerce{Standard: standard},
		"listing": &Listing{Standard: standard},
	}
}

// Known reports whether contentType has a processor.
func (r Registry) Known(contentType string) bool {
	_, ok := r[contentType]
	return ok
}

// For returns the processor for contentType, or nil.
func (r Registry) For(contentType string) Processor {
	return r[contentType]
}

// Standard applies the behavior shared by every content type: taxonomy
// terms (unknown taxonomies are skipped) and meta pairs under sanitized
// keys.
type Standard struct {
	Store store.ContentStore
}

func (p *Standard) Enrich(ctx context.Context, c *store.Content, rec models.ContentRecord, rl *runlog.Log) error {
	log := logger.Log.WithField("content_id", c.ID)

	for taxonomy, terms := range rec.Taxonomies {
		if len(terms) == 0 {
			continue
		}
		if err := p.Store.SetTaxonomyTerms(ctx, c.ID, taxonomy, terms); err != nil {
			if errors.Is(err, store.ErrUnknownTaxonomy) {
				log.Warnf("Skipping unknown taxonomy %q", taxonomy)
				rl.Appendf("Skipped unknown taxonomy '%s' for '%s'", taxonomy, c.Title)
				continue
			}
			return fmt.Errorf("set terms for %q: %w", taxonomy, err)
		}
	}

	for key, value := range rec.Meta {
		if err := p.Store.SetMeta(ctx, c.ID, SanitizeKey(key), value); err != nil {
			return fmt.Errorf("set meta %q: %w", key, err)
		}
	}
	return nil
}

// Commerce additionally maps price and stock attributes out of meta. A
// content without a commerce object in the store is left as-is; the
// import still counts.
type Commerce struct {
	*Standard
}

func (p *Commerce) Enrich(ctx context.Context, c *store.Content, rec models.ContentRecord, rl *runlog.Log) error {
	if err := p.Standard.Enrich(ctx, c, rec, rl); err != nil {
		return err
	}

	fields := store.CommerceFields{
		Price:       metaString(rec.Meta, "price"),
		SalePrice:   metaString(rec.Meta, "sale_price"),
		StockStatus: metaString(rec.Meta, "stock_status"),
	}
	if fields == (store.CommerceFields{}) {
		return nil
	}
	if err := p.Store.SetCommerceFields(ctx, c.ID, fields); err != nil {
		return fmt.Errorf("set commerce fields: %w", err)
	}
	return nil
}

// Listing is currently identical to Standard. Listing-specific fields
// (location, hours, contact) land here when the provider starts sending
// them.
type Listing struct {
	*Standard
}

// SanitizeKey lowercases a meta key and replaces anything outside
// [a-z0-9_] with an underscore, so provider keys are safe store keys.
func SanitizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, key)
}

func metaString(meta map[string]any, key string) string {
	v, ok := meta[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
