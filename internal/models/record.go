package models

import "strings"

// DefaultContentType is assumed when a provider record carries no
// contentType field.
const DefaultContentType = "post"

// ContentRecord is one unit of provider-supplied content awaiting import.
// The named fields cover the keys the engine promotes to first-class
// columns; anything else the provider sends rides along in Meta untouched.
// Records are transient: decoded from the fetch response, processed once
// and discarded.
type ContentRecord struct {
	ContentType   string              `json:"contentType"`
	Title         string              `json:"title"`
	Body          string              `json:"body"`
	Status        string              `json:"status"`
	Slug          string              `json:"slug"`
	Excerpt       string              `json:"excerpt"`
	PublishedAt   string              `json:"publishedAt"`
	Author        string              `json:"author"`
	Taxonomies    map[string][]string `json:"taxonomies"`
	Meta          map[string]any      `json:"meta"`
	FeaturedMedia string              `json:"featuredMedia"`
	GalleryMedia  []string            `json:"galleryMedia"`
}

// Validate normalizes a raw record and reports whether it is importable.
// The title must be non-empty after trimming; a missing contentType falls
// back to DefaultContentType; a contentType the processor registry does
// not recognize rejects the record. Rejection is a per-record skip, never
// an error.
func Validate(rec ContentRecord, known func(string) bool) (ContentRecord, bool) {
	rec.Title = strings.TrimSpace(rec.Title)
	if rec.Title == "" {
		return rec, false
	}
	rec.ContentType = strings.TrimSpace(rec.ContentType)
	if rec.ContentType == "" {
		rec.ContentType = DefaultContentType
	}
	if !known(rec.ContentType) {
		return rec, false
	}
	return rec, true
}
