package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"contentsync/internal/logger"
	"contentsync/internal/metrics"
	"contentsync/internal/models"
	"contentsync/internal/runlog"
	"contentsync/internal/store"
)

var (
	ErrInvalidURL     = errors.New("invalid media url")
	ErrDownloadFailed = errors.New("media download failed")
)

// MediaStore is the boundary to local media persistence. DownloadToTemp
// produces a scoped temp resource; PersistFromTemp takes ownership of it
// on success; DeleteTemp releases it on any other path.
type MediaStore interface {
	DownloadToTemp(ctx context.Context, rawURL string) (tempPath string, err error)
	PersistFromTemp(tempPath string, ownerID int64) (handle string, err error)
	DeleteTemp(tempPath string) error
}

// Sideloader fetches remote media into the media store and attaches the
// resulting handles to contents.
type Sideloader struct {
	media   MediaStore
	content store.ContentStore
}

func NewSideloader(media MediaStore, content store.ContentStore) *Sideloader {
	return &Sideloader{media: media, content: content}
}

// Sideload downloads rawURL and hands it to the media store. The temp
// resource never outlives the call: success transfers ownership to the
// store, every failure after the download deletes it.
func (s *Sideloader) Sideload(ctx context.Context, rawURL string, ownerID int64) (string, error) {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}

	tempPath, err := s.media.DownloadToTemp(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	handle, err := s.media.PersistFromTemp(tempPath, ownerID)
	if err != nil {
		if delErr := s.media.DeleteTemp(tempPath); delErr != nil {
			logger.Log.Warnf("Failed to delete temp media %s: %v", tempPath, delErr)
		}
		return "", fmt.Errorf("persist media: %w", err)
	}
	return handle, nil
}

// Attach sideloads the record's featured and gallery media onto c. Every
// failure is logged and non-fatal; gallery URLs are independent of each
// other, so partial success is expected. Successfully stored gallery
// handles are recorded through AppendGalleryMarker, which keeps the body
// marker idempotent.
func (s *Sideloader) Attach(ctx context.Context, c *store.Content, rec models.ContentRecord, rl *runlog.Log) {
	log := logger.Log.WithField("content_id", c.ID)

	if rec.FeaturedMedia != "" {
		handle, err := s.Sideload(ctx, rec.FeaturedMedia, c.ID)
		if err != nil {
			metrics.SideloadFailures.Inc()
			log.Warnf("Featured media failed: %v", err)
			rl.Appendf("Featured image failed for '%s': %v", c.Title, err)
		} else if err := s.content.SetPrimaryMedia(ctx, c.ID, handle); err != nil {
			log.Warnf("Set primary media failed: %v", err)
			rl.Appendf("Featured image failed for '%s': %v", c.Title, err)
		}
	}

	if len(rec.GalleryMedia) == 0 {
		return
	}

	var handles []string
	for _, mediaURL := range rec.GalleryMedia {
		handle, err := s.Sideload(ctx, mediaURL, c.ID)
		if err != nil {
			metrics.SideloadFailures.Inc()
			log.Warnf("Gallery media failed: %v", err)
			rl.Appendf("Gallery image failed for '%s': %v", c.Title, err)
			continue
		}
		handles = append(handles, handle)
	}
	if len(handles) == 0 {
		return
	}
	if err := s.content.AppendGalleryMarker(ctx, c.ID, handles); err != nil {
		log.Warnf("Append gallery failed: %v", err)
		rl.Appendf("Gallery failed for '%s': %v", c.Title, err)
	}
}
