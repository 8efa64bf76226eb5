package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// DefaultExtension is appended when a media URL path carries no file
// extension, so the store can still infer a type for the file.
const DefaultExtension = ".jpg"

const downloadTimeout = 30 * time.Second

// DiskStore implements MediaStore on the local filesystem: temp downloads
// under dir/tmp, persisted files directly under dir, uuid file names as
// handles.
type DiskStore struct {
	dir    string
	client *http.Client
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "tmp"), 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &DiskStore{
		dir:    dir,
		client: &http.Client{Timeout: downloadTimeout},
	}, nil
}

func (d *DiskStore) DownloadToTemp(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	f, err := os.CreateTemp(filepath.Join(d.dir, "tmp"), "sideload-*"+extensionFor(rawURL))
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (d *DiskStore) PersistFromTemp(tempPath string, ownerID int64) (string, error) {
	handle := uuid.NewString() + filepath.Ext(tempPath)
	if err := os.Rename(tempPath, filepath.Join(d.dir, handle)); err != nil {
		return "", err
	}
	return handle, nil
}

func (d *DiskStore) DeleteTemp(tempPath string) error {
	return os.Remove(tempPath)
}

func extensionFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return DefaultExtension
	}
	if ext := path.Ext(u.Path); ext != "" {
		return ext
	}
	return DefaultExtension
}
