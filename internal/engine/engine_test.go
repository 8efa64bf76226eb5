package engine_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"contentsync/internal/engine"
	"contentsync/internal/media"
	"contentsync/internal/models"
	"contentsync/internal/processor"
	"contentsync/internal/settings"
	"contentsync/internal/source"
	"contentsync/internal/store"

	"github.com/stretchr/testify/require"
)

// fakeSource mimics the provider client, including its pre-network token
// check.
type fakeSource struct {
	records []models.ContentRecord
	err     error

	mu      sync.Mutex
	fetches int
	block   chan struct{}
}

func (f *fakeSource) Fetch(ctx context.Context, token, sourceID string) ([]models.ContentRecord, error) {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if token == "" {
		return nil, source.ErrMissingToken
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.records) == 0 {
		return nil, source.ErrEmptyDataset
	}
	return f.records, nil
}

// fakeMediaStore is the minimal media boundary: every download succeeds
// and temp handling is tracked so runs can assert the cleanup invariant.
type fakeMediaStore struct {
	liveTemps map[string]bool
	n         int
}

func newFakeMediaStore() *fakeMediaStore {
	return &fakeMediaStore{liveTemps: map[string]bool{}}
}

func (f *fakeMediaStore) DownloadToTemp(ctx context.Context, rawURL string) (string, error) {
	f.n++
	temp := fmt.Sprintf("tmp-%d", f.n)
	f.liveTemps[temp] = true
	return temp, nil
}

func (f *fakeMediaStore) PersistFromTemp(tempPath string, ownerID int64) (string, error) {
	delete(f.liveTemps, tempPath)
	return "handle-" + tempPath, nil
}

func (f *fakeMediaStore) DeleteTemp(tempPath string) error {
	delete(f.liveTemps, tempPath)
	return nil
}

type fixture struct {
	eng      *engine.Engine
	contents *store.Memory
	set      *settings.Memory
	media    *fakeMediaStore
}

func newFixture(src engine.Source, token string) *fixture {
	contents := store.NewMemory()
	set := settings.NewMemory(settings.SyncConfig{
		Token:           token,
		SourceID:        "src-1",
		AutoSync:        true,
		IntervalMinutes: 15,
	})
	mediaStore := newFakeMediaStore()
	sideloader := media.NewSideloader(mediaStore, contents)
	registry := processor.NewRegistry(contents)

	return &fixture{
		eng:      engine.New(src, contents, set, registry, sideloader),
		contents: contents,
		set:      set,
		media:    mediaStore,
	}
}

func TestRunOnce_ImportsBatch(t *testing.T) {
	src := &fakeSource{records: []models.ContentRecord{
		{ContentType: "post", Title: "Hello"},
		{ContentType: "product", Title: "Mug", Meta: map[string]any{"price": "12.00"}},
	}}
	f := newFixture(src, "secret")

	summary, err := f.eng.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, engine.SummaryComplete, summary)

	require.Len(t, f.contents.Contents, 2)
	require.Contains(t, f.set.LogBlob, "Imported: 'Hello'")
	require.Contains(t, f.set.LogBlob, "Imported: 'Mug'")
	require.Contains(t, f.set.LogBlob, "Sync finished: 2 imported, 0 skipped")
	require.False(t, f.set.RunAt.IsZero())
}

func TestRunOnce_IdempotentRerun(t *testing.T) {
	src := &fakeSource{records: []models.ContentRecord{
		{ContentType: "post", Title: "One"},
		{ContentType: "post", Title: "Two"},
	}}
	f := newFixture(src, "secret")

	_, err := f.eng.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, f.contents.Contents, 2)

	// Unchanged upstream dataset: second run imports nothing new.
	_, err = f.eng.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, f.contents.Contents, 2)
	require.Contains(t, f.set.LogBlob, "Sync finished: 0 imported, 2 skipped")
	require.Contains(t, f.set.LogBlob, "Skipped duplicate: 'One'")
}

func TestRunOnce_MissingToken(t *testing.T) {
	src := &fakeSource{records: []models.ContentRecord{{ContentType: "post", Title: "Never"}}}
	f := newFixture(src, "")

	summary, err := f.eng.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, engine.SummaryFailed, summary)

	require.Empty(t, f.contents.Contents)
	require.Equal(t, 1, len(strings.Split(f.set.LogBlob, "\n")))
	require.Contains(t, f.set.LogBlob, "Error: API Token is missing")
	require.True(t, f.set.RunAt.IsZero(), "a faulted run must not move the last-run timestamp")
}

func TestRunOnce_FatalShortCircuit(t *testing.T) {
	src := &fakeSource{err: &source.UpstreamStatusError{Code: 500}}
	f := newFixture(src, "secret")

	summary, err := f.eng.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, engine.SummaryFailed, summary)

	require.Empty(t, f.contents.Contents, "no Create may be issued after an upstream failure")
	lines := strings.Split(f.set.LogBlob, "\n")
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "unexpected provider status: 500")
}

func TestRunOnce_EmptyDataset(t *testing.T) {
	src := &fakeSource{}
	f := newFixture(src, "secret")

	summary, err := f.eng.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, engine.SummaryComplete, summary)
	require.Contains(t, f.set.LogBlob, "nothing to import")
	require.Contains(t, f.set.LogBlob, "Sync finished: 0 imported, 0 skipped")
	require.False(t, f.set.RunAt.IsZero())
}

func TestRunOnce_PartialFailureIsolation(t *testing.T) {
	records := []models.ContentRecord{
		{ContentType: "post", Title: "A"},
		{ContentType: "podcast", Title: "B"}, // unknown type
		{ContentType: "post", Title: "C"},
		{ContentType: "post"}, // no title
		{ContentType: "listing", Title: "D"},
	}
	f := newFixture(&fakeSource{records: records}, "secret")

	summary, err := f.eng.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, engine.SummaryComplete, summary)

	require.Len(t, f.contents.Contents, 3)
	require.Contains(t, f.set.LogBlob, "Skipped 'B': unknown content type 'podcast'")
	require.Contains(t, f.set.LogBlob, "Skipped record without a title")
	require.Contains(t, f.set.LogBlob, "Sync finished: 3 imported, 2 skipped")
}

func TestRunOnce_DuplicateWithinBatch(t *testing.T) {
	records := []models.ContentRecord{
		{ContentType: "post", Title: "Same"},
		{ContentType: "post", Title: "Same"},
	}
	f := newFixture(&fakeSource{records: records}, "secret")

	_, err := f.eng.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, f.contents.Contents, 1)
	require.Contains(t, f.set.LogBlob, "Skipped duplicate: 'Same'")
	require.Contains(t, f.set.LogBlob, "Sync finished: 1 imported, 1 skipped")
}

func TestRunOnce_NoMediaRecord(t *testing.T) {
	f := newFixture(&fakeSource{records: []models.ContentRecord{
		{ContentType: "post", Title: "Hello"},
	}}, "secret")

	_, err := f.eng.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, f.contents.Contents, 1)
	for _, c := range f.contents.Contents {
		require.Empty(t, c.Featured)
		require.Empty(t, c.Gallery)
	}
	require.Contains(t, f.set.LogBlob, "Imported: 'Hello'")
	require.Empty(t, f.media.liveTemps)
}

func TestRunOnce_MediaAttached(t *testing.T) {
	f := newFixture(&fakeSource{records: []models.ContentRecord{
		{
			ContentType:   "post",
			Title:         "Pics",
			FeaturedMedia: "https://cdn.example.com/cover.jpg",
			GalleryMedia:  []string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg"},
		},
	}}, "secret")

	_, err := f.eng.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, f.contents.Contents, 1)
	for _, c := range f.contents.Contents {
		require.NotEmpty(t, c.Featured)
		require.Len(t, c.Gallery, 2)
		require.Contains(t, c.Body, store.GalleryMarker)
	}
	require.Empty(t, f.media.liveTemps, "no temp resource may survive the run")
}

func TestRunOnce_BusyWhileRunning(t *testing.T) {
	src := &fakeSource{
		records: []models.ContentRecord{{ContentType: "post", Title: "Slow"}},
		block:   make(chan struct{}),
	}
	f := newFixture(src, "secret")

	done := make(chan string, 1)
	go func() {
		summary, _ := f.eng.RunOnce(context.Background())
		done <- summary
	}()

	// Wait until the first run is inside Fetch, then try a second run.
	for {
		src.mu.Lock()
		started := src.fetches > 0
		src.mu.Unlock()
		if started {
			break
		}
		time.Sleep(time.Millisecond)
	}

	summary, err := f.eng.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, engine.SummaryBusy, summary)

	close(src.block)
	require.Equal(t, engine.SummaryComplete, <-done)
}

func TestRunOnce_LogPersistFailureSurfaces(t *testing.T) {
	f := newFixture(&fakeSource{records: []models.ContentRecord{
		{ContentType: "post", Title: "Hello"},
	}}, "secret")
	f.set.SaveLogErr = errors.New("disk full")

	summary, err := f.eng.RunOnce(context.Background())
	require.Error(t, err)
	require.Equal(t, engine.SummaryFailed, summary)
}

func TestClearHistory(t *testing.T) {
	f := newFixture(&fakeSource{records: []models.ContentRecord{
		{ContentType: "post", Title: "Hello"},
	}}, "secret")

	_, err := f.eng.RunOnce(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, f.set.LogBlob)

	require.NoError(t, f.eng.ClearHistory(context.Background()))
	require.Empty(t, f.set.LogBlob)
	require.True(t, f.set.RunAt.IsZero())
}
